package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/gryfd/pkg/app"
	"github.com/urmzd/gryfd/pkg/config"
	gryfmcp "github.com/urmzd/gryfd/pkg/mcp"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	dbPath := flag.String("db", "", "Path to database file (overrides database.path)")
	flag.Parse()

	// Logging must go to stderr: stdout is the MCP transport
	cfg, err := config.Load(*configPath)
	if err != nil {
		app.SetupLogging(config.LogConfig{Level: "info"})
		log.Fatal().Err(err).Str("config", *configPath).Msg("Failed to load configuration")
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	app.SetupLogging(cfg.Log)

	ctx := app.SignalContext()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}
	if err := application.Start(ctx); err != nil {
		_ = application.Stop()
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	mcpServer := gryfmcp.NewServer(application.Registry(), application.Validator(), application.Manager())

	log.Info().Msg("Starting MCP server on stdio")

	done := make(chan error, 1)
	go func() { done <- mcpServer.ServeStdio() }()

	select {
	case err = <-done:
	case <-ctx.Done():
	}

	if stopErr := application.Stop(); stopErr != nil {
		log.Error().Err(stopErr).Msg("Error during shutdown")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
