package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/gryfd/pkg/app"
	"github.com/urmzd/gryfd/pkg/config"

	_ "github.com/urmzd/gryfd/docs"
)

// @title           gryfd API
// @version         1.0
// @description     REST API for Gryf Smart buses: entities, bus services and config entries

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	dbPath := flag.String("db", "", "Path to database file (overrides database.path)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", configPath).Msg("Failed to load configuration")
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	app.SetupLogging(cfg.Log)

	log.Info().
		Str("config", configPath).
		Bool("mqtt", cfg.MQTT.Enabled).
		Bool("api", cfg.API.Enabled).
		Bool("influxdb", cfg.InfluxDB.Enabled).
		Msg("Starting gryfd")

	ctx := app.SignalContext()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	if err := application.Start(ctx); err != nil {
		_ = application.Stop()
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-ctx.Done()

	if err := application.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}
