// Package app wires the configuration, store, buses and outer surfaces of
// gryfd together and owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/gryfd/pkg/api"
	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/configflow"
	"github.com/urmzd/gryfd/pkg/db"
	"github.com/urmzd/gryfd/pkg/device/schema"
	"github.com/urmzd/gryfd/pkg/gryf"
	"github.com/urmzd/gryfd/pkg/hass"
	"github.com/urmzd/gryfd/pkg/integration"
	"github.com/urmzd/gryfd/pkg/mqtt"
	"github.com/urmzd/gryfd/pkg/telemetry"
)

// App is the application container. New opens the store and builds the
// core; Start brings up sinks, buses and the HTTP API.
type App struct {
	cfg *config.Config

	db        *db.DB
	validator *schema.Validator
	registry  *integration.Registry
	manager   *integration.Manager
	flows     *configflow.Manager

	mqtt      *mqtt.Client
	bridge    *hass.Bridge
	telemetry *telemetry.Client
	server    *http.Server
	listener  net.Listener

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New opens and migrates the database and builds the registry, the bus
// manager and the config flow manager. Nothing talks to a bus yet.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	log.Info().Str("path", database.Path()).Msg("Database opened")

	if err := database.Migrate(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	validator := schema.NewValidator()
	registry := integration.NewRegistry(validator, database.States())
	manager := integration.NewManager(registry, database.Entries(), integration.Options{
		UpdateInterval: cfg.Bus.UpdateInterval.Duration(),
		ExpertAddress:  cfg.Expert.Address,
		APIOptions: []gryf.Option{
			gryf.WithBaudRate(cfg.Bus.BaudRate),
			gryf.WithReconnectDelay(cfg.Bus.ReconnectDelay.Duration()),
		},
	})

	return &App{
		cfg:       cfg,
		db:        database,
		validator: validator,
		registry:  registry,
		manager:   manager,
		flows:     configflow.NewManager(database.Entries(), manager, validator),
	}, nil
}

// Registry is the entity controller.
func (a *App) Registry() *integration.Registry { return a.registry }

// Manager owns the buses and runs the bus services.
func (a *App) Manager() *integration.Manager { return a.manager }

// Validator checks commands against entity state schemas.
func (a *App) Validator() *schema.Validator { return a.validator }

// Start connects the sinks, sets up the YAML section and stored entries
// and starts the HTTP API when enabled. A bus that cannot be opened is
// logged, not fatal: stored entries keep retrying in the background.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if err := a.startMQTT(ctx); err != nil {
		return err
	}
	a.startTelemetry()

	if err := a.manager.SetupYAML(ctx, a.cfg.Gryf); err != nil {
		log.Warn().Err(err).Msg("YAML bus not available")
	}
	if err := a.manager.SetupEntries(ctx); err != nil {
		return err
	}

	if a.cfg.API.Enabled {
		if err := a.startAPI(); err != nil {
			return err
		}
	}

	log.Info().Int("entities", a.entityCount(ctx)).Msg("gryfd started")
	return nil
}

func (a *App) startMQTT(ctx context.Context) error {
	if !a.cfg.MQTT.Enabled {
		return nil
	}

	client, err := mqtt.Connect(a.cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connect mqtt: %w", err)
	}
	a.mqtt = client

	bridge := hass.NewBridge(client, hass.Topics{
		Prefix: a.cfg.MQTT.DiscoveryPrefix,
		Base:   a.cfg.MQTT.BaseTopic,
	}, byte(a.cfg.MQTT.QoS), a.registry)
	a.bridge = bridge
	a.registry.AddSink(bridge)
	client.SetOnConnect(bridge.Republish)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := bridge.Run(ctx); err != nil {
			log.Error().Err(err).Msg("MQTT bridge stopped")
		}
	}()
	return nil
}

func (a *App) startTelemetry() {
	if !a.cfg.InfluxDB.Enabled {
		return
	}

	client, err := telemetry.Connect(a.cfg.InfluxDB)
	if err != nil {
		log.Warn().Err(err).Msg("InfluxDB unavailable, state history disabled")
		return
	}
	a.telemetry = client
	a.registry.AddSink(client)
}

func (a *App) startAPI() error {
	router := api.NewRouter(api.Deps{
		Controller:  a.registry,
		Subscriber:  a.registry,
		Validator:   a.validator,
		Manager:     a.manager,
		Entries:     a.db.Entries(),
		Flows:       a.flows,
		CORSOrigins: a.cfg.API.CORSOrigins,
	})

	ln, err := net.Listen("tcp", a.cfg.API.Address())
	if err != nil {
		return fmt.Errorf("listen api: %w", err)
	}
	a.listener = ln
	a.server = &http.Server{Handler: router.Handler()}

	log.Info().Str("address", ln.Addr().String()).Msg("Starting API server")

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("API server failed")
		}
	}()
	return nil
}

// APIAddr is the address the HTTP API listens on, or "" when it is off.
func (a *App) APIAddr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Stop shuts down the API, unloads every bus and closes the sinks and the
// database. The hub bridge is detached first so retained discovery
// survives a restart.
func (a *App) Stop() error {
	log.Info().Msg("Shutting down...")

	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout.Duration())
		if err := a.server.Shutdown(ctx); err != nil {
			// Event streams never go idle on their own.
			log.Warn().Err(err).Msg("API shutdown incomplete, closing connections")
			_ = a.server.Close()
		}
		cancel()
	}

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	if a.bridge != nil {
		a.registry.RemoveSink(a.bridge)
	}

	a.manager.Close()
	a.registry.Close()

	if a.telemetry != nil {
		a.telemetry.Close()
	}
	if a.mqtt != nil {
		if err := a.mqtt.Close(); err != nil {
			log.Warn().Err(err).Msg("MQTT close failed")
		}
	}
	return a.db.Close()
}

func (a *App) entityCount(ctx context.Context) int {
	entities, err := a.registry.ListEntities(ctx)
	if err != nil {
		return 0
	}
	return len(entities)
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}

// SetupLogging configures the global zerolog logger. Output always goes to
// stderr; stdout may carry the MCP transport.
func SetupLogging(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.JSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !cfg.Colors,
		})
	}

	switch cfg.GetLevel() {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
