// Panelbridge relays cockpit panel input to Home Assistant.
//
// It subscribes to the panel's ZeroMQ event stream, watches the publisher's
// heartbeat, and turns key and pack events into Home Assistant service
// calls. Optionally it mirrors activity to MQTT, InfluxDB, a SQLite audit
// log and a local HTTP/WebSocket status API.
//
// Usage:
//
//	panelbridge [--config configs/config.yaml]
//	panelbridge version
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-panelbridge/internal/api"
	"github.com/nerrad567/gray-logic-panelbridge/internal/audit"
	"github.com/nerrad567/gray-logic-panelbridge/internal/bridges/panel"
	"github.com/nerrad567/gray-logic-panelbridge/internal/homeassistant"
	"github.com/nerrad567/gray-logic-panelbridge/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-panelbridge/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-panelbridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-panelbridge/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-panelbridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-panelbridge/internal/infrastructure/zmq"
	"github.com/nerrad567/gray-logic-panelbridge/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnvVar      = "PANELBRIDGE_CONFIG"
	envFile           = ".env"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1) //nolint:gocritic // exitAfterDefer: cancel is a no-op at exit
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "panelbridge",
		Short: "Cockpit panel to Home Assistant bridge",
		Long: `Subscribes to the panel's ZeroMQ event stream and drives Home Assistant
entities from key and pack events.

Configuration is read from YAML, then overridden by PANELBRIDGE_* environment
variables and the HA_BASE_URL, HA_TOKEN, HA_LIGHT_ENTITY_ID, HA_AC_ENTITY_ID
and ZMQ_SUB_ENDPOINT variables. A .env file in the working directory is
loaded first.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := resolveConfigPath(configPath, cmd.Flags().Changed("config"))
			return run(cmd.Context(), path)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath,
		"path to the YAML config file (env: "+configEnvVar+")")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "panelbridge %s (commit: %s, built: %s)\n", version, commit, date)
		},
	})

	return root
}

// resolveConfigPath picks the config file: the flag when given, then
// $PANELBRIDGE_CONFIG, then the default path if it exists. An empty result
// means environment-only configuration.
func resolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Cancelled on SIGINT/SIGTERM
//   - configPath: YAML file, or "" for environment-only configuration
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting panel bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)
	startTime := time.Now()

	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"endpoint", cfg.Bridge.Endpoint,
		"ha_base_url", cfg.HomeAssistant.BaseURL,
		"ha_token", logging.Redact(cfg.HomeAssistant.Token),
	)

	ha, err := homeassistant.NewClient(homeassistant.Config{
		BaseURL:         cfg.HomeAssistant.BaseURL,
		Token:           cfg.HomeAssistant.Token,
		LightDomain:     cfg.HomeAssistant.LightDomain,
		HVACMode:        cfg.HomeAssistant.HVACMode,
		Timeout:         cfg.GetHATimeout(),
		MaxAttempts:     cfg.HomeAssistant.Retry.MaxAttempts,
		InitialInterval: time.Duration(cfg.HomeAssistant.Retry.InitialInterval) * time.Millisecond,
		MaxInterval:     time.Duration(cfg.HomeAssistant.Retry.MaxInterval) * time.Millisecond,
		Logger:          log.Component("homeassistant"),
	})
	if err != nil {
		return fmt.Errorf("creating Home Assistant client: %w", err)
	}
	checkHomeAssistant(ctx, ha, log)

	dialer := zmq.NewDialer(zmq.Options{
		ReceiveHWM: cfg.Bridge.ReceiveHWM,
		Logger:     log.Component("zmq"),
	})

	bridge, err := panel.NewBridge(panel.Options{
		Endpoint: cfg.Bridge.Endpoint,
		Dial: func(ctx context.Context, endpoint string) (panel.Subscriber, error) {
			sub, err := dialer.Dial(ctx, endpoint)
			if err != nil {
				return nil, err
			}
			return sub, nil
		},
		Actuator:        ha,
		LightEntityID:   cfg.HomeAssistant.LightEntityID,
		ClimateEntityID: cfg.HomeAssistant.ClimateEntityID,
		Logger:          log.Component("panel"),
	})
	if err != nil {
		return fmt.Errorf("creating panel bridge: %w", err)
	}

	var observers panel.Observers
	var healthSource api.HealthSource

	// MQTT mirror and health (optional)
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(cfg.MQTT, log.Component("mqtt"))
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		health := panel.NewHealthReporter(panel.HealthReporterConfig{
			Version:   version,
			Interval:  cfg.GetHealthInterval(),
			Publisher: mqttClient,
			Source:    bridge,
		})
		health.SetLogger(log.Component("health"))
		if err := health.PublishStarting(); err != nil {
			log.Warn("publishing starting health failed", "error", err)
		}
		health.Start(ctx)
		defer health.Stop()

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
			if err := health.PublishNow(); err != nil {
				log.Warn("publishing health after reconnect failed", "error", err)
			}
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		observers = append(observers, panel.NewMQTTObserver(mqttClient, health, log.Component("mqtt")))
		healthSource = health
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB, log.Component("influxdb"))
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		observers = append(observers, newTelemetryObserver(influxClient))
	} else {
		log.Info("InfluxDB disabled")
	}

	// SQLite audit log (optional)
	var auditRepo audit.Repository
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = openDatabase(ctx, cfg.Database, migrations.FS, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		repo := audit.NewSQLiteRepository(db.DB)
		auditRepo = repo
		observers = append(observers, audit.NewRecorder(repo, log.Component("audit")))
	} else {
		log.Info("audit database disabled")
	}

	// Status API and live feed (optional)
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:    cfg.API,
			WS:        cfg.WebSocket,
			Logger:    log.Component("api"),
			Bridge:    bridge,
			Health:    healthSource,
			Audit:     auditRepo,
			Version:   version,
			StartTime: startTime,
		}
		if db != nil {
			deps.DB = db
		}
		srv, err := api.New(deps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		observers = append(observers, srv.Hub())
	} else {
		log.Info("status API disabled")
	}

	bridge.SetObserver(observers)

	log.Info("initialisation complete, running bridge", "observers", len(observers))
	if err := bridge.Run(ctx); err != nil {
		return fmt.Errorf("running bridge: %w", err)
	}

	log.Info("panel bridge stopped")
	return nil
}

// openDatabase opens the audit store and applies pending migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, fsys fs.FS, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	applied, err := db.Migrate(ctx, fsys)
	if err != nil {
		db.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path(), "migrations_applied", applied)
	return db, nil
}

// checkHomeAssistant logs whether Home Assistant is reachable. Startup
// continues either way; calls are retried per event.
func checkHomeAssistant(ctx context.Context, ha *homeassistant.Client, log *logging.Logger) {
	checkCtx, cancel := context.WithTimeout(ctx, homeassistant.DefaultTimeout)
	defer cancel()

	err := ha.HealthCheck(checkCtx)
	switch {
	case err == nil:
		log.Info("Home Assistant reachable")
	case homeassistant.IsUnauthorized(err):
		log.Error("Home Assistant rejected the token", "error", err)
	case errors.Is(err, context.Canceled):
	default:
		log.Warn("Home Assistant not reachable yet", "error", err)
	}
}
