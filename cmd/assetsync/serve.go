package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	_ "github.com/nerrad567/assetsync/migrations"

	"github.com/nerrad567/assetsync/internal/api"
	"github.com/nerrad567/assetsync/internal/audit"
	"github.com/nerrad567/assetsync/internal/fixture"
	"github.com/nerrad567/assetsync/internal/gis"
	"github.com/nerrad567/assetsync/internal/infrastructure/config"
	"github.com/nerrad567/assetsync/internal/infrastructure/database"
	"github.com/nerrad567/assetsync/internal/infrastructure/influxdb"
	"github.com/nerrad567/assetsync/internal/infrastructure/logging"
	"github.com/nerrad567/assetsync/internal/infrastructure/metrics"
	"github.com/nerrad567/assetsync/internal/infrastructure/mqtt"
	"github.com/nerrad567/assetsync/internal/infrastructure/tracing"
	"github.com/nerrad567/assetsync/internal/notify"
	"github.com/nerrad567/assetsync/internal/reconcile"
	"github.com/nerrad567/assetsync/internal/registry"
	"github.com/nerrad567/assetsync/internal/tracking"
	"github.com/nerrad567/assetsync/internal/workflow"
	"github.com/nerrad567/assetsync/internal/zone"
)

func newServeCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the change event webhook server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath())
		},
	}
}

// run wires every component, serves until ctx is cancelled and then closes
// everything in reverse order of opening.
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting assetsync",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	// Tracing
	tp, err := tracing.New(ctx, cfg.Tracing, cfg.Service.Name, version)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	tp.SetGlobal()
	defer func() {
		if shutdownErr := tp.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			log.Error("error shutting down tracing", "error", shutdownErr)
		}
	}()
	log.Info("tracing initialised", "exporting", tp.Exporting())

	// Local state database
	db, err := openStateDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing state database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing state database", "error", closeErr)
		}
	}()
	log.Info("state database ready", "path", cfg.Database.Path)

	// Fixture store
	storeDB, err := database.OpenStore(database.StoreConfig{
		Driver: cfg.FixtureStore.Driver,
		DSN:    cfg.FixtureStore.DSN,
	})
	if err != nil {
		return fmt.Errorf("opening fixture store: %w", err)
	}
	defer func() {
		log.Info("closing fixture store")
		if closeErr := storeDB.Close(); closeErr != nil {
			log.Error("error closing fixture store", "error", closeErr)
		}
	}()
	fixtures, err := fixture.NewSQLStore(storeDB, cfg.FixtureStore.Driver, cfg.FixtureStore.Table, cfg.FixtureTimeout())
	if err != nil {
		return fmt.Errorf("creating fixture store: %w", err)
	}
	log.Info("fixture store connected", "driver", cfg.FixtureStore.Driver, "table", cfg.FixtureStore.Table)

	// Zones
	zones, err := zone.LoadFile(cfg.Zones.File, cfg.Zones.DefaultIdent)
	if err != nil {
		return fmt.Errorf("loading zones: %w", err)
	}
	log.Info("zones loaded", "file", cfg.Zones.File, "zones", zones.Len())

	// Registry: token and site session are established once for the process.
	reg := registry.NewClient(registry.ClientConfig{
		BaseURL:  cfg.Registry.BaseURL,
		Username: cfg.Registry.Username,
		Password: cfg.Registry.Password,
		ClientID: cfg.Registry.ClientID,
		Site:     cfg.Registry.Site,
		GroupID:  cfg.Registry.GroupID,
		Timeout:  cfg.RegistryTimeout(),
	})
	reg.SetLogger(log)
	if err := reg.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticating with registry: %w", err)
	}
	if err := reg.OpenSession(ctx); err != nil {
		return fmt.Errorf("opening registry session: %w", err)
	}

	board := tracking.NewMondayClient(tracking.MondayConfig{
		APIURL:  cfg.Tracking.APIURL,
		FileURL: cfg.Tracking.FileURL,
		APIKey:  cfg.Tracking.APIKey,
		BoardID: cfg.Tracking.BoardID,
		GroupID: cfg.Tracking.GroupID,
		Timeout: cfg.TrackingTimeout(),
	})

	images := gis.NewClient(gis.Config{
		PicturesURL: cfg.GIS.PicturesURL,
		APIKey:      cfg.GIS.APIKey,
		Timeout:     cfg.GISTimeout(),
	})

	m := metrics.New()
	observers := []workflow.Observer{notify.NewMetrics(m)}
	checks := map[string]api.HealthChecker{
		"state_db":      db,
		"fixture_store": fixtures,
		"registry":      reg,
		"tracking":      board,
	}

	// MQTT (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		observers = append(observers, notify.NewMQTT(mqttClient, log))
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		observers = append(observers, notify.NewInflux(influxClient))
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	orchestrator, err := reconcile.New(reconcile.Deps{
		Registry: reg,
		Fixtures: fixtures,
		Zones:    zones,
		Settings: reconcile.Settings{
			RegistryGatewayID: cfg.Registry.GatewayID,
			FixtureGatewayID:  cfg.FixtureStore.GatewayID,
			DeviceTypeID:      cfg.Registry.DeviceTypeID,
			SwitchGroups:      cfg.Registry.SwitchGroups,
		},
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}

	logRepo := audit.NewSQLiteRepository(db.DB)
	recorder, err := audit.NewRecorder(audit.RecorderDeps{
		Board:   board,
		Index:   audit.NewSQLiteIndex(db.DB),
		Log:     logRepo,
		Images:  images,
		LayerID: cfg.GIS.LayerID,
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("creating recorder: %w", err)
	}

	service, err := workflow.NewService(orchestrator, recorder,
		workflow.WithObservers(observers...),
		workflow.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("creating workflow: %w", err)
	}

	// Verify all connections are healthy before accepting events
	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	server, err := api.New(api.Deps{
		Config:  cfg.API,
		Logger:  log,
		Events:  service,
		Log:     logRepo,
		Metrics: m,
		Checks:  checks,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: the API server drains
	// in-flight events first, then InfluxDB, MQTT, the fixture store, the
	// state database and finally tracing.
	return nil
}

// openStateDB opens the local SQLite state file and applies migrations.
func openStateDB(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// startupCheckTimeout bounds each dependency probe at startup.
const startupCheckTimeout = 15 * time.Second

// healthCheck verifies each dependency once, in a fixed order, before the
// server accepts events.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for _, name := range []string{"state_db", "fixture_store", "registry", "tracking", "mqtt", "influxdb"} {
		c, ok := checks[name]
		if !ok {
			continue
		}
		checkCtx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
		err := c.HealthCheck(checkCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
