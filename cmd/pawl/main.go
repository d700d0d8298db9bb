// Pawl Core - admin control plane for Ratchet devices.
//
// Pawl Core authenticates operators, keeps operator and device credentials
// encrypted at rest, and pushes every change to watching operators and
// Ratchet nodes.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/pawl-core/migrations"

	"github.com/nerrad567/pawl-core/internal/api"
	"github.com/nerrad567/pawl-core/internal/auth"
	"github.com/nerrad567/pawl-core/internal/cryptox"
	"github.com/nerrad567/pawl-core/internal/infrastructure/config"
	"github.com/nerrad567/pawl-core/internal/infrastructure/database"
	"github.com/nerrad567/pawl-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/pawl-core/internal/infrastructure/logging"
	"github.com/nerrad567/pawl-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/pawl-core/internal/notify"
	"github.com/nerrad567/pawl-core/internal/registry"
	"github.com/nerrad567/pawl-core/internal/store"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled. Generated
// bootstrap secrets are written to out, never to the log.
func run(ctx context.Context, out io.Writer) error {
	log := logging.Default()
	log.Info("starting Pawl Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// The key is fixed for the life of the process before any table I/O.
	key, err := cryptox.DeriveKey(cfg.Security.Secret)
	if err != nil {
		return fmt.Errorf("deriving record key: %w", err)
	}
	cipher, err := cryptox.NewCipher(key)
	if err != nil {
		return fmt.Errorf("creating record cipher: %w", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	bus := notify.New()
	reg := registry.New(store.New(db, cipher), bus)
	reg.SetLogger(log)

	// A row that fails to decrypt means tampering or the wrong secret.
	if loadErr := reg.LoadAll(ctx); loadErr != nil {
		return fmt.Errorf("loading records: %w", loadErr)
	}
	log.Info("records loaded",
		"users", reg.Users.Len(),
		"devices", reg.Devices.Len(),
	)

	sessions := auth.NewSessions(cfg.GetSessionLifetime())
	sessions.SetLogger(log)
	defer sessions.Close()

	authService := auth.NewService(reg, sessions)
	authService.SetLogger(log)

	boot, err := authService.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("bootstrapping credentials: %w", err)
	}
	printBootstrap(out, boot)

	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := startChangeFeed(cfg, bus, log)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	} else {
		log.Info("MQTT change feed disabled")
	}

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
		bus.Subscribe(influxClient.RecordMutation)
		authService.SetLoginRecorder(influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Auth:     authService,
		Bus:      bus,
		DB:       db,
		Version:  version,
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

	return nil
}

// getConfigPath returns the config file path from PAWL_CONFIG or the default.
func getConfigPath() string {
	if path := os.Getenv("PAWL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startChangeFeed connects to the broker and subscribes the change feed to
// the bus. The retained epoch is refreshed on every reconnect.
func startChangeFeed(cfg *config.Config, bus *notify.Bus, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, err
	}
	client.SetLogger(log)

	// #nosec G115 -- QoS validated to 0..2 by config.Validate
	feed := mqtt.NewChangeFeed(client, byte(cfg.MQTT.QoS))
	feed.SetLogger(log)
	client.SetOnConnect(func() {
		feed.PublishEpoch(bus.Epoch())
	})
	bus.Subscribe(feed.Handle)
	feed.PublishEpoch(bus.Epoch())

	log.Info("MQTT change feed connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"topic", mqtt.Topics{}.AllChanges(),
	)
	return client, nil
}

// printBootstrap shows freshly generated secrets exactly once.
func printBootstrap(out io.Writer, boot auth.BootstrapResult) {
	if !boot.Created() {
		return
	}
	fmt.Fprintln(out, "Pawl Core generated initial credentials. They will not be shown again.")
	if boot.Password != "" {
		fmt.Fprintf(out, "  operator: %s\n  password: %s\n", boot.Username, boot.Password)
	}
	if boot.APIKey != "" {
		fmt.Fprintf(out, "  ratchet api key: %s\n", boot.APIKey)
	}
}
