// GarageDoor - two-door garage controller over MQTT
//
// This is the main entry point for the garagedoor service. It keeps one
// session to the hosted broker, mirrors both reed switches, pulses the door
// relays on request, and serves the status over HTTP and WebSocket.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	_ "github.com/nerrad567/garagedoor/migrations"

	"github.com/nerrad567/garagedoor/internal/api"
	"github.com/nerrad567/garagedoor/internal/audit"
	"github.com/nerrad567/garagedoor/internal/garage"
	"github.com/nerrad567/garagedoor/internal/infrastructure/config"
	"github.com/nerrad567/garagedoor/internal/infrastructure/database"
	"github.com/nerrad567/garagedoor/internal/infrastructure/logging"
	"github.com/nerrad567/garagedoor/internal/infrastructure/metrics"
	"github.com/nerrad567/garagedoor/internal/infrastructure/mqtt"
	"github.com/nerrad567/garagedoor/internal/lifecycle"
	"github.com/nerrad567/garagedoor/internal/store"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// errNoDatabase is returned by migrate when database.path is empty.
var errNoDatabase = errors.New("database.path is empty; there is nothing to migrate")

func main() {
	// Cancel on Ctrl+C and SIGTERM; the controller persists its log on the way out
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Running the binary without a
// subcommand starts the service.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "garagedoor",
		Short:         "Garage door controller over MQTT",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", getConfigPath(),
		"Path to the YAML config file (env GARAGEDOOR_CONFIG)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the controller and its HTTP API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd.Context(), configPath)
			},
		},
		newTokenCmd(&configPath),
		newMigrateCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "garagedoor %s (commit %s, built %s)\n", version, commit, date)
			},
		},
	)
	return root
}

// newTokenCmd issues a bearer token for the control routes.
func newTokenCmd(configPath *string) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath, true)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if ttl <= 0 {
				ttl = cfg.GetTokenTTL()
			}
			token, err := api.IssueToken(cfg.API.Auth.TokenSecret, subject, ttl, time.Now())
			if err != nil {
				return fmt.Errorf("issuing token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "panel", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to api.auth.token_ttl)")
	return cmd
}

// newMigrateCmd applies or reports schema migrations without starting the service.
func newMigrateCmd(configPath *string) *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath, true)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cfg.Database.Path == "" {
				return errNoDatabase
			}
			db, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if !status {
				if err := db.Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("running migrations: %w", err)
				}
			}
			applied, pending, err := db.GetMigrationStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("reading migration status: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, r := range applied {
				fmt.Fprintf(out, "%s\tapplied %s\n", r.Version, r.AppliedAt.Format(time.RFC3339))
			}
			for _, m := range pending {
				fmt.Fprintf(out, "%s\tpending %s\n", m.Version, m.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "Only report migration status")
	return cmd
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: YAML config file; a missing file falls back to defaults
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting garagedoor",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath, true)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	stores, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.close()

	seeded, err := store.SeedAccount(ctx, stores.kv, cfg.Account.Username, cfg.Account.Password)
	if err != nil {
		return fmt.Errorf("seeding account: %w", err)
	}
	if seeded {
		log.Info("broker account seeded from config", "username", cfg.Account.Username)
	}

	policy, err := sessionPolicy(cfg.Broker)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observer, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	hub := api.NewHub(cfg.WebSocket, log)
	if regErr := registry.Register(hub.Collector()); regErr != nil {
		return fmt.Errorf("registering websocket metrics: %w", regErr)
	}

	transport := mqtt.New()
	transport.SetLogger(log.With("component", "mqtt"))
	defer func() {
		if closeErr := transport.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	ctrl, err := garage.New(garage.Options{
		Transport: transport,
		Store:     stores.kv,
		Sink:      hub,
		Observer:  observer,
		Logger:    log.With("component", "garage"),
		Policy:    policy,
	})
	if err != nil {
		return fmt.Errorf("creating controller: %w", err)
	}
	transport.SetHandler(ctrl.Post)

	bridge, err := lifecycle.NewBridge(ctrl.Post)
	if err != nil {
		return fmt.Errorf("creating lifecycle bridge: %w", err)
	}
	stopSignals := watchLifecycleSignals(ctx, bridge, stores.trail, log)
	defer stopSignals()

	if cfg.API.Enabled {
		srv, srvErr := api.New(api.Deps{
			Config:     cfg.API,
			WS:         cfg.WebSocket,
			Logger:     log.With("component", "api"),
			Controller: ctrl,
			Lifecycle:  bridge,
			Hub:        hub,
			Audit:      stores.trail,
			Gatherer:   registry,
			Checks:     healthChecks(stores, transport),
			Version:    version,

			LogPersistedAt: stores.logPersistedAt,
		})
		if srvErr != nil {
			return fmt.Errorf("creating API server: %w", srvErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		if healthErr := srv.HealthCheck(ctx); healthErr != nil {
			return fmt.Errorf("api health check: %w", healthErr)
		}
	} else {
		log.Info("API server disabled")
	}

	// Initial attempt; ignoring the reconnect interval matches a fresh launch
	if postErr := ctrl.Post(garage.ConnectRequest{Force: true}); postErr != nil {
		return fmt.Errorf("queueing initial connect: %w", postErr)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	if runErr := ctrl.Run(ctx); runErr != nil {
		return fmt.Errorf("running controller: %w", runErr)
	}

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. MQTT
	// 3. Database
	log.Info("garagedoor stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GARAGEDOOR_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GARAGEDOOR_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// storage holds the persistence chosen by database.path.
type storage struct {
	kv             garage.Store
	trail          audit.Repository // nil without a database
	db             *database.DB     // nil without a database
	logPersistedAt api.PersistedAt  // nil without a database
	close          func()
}

// openStorage opens, migrates and checks the SQLite database. An empty
// database.path keeps everything in memory instead.
func openStorage(ctx context.Context, cfg *config.Config, log *logging.Logger) (*storage, error) {
	if cfg.Database.Path == "" {
		log.Warn("database.path is empty; account and log are kept in memory and the audit trail is off")
		return &storage{kv: store.NewMemoryStore(), close: func() {}}, nil
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closeDB := func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		closeDB()
		return nil, fmt.Errorf("running migrations: %w", migrateErr)
	}
	if healthErr := db.HealthCheck(ctx); healthErr != nil {
		closeDB()
		return nil, fmt.Errorf("database health check: %w", healthErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	kv := store.NewSQLiteStore(db.DB)
	return &storage{
		kv:    kv,
		trail: audit.NewSQLiteRepository(db.DB),
		db:    db,
		logPersistedAt: func(ctx context.Context) (time.Time, bool, error) {
			return kv.UpdatedAt(ctx, garage.KeyLogBuffer)
		},
		close: closeDB,
	}, nil
}

// healthChecks lists the components /health reports on.
func healthChecks(stores *storage, transport *mqtt.Client) map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{"mqtt": transport.HealthCheck}
	if stores.db != nil {
		checks["database"] = stores.db.HealthCheck
	}
	return checks
}

func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// sessionPolicy converts the broker section into the controller's policy.
func sessionPolicy(b config.BrokerConfig) (garage.SessionPolicy, error) {
	mode, err := garage.ParseTLSMode(b.TLSMode)
	if err != nil {
		return garage.SessionPolicy{}, fmt.Errorf("broker tls mode: %w", err)
	}
	policy := garage.SessionPolicy{
		Host:                 b.Host,
		TLSPort:              b.Port,
		PlainPort:            b.PlainPort,
		TLS:                  mode,
		ClientIDPrefix:       b.ClientIDPrefix,
		KeepAlive:            time.Duration(b.KeepAlive) * time.Second,
		AcceptAnyCertificate: b.AcceptAnyCertificate,
	}
	if mode == garage.TLSClientCert {
		policy.ClientCert = &garage.ClientCertificate{
			P12File:     b.ClientCert.P12File,
			P12Password: b.ClientCert.P12Password,
		}
	}
	return policy, nil
}

// watchLifecycleSignals maps SIGUSR1 to entering the background and
// SIGUSR2 to returning to the foreground. The returned func stops watching.
func watchLifecycleSignals(ctx context.Context, bridge *lifecycle.Bridge, trail audit.Repository, log *logging.Logger) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1, syscall.SIGUSR2)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case sig := <-sigs:
				handleLifecycleSignal(ctx, bridge, trail, log, sig)
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

func handleLifecycleSignal(ctx context.Context, bridge *lifecycle.Bridge, trail audit.Repository, log *logging.Logger, sig os.Signal) {
	entry := audit.Entry{Source: audit.SourceSignal}
	switch sig {
	case syscall.SIGUSR1:
		if err := bridge.EnterBackground(); err != nil {
			log.Warn("entering background", "error", err)
			return
		}
		entry.Action = audit.ActionBackground
		log.Info("entered background")
	case syscall.SIGUSR2:
		elapsed, err := bridge.EnterForeground()
		if err != nil {
			log.Warn("entering foreground", "error", err)
			return
		}
		entry.Action = audit.ActionForeground
		entry.Details = map[string]any{"elapsed_seconds": elapsed.Seconds()}
		log.Info("returned to foreground", "elapsed", elapsed.String())
	default:
		return
	}
	if trail == nil {
		return
	}
	if err := trail.Create(ctx, &entry); err != nil {
		log.Warn("recording audit entry", "action", entry.Action, "error", err)
	}
}
