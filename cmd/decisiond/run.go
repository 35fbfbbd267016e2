package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/i-OmSharma/MLOps-decision/pkg/arbiter"
	"github.com/i-OmSharma/MLOps-decision/pkg/audit"
	"github.com/i-OmSharma/MLOps-decision/pkg/config"
	"github.com/i-OmSharma/MLOps-decision/pkg/decision"
	"github.com/i-OmSharma/MLOps-decision/pkg/rules/store"
	"github.com/i-OmSharma/MLOps-decision/pkg/server"
	"github.com/i-OmSharma/MLOps-decision/pkg/telemetry/health"
	"github.com/i-OmSharma/MLOps-decision/pkg/telemetry/logging"
	"github.com/i-OmSharma/MLOps-decision/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	rulesPath     string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the decision server",
	Long: `Start the decision server with the specified configuration.

The server loads the rule set, wires the optional AI arbiter and audit
trail, and serves the decision API on the configured address.

Examples:
  # Start with default config
  decisiond run

  # Start with custom config
  decisiond run --config /etc/decisiond/config.yaml

  # Override listen address
  decisiond run --listen 0.0.0.0:8090

  # Validate config and rules without starting
  decisiond run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.rulesPath, "rules", "", "override rules file path")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and rules without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if runFlags.rulesPath != "" {
		cfg.Rules.Path = runFlags.rulesPath
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Printf("decisiond v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Load the rule set
	st := store.New(store.NewFileSource(cfg.Rules.Path), logger)
	if err := st.Load(ctx); err != nil {
		return fmt.Errorf("failed to load rules from %s: %w", cfg.Rules.Path, err)
	}
	meta, _ := st.Metadata()
	fmt.Printf("✓ Rules loaded (%d active, %d skipped)\n", meta.ActiveRules, meta.SkippedRules)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	// Watch the rules file for changes
	if cfg.Rules.Watch {
		watcher := store.NewWatcher(st, cfg.Rules.Path, cfg.Rules.WatchDebounce, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				slog.Warn("rules watcher stopped", "error", err)
			}
		}()
		fmt.Printf("✓ Watching %s for changes\n", cfg.Rules.Path)
	}

	// Build the arbiter from the ai_config section of the rules document
	arbCfg, err := arbiter.ParseConfig(st.ArbiterConfig())
	if err != nil {
		return fmt.Errorf("invalid arbiter configuration: %w", err)
	}
	arb := arbiter.Build(arbCfg, logger)
	if arb.IsEnabled() {
		desc := arb.Describe()
		fmt.Printf("✓ AI arbiter enabled (%s/%s)\n", desc.Provider, desc.Model)
	}

	checker := health.New(0)
	checker.Register("rules", func(ctx context.Context) error {
		_, err := st.Metadata()
		return err
	})

	// Metrics
	var (
		collector      *metrics.Collector
		metricsHandler http.Handler
		metricsSink    decision.MetricsSink
		reloadMetrics  server.ReloadMetrics
	)
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Telemetry.Metrics.Namespace)
		metricsHandler = collector.Handler()
		metricsSink = collector
		reloadMetrics = collector
	}

	// Audit trail
	var auditSink decision.AuditSink
	if cfg.Audit.Enabled {
		sqliteCfg := audit.DefaultSQLiteConfig()
		sqliteCfg.Path = cfg.Audit.SQLitePath
		storage, err := audit.NewSQLiteStore(sqliteCfg, logger)
		if err != nil {
			return fmt.Errorf("failed to open audit storage: %w", err)
		}
		defer storage.Close()

		recorderCfg := audit.DefaultRecorderConfig()
		recorderCfg.QueueSize = cfg.Audit.QueueSize
		recorder := audit.NewRecorder(storage, recorderCfg, logger)
		defer recorder.Close()
		auditSink = recorder

		if cfg.Audit.RetentionSchedule != "" && cfg.Audit.RetentionDays > 0 {
			pruner := audit.NewPruner(storage, &audit.RetentionConfig{
				Days:     cfg.Audit.RetentionDays,
				Schedule: cfg.Audit.RetentionSchedule,
			}, logger)
			scheduler := audit.NewScheduler(pruner, logger)
			if err := scheduler.Start(ctx); err != nil {
				slog.Warn("failed to start retention scheduler", "error", err)
			} else {
				defer scheduler.Stop()
			}
		}

		checker.Register("audit", func(ctx context.Context) error {
			_, err := storage.Count(ctx, &audit.Query{Limit: 1})
			return err
		})

		fmt.Printf("✓ Audit trail enabled (%s)\n", cfg.Audit.SQLitePath)
	}

	orch := decision.New(st, arb, decision.Config{
		ArbitrationEnabled: cfg.Decision.ReviewMode == config.ReviewModeRulesPlusAI,
		ArbiterTimeout:     arbCfg.Timeout,
		Version:            cfg.Decision.Version,
	}, metricsSink, auditSink, logger)

	srv := server.New(server.Options{
		Config:         cfg.Server,
		Orchestrator:   orch,
		Store:          st,
		Arbiter:        arb,
		Checker:        checker,
		MetricsHandler: metricsHandler,
		MetricsPath:    cfg.Telemetry.Metrics.Path,
		ReloadMetrics:  reloadMetrics,
		Version:        cfg.Decision.Version,
		ReviewMode:     cfg.Decision.ReviewMode,
		Logger:         logger,
	})

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Decision endpoint: http://%s/v1/decide\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	start := time.Now()
	err = srv.Start(ctx)
	slog.Info("server stopped", "uptime", time.Since(start).Round(time.Second))
	return err
}
