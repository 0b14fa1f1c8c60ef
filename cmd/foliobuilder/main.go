package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/foliobuilder/internal/api"
	"git.home.luguber.info/inful/foliobuilder/internal/config"
	"git.home.luguber.info/inful/foliobuilder/internal/eventstore"
	"git.home.luguber.info/inful/foliobuilder/internal/metrics"
	"git.home.luguber.info/inful/foliobuilder/internal/natsbridge"
	"git.home.luguber.info/inful/foliobuilder/internal/orchestrator"
	"git.home.luguber.info/inful/foliobuilder/internal/plan"
	"git.home.luguber.info/inful/foliobuilder/internal/retry"
	"git.home.luguber.info/inful/foliobuilder/internal/version"
	"git.home.luguber.info/inful/foliobuilder/internal/worker"
)

var CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `help:"Print version and exit"`

	Serve struct{} `cmd:"" help:"Start the portfolio build server"`

	Plan struct {
		Source   string   `short:"s" required:"" help:"Path to a content source JSON file"`
		Style    string   `help:"Visual style for the portfolio" default:"modern"`
		Sections []string `help:"Explicit section list (inferred from the source when omitted)"`
	} `cmd:"" help:"Print the task graph a build would execute, without running it"`

	Init struct {
		Force bool `help:"Overwrite an existing configuration file"`
	} `cmd:"" help:"Write a default configuration file"`
}

func main() {
	kctx := kong.Parse(&CLI, kong.Vars{"version": version.String()})

	switch kctx.Command() {
	case "serve":
		cfg := loadConfig()
		level := config.SetupLogging(cfg.Logging)
		if err := runServe(cfg, level); err != nil {
			slog.Error("Server exited with error", "error", err)
			os.Exit(1)
		}
	case "plan":
		cfg := loadConfig()
		config.SetupLogging(cfg.Logging)
		if err := runPlan(CLI.Plan.Source, CLI.Plan.Style, CLI.Plan.Sections); err != nil {
			slog.Error("Plan failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := runInit(CLI.Config, CLI.Init.Force); err != nil {
			fmt.Fprintf(os.Stderr, "init failed: %v\n", err)
			os.Exit(1)
		}
	default:
		kctx.Fatalf("unknown command %s", kctx.Command())
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if CLI.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg
}

func runServe(cfg *config.Config, level *slog.LevelVar) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := orchestrator.NewRegistry()

	policy := retry.NewPolicy(
		retry.NormalizeBackoffMode(cfg.Retry.Mode),
		cfg.Retry.Initial, cfg.Retry.Max, cfg.Retry.MaxRetries)
	retrying := worker.NewRetrying(worker.NewTemplate(), policy)

	orch := orchestrator.New(registry, retrying)

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prom.NewRegistry()
		recorder := metrics.NewPrometheusRecorder(reg)
		orch.SetRecorder(recorder)
		retrying.SetRecorder(recorder)
		metricsHandler = metrics.HTTPHandler(reg)
	}

	var history *eventstore.Store
	if cfg.Events.AuditDB != "" {
		store, err := eventstore.Open(cfg.Events.AuditDB)
		if err != nil {
			return fmt.Errorf("open event audit store: %w", err)
		}
		defer store.Close()
		history = store
		orch.AddSink(eventstore.NewSink(store))
	}

	if cfg.Events.NATS.Enabled {
		bridge, err := natsbridge.New(natsbridge.Options{
			URL:           cfg.Events.NATS.URL,
			SubjectPrefix: cfg.Events.NATS.SubjectPrefix,
			StreamName:    cfg.Events.NATS.Stream,
		})
		if err != nil {
			return fmt.Errorf("connect NATS event bridge: %w", err)
		}
		defer bridge.Close()
		orch.AddSink(bridge)
	}

	sweeper, err := orchestrator.NewSweeper(registry, cfg.Retention.SweepInterval, cfg.Retention.MaxAge)
	if err != nil {
		return fmt.Errorf("create retention sweeper: %w", err)
	}
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start retention sweeper: %w", err)
	}
	defer func() { _ = sweeper.Stop(context.Background()) }()

	if watcher, err := config.NewWatcher(CLI.Config, level); err == nil {
		if err := watcher.Start(ctx); err != nil {
			slog.Warn("Config watcher not started", "error", err)
		} else {
			defer watcher.Stop()
		}
	} else {
		slog.Warn("Config watcher unavailable", "error", err)
	}

	server := api.NewServer(cfg.Server, orch, history, metricsHandler)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", cfg.Server.Addr())
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runPlan(sourcePath, style string, sections []string) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("read source file: %w", err)
	}
	var source plan.ContentSource
	if err := json.Unmarshal(data, &source); err != nil {
		return fmt.Errorf("parse source file: %w", err)
	}

	graph, err := plan.CreatePlan("dry-run", source, style, sections)
	if err != nil {
		return err
	}

	fmt.Printf("Plan: %d tasks\n", len(graph.Tasks))
	for _, t := range graph.Tasks {
		deps := ""
		if len(t.DependsOn) > 0 {
			deps = fmt.Sprintf(" (after %v)", t.DependsOn)
		}
		fmt.Printf("  %-12s %-8s %s%s\n", t.ID, t.Kind, t.Name, deps)
	}
	return nil
}

const defaultConfigFile = `# foliobuilder server configuration
server:
  host: 0.0.0.0
  port: 8080

logging:
  level: info
  format: text

retry:
  mode: linear
  initial: 500ms
  max: 10s
  max_retries: 2

retention:
  sweep_interval: 10m
  max_age: 2h

events:
  # audit_db: foliobuilder-events.db
  nats:
    enabled: false
    url: nats://localhost:4222

metrics:
  enabled: true
`

func runInit(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(defaultConfigFile), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	slog.Info("Wrote configuration file", "path", path)
	return nil
}
