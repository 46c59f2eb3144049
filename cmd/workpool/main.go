package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fluxorio/workpool/pkg/config"
	"github.com/fluxorio/workpool/pkg/core/concurrency"
	"github.com/fluxorio/workpool/pkg/observability/otel"
	"github.com/fluxorio/workpool/pkg/observability/prometheus"
)

// AppConfig is the workpool demo configuration
type AppConfig struct {
	Executor        concurrency.ExecutorConfig `yaml:"executor"`
	SingleQueueSize int                        `yaml:"single_queue_size"`
	Count           int                        `yaml:"count"` // upper bound for the counting tasks
	ShutdownTimeout time.Duration              `yaml:"shutdown_timeout"`
	Metrics         MetricsConfig              `yaml:"metrics"`
	Tracing         otel.Config                `yaml:"tracing"`
	Log             LogConfig                  `yaml:"log"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
	// Keep serving /metrics after the demo finishes until a signal arrives
	Linger bool `yaml:"linger"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func defaultConfig() *AppConfig {
	executor := concurrency.DefaultExecutorConfig()
	executor.Name = "demo"
	executor.Workers = 4
	executor.QueueSize = 64

	return &AppConfig{
		Executor:        executor,
		SingleQueueSize: 10,
		Count:           100,
		ShutdownTimeout: 10 * time.Second,
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
			Path:    "/metrics",
		},
		Tracing: otel.DefaultConfig(),
		Log:     LogConfig{Level: "info"},
	}
}

// loadConfig applies path (if set) and then APP_* environment overrides over the defaults
func loadConfig(path string) (*AppConfig, error) {
	cfg := defaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	if err := config.LoadWithEnv(path, "APP", cfg); err != nil {
		return nil, err
	}

	m := config.NewManager(cfg)
	for _, v := range []config.Validator{
		config.RequiredFields("Executor.Name"),
		config.RangeValidator("Executor.Workers", 1, 4096),
		config.RangeValidator("Executor.QueueSize", 0, 1<<20),
		config.RangeValidator("SingleQueueSize", 0, 1<<20),
		config.RangeValidator("Tracing.SampleRate", 0, 1),
		config.DurationRangeValidator("ShutdownTimeout", time.Millisecond, time.Hour),
		config.OneOfValidator("Tracing.Exporter", "", otel.ExporterNone, otel.ExporterStdout, otel.ExporterZipkin, otel.ExporterJaeger),
		config.OneOfValidator("Log.Level", "", "debug", "info", "warn", "warning", "error"),
	} {
		m.AddValidator(v)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML or JSON config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := concurrency.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger := concurrency.NewLevelLogger(level, os.Stdout, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &App{
		Config:     cfg,
		Logger:     logger,
		Out:        os.Stdout,
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultRegistry,
	}
	if err := app.Run(ctx); err != nil {
		logger.Errorf("workpool: %v", err)
		os.Exit(1)
	}
}
