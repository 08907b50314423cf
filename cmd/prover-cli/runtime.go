package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/exaring/otelpgx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	proverapp "github.com/ahrav/prover-cli/internal/app/prover"
	"github.com/ahrav/prover-cli/internal/config"
	"github.com/ahrav/prover-cli/internal/domain/prover"
	proverStore "github.com/ahrav/prover-cli/internal/infra/storage/prover/postgres"
	"github.com/ahrav/prover-cli/pkg/common/logger"
	"github.com/ahrav/prover-cli/pkg/common/otel"
)

// runtimeEnv holds everything one command invocation borrows: configuration,
// logger, telemetry and the database pool. close releases all of it and must
// run on every exit path. Every store call runs under database.query_timeout.
type runtimeEnv struct {
	cfg         *config.Config
	log         *logger.Logger
	tracer      trace.Tracer
	metrics     proverapp.PipelineMetrics
	maxAttempts prover.MaxAttempts
	pool        *pgxpool.Pool
	store       prover.JobRepository

	shutdown func(ctx context.Context)
}

// newRuntimeEnv loads configuration and opens the database for a command.
func newRuntimeEnv(cmd *cobra.Command, flags *globalFlags, command string) (*runtimeEnv, error) {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}

	maxAttempts, err := cfg.MaxAttempts()
	if err != nil {
		return nil, err
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	runID := uuid.NewString()

	log := newLogger(cfg, map[string]string{
		"hostname": hostname,
		"app":      serviceType,
		"command":  command,
		"run_id":   runID,
		"build":    build,
	})
	log.Debug(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0))

	providers, telemetryShutdown, err := otel.InitTelemetry(log, otel.Config{
		Enabled:          cfg.Telemetry.Enabled,
		ServiceName:      cfg.Telemetry.ServiceName,
		ExporterEndpoint: cfg.Telemetry.Endpoint,
		Probability:      cfg.Telemetry.SampleRate,
		InsecureExporter: cfg.Telemetry.Insecure,
		ResourceAttributes: map[string]string{
			"hostname": hostname,
			"run_id":   runID,
			"command":  command,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	metrics, err := proverapp.NewPipelineMetrics(providers.Meter)
	if err != nil {
		telemetryShutdown(ctx)
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		telemetryShutdown(ctx)
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer(otelpgx.WithTracerProvider(providers.Tracer))

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		telemetryShutdown(ctx)
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	tracer := providers.Tracer.Tracer(serviceType)

	return &runtimeEnv{
		cfg:         cfg,
		log:         log,
		tracer:      tracer,
		metrics:     metrics,
		maxAttempts: maxAttempts,
		pool:        pool,
		store:       newTimeoutStore(proverStore.NewJobStore(pool, tracer), cfg.Database.QueryTimeout),
		shutdown:    telemetryShutdown,
	}, nil
}

func (e *runtimeEnv) close(ctx context.Context) {
	e.pool.Close()
	e.shutdown(ctx)
}
