package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/ahrav/prover-cli/internal/config"
	"github.com/ahrav/prover-cli/internal/config/fileloader"
	"github.com/ahrav/prover-cli/pkg/common/logger"
	"github.com/ahrav/prover-cli/pkg/common/otel"
)

var build = "develop"

const serviceType = "prover-cli"

// globalFlags are the persistent flags shared by every sub-command.
type globalFlags struct {
	configPath  string
	databaseURL string
	logLevel    string
	maxAttempts int
	concurrency int
	assumeYes   bool
}

func main() {
	// Set the correct number of threads for the process.
	_, _ = maxprocs.Set()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "prover-cli",
		Short:         "Inspect and repair the prover pipeline database",
		Long:          "prover-cli reports batch proof status, lists stuck jobs and restarts or seeds batches in the prover database.",
		Version:       build,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to YAML configuration file")
	pf.StringVar(&flags.databaseURL, "database-url", "", "Prover database connection string")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.IntVar(&flags.maxAttempts, "max-attempts", 0, "Attempts after which a non terminal job counts as stuck")
	pf.IntVar(&flags.concurrency, "concurrency", 0, "Batches inspected concurrently by status")
	pf.BoolVarP(&flags.assumeYes, "yes", "y", false, "Answer yes to every confirmation prompt")

	rootCmd.AddCommand(
		newStuckCmd(flags),
		newRestartCmd(flags),
		newInsertWitnessCmd(flags),
		newInsertProtocolVersionCmd(flags),
		newStatusCmd(flags),
		newMigrateCmd(flags),
	)

	return rootCmd
}

// loadConfig reads the configuration file and environment, then applies any
// flags the operator set explicitly.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	var loader config.Loader = fileloader.NewFileLoader(
		flags.configPath,
		fileloader.WithOverride(func(cfg *config.Config) { applyFlags(cmd, flags, cfg) }),
	)
	return loader.Load(cmd.Context())
}

// applyFlags overrides configuration values with explicitly set flags.
func applyFlags(cmd *cobra.Command, flags *globalFlags, cfg *config.Config) {
	if changed(cmd, "database-url") {
		cfg.Database.URL = flags.databaseURL
	}
	if changed(cmd, "log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if changed(cmd, "max-attempts") {
		cfg.Prover.MaxAttempts = flags.maxAttempts
	}
	if changed(cmd, "concurrency") {
		cfg.Prover.Concurrency = flags.concurrency
	}
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}

// newLogger builds the process logger. Logs go to stderr so reports on stdout
// stay machine readable.
func newLogger(cfg *config.Config, metadata map[string]string) *logger.Logger {
	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}
			for k, v := range r.Attributes {
				errorAttrs[k] = v
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}
			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n", r.Message, errorAttrsJSON)
		},
	}

	traceIDFn := func(ctx context.Context) string {
		return otel.GetTraceID(ctx)
	}

	return logger.NewWithMetadata(os.Stderr, cfg.LogLevel(), serviceType, traceIDFn, logEvents, metadata)
}
