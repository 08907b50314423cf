package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	proverapp "github.com/ahrav/prover-cli/internal/app/prover"
	"github.com/ahrav/prover-cli/internal/domain/prover"
	"github.com/ahrav/prover-cli/internal/infra/storage"
	"github.com/ahrav/prover-cli/internal/report"
)

const msgBatchAlreadyExists = "Batch proof already exists, you need to restart the batch proof to insert new witness inputs"

// withRuntime opens a runtimeEnv for the command, runs fn and releases the
// environment whatever fn returns.
func withRuntime(
	cmd *cobra.Command,
	flags *globalFlags,
	fn func(ctx context.Context, env *runtimeEnv) error,
) error {
	env, err := newRuntimeEnv(cmd, flags, cmd.Name())
	if err != nil {
		return err
	}
	defer env.close(context.Background())

	ctx := cmd.Context()
	if err := fn(ctx, env); err != nil {
		env.log.Error(ctx, "command failed", "command", cmd.Name(), "error", err)
		return err
	}
	return nil
}

func newStuckCmd(flags *globalFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "stuck-batch-proofs",
		Aliases: []string{"stuck"},
		Short:   "List all the stuck batch proofs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := report.ParseFormat(output)
			if err != nil {
				return err
			}
			return withRuntime(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				detector := proverapp.NewStuckJobDetector(env.store, env.maxAttempts, env.metrics, env.log, env.tracer)
				reports, err := detector.ScanAll(ctx)
				if err != nil {
					return fmt.Errorf("scanning for stuck jobs: %w", err)
				}

				renderer, err := report.NewRenderer(cmd.OutOrStdout(), format, report.Options{})
				if err != nil {
					return err
				}
				return renderer.RenderStuck(reports)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", string(report.FormatText), "Output format (text, yaml, json)")

	return cmd
}

func newRestartCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "restart-batch-proof <batch>",
		Aliases: []string{"restart"},
		Short:   "Restart a batch proof",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := prover.ParseBatchNumber(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				prompter := newTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr(), flags.assumeYes)
				lifecycle := proverapp.NewLifecycle(env.store, prompter, env.maxAttempts, env.metrics, env.log, env.tracer)

				outcome, err := lifecycle.RestartProof(ctx, batch)
				if err != nil {
					return err
				}
				printRestartOutcome(cmd.OutOrStdout(), outcome)
				return nil
			})
		},
	}
}

func printRestartOutcome(w io.Writer, outcome proverapp.Outcome) {
	if outcome == proverapp.OutcomeRestarted {
		fmt.Fprintln(w, "Batch proof restarted")
		return
	}
	fmt.Fprintln(w, "Batch proof restart aborted")
}

// noticeConfirmer prints a notice the first time a confirmation is requested.
// Lifecycle only asks during an insert when the batch already exists, which
// is exactly when the operator needs to hear about it.
type noticeConfirmer struct {
	proverapp.Confirmer
	out    io.Writer
	notice string
	once   sync.Once
}

func (c *noticeConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	c.once.Do(func() { fmt.Fprintln(c.out, c.notice) })
	return c.Confirmer.Confirm(ctx, prompt)
}

func newInsertWitnessCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "insert-batch-witness-input <batch> [protocol-version] <patch>",
		Aliases: []string{"insert-witness", "insert-witness-inputs"},
		Short:   "Insert a batch proof",
		Long: "Insert the basic witness generator record for a batch. The protocol version defaults to " +
			prover.DefaultProtocolVersion.String() + ". A batch already in the pipeline is restarted first.",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, version, patch, err := parseWitnessArgs(args)
			if err != nil {
				return err
			}
			return withRuntime(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				out := cmd.OutOrStdout()
				confirmer := &noticeConfirmer{
					Confirmer: newTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr(), flags.assumeYes),
					out:       out,
					notice:    msgBatchAlreadyExists,
				}
				lifecycle := proverapp.NewLifecycle(env.store, confirmer, env.maxAttempts, env.metrics, env.log, env.tracer)

				outcome, err := lifecycle.InsertWitnessInput(ctx, batch, version, patch)
				if err != nil {
					fmt.Fprintln(out, "Batch proof insertion failed")
					return err
				}
				if outcome == proverapp.OutcomeAborted {
					fmt.Fprintln(out, "Batch proof restart aborted")
					return nil
				}
				fmt.Fprintln(out, "Batch proof inserted")
				return nil
			})
		},
	}
}

// parseWitnessArgs accepts <batch> <patch> or <batch> <version> <patch>.
func parseWitnessArgs(args []string) (prover.BatchNumber, prover.ProtocolVersionID, prover.VersionPatch, error) {
	batch, err := prover.ParseBatchNumber(args[0])
	if err != nil {
		return 0, 0, 0, err
	}

	version := prover.DefaultProtocolVersion
	patchArg := args[1]
	if len(args) == 3 {
		if version, err = parseProtocolVersion(args[1]); err != nil {
			return 0, 0, 0, err
		}
		patchArg = args[2]
	}

	patch, err := parseVersionPatch(patchArg)
	if err != nil {
		return 0, 0, 0, err
	}
	return batch, version, patch, nil
}

func newInsertProtocolVersionCmd(flags *globalFlags) *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:     "insert-protocol-version",
		Aliases: []string{"protocol-version"},
		Short:   "Insert a protocol version",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prompter := newTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr(), flags.assumeYes)

			// Prompt before connecting so a typo aborts without touching the
			// database.
			params := prover.DefaultProtocolVersionParams()
			if !defaults {
				var err error
				if params, err = promptProtocolVersionParams(cmd.Context(), prompter); err != nil {
					return err
				}
			}

			return withRuntime(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				lifecycle := proverapp.NewLifecycle(env.store, prompter, env.maxAttempts, env.metrics, env.log, env.tracer)
				out := cmd.OutOrStdout()
				if err := lifecycle.InsertProtocolVersion(ctx, params); err != nil {
					fmt.Fprintln(out, "Protocol version insertion failed")
					return err
				}
				fmt.Fprintln(out, "Protocol version inserted")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&defaults, "default-values", "d", false, "Use default values without prompting")

	return cmd
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	var (
		batchArgs []string
		verbose   bool
		output    string
	)

	cmd := &cobra.Command{
		Use:   "status -n <batch>[,<batch>...]",
		Short: "Show the proving status of one or more batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			batches, err := parseBatchList(append(batchArgs, args...))
			if err != nil {
				return err
			}
			format, err := report.ParseFormat(output)
			if err != nil {
				return err
			}

			return withRuntime(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				aggregator := proverapp.NewBatchStatusAggregator(
					env.store,
					env.maxAttempts,
					env.metrics,
					env.log,
					env.tracer,
					proverapp.WithConcurrency(env.cfg.Prover.Concurrency),
				)

				progress := cmd.ErrOrStderr()
				fmt.Fprintln(progress, "Getting Batch(es)...")
				data, err := aggregator.AggregateConcurrently(ctx, batches)
				if err != nil {
					return err
				}
				fmt.Fprintln(progress, "Data Retrieved from DB")

				renderer, err := report.NewRenderer(cmd.OutOrStdout(), format, report.Options{Verbose: verbose})
				if err != nil {
					return err
				}
				return renderer.RenderBatches(data)
			})
		},
	}
	cmd.Flags().StringSliceVarP(&batchArgs, "batches", "n", nil, "Batch numbers to inspect")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show per job detail")
	cmd.Flags().StringVarP(&output, "output", "o", string(report.FormatText), "Output format (text, yaml, json)")

	return cmd
}

// parseBatchList parses batch numbers given as flag values or positional
// arguments. At least one is required.
func parseBatchList(raw []string) ([]prover.BatchNumber, error) {
	batches := make([]prover.BatchNumber, 0, len(raw))
	for _, r := range raw {
		for _, field := range strings.Fields(r) {
			b, err := prover.ParseBatchNumber(field)
			if err != nil {
				return nil, err
			}
			batches = append(batches, b)
		}
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("at least one batch number is required (-n)")
	}
	return batches, nil
}

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply the prover database schema migrations",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "up"
			if len(args) == 1 {
				name = args[0]
			}

			var direction storage.MigrateDirection
			switch name {
			case "up":
				direction = storage.MigrateUp
			case "down":
				direction = storage.MigrateDown
			default:
				return fmt.Errorf("unknown migration direction %q (want up or down)", name)
			}

			return withRuntime(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				if direction == storage.MigrateDown {
					prompter := newTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr(), flags.assumeYes)
					ok, err := prompter.Confirm(ctx, proverapp.PromptDeleteData)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), "Migration aborted")
						return nil
					}
				}

				if err := storage.ApplyMigrations(env.pool, dir, direction); err != nil {
					return err
				}
				env.log.Info(ctx, "migrations applied", "dir", dir, "direction", name)
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "db/migrations", "Directory holding the SQL migrations")

	return cmd
}
