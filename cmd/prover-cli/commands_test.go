package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	proverapp "github.com/ahrav/prover-cli/internal/app/prover"
	"github.com/ahrav/prover-cli/internal/config"
	"github.com/ahrav/prover-cli/internal/domain/prover"
)

func TestParseWitnessArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantBatch   prover.BatchNumber
		wantVersion prover.ProtocolVersionID
		wantPatch   prover.VersionPatch
		wantErr     error
	}{
		{
			name:        "batch and patch use the default version",
			args:        []string{"100", "2"},
			wantBatch:   100,
			wantVersion: prover.DefaultProtocolVersion,
			wantPatch:   2,
		},
		{
			name:        "explicit version",
			args:        []string{"100", "25", "1"},
			wantBatch:   100,
			wantVersion: 25,
			wantPatch:   1,
		},
		{
			name:    "bad batch",
			args:    []string{"abc", "0"},
			wantErr: prover.ErrInvalidBatchNumber,
		},
		{
			name:    "version out of range",
			args:    []string{"1", "2048", "0"},
			wantErr: prover.ErrInvalidProtocolVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, version, patch, err := parseWitnessArgs(tt.args)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBatch, batch)
			assert.Equal(t, tt.wantVersion, version)
			assert.Equal(t, tt.wantPatch, patch)
		})
	}
}

func TestParseWitnessArgs_BadPatch(t *testing.T) {
	_, _, _, err := parseWitnessArgs([]string{"1", "-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid protocol version patch")
}

func TestParseBatchList(t *testing.T) {
	batches, err := parseBatchList([]string{"1", "2", "3 4"})
	require.NoError(t, err)
	assert.Equal(t, []prover.BatchNumber{1, 2, 3, 4}, batches)

	_, err = parseBatchList(nil)
	require.Error(t, err)

	_, err = parseBatchList([]string{"7", "x"})
	require.ErrorIs(t, err, prover.ErrInvalidBatchNumber)
}

func TestApplyFlags_OnlyChangedFlagsOverride(t *testing.T) {
	root := newRootCmd()
	require.NoError(t, root.PersistentFlags().Parse([]string{"--database-url", "postgres://flag/db", "--max-attempts", "3"}))

	cfg := &config.Config{
		Database: config.DatabaseConfig{URL: "postgres://file/db"},
		Prover:   config.ProverConfig{MaxAttempts: 10, Concurrency: 4},
		Log:      config.LogConfig{Level: "warn"},
	}

	flags := &globalFlags{databaseURL: "postgres://flag/db", maxAttempts: 3, logLevel: "debug"}
	applyFlags(root, flags, cfg)

	assert.Equal(t, "postgres://flag/db", cfg.Database.URL)
	assert.Equal(t, 3, cfg.Prover.MaxAttempts)
	assert.Equal(t, "warn", cfg.Log.Level, "unset flag must not override")
	assert.Equal(t, 4, cfg.Prover.Concurrency)
}

func TestLoadConfig_FlagOverridesInvalidEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PROVER_CLI_PROVER_MAX_ATTEMPTS", "0")

	flags := &globalFlags{}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&flags.maxAttempts, "max-attempts", 0, "")
	cmd.SetContext(context.Background())
	require.NoError(t, cmd.Flags().Parse([]string{"--max-attempts", "5"}))

	cfg, err := loadConfig(cmd, flags)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Prover.MaxAttempts)
}

func TestRootCmd_Aliases(t *testing.T) {
	root := newRootCmd()

	for alias, name := range map[string]string{
		"stuck":                 "stuck-batch-proofs",
		"restart":               "restart-batch-proof",
		"insert-witness":        "insert-batch-witness-input",
		"insert-witness-inputs": "insert-batch-witness-input",
		"protocol-version":      "insert-protocol-version",
		"status":                "status",
		"migrate":               "migrate",
	} {
		cmd, _, err := root.Find([]string{alias})
		require.NoError(t, err, alias)
		assert.Equal(t, name, cmd.Name(), alias)
	}
}

func TestMigrateCmd_RejectsUnknownDirection(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"migrate", "sideways"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migration direction")
}

func TestStatusCmd_RequiresBatches(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"status"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one batch number")
}

type stubConfirmer struct {
	answer  bool
	prompts []string
}

func (s *stubConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	s.prompts = append(s.prompts, prompt)
	return s.answer, nil
}

func TestNoticeConfirmer_PrintsNoticeOnce(t *testing.T) {
	var out bytes.Buffer
	inner := &stubConfirmer{answer: true}
	c := &noticeConfirmer{Confirmer: inner, out: &out, notice: msgBatchAlreadyExists}

	ok, err := c.Confirm(context.Background(), proverapp.PromptRestartSentProof)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = c.Confirm(context.Background(), proverapp.PromptDeleteData)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out.String(), msgBatchAlreadyExists))
	assert.Equal(t, []string{proverapp.PromptRestartSentProof, proverapp.PromptDeleteData}, inner.prompts)
}

func TestPrintRestartOutcome(t *testing.T) {
	var out bytes.Buffer
	printRestartOutcome(&out, proverapp.OutcomeRestarted)
	printRestartOutcome(&out, proverapp.OutcomeAborted)

	assert.Equal(t, "Batch proof restarted\nBatch proof restart aborted\n", out.String())
}
