package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/prover-cli/internal/domain/prover"
)

func TestTerminalPrompter_Confirm(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		assumeYes bool
		want      bool
		wantErr   bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "full yes mixed case", input: "  YeS \n", want: true},
		{name: "no", input: "n\n", want: false},
		{name: "empty answer declines", input: "\n", want: false},
		{name: "anything else declines", input: "sure\n", want: false},
		{name: "answer without newline", input: "y", want: true},
		{name: "closed input", input: "", wantErr: true},
		{name: "assume yes skips input", input: "", assumeYes: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := newTerminalPrompter(strings.NewReader(tt.input), &out, tt.assumeYes)

			got, err := p.Confirm(context.Background(), "Proceed?")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Proceed? [y/N]:")
		})
	}
}

func TestTerminalPrompter_ConfirmCanceledContext(t *testing.T) {
	p := newTerminalPrompter(strings.NewReader("y\n"), &bytes.Buffer{}, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Confirm(ctx, "Proceed?")
	require.ErrorIs(t, err, context.Canceled)
}

func TestTerminalPrompter_PromptDefault(t *testing.T) {
	p := newTerminalPrompter(strings.NewReader("\n42\n"), &bytes.Buffer{}, false)

	got, err := p.Prompt(context.Background(), "Protocol version", "24")
	require.NoError(t, err)
	assert.Equal(t, "24", got)

	got, err = p.Prompt(context.Background(), "Protocol version", "24")
	require.NoError(t, err)
	assert.Equal(t, "42", got)
}

func TestPromptProtocolVersionParams_Defaults(t *testing.T) {
	// Seven prompts, every one answered with the default.
	p := newTerminalPrompter(strings.NewReader(strings.Repeat("\n", 7)), &bytes.Buffer{}, false)

	params, err := promptProtocolVersionParams(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, prover.DefaultProtocolVersionParams(), params)
}

func TestPromptProtocolVersionParams_CustomValues(t *testing.T) {
	leaf := "0x" + strings.Repeat("ab", 32)
	input := strings.Join([]string{
		"25", // version
		"",   // scheduler
		"",   // node
		leaf, // leaf
		"",   // circuits set
		"",   // snark wrapper
		"3",  // patch
		"",
	}, "\n")

	var out bytes.Buffer
	p := newTerminalPrompter(strings.NewReader(input), &out, false)

	params, err := promptProtocolVersionParams(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, prover.ProtocolVersionID(25), params.Version)
	assert.Equal(t, prover.VersionPatch(3), params.Patch)
	assert.Equal(t, leaf, params.VKs.RecursionLeafLevel.String())
	assert.Equal(t, prover.ZeroVKHash, params.VKs.RecursionNodeLevel)

	for _, label := range []string{
		promptProtocolVersion,
		promptSchedulerVKHash,
		promptNodeVKHash,
		promptLeafVKHash,
		promptCircuitsSetVKHash,
		promptSnarkWrapperVKHash,
		promptProtocolVersionPatch,
	} {
		assert.Contains(t, out.String(), label)
	}
}

func TestPromptProtocolVersionParams_InvalidHash(t *testing.T) {
	p := newTerminalPrompter(strings.NewReader("24\n0xdead\n"), &bytes.Buffer{}, false)

	_, err := promptProtocolVersionParams(context.Background(), p)
	require.ErrorIs(t, err, prover.ErrInvalidVKHash)
	assert.Contains(t, err.Error(), promptSchedulerVKHash)
}

func TestPromptProtocolVersionParams_VersionOutOfRange(t *testing.T) {
	p := newTerminalPrompter(strings.NewReader("5000\n"), &bytes.Buffer{}, false)

	_, err := promptProtocolVersionParams(context.Background(), p)
	require.ErrorIs(t, err, prover.ErrInvalidProtocolVersion)
}
