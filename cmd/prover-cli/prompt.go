package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	proverapp "github.com/ahrav/prover-cli/internal/app/prover"
	"github.com/ahrav/prover-cli/internal/domain/prover"
)

// Prompt labels for interactive protocol version inserts.
const (
	promptProtocolVersion      = "Protocol version"
	promptProtocolVersionPatch = "Protocol version patch"
	promptSchedulerVKHash      = "Recursion Scheduler Level VK Hash"
	promptNodeVKHash           = "Recursion Node Level VK Hash"
	promptLeafVKHash           = "Recursion Leaf Level VK Hash"
	promptCircuitsSetVKHash    = "Recursion Circuits Set VKs Hash"
	promptSnarkWrapperVKHash   = "Snark Wrapper VK Hash"
)

// terminalPrompter asks questions on out and reads answers line by line from
// in. With assumeYes set every confirmation is accepted without reading.
type terminalPrompter struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

var _ proverapp.Confirmer = (*terminalPrompter)(nil)

func newTerminalPrompter(in io.Reader, out io.Writer, assumeYes bool) *terminalPrompter {
	return &terminalPrompter{in: bufio.NewReader(in), out: out, assumeYes: assumeYes}
}

// Confirm asks a yes/no question. Anything other than y or yes declines.
func (p *terminalPrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	if p.assumeYes {
		fmt.Fprintf(p.out, "%s [y/N]: y\n", prompt)
		return true, nil
	}

	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	answer, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Prompt asks for a value, returning def when the answer is empty.
func (p *terminalPrompter) Prompt(ctx context.Context, label, def string) (string, error) {
	fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	answer, err := p.readLine(ctx)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func (p *terminalPrompter) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading answer: input closed")
		}
		return "", fmt.Errorf("reading answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptProtocolVersionParams collects a protocol version insert interactively,
// offering the defaults for every field.
func promptProtocolVersionParams(ctx context.Context, p *terminalPrompter) (prover.ProtocolVersionParams, error) {
	params := prover.DefaultProtocolVersionParams()

	raw, err := p.Prompt(ctx, promptProtocolVersion, params.Version.String())
	if err != nil {
		return params, err
	}
	if params.Version, err = parseProtocolVersion(raw); err != nil {
		return params, err
	}

	hashes := []struct {
		label string
		dst   *prover.VKHash
	}{
		{promptSchedulerVKHash, &params.VKs.RecursionSchedulerLevel},
		{promptNodeVKHash, &params.VKs.RecursionNodeLevel},
		{promptLeafVKHash, &params.VKs.RecursionLeafLevel},
		{promptCircuitsSetVKHash, &params.VKs.RecursionCircuitsSet},
		{promptSnarkWrapperVKHash, &params.VKs.SnarkWrapper},
	}
	for _, h := range hashes {
		raw, err := p.Prompt(ctx, h.label, h.dst.String())
		if err != nil {
			return params, err
		}
		parsed, err := prover.ParseVKHash(raw)
		if err != nil {
			return params, fmt.Errorf("%s: %w", h.label, err)
		}
		*h.dst = parsed
	}

	raw, err = p.Prompt(ctx, promptProtocolVersionPatch, params.Patch.String())
	if err != nil {
		return params, err
	}
	if params.Patch, err = parseVersionPatch(raw); err != nil {
		return params, err
	}

	return params, nil
}

func parseProtocolVersion(s string) (prover.ProtocolVersionID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", prover.ErrInvalidProtocolVersion, s)
	}
	return prover.NewProtocolVersionID(v)
}

func parseVersionPatch(s string) (prover.VersionPatch, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid protocol version patch %q: %w", s, err)
	}
	return prover.VersionPatch(v), nil
}
