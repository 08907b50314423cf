// Package report renders pipeline status and stuck job reports for operators,
// either as styled text or as YAML or JSON documents.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	proverapp "github.com/ahrav/prover-cli/internal/app/prover"
	"github.com/ahrav/prover-cli/internal/domain/prover"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported encodings.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat converts a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatYAML, FormatJSON:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q (want text, yaml or json)", ErrUnknownFormat, s)
	}
}

// Renderer writes reports to an output stream.
type Renderer interface {
	RenderBatches(batches []prover.BatchData) error
	RenderStuck(reports []proverapp.StageStuckReport) error
}

// Options tune rendering.
type Options struct {
	// Verbose adds per job detail to batch reports.
	Verbose bool
}

// NewRenderer returns the Renderer for the requested format.
func NewRenderer(w io.Writer, format Format, opts Options) (Renderer, error) {
	switch format {
	case FormatText:
		return newTextRenderer(w, opts), nil
	case FormatYAML, FormatJSON:
		return &documentRenderer{w: w, format: format, opts: opts}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
