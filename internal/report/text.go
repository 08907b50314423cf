package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	proverapp "github.com/ahrav/prover-cli/internal/app/prover"
	"github.com/ahrav/prover-cli/internal/domain/prover"
)

const bannerRule = "========"

type textStyles struct {
	banner  lipgloss.Style
	heading lipgloss.Style
	label   lipgloss.Style
	warn    lipgloss.Style
	muted   lipgloss.Style
}

func newTextStyles(r *lipgloss.Renderer) textStyles {
	return textStyles{
		banner:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")).Background(lipgloss.Color("0")),
		heading: r.NewStyle().Bold(true),
		label:   r.NewStyle().Bold(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("11")),
		muted:   r.NewStyle().Faint(true),
	}
}

// textRenderer writes the operator facing layout. Styling is dropped
// automatically when w is not a terminal.
type textRenderer struct {
	w      io.Writer
	opts   Options
	styles textStyles
}

func newTextRenderer(w io.Writer, opts Options) *textRenderer {
	return &textRenderer{
		w:      w,
		opts:   opts,
		styles: newTextStyles(lipgloss.NewRenderer(w)),
	}
}

func (r *textRenderer) RenderBatches(batches []prover.BatchData) error {
	var b strings.Builder
	for _, batch := range batches {
		r.writeBatch(&b, batch)
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *textRenderer) writeBatch(b *strings.Builder, batch prover.BatchData) {
	title := r.styles.banner.Render(fmt.Sprintf("Batch %05d Status", uint32(batch.BatchNumber)))
	fmt.Fprintf(b, "%s %s %s\n", bannerRule, title, bannerRule)

	switch {
	case batch.ProofSent:
		b.WriteString("> Proof sent to server ✅\n")
		return
	case batch.NotFound:
		b.WriteString("> No batch found. 🚫\n")
		return
	}

	if batch.ProtocolVersion != nil {
		version := batch.ProtocolVersion.String()
		if batch.Patch != nil {
			version += "." + batch.Patch.String()
		}
		b.WriteString(r.styles.muted.Render("Protocol version "+version) + "\n")
	}

	for _, info := range batch.Stages {
		r.writeStage(b, info)
	}

	if violations := batch.Inconsistencies(); len(violations) > 0 {
		b.WriteString("\n" + r.styles.warn.Render("Inconsistent stage records:") + "\n")
		for _, v := range violations {
			fmt.Fprintf(b, "  ! %s\n", v)
		}
	}
	b.WriteString("\n")
}

func (r *textRenderer) writeStage(b *strings.Builder, info prover.StageInfo) {
	fmt.Fprintf(b, "\n-- %s --\n", r.styles.heading.Render(info.Stage.Title()))
	fmt.Fprintf(b, "> %s: %s\n", r.styles.label.Render(info.Stage.JobName()), info.Status)
	if info.ProverStatus != nil {
		fmt.Fprintf(b, "> %s: %s\n", r.styles.label.Render("Prover Jobs"), *info.ProverStatus)
	}

	if !r.opts.Verbose {
		return
	}
	for _, job := range info.WitnessJobs {
		fmt.Fprintf(b, "    %s\n", witnessJobLine(job))
	}
	for _, job := range info.ProverJobs {
		fmt.Fprintf(b, "    %s\n", proverJobLine(job))
	}
	if info.Compressor != nil {
		fmt.Fprintf(b, "    %s\n", compressorJobLine(info.Compressor))
	}
}

func (r *textRenderer) RenderStuck(reports []proverapp.StageStuckReport) error {
	var b strings.Builder
	found := false
	for _, report := range reports {
		if report.Empty() {
			continue
		}
		found = true
		r.writeStuckStage(&b, report)
	}
	if !found {
		b.WriteString("> No stuck jobs found ✅\n")
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *textRenderer) writeStuckStage(b *strings.Builder, report proverapp.StageStuckReport) {
	fmt.Fprintf(b, "\n-- %s --\n", r.styles.heading.Render(report.Stage.Title()))

	if len(report.WitnessJobs) > 0 {
		fmt.Fprintf(b, "> %s: %d\n", r.styles.label.Render("Stuck "+report.Stage.JobName()+" jobs"), len(report.WitnessJobs))
		for _, stuck := range report.WitnessJobs {
			fmt.Fprintf(b, "    %s\n", witnessJobLine(stuck.Job))
			for _, job := range stuck.StuckProverJobs {
				fmt.Fprintf(b, "        %s\n", proverJobLine(job))
			}
		}
	}
	if len(report.ProverJobs) > 0 {
		fmt.Fprintf(b, "> %s: %d\n", r.styles.label.Render("Stuck Prover Jobs"), len(report.ProverJobs))
		for _, job := range report.ProverJobs {
			fmt.Fprintf(b, "    %s\n", proverJobLine(job))
		}
	}
	if len(report.CompressorJobs) > 0 {
		fmt.Fprintf(b, "> %s: %d\n", r.styles.label.Render("Stuck Compressor jobs"), len(report.CompressorJobs))
		for _, job := range report.CompressorJobs {
			fmt.Fprintf(b, "    %s\n", compressorJobLine(job))
		}
	}
}

func witnessJobLine(job *prover.WitnessGeneratorJob) string {
	parts := []string{fmt.Sprintf("batch %d", job.BatchNumber)}
	if job.ID != nil {
		parts = append(parts, fmt.Sprintf("id %d", *job.ID))
	}
	if job.CircuitID != nil {
		parts = append(parts, fmt.Sprintf("circuit %d", *job.CircuitID))
	}
	if job.Depth != nil {
		parts = append(parts, fmt.Sprintf("depth %d", *job.Depth))
	}
	parts = append(parts, fmt.Sprintf("status %s", job.Status), fmt.Sprintf("attempts %d", job.Attempts))
	return strings.Join(append(parts, detailParts(job.JobTimeline, job.JobMeta)...), "  ")
}

func proverJobLine(job *prover.ProverJob) string {
	parts := []string{
		fmt.Sprintf("prover job %d", job.ID),
		fmt.Sprintf("batch %d", job.BatchNumber),
		fmt.Sprintf("circuit %d", job.CircuitID),
	}
	if job.Round == prover.NodeAggregation {
		parts = append(parts, fmt.Sprintf("depth %d", job.Depth))
	}
	parts = append(parts, fmt.Sprintf("status %s", job.Status), fmt.Sprintf("attempts %d", job.Attempts))
	return strings.Join(append(parts, detailParts(job.JobTimeline, job.JobMeta)...), "  ")
}

func compressorJobLine(job *prover.CompressorJob) string {
	parts := []string{
		fmt.Sprintf("compressor batch %d", job.BatchNumber),
		fmt.Sprintf("status %s", job.Status),
		fmt.Sprintf("attempts %d", job.Attempts),
	}
	return strings.Join(append(parts, detailParts(job.JobTimeline, job.JobMeta)...), "  ")
}

func detailParts(tl prover.JobTimeline, meta prover.JobMeta) []string {
	var parts []string
	if meta.PickedBy != nil {
		parts = append(parts, "picked by "+*meta.PickedBy)
	}
	if tl.ProcessingStartedAt != nil {
		parts = append(parts, "started "+tl.ProcessingStartedAt.UTC().Format(time.RFC3339))
	}
	if tl.TimeTaken != nil {
		parts = append(parts, "took "+tl.TimeTaken.String())
	}
	if meta.Error != nil {
		parts = append(parts, fmt.Sprintf("error %q", *meta.Error))
	}
	return parts
}
