package prover

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ahrav/prover-cli/internal/domain/prover"
)

// PipelineMetrics defines the metrics recorded by the pipeline inspection
// services.
type PipelineMetrics interface {
	ObserveStuckJobs(ctx context.Context, stage prover.Stage, kind string, count int)
	IncBatchesAggregated(ctx context.Context, outcome string)
	IncLifecycleOutcome(ctx context.Context, operation string, outcome Outcome)
}

// pipelineMetrics implements PipelineMetrics.
type pipelineMetrics struct {
	stuckJobs         metric.Int64Counter
	batchesAggregated metric.Int64Counter
	lifecycleOutcomes metric.Int64Counter
}

const namespace = "prover_cli"

// NewPipelineMetrics creates a new PipelineMetrics instance.
func NewPipelineMetrics(mp metric.MeterProvider) (*pipelineMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	m := new(pipelineMetrics)
	var err error

	if m.stuckJobs, err = meter.Int64Counter(
		"stuck_jobs_total",
		metric.WithDescription("Number of stuck jobs found per stage and job kind"),
	); err != nil {
		return nil, err
	}

	if m.batchesAggregated, err = meter.Int64Counter(
		"batches_aggregated_total",
		metric.WithDescription("Number of batch status reports produced"),
	); err != nil {
		return nil, err
	}

	if m.lifecycleOutcomes, err = meter.Int64Counter(
		"lifecycle_outcomes_total",
		metric.WithDescription("Outcomes of restart and insert operations"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *pipelineMetrics) ObserveStuckJobs(ctx context.Context, stage prover.Stage, kind string, count int) {
	m.stuckJobs.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("stage", stage.String()),
		attribute.String("job_kind", kind),
	))
}

func (m *pipelineMetrics) IncBatchesAggregated(ctx context.Context, outcome string) {
	m.batchesAggregated.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *pipelineMetrics) IncLifecycleOutcome(ctx context.Context, operation string, outcome Outcome) {
	m.lifecycleOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome.String()),
	))
}
