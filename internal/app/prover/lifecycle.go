package prover

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/prover-cli/internal/domain/prover"
	"github.com/ahrav/prover-cli/pkg/common/logger"
)

// Outcome is the result of a lifecycle operation that may be declined.
type Outcome uint8

const (
	// OutcomeAborted means the operator declined the confirmation. Nothing
	// was written.
	OutcomeAborted Outcome = iota
	// OutcomeRestarted means the batch was reset to the basic round.
	OutcomeRestarted
	// OutcomeInserted means a new basic witness record was written.
	OutcomeInserted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAborted:
		return "aborted"
	case OutcomeRestarted:
		return "restarted"
	case OutcomeInserted:
		return "inserted"
	default:
		return "unknown"
	}
}

// Confirmation prompts shown before destructive operations.
const (
	PromptRestartSentProof = "The batch proof is already sent to the server. Do you want to restart it anyways?"
	PromptDeleteData       = "You're about to delete unrecoverable data from the database. Are you sure you want to proceed?"
)

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Lifecycle implements the operations that mutate pipeline records. Each
// destructive operation classifies the batch first and asks for confirmation.
type Lifecycle struct {
	repo        prover.JobRepository
	confirmer   Confirmer
	maxAttempts prover.MaxAttempts
	metrics     PipelineMetrics

	logger *logger.Logger
	tracer trace.Tracer
}

// NewLifecycle creates a Lifecycle service.
func NewLifecycle(
	repo prover.JobRepository,
	confirmer Confirmer,
	maxAttempts prover.MaxAttempts,
	metrics PipelineMetrics,
	logger *logger.Logger,
	tracer trace.Tracer,
) *Lifecycle {
	return &Lifecycle{
		repo:        repo,
		confirmer:   confirmer,
		maxAttempts: maxAttempts,
		metrics:     metrics,
		logger:      logger.With("component", "prover_lifecycle"),
		tracer:      tracer,
	}
}

// RestartProof discards every record of the batch downstream of the basic
// round and requeues the basic witness record. A batch whose proof was already
// sent to the server requires the stronger confirmation.
func (l *Lifecycle) RestartProof(ctx context.Context, batch prover.BatchNumber) (Outcome, error) {
	logr := l.logger.With("operation", "restart_proof", "batch_number", batch.String())
	ctx, span := l.tracer.Start(ctx, "prover_lifecycle.restart_proof",
		trace.WithAttributes(attribute.Int64("batch_number", int64(batch))))
	defer span.End()

	outcome, err := l.restart(ctx, batch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "restart failed")
		return OutcomeAborted, err
	}
	l.metrics.IncLifecycleOutcome(ctx, "restart_proof", outcome)
	span.SetAttributes(attribute.String("outcome", outcome.String()))
	span.SetStatus(codes.Ok, "restart completed")
	logr.Info(ctx, "restart proof finished", "outcome", outcome.String())

	return outcome, nil
}

func (l *Lifecycle) restart(ctx context.Context, batch prover.BatchNumber) (Outcome, error) {
	compressor, err := l.repo.GetCompressorJob(ctx, batch)
	if err != nil && !errors.Is(err, prover.ErrJobNotFound) {
		return OutcomeAborted, fmt.Errorf("getting compressor job (batch %d): %w", batch, err)
	}

	prompt := PromptDeleteData
	if prover.ClassifyCompressor(compressor, l.maxAttempts).IsSentToServer() {
		prompt = PromptRestartSentProof
	}

	ok, err := l.confirmer.Confirm(ctx, prompt)
	if err != nil {
		return OutcomeAborted, fmt.Errorf("confirming restart (batch %d): %w", batch, err)
	}
	if !ok {
		trace.SpanFromContext(ctx).AddEvent("restart_declined")
		return OutcomeAborted, nil
	}

	if err := l.repo.RestartBatch(ctx, batch); err != nil {
		return OutcomeAborted, fmt.Errorf("restarting batch %d: %w", batch, err)
	}
	return OutcomeRestarted, nil
}

// InsertWitnessInput writes the basic witness record that starts a batch. When
// the batch is already in the pipeline it is restarted first, under the same
// confirmation rules as RestartProof.
func (l *Lifecycle) InsertWitnessInput(
	ctx context.Context,
	batch prover.BatchNumber,
	version prover.ProtocolVersionID,
	patch prover.VersionPatch,
) (Outcome, error) {
	logr := l.logger.With("operation", "insert_witness_input", "batch_number", batch.String())
	ctx, span := l.tracer.Start(ctx, "prover_lifecycle.insert_witness_input",
		trace.WithAttributes(
			attribute.Int64("batch_number", int64(batch)),
			attribute.Int("protocol_version", int(version)),
			attribute.Int64("protocol_version_patch", int64(patch)),
		))
	defer span.End()

	existing, err := l.repo.GetWitnessJobs(ctx, prover.BasicCircuits, batch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "getting basic witness job failed")
		return OutcomeAborted, fmt.Errorf("getting basic witness job (batch %d): %w", batch, err)
	}

	if len(existing) > 0 {
		logr.Info(ctx, "batch already in the pipeline, restarting")
		outcome, err := l.restart(ctx, batch)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "restart failed")
			return OutcomeAborted, err
		}
		if outcome == OutcomeAborted {
			l.metrics.IncLifecycleOutcome(ctx, "insert_witness_input", OutcomeAborted)
			span.SetStatus(codes.Ok, "insert declined")
			logr.Info(ctx, "insert witness input declined")
			return OutcomeAborted, nil
		}
	}

	input := prover.NewWitnessInput(batch, version, patch)
	if err := l.repo.InsertWitnessInput(ctx, input); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return OutcomeAborted, fmt.Errorf("inserting witness input (batch %d): %w", batch, err)
	}

	l.metrics.IncLifecycleOutcome(ctx, "insert_witness_input", OutcomeInserted)
	span.SetStatus(codes.Ok, "witness input inserted")
	logr.Info(ctx, "witness input inserted", "blob_url", input.BlobURL)

	return OutcomeInserted, nil
}

// InsertProtocolVersion registers a protocol version with its verification
// key hashes.
func (l *Lifecycle) InsertProtocolVersion(ctx context.Context, params prover.ProtocolVersionParams) error {
	ctx, span := l.tracer.Start(ctx, "prover_lifecycle.insert_protocol_version",
		trace.WithAttributes(
			attribute.Int("protocol_version", int(params.Version)),
			attribute.Int64("protocol_version_patch", int64(params.Patch)),
		))
	defer span.End()

	if err := l.repo.InsertProtocolVersion(ctx, params); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return fmt.Errorf("inserting protocol version %s.%s: %w", params.Version, params.Patch, err)
	}

	span.SetStatus(codes.Ok, "protocol version inserted")
	l.logger.Info(ctx, "protocol version inserted",
		"protocol_version", params.Version.String(),
		"protocol_version_patch", params.Patch.String(),
	)
	return nil
}
