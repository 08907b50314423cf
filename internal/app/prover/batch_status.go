package prover

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/prover-cli/internal/domain/prover"
	"github.com/ahrav/prover-cli/pkg/common/logger"
)

// defaultConcurrency bounds the batches inspected at once by
// AggregateConcurrently.
const defaultConcurrency = 4

// BatchStatusAggregator builds per batch status reports by classifying every
// stage of the pipeline in order. It only reads.
type BatchStatusAggregator struct {
	repo        prover.JobReader
	maxAttempts prover.MaxAttempts
	metrics     PipelineMetrics
	concurrency int

	logger *logger.Logger
	tracer trace.Tracer
}

// AggregatorOption customizes a BatchStatusAggregator.
type AggregatorOption func(*BatchStatusAggregator)

// WithConcurrency sets how many batches AggregateConcurrently inspects at
// once. Values below one are ignored.
func WithConcurrency(n int) AggregatorOption {
	return func(a *BatchStatusAggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// NewBatchStatusAggregator creates a BatchStatusAggregator.
func NewBatchStatusAggregator(
	repo prover.JobReader,
	maxAttempts prover.MaxAttempts,
	metrics PipelineMetrics,
	logger *logger.Logger,
	tracer trace.Tracer,
	opts ...AggregatorOption,
) *BatchStatusAggregator {
	a := &BatchStatusAggregator{
		repo:        repo,
		maxAttempts: maxAttempts,
		metrics:     metrics,
		concurrency: defaultConcurrency,
		logger:      logger.With("component", "batch_status_aggregator"),
		tracer:      tracer,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate returns one report per batch, in input order. The first failure
// aborts the call.
func (a *BatchStatusAggregator) Aggregate(ctx context.Context, batches []prover.BatchNumber) ([]prover.BatchData, error) {
	ctx, span := a.tracer.Start(ctx, "batch_status_aggregator.aggregate",
		trace.WithAttributes(attribute.Int("batch_count", len(batches))))
	defer span.End()

	out := make([]prover.BatchData, 0, len(batches))
	for _, batch := range batches {
		data, err := a.AggregateBatch(ctx, batch)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "batch aggregation failed")
			return nil, err
		}
		out = append(out, data)
	}

	span.SetStatus(codes.Ok, "batches aggregated")
	return out, nil
}

// AggregateConcurrently behaves like Aggregate but inspects several batches at
// once. Reports keep the input order and the first failure cancels the rest.
func (a *BatchStatusAggregator) AggregateConcurrently(ctx context.Context, batches []prover.BatchNumber) ([]prover.BatchData, error) {
	ctx, span := a.tracer.Start(ctx, "batch_status_aggregator.aggregate_concurrently",
		trace.WithAttributes(
			attribute.Int("batch_count", len(batches)),
			attribute.Int("concurrency", a.concurrency),
		))
	defer span.End()

	out := make([]prover.BatchData, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, batch := range batches {
		g.Go(func() error {
			data, err := a.AggregateBatch(gctx, batch)
			if err != nil {
				return err
			}
			out[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch aggregation failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "batches aggregated")
	return out, nil
}

// AggregateBatch builds the report of a single batch:
//  1. a compressed proof already sent to the server short-circuits the report;
//  2. a batch without a basic witness record is reported as not found;
//  3. otherwise every round is classified in order, with its prover jobs for
//     stages that have started producing proofs, followed by the compressor.
func (a *BatchStatusAggregator) AggregateBatch(ctx context.Context, batch prover.BatchNumber) (prover.BatchData, error) {
	logr := a.logger.With("operation", "aggregate_batch", "batch_number", batch.String())
	ctx, span := a.tracer.Start(ctx, "batch_status_aggregator.aggregate_batch",
		trace.WithAttributes(attribute.Int64("batch_number", int64(batch))))
	defer span.End()

	data, err := a.aggregateBatch(ctx, batch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch aggregation failed")
		return prover.BatchData{}, err
	}

	outcome := "full"
	switch {
	case data.ProofSent:
		outcome = "proof_sent"
	case data.NotFound:
		outcome = "not_found"
	}
	a.metrics.IncBatchesAggregated(ctx, outcome)
	span.SetAttributes(attribute.String("outcome", outcome))
	span.SetStatus(codes.Ok, "batch aggregated")
	logr.Debug(ctx, "batch aggregated", "outcome", outcome, "stages", len(data.Stages))

	return data, nil
}

func (a *BatchStatusAggregator) aggregateBatch(ctx context.Context, batch prover.BatchNumber) (prover.BatchData, error) {
	data := prover.BatchData{BatchNumber: batch}

	compressor, err := a.repo.GetCompressorJob(ctx, batch)
	if err != nil && !errors.Is(err, prover.ErrJobNotFound) {
		return prover.BatchData{}, fmt.Errorf("getting compressor job (batch %d): %w", batch, err)
	}
	compressorInfo := prover.NewCompressorStageInfo(compressor, a.maxAttempts)
	if compressorInfo.Status.IsSentToServer() {
		data.ProofSent = true
		data.Stages = []prover.StageInfo{compressorInfo}
		return data, nil
	}

	for _, round := range prover.AllRounds() {
		info, err := a.roundStageInfo(ctx, round, batch)
		if err != nil {
			return prover.BatchData{}, err
		}

		if round == prover.BasicCircuits {
			if len(info.WitnessJobs) == 0 {
				data.NotFound = true
				data.Stages = []prover.StageInfo{info}
				return data, nil
			}
			basic := info.WitnessJobs[0]
			data.ProtocolVersion = basic.ProtocolVersion
			data.Patch = basic.ProtocolVersionPatch
		}

		data.Stages = append(data.Stages, info)
	}

	data.Stages = append(data.Stages, compressorInfo)
	return data, nil
}

func (a *BatchStatusAggregator) roundStageInfo(
	ctx context.Context,
	round prover.AggregationRound,
	batch prover.BatchNumber,
) (prover.StageInfo, error) {
	jobs, err := a.repo.GetWitnessJobs(ctx, round, batch)
	if err != nil {
		return prover.StageInfo{}, fmt.Errorf("getting witness jobs (round %s, batch %d): %w", round, batch, err)
	}

	info := prover.NewRoundStageInfo(round, jobs, a.maxAttempts)
	if !info.NeedsProverJobs() {
		return info, nil
	}

	proverJobs, err := a.repo.ListProverJobs(ctx, round, batch)
	if err != nil {
		return prover.StageInfo{}, fmt.Errorf("listing prover jobs (round %s, batch %d): %w", round, batch, err)
	}
	return info.WithProverJobs(proverJobs, a.maxAttempts), nil
}
