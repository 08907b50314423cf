package prover

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/prover-cli/internal/domain/prover"
	"github.com/ahrav/prover-cli/pkg/common/logger"
)

// StuckWitnessJob is a witness generator job that exhausted its attempt budget,
// along with the stuck prover jobs of the same round and batch.
type StuckWitnessJob struct {
	Job             *prover.WitnessGeneratorJob
	StuckProverJobs []*prover.ProverJob
}

// StageStuckReport lists the stuck jobs found in one stage.
type StageStuckReport struct {
	Stage prover.Stage

	// WitnessJobs holds stuck witness generator records of a round.
	WitnessJobs []StuckWitnessJob
	// ProverJobs holds every stuck prover job of the round, across batches,
	// whether or not its witness job is stuck too.
	ProverJobs []*prover.ProverJob
	// CompressorJobs is only populated for the compressor stage.
	CompressorJobs []*prover.CompressorJob
}

// Empty reports whether nothing is stuck in the stage.
func (r StageStuckReport) Empty() bool {
	return len(r.WitnessJobs) == 0 && len(r.ProverJobs) == 0 && len(r.CompressorJobs) == 0
}

// StuckJobDetector scans the pipeline for jobs that are not terminal and have
// exhausted their retry budget. It only reads.
type StuckJobDetector struct {
	repo        prover.JobReader
	maxAttempts prover.MaxAttempts
	metrics     PipelineMetrics

	logger *logger.Logger
	tracer trace.Tracer
}

// NewStuckJobDetector creates a StuckJobDetector using maxAttempts as the
// retry budget for every stage.
func NewStuckJobDetector(
	repo prover.JobReader,
	maxAttempts prover.MaxAttempts,
	metrics PipelineMetrics,
	logger *logger.Logger,
	tracer trace.Tracer,
) *StuckJobDetector {
	return &StuckJobDetector{
		repo:        repo,
		maxAttempts: maxAttempts,
		metrics:     metrics,
		logger:      logger.With("component", "stuck_job_detector"),
		tracer:      tracer,
	}
}

// ScanAll scans every stage in pipeline order. A stuck job in an early stage
// never suppresses scanning of later stages: they may hold other batches.
// The first error aborts the scan.
func (d *StuckJobDetector) ScanAll(ctx context.Context) ([]StageStuckReport, error) {
	ctx, span := d.tracer.Start(ctx, "stuck_job_detector.scan_all",
		trace.WithAttributes(attribute.Int("max_attempts", int(d.maxAttempts))))
	defer span.End()

	stages := prover.AllStages()
	reports := make([]StageStuckReport, 0, len(stages))
	for _, stage := range stages {
		report, err := d.FindStuck(ctx, stage)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "stage scan failed")
			return nil, err
		}
		reports = append(reports, report)
	}

	span.SetStatus(codes.Ok, "scan completed")
	return reports, nil
}

// FindStuck scans a single stage.
func (d *StuckJobDetector) FindStuck(ctx context.Context, stage prover.Stage) (StageStuckReport, error) {
	logr := d.logger.With("operation", "find_stuck", "stage", stage.String())
	ctx, span := d.tracer.Start(ctx, "stuck_job_detector.find_stuck",
		trace.WithAttributes(attribute.String("stage", stage.String())))
	defer span.End()

	round, ok := stage.Round()
	if !ok {
		report, err := d.findStuckCompressorJobs(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "compressor scan failed")
			return StageStuckReport{}, err
		}
		d.metrics.ObserveStuckJobs(ctx, stage, "compressor", len(report.CompressorJobs))
		logr.Debug(ctx, "stage scanned", "stuck_compressor_jobs", len(report.CompressorJobs))
		return report, nil
	}

	report := StageStuckReport{Stage: stage}

	witnessJobs, err := d.repo.ListNonTerminalWitnessJobs(ctx, round)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing witness jobs failed")
		return StageStuckReport{}, fmt.Errorf("listing non terminal witness jobs (round %s): %w", round, err)
	}

	// Leaf and node rounds hold one witness record per circuit, so a batch's
	// prover jobs are fetched once and split between its witness records.
	batchProverJobs := make(map[prover.BatchNumber][]*prover.ProverJob)
	for _, job := range witnessJobs {
		if prover.Classify(job, d.maxAttempts) != prover.Stuck {
			continue
		}

		proverJobs, ok := batchProverJobs[job.BatchNumber]
		if !ok {
			proverJobs, err = d.repo.ListProverJobs(ctx, round, job.BatchNumber)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "listing prover jobs failed")
				return StageStuckReport{}, fmt.Errorf("listing prover jobs (round %s, batch %d): %w", round, job.BatchNumber, err)
			}
			batchProverJobs[job.BatchNumber] = proverJobs
		}
		report.WitnessJobs = append(report.WitnessJobs, StuckWitnessJob{
			Job:             job,
			StuckProverJobs: d.stuckProverJobs(proverJobsOf(job, proverJobs)),
		})
	}

	proverJobs, err := d.repo.ListNonTerminalProverJobs(ctx, round)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing prover jobs failed")
		return StageStuckReport{}, fmt.Errorf("listing non terminal prover jobs (round %s): %w", round, err)
	}
	report.ProverJobs = d.stuckProverJobs(proverJobs)

	span.SetAttributes(
		attribute.Int("stuck_witness_jobs", len(report.WitnessJobs)),
		attribute.Int("stuck_prover_jobs", len(report.ProverJobs)),
	)
	d.metrics.ObserveStuckJobs(ctx, stage, "witness_generator", len(report.WitnessJobs))
	d.metrics.ObserveStuckJobs(ctx, stage, "prover", len(report.ProverJobs))
	logr.Debug(ctx, "stage scanned",
		"candidates", len(witnessJobs),
		"stuck_witness_jobs", len(report.WitnessJobs),
		"stuck_prover_jobs", len(report.ProverJobs),
	)

	return report, nil
}

func (d *StuckJobDetector) findStuckCompressorJobs(ctx context.Context) (StageStuckReport, error) {
	jobs, err := d.repo.ListNonTerminalCompressorJobs(ctx)
	if err != nil {
		return StageStuckReport{}, fmt.Errorf("listing non terminal compressor jobs: %w", err)
	}

	report := StageStuckReport{Stage: prover.StageCompressor}
	for _, job := range jobs {
		if prover.ClassifyCompressor(job, d.maxAttempts) == prover.Stuck {
			report.CompressorJobs = append(report.CompressorJobs, job)
		}
	}
	return report, nil
}

// proverJobsOf narrows a batch's prover jobs to those produced for the witness
// record: same circuit, and same depth when the record carries one.
func proverJobsOf(job *prover.WitnessGeneratorJob, jobs []*prover.ProverJob) []*prover.ProverJob {
	if job.CircuitID == nil {
		return jobs
	}

	var owned []*prover.ProverJob
	for _, pj := range jobs {
		if pj.CircuitID != *job.CircuitID {
			continue
		}
		if job.Depth != nil && pj.Depth != *job.Depth {
			continue
		}
		owned = append(owned, pj)
	}
	return owned
}

func (d *StuckJobDetector) stuckProverJobs(jobs []*prover.ProverJob) []*prover.ProverJob {
	var stuck []*prover.ProverJob
	for _, job := range jobs {
		if prover.Classify(job, d.maxAttempts) == prover.Stuck {
			stuck = append(stuck, job)
		}
	}
	return stuck
}
