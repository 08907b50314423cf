package main

import (
	"context"
	"time"

	"github.com/ahrav/prover-cli/internal/domain/prover"
)

// timeoutStore bounds every repository call by its own deadline. Commands
// that prompt the operator between queries must not have the wait for an
// answer count against a query.
type timeoutStore struct {
	next    prover.JobRepository
	timeout time.Duration
}

var _ prover.JobRepository = (*timeoutStore)(nil)

func newTimeoutStore(next prover.JobRepository, timeout time.Duration) *timeoutStore {
	return &timeoutStore{next: next, timeout: timeout}
}

func (s *timeoutStore) GetWitnessJobs(
	ctx context.Context,
	round prover.AggregationRound,
	batch prover.BatchNumber,
) ([]*prover.WitnessGeneratorJob, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.GetWitnessJobs(ctx, round, batch)
}

func (s *timeoutStore) GetCompressorJob(ctx context.Context, batch prover.BatchNumber) (*prover.CompressorJob, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.GetCompressorJob(ctx, batch)
}

func (s *timeoutStore) ListProverJobs(
	ctx context.Context,
	round prover.AggregationRound,
	batch prover.BatchNumber,
) ([]*prover.ProverJob, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.ListProverJobs(ctx, round, batch)
}

func (s *timeoutStore) ListNonTerminalWitnessJobs(ctx context.Context, round prover.AggregationRound) ([]*prover.WitnessGeneratorJob, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.ListNonTerminalWitnessJobs(ctx, round)
}

func (s *timeoutStore) ListNonTerminalProverJobs(ctx context.Context, round prover.AggregationRound) ([]*prover.ProverJob, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.ListNonTerminalProverJobs(ctx, round)
}

func (s *timeoutStore) ListNonTerminalCompressorJobs(ctx context.Context) ([]*prover.CompressorJob, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.ListNonTerminalCompressorJobs(ctx)
}

func (s *timeoutStore) RestartBatch(ctx context.Context, batch prover.BatchNumber) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.RestartBatch(ctx, batch)
}

func (s *timeoutStore) InsertWitnessInput(ctx context.Context, input prover.WitnessInput) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.InsertWitnessInput(ctx, input)
}

func (s *timeoutStore) InsertProtocolVersion(ctx context.Context, params prover.ProtocolVersionParams) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.InsertProtocolVersion(ctx, params)
}
