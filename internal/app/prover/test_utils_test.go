package prover

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"

	"github.com/ahrav/prover-cli/internal/domain/prover"
)

// mockJobRepository implements prover.JobRepository for testing.
type mockJobRepository struct{ mock.Mock }

func (m *mockJobRepository) GetWitnessJobs(ctx context.Context, round prover.AggregationRound, batch prover.BatchNumber) ([]*prover.WitnessGeneratorJob, error) {
	args := m.Called(ctx, round, batch)
	if jobs := args.Get(0); jobs != nil {
		return jobs.([]*prover.WitnessGeneratorJob), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockJobRepository) GetCompressorJob(ctx context.Context, batch prover.BatchNumber) (*prover.CompressorJob, error) {
	args := m.Called(ctx, batch)
	if job := args.Get(0); job != nil {
		return job.(*prover.CompressorJob), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockJobRepository) ListProverJobs(ctx context.Context, round prover.AggregationRound, batch prover.BatchNumber) ([]*prover.ProverJob, error) {
	args := m.Called(ctx, round, batch)
	if jobs := args.Get(0); jobs != nil {
		return jobs.([]*prover.ProverJob), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockJobRepository) ListNonTerminalWitnessJobs(ctx context.Context, round prover.AggregationRound) ([]*prover.WitnessGeneratorJob, error) {
	args := m.Called(ctx, round)
	if jobs := args.Get(0); jobs != nil {
		return jobs.([]*prover.WitnessGeneratorJob), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockJobRepository) ListNonTerminalProverJobs(ctx context.Context, round prover.AggregationRound) ([]*prover.ProverJob, error) {
	args := m.Called(ctx, round)
	if jobs := args.Get(0); jobs != nil {
		return jobs.([]*prover.ProverJob), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockJobRepository) ListNonTerminalCompressorJobs(ctx context.Context) ([]*prover.CompressorJob, error) {
	args := m.Called(ctx)
	if jobs := args.Get(0); jobs != nil {
		return jobs.([]*prover.CompressorJob), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockJobRepository) RestartBatch(ctx context.Context, batch prover.BatchNumber) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *mockJobRepository) InsertWitnessInput(ctx context.Context, input prover.WitnessInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

func (m *mockJobRepository) InsertProtocolVersion(ctx context.Context, params prover.ProtocolVersionParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// mockConfirmer implements Confirmer for testing.
type mockConfirmer struct{ mock.Mock }

func (m *mockConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	args := m.Called(ctx, prompt)
	return args.Bool(0), args.Error(1)
}

func newTestMetrics(t *testing.T) PipelineMetrics {
	t.Helper()
	m, err := NewPipelineMetrics(metricnoop.NewMeterProvider())
	require.NoError(t, err)
	return m
}

func witnessJob(round prover.AggregationRound, batch prover.BatchNumber, status prover.WitnessJobStatus, attempts uint32) *prover.WitnessGeneratorJob {
	return &prover.WitnessGeneratorJob{
		Round:       round,
		BatchNumber: batch,
		Status:      status,
		Attempts:    attempts,
	}
}

func proverJob(id uint32, round prover.AggregationRound, batch prover.BatchNumber, status prover.ProverJobStatus, attempts uint32) *prover.ProverJob {
	return &prover.ProverJob{
		ID:          id,
		Round:       round,
		BatchNumber: batch,
		Status:      status,
		Attempts:    attempts,
	}
}

func leafWitnessJob(batch prover.BatchNumber, circuit uint32, status prover.WitnessJobStatus, attempts uint32) *prover.WitnessGeneratorJob {
	job := witnessJob(prover.LeafAggregation, batch, status, attempts)
	job.CircuitID = ptr(circuit)
	return job
}

func circuitProverJob(
	id uint32,
	round prover.AggregationRound,
	batch prover.BatchNumber,
	circuit uint32,
	status prover.ProverJobStatus,
	attempts uint32,
) *prover.ProverJob {
	job := proverJob(id, round, batch, status, attempts)
	job.CircuitID = circuit
	return job
}

func ptr[T any](v T) *T { return &v }

func compressorJob(batch prover.BatchNumber, status prover.CompressionJobStatus, attempts uint32) *prover.CompressorJob {
	return &prover.CompressorJob{
		BatchNumber: batch,
		Status:      status,
		Attempts:    attempts,
	}
}

// Typed nil results for mock returns.
var (
	noWitnessJobs    []*prover.WitnessGeneratorJob
	noProverJobs     []*prover.ProverJob
	noCompressorJobs []*prover.CompressorJob
)
