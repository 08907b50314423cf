package prover

import "context"

// JobRepository is the read/write port over the persisted pipeline records.
// Implementations wrap transport failures with ErrRepository and return
// *DecodeError for fields that do not match their typed representation.
type JobRepository interface {
	JobReader
	JobWriter
}

// JobReader exposes the read-only queries used for classification.
type JobReader interface {
	// GetWitnessJobs returns the witness generator records of a round for one
	// batch. An empty slice means the batch has no record in that round.
	GetWitnessJobs(ctx context.Context, round AggregationRound, batch BatchNumber) ([]*WitnessGeneratorJob, error)

	// GetCompressorJob returns the compressor record of a batch, or
	// ErrJobNotFound.
	GetCompressorJob(ctx context.Context, batch BatchNumber) (*CompressorJob, error)

	// ListProverJobs returns the prover jobs of a round for one batch.
	ListProverJobs(ctx context.Context, round AggregationRound, batch BatchNumber) ([]*ProverJob, error)

	// ListNonTerminalWitnessJobs returns every witness record of a round, across
	// batches, whose status is not terminal.
	ListNonTerminalWitnessJobs(ctx context.Context, round AggregationRound) ([]*WitnessGeneratorJob, error)

	// ListNonTerminalProverJobs returns every prover job of a round, across
	// batches, whose status is not terminal.
	ListNonTerminalProverJobs(ctx context.Context, round AggregationRound) ([]*ProverJob, error)

	// ListNonTerminalCompressorJobs returns every compressor record whose
	// status is not terminal.
	ListNonTerminalCompressorJobs(ctx context.Context) ([]*CompressorJob, error)
}

// JobWriter exposes the mutations used by lifecycle operations.
type JobWriter interface {
	// RestartBatch discards every downstream record of the batch and requeues
	// its basic witness record, atomically.
	RestartBatch(ctx context.Context, batch BatchNumber) error

	// InsertWitnessInput inserts, or supersedes, the basic witness record of a
	// batch with zero attempts and a queued status.
	InsertWitnessInput(ctx context.Context, input WitnessInput) error

	// InsertProtocolVersion registers a protocol version and its verification
	// keys.
	InsertProtocolVersion(ctx context.Context, params ProtocolVersionParams) error
}
