package prover

import (
	"fmt"
	"strconv"
	"time"
)

// BatchNumber identifies an L1 batch flowing through the pipeline.
type BatchNumber uint32

func (b BatchNumber) String() string { return strconv.FormatUint(uint64(b), 10) }

// ParseBatchNumber parses a decimal batch number.
func ParseBatchNumber(s string) (BatchNumber, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBatchNumber, s)
	}
	return BatchNumber(v), nil
}

// JobTimeline holds the bookkeeping timestamps common to every job table.
type JobTimeline struct {
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ProcessingStartedAt *time.Time
	// TimeTaken is the wall time of the last successful attempt, if any.
	TimeTaken *time.Duration
}

// JobMeta holds fields shared by every job table that describe who produced
// the record and for which protocol.
type JobMeta struct {
	ProtocolVersion      *ProtocolVersionID
	ProtocolVersionPatch *VersionPatch
	PickedBy             *string
	Error                *string
}

// WitnessGeneratorJob is one witness generation record of an aggregation round.
// Basic circuits, recursion tip and scheduler rounds hold one record per batch;
// leaf and node rounds hold one per circuit id (and depth).
type WitnessGeneratorJob struct {
	Round       AggregationRound
	BatchNumber BatchNumber
	Attempts    uint32
	Status      WitnessJobStatus

	// ID, CircuitID and Depth are only set for leaf and node records.
	ID        *uint32
	CircuitID *uint32
	Depth     *uint32
	// DependentJobs is the number of jobs this record waits on
	// (basic circuits for leaf, dependent jobs for node, final node jobs
	// for recursion tip).
	DependentJobs *int32

	// BlobURL references the stage input artifact.
	BlobURL *string

	JobTimeline
	JobMeta
}

var _ Classifiable = (*WitnessGeneratorJob)(nil)

// AttemptCount implements Classifiable.
func (j *WitnessGeneratorJob) AttemptCount() uint32 { return j.Attempts }

// TerminalStatus implements Classifiable.
func (j *WitnessGeneratorJob) TerminalStatus() (Status, bool) { return j.Status.terminal() }

// AwaitingDependencies implements Classifiable.
func (j *WitnessGeneratorJob) AwaitingDependencies() bool { return j.Status.awaitingDependencies() }

// ProverJob is a circuit level unit of work within one aggregation round.
type ProverJob struct {
	ID               uint32
	BatchNumber      BatchNumber
	Round            AggregationRound
	CircuitID        uint32
	SequenceNumber   uint32
	Depth            uint32
	IsNodeFinalProof bool
	Status           ProverJobStatus
	Attempts         uint32
	CircuitBlobURL   string
	ProofBlobURL     *string

	JobTimeline
	JobMeta
}

var _ Classifiable = (*ProverJob)(nil)

// AttemptCount implements Classifiable.
func (j *ProverJob) AttemptCount() uint32 { return j.Attempts }

// TerminalStatus implements Classifiable.
func (j *ProverJob) TerminalStatus() (Status, bool) { return j.Status.terminal() }

// AwaitingDependencies implements Classifiable. Prover jobs are only created
// once their inputs exist, so they never wait.
func (j *ProverJob) AwaitingDependencies() bool { return false }

// CompressorJob is the terminal pipeline record of a batch: the compression of
// the scheduler proof and its submission to the server.
type CompressorJob struct {
	BatchNumber     BatchNumber
	Attempts        uint32
	Status          CompressionJobStatus
	FRIProofBlobURL *string
	L1ProofBlobURL  *string

	JobTimeline
	JobMeta
}

var _ Classifiable = (*CompressorJob)(nil)

// AttemptCount implements Classifiable.
func (j *CompressorJob) AttemptCount() uint32 { return j.Attempts }

// TerminalStatus implements Classifiable.
func (j *CompressorJob) TerminalStatus() (Status, bool) { return j.Status.terminal() }

// AwaitingDependencies implements Classifiable.
func (j *CompressorJob) AwaitingDependencies() bool { return false }
