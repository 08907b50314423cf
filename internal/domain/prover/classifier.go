package prover

import "fmt"

// DefaultMaxAttempts is the attempt budget used when none is configured.
const DefaultMaxAttempts MaxAttempts = 10

// MaxAttempts is the retry budget after which a non terminal job counts as
// stuck. It is always positive.
type MaxAttempts uint32

// NewMaxAttempts validates a configured attempt budget.
func NewMaxAttempts(v int) (MaxAttempts, error) {
	if v <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidMaxAttempts, v)
	}
	return MaxAttempts(v), nil
}

// Classifiable is implemented by every persisted job record.
type Classifiable interface {
	// AttemptCount returns how many times workers picked the job up.
	AttemptCount() uint32
	// TerminalStatus returns the Successful or Custom status of a job in a
	// terminal state; the second value is false otherwise.
	TerminalStatus() (Status, bool)
	// AwaitingDependencies reports whether the job waits on an earlier stage.
	AwaitingDependencies() bool
}

// Classify maps one job record to its Status. A nil job classifies as
// JobsNotFound; callers holding a typed pointer should use ClassifyCompressor
// or ClassifyAll, which handle absence explicitly. Terminal states win over
// everything else, then the stage precondition, then the attempt budget
// (inclusive at max).
func Classify(job Classifiable, maxAttempts MaxAttempts) Status {
	if job == nil {
		return JobsNotFound
	}
	if st, ok := job.TerminalStatus(); ok {
		return st
	}
	if job.AwaitingDependencies() {
		return WaitingForProofs
	}

	attempts := job.AttemptCount()
	switch {
	case attempts >= uint32(maxAttempts):
		return Stuck
	case attempts == 0:
		return Queued
	default:
		return InProgress
	}
}

// ClassifyAll folds the records of one stage into a single Status.
func ClassifyAll[J Classifiable](jobs []J, maxAttempts MaxAttempts) Status {
	if len(jobs) == 0 {
		return JobsNotFound
	}

	var (
		allTerminal, allWaiting, allQueuedOrWaiting = true, true, true
		anySuccessful, anyStuck                     bool
		firstCustom                                 *Status
	)
	for _, j := range jobs {
		st := Classify(j, maxAttempts)
		switch st.Kind {
		case StatusSuccessful:
			anySuccessful = true
		case StatusCustom:
			if firstCustom == nil {
				firstCustom = &st
			}
		case StatusStuck:
			anyStuck = true
		}
		if !st.IsTerminal() {
			allTerminal = false
		}
		if st.Kind != StatusWaitingForProofs {
			allWaiting = false
		}
		if st.Kind != StatusQueued && st.Kind != StatusWaitingForProofs {
			allQueuedOrWaiting = false
		}
	}

	switch {
	case allTerminal && (anySuccessful || firstCustom == nil):
		return Successful
	case allTerminal:
		return *firstCustom
	case anyStuck:
		return Stuck
	case allWaiting:
		return WaitingForProofs
	case allQueuedOrWaiting:
		return Queued
	default:
		return InProgress
	}
}

// ClassifyCompressor classifies the optional compressor record of a batch.
func ClassifyCompressor(job *CompressorJob, maxAttempts MaxAttempts) Status {
	if job == nil {
		return JobsNotFound
	}
	return Classify(job, maxAttempts)
}
