package prover

// StageInfo is the classified view of one pipeline stage for one batch.
type StageInfo struct {
	Stage Stage
	// Status is the classification of the stage's own records.
	Status Status
	// ProverStatus classifies the stage's child prover jobs. It is nil when
	// prover jobs were not inspected (compressor stage, or a stage that has
	// not produced circuits yet).
	ProverStatus *Status

	// Raw records, kept for verbose rendering.
	WitnessJobs []*WitnessGeneratorJob
	ProverJobs  []*ProverJob
	Compressor  *CompressorJob
}

// NewRoundStageInfo classifies the witness generator records of a round.
func NewRoundStageInfo(round AggregationRound, jobs []*WitnessGeneratorJob, maxAttempts MaxAttempts) StageInfo {
	return StageInfo{
		Stage:       RoundStage(round),
		Status:      ClassifyAll(jobs, maxAttempts),
		WitnessJobs: jobs,
	}
}

// NewCompressorStageInfo classifies the optional compressor record of a batch.
func NewCompressorStageInfo(job *CompressorJob, maxAttempts MaxAttempts) StageInfo {
	return StageInfo{
		Stage:      StageCompressor,
		Status:     ClassifyCompressor(job, maxAttempts),
		Compressor: job,
	}
}

// WithProverJobs attaches and classifies the child prover jobs of the stage.
func (s StageInfo) WithProverJobs(jobs []*ProverJob, maxAttempts MaxAttempts) StageInfo {
	st := ClassifyAll(jobs, maxAttempts)
	s.ProverJobs = jobs
	s.ProverStatus = &st
	return s
}

// NeedsProverJobs reports whether the stage has reached the point where child
// prover jobs exist and are worth inspecting.
func (s StageInfo) NeedsProverJobs() bool {
	if s.Stage.IsCompressor() {
		return false
	}
	switch s.Status.Kind {
	case StatusInProgress, StatusSuccessful, StatusStuck:
		return true
	default:
		return false
	}
}
