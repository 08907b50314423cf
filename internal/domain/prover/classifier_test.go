package prover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func witnessJob(status WitnessJobStatus, attempts uint32) *WitnessGeneratorJob {
	return &WitnessGeneratorJob{Round: LeafAggregation, BatchNumber: 1, Status: status, Attempts: attempts}
}

func TestNewMaxAttempts(t *testing.T) {
	got, err := NewMaxAttempts(10)
	require.NoError(t, err)
	assert.Equal(t, MaxAttempts(10), got)

	_, err = NewMaxAttempts(0)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	_, err = NewMaxAttempts(-3)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestClassify_NilIsJobsNotFound(t *testing.T) {
	assert.Equal(t, JobsNotFound, Classify(nil, DefaultMaxAttempts))
	assert.Equal(t, JobsNotFound, ClassifyCompressor(nil, DefaultMaxAttempts))
}

func TestClassify_WitnessJobs(t *testing.T) {
	tests := []struct {
		name     string
		status   WitnessJobStatus
		attempts uint32
		want     Status
	}{
		{name: "queued untouched", status: WitnessJobQueued, attempts: 0, want: Queued},
		{name: "queued after retries", status: WitnessJobQueued, attempts: 3, want: InProgress},
		{name: "in progress", status: WitnessJobInProgress, attempts: 3, want: InProgress},
		{name: "failed below budget", status: WitnessJobFailed, attempts: 9, want: InProgress},
		{name: "failed at budget", status: WitnessJobFailed, attempts: 10, want: Stuck},
		{name: "in progress past budget", status: WitnessJobInProgress, attempts: 12, want: Stuck},
		{name: "successful with many attempts", status: WitnessJobSuccessful, attempts: 11, want: Successful},
		{name: "skipped", status: WitnessJobSkipped, attempts: 0, want: Skipped},
		{name: "waiting for proofs", status: WitnessJobWaitingForProofs, attempts: 0, want: WaitingForProofs},
		{name: "waiting for artifacts", status: WitnessJobWaitingForArtifacts, attempts: 0, want: WaitingForProofs},
		{name: "waiting wins over budget", status: WitnessJobWaitingForProofs, attempts: 10, want: WaitingForProofs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(witnessJob(tt.status, tt.attempts), DefaultMaxAttempts))
		})
	}
}

func TestClassify_BoundaryInclusiveAtThreshold(t *testing.T) {
	for _, maxAttempts := range []MaxAttempts{1, 2, 5, 10, 100} {
		below := Classify(witnessJob(WitnessJobInProgress, uint32(maxAttempts)-1), maxAttempts)
		at := Classify(witnessJob(WitnessJobInProgress, uint32(maxAttempts)), maxAttempts)

		assert.NotEqual(t, Stuck, below, "max=%d attempts=max-1", maxAttempts)
		assert.Equal(t, Stuck, at, "max=%d attempts=max", maxAttempts)
	}
}

func TestClassify_Compressor(t *testing.T) {
	tests := []struct {
		name     string
		status   CompressionJobStatus
		attempts uint32
		want     Status
	}{
		{name: "sent to server", status: CompressionJobSentToServer, attempts: 1, want: SentToServer},
		{name: "successful", status: CompressionJobSuccessful, attempts: 1, want: Successful},
		{name: "queued", status: CompressionJobQueued, attempts: 0, want: Queued},
		{name: "failed at budget", status: CompressionJobFailed, attempts: 10, want: Stuck},
		{name: "skipped", status: CompressionJobSkipped, attempts: 0, want: Skipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &CompressorJob{BatchNumber: 1, Status: tt.status, Attempts: tt.attempts}
			assert.Equal(t, tt.want, ClassifyCompressor(job, DefaultMaxAttempts))
		})
	}
}

func TestClassify_SentToServerIsTypedTag(t *testing.T) {
	st := ClassifyCompressor(&CompressorJob{Status: CompressionJobSentToServer}, DefaultMaxAttempts)

	assert.True(t, st.IsSentToServer())
	assert.Equal(t, StatusCustom, st.Kind)

	relabeled := Custom(TerminalSkipped, "Sent to server 📤")
	assert.False(t, relabeled.IsSentToServer(), "message text must not drive the check")
}

func TestClassify_ProverJobs(t *testing.T) {
	tests := []struct {
		status   ProverJobStatus
		attempts uint32
		want     Status
	}{
		{status: ProverJobQueued, attempts: 0, want: Queued},
		{status: ProverJobInGPUProof, attempts: 1, want: InProgress},
		{status: ProverJobFailed, attempts: 10, want: Stuck},
		{status: ProverJobSuccessful, attempts: 10, want: Successful},
		{status: ProverJobIgnored, attempts: 0, want: Ignored},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			job := &ProverJob{Status: tt.status, Attempts: tt.attempts}
			assert.Equal(t, tt.want, Classify(job, DefaultMaxAttempts))
		})
	}
}

func TestClassifyAll(t *testing.T) {
	tests := []struct {
		name string
		jobs []*WitnessGeneratorJob
		want Status
	}{
		{name: "empty", jobs: nil, want: JobsNotFound},
		{
			name: "all successful",
			jobs: []*WitnessGeneratorJob{witnessJob(WitnessJobSuccessful, 1), witnessJob(WitnessJobSuccessful, 2)},
			want: Successful,
		},
		{
			name: "successful and skipped",
			jobs: []*WitnessGeneratorJob{witnessJob(WitnessJobSuccessful, 1), witnessJob(WitnessJobSkipped, 0)},
			want: Successful,
		},
		{
			name: "only skipped",
			jobs: []*WitnessGeneratorJob{witnessJob(WitnessJobSkipped, 0)},
			want: Skipped,
		},
		{
			name: "one stuck among progress",
			jobs: []*WitnessGeneratorJob{witnessJob(WitnessJobInProgress, 2), witnessJob(WitnessJobFailed, 10)},
			want: Stuck,
		},
		{
			name: "all waiting",
			jobs: []*WitnessGeneratorJob{witnessJob(WitnessJobWaitingForProofs, 0), witnessJob(WitnessJobWaitingForArtifacts, 0)},
			want: WaitingForProofs,
		},
		{
			name: "queued and waiting",
			jobs: []*WitnessGeneratorJob{witnessJob(WitnessJobQueued, 0), witnessJob(WitnessJobWaitingForProofs, 0)},
			want: Queued,
		},
		{
			name: "successful and in progress",
			jobs: []*WitnessGeneratorJob{witnessJob(WitnessJobSuccessful, 1), witnessJob(WitnessJobInProgress, 1)},
			want: InProgress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAll(tt.jobs, DefaultMaxAttempts))
		})
	}
}
