package prover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageInfo_NeedsProverJobs(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{status: InProgress, want: true},
		{status: Successful, want: true},
		{status: Stuck, want: true},
		{status: Queued, want: false},
		{status: WaitingForProofs, want: false},
		{status: JobsNotFound, want: false},
		{status: Skipped, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.status.Kind.String(), func(t *testing.T) {
			info := StageInfo{Stage: RoundStage(LeafAggregation), Status: tt.status}
			assert.Equal(t, tt.want, info.NeedsProverJobs())
		})
	}

	compressor := StageInfo{Stage: StageCompressor, Status: InProgress}
	assert.False(t, compressor.NeedsProverJobs())
}

func TestStageInfo_WithProverJobs(t *testing.T) {
	info := NewRoundStageInfo(BasicCircuits, []*WitnessGeneratorJob{witnessJob(WitnessJobSuccessful, 1)}, DefaultMaxAttempts)
	require.Nil(t, info.ProverStatus)

	info = info.WithProverJobs([]*ProverJob{
		{Status: ProverJobSuccessful, Attempts: 1},
		{Status: ProverJobFailed, Attempts: 10},
	}, DefaultMaxAttempts)

	require.NotNil(t, info.ProverStatus)
	assert.Equal(t, Stuck, *info.ProverStatus)
	assert.Len(t, info.ProverJobs, 2)
}

func TestBatchData_Inconsistencies(t *testing.T) {
	batch := BatchData{
		BatchNumber: 42,
		Stages: []StageInfo{
			{Stage: RoundStage(BasicCircuits), Status: Successful},
			{Stage: RoundStage(LeafAggregation), Status: InProgress},
			{Stage: RoundStage(NodeAggregation), Status: Successful},
			{Stage: RoundStage(RecursionTip), Status: Skipped},
			{Stage: RoundStage(Scheduler), Status: Successful},
		},
	}

	got := batch.Inconsistencies()
	require.Len(t, got, 2)
	assert.Equal(t, RoundStage(LeafAggregation), got[0].Earlier)
	assert.Equal(t, RoundStage(NodeAggregation), got[0].Later)
	assert.Equal(t, RoundStage(LeafAggregation), got[1].Earlier)
	assert.Equal(t, RoundStage(Scheduler), got[1].Later)
	assert.Contains(t, got[0].String(), "node_aggregation is successful")
}

func TestBatchData_ConsistentReportHasNoViolations(t *testing.T) {
	batch := BatchData{
		Stages: []StageInfo{
			{Stage: RoundStage(BasicCircuits), Status: Successful},
			{Stage: RoundStage(LeafAggregation), Status: InProgress},
			{Stage: RoundStage(NodeAggregation), Status: JobsNotFound},
		},
	}
	assert.Empty(t, batch.Inconsistencies())

	_, ok := batch.Stage(StageCompressor)
	assert.False(t, ok)
	info, ok := batch.Stage(RoundStage(LeafAggregation))
	require.True(t, ok)
	assert.Equal(t, InProgress, info.Status)
}
