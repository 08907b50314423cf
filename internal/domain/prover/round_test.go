package prover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllRounds_PipelineOrder(t *testing.T) {
	want := []AggregationRound{BasicCircuits, LeafAggregation, NodeAggregation, RecursionTip, Scheduler}

	for i := 0; i < 3; i++ {
		assert.Equal(t, want, AllRounds(), "invocation %d", i)
	}
}

func TestAllRounds_FreshSlice(t *testing.T) {
	first := AllRounds()
	first[0] = Scheduler

	assert.Equal(t, BasicCircuits, AllRounds()[0])
}

func TestAllStages_EndsWithCompressor(t *testing.T) {
	stages := AllStages()
	require.Len(t, stages, 6)

	for i, s := range stages[:5] {
		r, ok := s.Round()
		require.True(t, ok)
		assert.Equal(t, AggregationRound(i), r)
		assert.Equal(t, i, s.Index())
	}
	assert.True(t, stages[5].IsCompressor())
	_, ok := stages[5].Round()
	assert.False(t, ok)
}

func TestStage_TotalOrder(t *testing.T) {
	stages := AllStages()
	for i := range stages {
		for j := range stages {
			assert.Equal(t, i < j, stages[i].Before(stages[j]), "%s before %s", stages[i], stages[j])
		}
	}
}

func TestStage_Title(t *testing.T) {
	assert.Equal(t, "Aggregation Round 0", RoundStage(BasicCircuits).Title())
	assert.Equal(t, "Aggregation Round 4", RoundStage(Scheduler).Title())
	assert.Equal(t, "Proof Compression", StageCompressor.Title())
}

func TestParseAggregationRound(t *testing.T) {
	for _, r := range AllRounds() {
		got, err := ParseAggregationRound(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	_, err := ParseAggregationRound("bogus")
	assert.Error(t, err)
}

func TestAggregationRoundFromInt16(t *testing.T) {
	tests := []struct {
		name    string
		in      int16
		want    AggregationRound
		wantErr bool
	}{
		{name: "basic circuits", in: 0, want: BasicCircuits},
		{name: "scheduler", in: 4, want: Scheduler},
		{name: "negative", in: -1, wantErr: true},
		{name: "past scheduler", in: 5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AggregationRoundFromInt16(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
