// Package prover provides domain types for inspecting the proof generation
// pipeline: the ordered aggregation rounds, the job records each round
// persists, and the status taxonomy used to report on them.
package prover

import (
	"fmt"
	"strconv"
)

// AggregationRound identifies one witness generation stage of the pipeline.
// The numeric value is the ordering: a round only starts once every earlier
// round finished for the same batch.
type AggregationRound uint8

const (
	// BasicCircuits generates the base layer circuits from witness inputs.
	BasicCircuits AggregationRound = iota
	// LeafAggregation aggregates basic circuit proofs per circuit id.
	LeafAggregation
	// NodeAggregation recursively aggregates leaf proofs.
	NodeAggregation
	// RecursionTip folds the final node proofs together.
	RecursionTip
	// Scheduler produces the single scheduler proof of the batch.
	Scheduler
)

const numRounds = 5

// String returns the canonical name of the round.
func (r AggregationRound) String() string {
	switch r {
	case BasicCircuits:
		return "basic_circuits"
	case LeafAggregation:
		return "leaf_aggregation"
	case NodeAggregation:
		return "node_aggregation"
	case RecursionTip:
		return "recursion_tip"
	case Scheduler:
		return "scheduler"
	default:
		return "unknown_round_" + strconv.Itoa(int(r))
	}
}

// Valid reports whether r is one of the five known rounds.
func (r AggregationRound) Valid() bool { return r < numRounds }

// ParseAggregationRound converts a round name, as produced by String, back
// into an AggregationRound.
func ParseAggregationRound(s string) (AggregationRound, error) {
	for _, r := range AllRounds() {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown aggregation round %q", s)
}

// AggregationRoundFromInt16 converts the stored smallint representation of a
// round. Values outside the known range are rejected rather than clamped.
func AggregationRoundFromInt16(v int16) (AggregationRound, error) {
	if v < 0 || v >= numRounds {
		return 0, fmt.Errorf("aggregation round %d out of range [0,%d)", v, numRounds)
	}
	return AggregationRound(v), nil
}

// AllRounds returns the witness generation rounds in pipeline order.
// A fresh slice is returned on every call.
func AllRounds() []AggregationRound {
	return []AggregationRound{BasicCircuits, LeafAggregation, NodeAggregation, RecursionTip, Scheduler}
}
