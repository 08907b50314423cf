package prover

import "fmt"

// Stage is one step of the pipeline as far as reporting is concerned: either an
// aggregation round or the terminal proof compression step.
type Stage struct {
	round      AggregationRound
	compressor bool
}

// StageCompressor is the final stage of the pipeline, where the scheduler
// proof is compressed and sent to the server.
var StageCompressor = Stage{compressor: true}

// RoundStage wraps an aggregation round as a Stage.
func RoundStage(r AggregationRound) Stage { return Stage{round: r} }

// AllStages returns every stage in pipeline order: the five aggregation rounds
// followed by the compressor. A fresh slice is returned on every call.
func AllStages() []Stage {
	rounds := AllRounds()
	stages := make([]Stage, 0, len(rounds)+1)
	for _, r := range rounds {
		stages = append(stages, RoundStage(r))
	}
	return append(stages, StageCompressor)
}

// Round returns the aggregation round of the stage. The second value is false
// for the compressor stage.
func (s Stage) Round() (AggregationRound, bool) {
	if s.compressor {
		return 0, false
	}
	return s.round, true
}

// IsCompressor reports whether s is the proof compression stage.
func (s Stage) IsCompressor() bool { return s.compressor }

// Index returns the position of the stage in pipeline order.
func (s Stage) Index() int {
	if s.compressor {
		return numRounds
	}
	return int(s.round)
}

// Before reports whether s comes strictly earlier in the pipeline than other.
func (s Stage) Before(other Stage) bool { return s.Index() < other.Index() }

// String returns a machine friendly stage name.
func (s Stage) String() string {
	if s.compressor {
		return "compressor"
	}
	return s.round.String()
}

// Title returns the heading used when rendering the stage for operators.
func (s Stage) Title() string {
	if s.compressor {
		return "Proof Compression"
	}
	return fmt.Sprintf("Aggregation Round %d", s.round)
}

// JobName names the kind of job that backs the stage.
func (s Stage) JobName() string {
	if s.compressor {
		return "Compressor"
	}
	switch s.round {
	case BasicCircuits:
		return "Basic Witness Generator"
	case LeafAggregation:
		return "Leaf Witness Generator"
	case NodeAggregation:
		return "Node Witness Generator"
	case RecursionTip:
		return "Recursion Tip"
	case Scheduler:
		return "Scheduler"
	default:
		return s.round.String()
	}
}
