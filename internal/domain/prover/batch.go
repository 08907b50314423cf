package prover

import "fmt"

// BatchData is the per batch status report: every stage in pipeline order,
// or a short-circuit marker when the details are not needed.
type BatchData struct {
	BatchNumber BatchNumber

	// ProtocolVersion and Patch come from the basic witness record and give
	// operators the protocol context of the batch.
	ProtocolVersion *ProtocolVersionID
	Patch           *VersionPatch

	// Stages holds one entry per stage in pipeline order. When ProofSent is
	// set it only holds the compressor stage; when NotFound is set it only
	// holds the basic circuits stage.
	Stages []StageInfo

	// ProofSent is set when the compressed proof was already delivered.
	ProofSent bool
	// NotFound is set when the batch never entered the pipeline.
	NotFound bool
}

// Stage returns the info of a given stage, if present in the report.
func (b BatchData) Stage(s Stage) (StageInfo, bool) {
	for _, info := range b.Stages {
		if info.Stage == s {
			return info, true
		}
	}
	return StageInfo{}, false
}

// StageOrderViolation records a later stage reporting success while an
// earlier one has not finished, which only happens when the stored records
// are inconsistent.
type StageOrderViolation struct {
	Earlier       Stage
	EarlierStatus Status
	Later         Stage
}

func (v StageOrderViolation) String() string {
	return fmt.Sprintf("%s is successful while %s is %s", v.Later, v.Earlier, v.EarlierStatus)
}

// Inconsistencies lists stage order violations in the report. The report is
// still returned as is; violations are surfaced for operators, not repaired.
func (b BatchData) Inconsistencies() []StageOrderViolation {
	var out []StageOrderViolation
	for i, later := range b.Stages {
		if later.Status.Kind != StatusSuccessful {
			continue
		}
		for _, earlier := range b.Stages[:i] {
			if !earlier.Stage.Before(later.Stage) || earlier.Status.IsTerminal() {
				continue
			}
			out = append(out, StageOrderViolation{
				Earlier:       earlier.Stage,
				EarlierStatus: earlier.Status,
				Later:         later.Stage,
			})
		}
	}
	return out
}
