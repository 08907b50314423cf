package prover

import (
	"errors"
	"fmt"
)

// ErrUnknownJobStatus is returned when a stored status string does not match
// any known status of its table.
var ErrUnknownJobStatus = errors.New("unknown job status")

// WitnessJobStatus is the persisted status of a witness generator job.
type WitnessJobStatus string

const (
	WitnessJobQueued              WitnessJobStatus = "queued"
	WitnessJobWaitingForArtifacts WitnessJobStatus = "waiting_for_artifacts"
	WitnessJobWaitingForProofs    WitnessJobStatus = "waiting_for_proofs"
	WitnessJobInProgress          WitnessJobStatus = "in_progress"
	WitnessJobSuccessful          WitnessJobStatus = "successful"
	WitnessJobFailed              WitnessJobStatus = "failed"
	WitnessJobSkipped             WitnessJobStatus = "skipped"
)

func (s WitnessJobStatus) String() string { return string(s) }

// ParseWitnessJobStatus converts a stored string to a WitnessJobStatus.
func ParseWitnessJobStatus(s string) (WitnessJobStatus, error) {
	switch st := WitnessJobStatus(s); st {
	case WitnessJobQueued, WitnessJobWaitingForArtifacts, WitnessJobWaitingForProofs,
		WitnessJobInProgress, WitnessJobSuccessful, WitnessJobFailed, WitnessJobSkipped:
		return st, nil
	default:
		return "", fmt.Errorf("%w: witness job status %q", ErrUnknownJobStatus, s)
	}
}

// terminal maps the status to its classified terminal Status, if any.
func (s WitnessJobStatus) terminal() (Status, bool) {
	switch s {
	case WitnessJobSuccessful:
		return Successful, true
	case WitnessJobSkipped:
		return Skipped, true
	default:
		return Status{}, false
	}
}

func (s WitnessJobStatus) awaitingDependencies() bool {
	return s == WitnessJobWaitingForProofs || s == WitnessJobWaitingForArtifacts
}

// NonTerminalWitnessJobStatuses lists the statuses a witness job can still
// leave on its own.
func NonTerminalWitnessJobStatuses() []WitnessJobStatus {
	return []WitnessJobStatus{
		WitnessJobQueued, WitnessJobWaitingForArtifacts, WitnessJobWaitingForProofs,
		WitnessJobInProgress, WitnessJobFailed,
	}
}

// ProverJobStatus is the persisted status of a circuit level prover job.
type ProverJobStatus string

const (
	ProverJobQueued     ProverJobStatus = "queued"
	ProverJobInProgress ProverJobStatus = "in_progress"
	ProverJobInGPUProof ProverJobStatus = "in_gpu_proof"
	ProverJobSuccessful ProverJobStatus = "successful"
	ProverJobFailed     ProverJobStatus = "failed"
	ProverJobSkipped    ProverJobStatus = "skipped"
	ProverJobIgnored    ProverJobStatus = "ignored"
)

func (s ProverJobStatus) String() string { return string(s) }

// ParseProverJobStatus converts a stored string to a ProverJobStatus.
func ParseProverJobStatus(s string) (ProverJobStatus, error) {
	switch st := ProverJobStatus(s); st {
	case ProverJobQueued, ProverJobInProgress, ProverJobInGPUProof, ProverJobSuccessful,
		ProverJobFailed, ProverJobSkipped, ProverJobIgnored:
		return st, nil
	default:
		return "", fmt.Errorf("%w: prover job status %q", ErrUnknownJobStatus, s)
	}
}

func (s ProverJobStatus) terminal() (Status, bool) {
	switch s {
	case ProverJobSuccessful:
		return Successful, true
	case ProverJobSkipped:
		return Skipped, true
	case ProverJobIgnored:
		return Ignored, true
	default:
		return Status{}, false
	}
}

// NonTerminalProverJobStatuses lists the statuses a prover job can still
// leave on its own.
func NonTerminalProverJobStatuses() []ProverJobStatus {
	return []ProverJobStatus{ProverJobQueued, ProverJobInProgress, ProverJobInGPUProof, ProverJobFailed}
}

// CompressionJobStatus is the persisted status of a proof compression job.
type CompressionJobStatus string

const (
	CompressionJobQueued       CompressionJobStatus = "queued"
	CompressionJobInProgress   CompressionJobStatus = "in_progress"
	CompressionJobSuccessful   CompressionJobStatus = "successful"
	CompressionJobSentToServer CompressionJobStatus = "sent_to_server"
	CompressionJobFailed       CompressionJobStatus = "failed"
	CompressionJobSkipped      CompressionJobStatus = "skipped"
)

func (s CompressionJobStatus) String() string { return string(s) }

// ParseCompressionJobStatus converts a stored string to a CompressionJobStatus.
func ParseCompressionJobStatus(s string) (CompressionJobStatus, error) {
	switch st := CompressionJobStatus(s); st {
	case CompressionJobQueued, CompressionJobInProgress, CompressionJobSuccessful,
		CompressionJobSentToServer, CompressionJobFailed, CompressionJobSkipped:
		return st, nil
	default:
		return "", fmt.Errorf("%w: compression job status %q", ErrUnknownJobStatus, s)
	}
}

func (s CompressionJobStatus) terminal() (Status, bool) {
	switch s {
	case CompressionJobSuccessful:
		return Successful, true
	case CompressionJobSentToServer:
		return SentToServer, true
	case CompressionJobSkipped:
		return Skipped, true
	default:
		return Status{}, false
	}
}

// NonTerminalCompressionJobStatuses lists the statuses a compression job can
// still leave on its own.
func NonTerminalCompressionJobStatuses() []CompressionJobStatus {
	return []CompressionJobStatus{CompressionJobQueued, CompressionJobInProgress, CompressionJobFailed}
}
