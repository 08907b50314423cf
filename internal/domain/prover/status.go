package prover

// StatusKind is the closed set of progress classifications shared by every
// pipeline stage.
type StatusKind uint8

const (
	// StatusJobsNotFound means no record exists for the stage and batch.
	StatusJobsNotFound StatusKind = iota
	// StatusQueued means the job exists but was never attempted.
	StatusQueued
	// StatusWaitingForProofs means the job depends on an earlier stage that
	// has not finished.
	StatusWaitingForProofs
	// StatusInProgress means the job was attempted and is not terminal yet.
	StatusInProgress
	// StatusSuccessful means the job completed.
	StatusSuccessful
	// StatusStuck means the job is not terminal and exhausted its attempt
	// budget. Operator intervention is needed.
	StatusStuck
	// StatusCustom carries a stage specific terminal state, see TerminalState.
	StatusCustom
)

// String returns the name of the kind.
func (k StatusKind) String() string {
	switch k {
	case StatusJobsNotFound:
		return "JOBS_NOT_FOUND"
	case StatusQueued:
		return "QUEUED"
	case StatusWaitingForProofs:
		return "WAITING_FOR_PROOFS"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusSuccessful:
		return "SUCCESSFUL"
	case StatusStuck:
		return "STUCK"
	case StatusCustom:
		return "CUSTOM"
	default:
		return "UNSPECIFIED"
	}
}

// TerminalState tags the stage specific terminal states surfaced as
// StatusCustom. Callers switch on the tag instead of inspecting the message.
type TerminalState uint8

const (
	TerminalNone TerminalState = iota
	// TerminalSentToServer marks a compressed proof already delivered
	// downstream.
	TerminalSentToServer
	// TerminalSkipped marks a job the pipeline decided not to run.
	TerminalSkipped
	// TerminalIgnored marks a prover job whose result is not needed.
	TerminalIgnored
)

// String returns the name of the terminal state.
func (t TerminalState) String() string {
	switch t {
	case TerminalSentToServer:
		return "SENT_TO_SERVER"
	case TerminalSkipped:
		return "SKIPPED"
	case TerminalIgnored:
		return "IGNORED"
	default:
		return "NONE"
	}
}

// Status is the classified progress of a job or of a whole stage.
// Message is only meaningful for StatusCustom.
type Status struct {
	Kind     StatusKind
	Message  string
	Terminal TerminalState
}

// Convenience values for the non-custom kinds.
var (
	JobsNotFound     = Status{Kind: StatusJobsNotFound}
	Queued           = Status{Kind: StatusQueued}
	WaitingForProofs = Status{Kind: StatusWaitingForProofs}
	InProgress       = Status{Kind: StatusInProgress}
	Successful       = Status{Kind: StatusSuccessful}
	Stuck            = Status{Kind: StatusStuck}
)

// Custom builds a StatusCustom value for the given terminal state.
func Custom(terminal TerminalState, msg string) Status {
	return Status{Kind: StatusCustom, Message: msg, Terminal: terminal}
}

// The custom statuses produced by the classifier.
var (
	SentToServer = Custom(TerminalSentToServer, "Sent to server 📤")
	Skipped      = Custom(TerminalSkipped, "Skipped ⏩")
	Ignored      = Custom(TerminalIgnored, "Ignored")
)

// IsSentToServer reports whether the status is the compressor's delivered
// terminal state.
func (s Status) IsSentToServer() bool {
	return s.Kind == StatusCustom && s.Terminal == TerminalSentToServer
}

// IsTerminal reports whether the status can no longer change without an
// operator restarting the batch.
func (s Status) IsTerminal() bool {
	return s.Kind == StatusSuccessful || s.Kind == StatusCustom
}

// String renders the status for operators.
func (s Status) String() string {
	switch s.Kind {
	case StatusCustom:
		return s.Message
	case StatusQueued:
		return "Queued 📥"
	case StatusInProgress:
		return "In Progress ⌛️"
	case StatusSuccessful:
		return "Successful ✅"
	case StatusWaitingForProofs:
		return "Waiting for Proof ⏱️"
	case StatusStuck:
		return "Stuck ⛔️"
	case StatusJobsNotFound:
		return "Jobs not found 🚫"
	default:
		return "Unknown"
	}
}
