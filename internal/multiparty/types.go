// Package multiparty implements C4: the multiparty session engine. A
// session is a distributed state machine over Steps, driven entirely by
// files inside participants' shared trees (spec §4.4).
package multiparty

// SessionStatus is the lifecycle status of a multiparty session (spec §3).
type SessionStatus string

const (
	SessionInvited   SessionStatus = "invited"
	SessionAccepted  SessionStatus = "accepted"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

// StepStatus is one of the states in the step state machine (spec §4.4).
type StepStatus string

const (
	StepPending          StepStatus = "Pending"
	StepWaitingForInputs StepStatus = "WaitingForInputs"
	StepReady            StepStatus = "Ready"
	StepRunning          StepStatus = "Running"
	StepCompleted        StepStatus = "Completed"
	StepSharing          StepStatus = "Sharing"
	StepShared           StepStatus = "Shared"
	StepFailed           StepStatus = "Failed"
)

// statusRank implements the fixed rank used to pick the "latest" status
// when folding observations from multiple sources (spec §4.4
// "Observation"): Failed > Shared > Completed > Sharing > Running > Ready >
// WaitingForInputs > Pending.
var statusRank = map[StepStatus]int{
	StepFailed:           8,
	StepShared:           7,
	StepCompleted:        6,
	StepSharing:          5,
	StepRunning:          4,
	StepReady:            3,
	StepWaitingForInputs: 2,
	StepPending:          1,
}

// Participant is one role assignment within a session.
type Participant struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Step is one node in a flow's DAG (spec §3 "Step").
type Step struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	DependsOn      []string   `json:"depends_on"`
	Targets        []string   `json:"targets"`
	TargetEmails   []string   `json:"target_emails"`
	IsBarrier      bool       `json:"is_barrier"`
	BarrierWaitFor string     `json:"barrier_wait_for,omitempty"`
	SharesOutput   bool       `json:"shares_output"`
	ShareTo        []string   `json:"share_to,omitempty"`
	MyAction       bool       `json:"my_action"`
	AutoRun        bool       `json:"auto_run"`
	OutputDir      string     `json:"output_dir,omitempty"`
	Status         StepStatus `json:"status"`
	Kind           string     `json:"kind"` // "generate" | "aggregate" | "barrier" | "uses"
	Uses           string     `json:"uses,omitempty"`
}

// Session is the in-memory representation of a multiparty flow instance
// (spec §3 "Multiparty session").
type Session struct {
	ID            string        `json:"id"`
	Flow          string        `json:"flow"`
	LocalEmail    string        `json:"local_email"`
	LocalRole     string        `json:"local_role"`
	Participants  []Participant `json:"participants"`
	Steps         []*Step       `json:"steps"`
	Status        SessionStatus `json:"status"`
	LocalRunID    *string       `json:"local_run_id,omitempty"`
	ThreadID      *string       `json:"thread_id,omitempty"`
	SessionDir    string        `json:"-"`
	HomeDir       string        `json:"-"`
	OwnerHomeDir  string        `json:"-"` // the session owner's directory, may equal HomeDir
}

// ProgressRecord is one entry in `_progress/{role}_{step_id}.json`
// (spec §6).
type ProgressRecord struct {
	StepID    string `json:"step_id"`
	Role      string `json:"role"`
	Status    string `json:"status"` // "Completed" | "Shared" | "Failed"
	Timestamp int64  `json:"timestamp"`
}

// AggregateState is the optional flow-emitted `_progress/state.json`
// (spec §4.4 "Observation"): an engine-driven flow may report every
// step's status in one file instead of (or alongside) per-(role,step)
// progress records. Keyed by step id.
type AggregateState struct {
	Steps map[string]string `json:"steps"`
}

// LogEvent is one line of `_progress/log.jsonl` (spec §6).
type LogEvent struct {
	Timestamp string  `json:"timestamp"`
	Event     string  `json:"event"`
	StepID    *string `json:"step_id,omitempty"`
	Role      string  `json:"role"`
}
