// Package flowrun implements C3: the flow run supervisor. It owns the
// lifecycle of one external workflow-engine process per run record —
// start, pause, resume, and periodic reconciliation of orphaned runs.
package flowrun

import (
	"encoding/json"
	"time"
)

// Status is one of the run lifecycle states from spec §3.
type Status string

const (
	StatusRunning           Status = "running"
	StatusPaused            Status = "paused"
	StatusSuccess           Status = "success"
	StatusFailed            Status = "failed"
	StatusCancelled         Status = "cancelled"
	StatusMultipartyActive  Status = "multiparty-active"
)

// File names inside a run's results directory (spec §3).
const (
	LogFileName      = "flow.log"
	PIDFileName      = "flow.pid"
	PauseMarkerName  = ".flow.pause"
	StateFileName    = "flow.state.json"
	ContainerIDName  = "flow.container"
)

// Log sentinels the supervisor appends to flow.log when the engine exits;
// the reconciler reads them back to classify orphaned runs (spec §4.3, §8).
const (
	SuccessSentinel = "✅ Flow run completed successfully"
	FailureSentinel = "❌ Flow run failed"
	PausedSentinel  = "⏸️ Run paused successfully"
)

// Metadata carries the optional inputs recorded against a run record.
type Metadata struct {
	InputOverrides    map[string]string `json:"input_overrides,omitempty"`
	Selection         *Selection        `json:"selection,omitempty"`
	ConcurrencyHint   int               `json:"concurrency_hint,omitempty"`
	MultipartySession *string           `json:"multiparty_session,omitempty"`
}

// Selection describes how a run's sample sheet was resolved, per spec §4.3
// step 2.
type Selection struct {
	Kind      string   `json:"kind"` // "urls" | "file_ids" | "dataset"
	URLs      []string `json:"urls,omitempty"`
	FileIDs   []string `json:"file_ids,omitempty"`
	Dataset   string   `json:"dataset,omitempty"`
	DataType  string   `json:"data_type,omitempty"`
	ShapeExpr string   `json:"shape_expr,omitempty"`

	// assets is populated by the C6 dataset adapter after resolving
	// Dataset+DataType to concrete files; never serialized over the wire.
	assets []Asset `json:"-"`
}

// Run is one execution of a flow.
type Run struct {
	ID          string    `json:"id"`
	FlowID      string    `json:"flow_id"`
	ResultsDir  string    `json:"results_dir"`
	WorkingDir  string    `json:"working_dir"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	Metadata    Metadata  `json:"metadata"`
	ContainerID string    `json:"container_id,omitempty"`
}

// StateSnapshot is the JSON written to flow.state.json on every progress
// event (spec §4.3 "State persistence").
type StateSnapshot struct {
	Completed      int       `json:"completed"`
	Total          int       `json:"total"`
	Concurrency    int       `json:"concurrency"`
	RunningContain int       `json:"running_containers"`
	Timestamp      time.Time `json:"timestamp"`
	Status         Status    `json:"status"`
}

func (s StateSnapshot) marshal() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// StartRequest carries the inputs to Supervisor.Start (spec §4.3 "Start").
type StartRequest struct {
	FlowID          string
	FlowRoot        string
	EngineBinary    string
	Overrides       map[string]string
	ResultsDir      string
	Selection       *Selection
	ConcurrencyHint int
	Resume          bool
	ExistingRunID   string
}
