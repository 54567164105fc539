package multiparty

import (
	"context"
	"sync"
)

// Manager is the process-wide, in-memory session map the command bridge
// drives (spec §5 "In-memory flow-session map: a single mutex; held for
// short reads/writes, released around all filesystem I/O"). Every mutating
// call here takes the lock only to read or write the map itself; the
// actual filesystem work happens after it is released.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	starter  FlowStarter
}

// NewManager builds an empty session manager. starter may be nil if no
// step in any flow this process runs ever delegates via "uses".
func NewManager(starter FlowStarter) *Manager {
	return &Manager{sessions: make(map[string]*Session), starter: starter}
}

func (m *Manager) put(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Get returns the tracked session, if any.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, errNotFound("multiparty.Manager.Get", id)
	}
	return s, nil
}

// List returns every tracked session.
func (m *Manager) List() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// CreateSession organizes a new session, derives its steps from spec, and
// tracks it for subsequent Advance calls.
func (m *Manager) CreateSession(homeDir, flow string, fs FlowSpec, localEmail, localRole string, participants []Participant) (*Session, error) {
	steps := DeriveSteps(fs, participants, localEmail)
	sess, err := CreateSession(homeDir, flow, localEmail, localRole, participants, steps)
	if err != nil {
		return nil, err
	}
	sess.Status = SessionAccepted
	m.put(sess)
	return sess, nil
}

// JoinSession mirrors an invitation into the local tree and tracks the
// resulting session.
func (m *Manager) JoinSession(homeDir, ownerEmail, flow, sessionID, localEmail, localRole string) (*Session, error) {
	sess, err := JoinSession(homeDir, ownerEmail, flow, sessionID, localEmail, localRole)
	if err != nil {
		return nil, err
	}
	m.put(sess)
	return sess, nil
}

// Advance runs one scheduling pass over id's session: folding peer
// observations, resolving barriers, and synchronously executing every
// step now Ready that the local participant owns (auto_run steps only —
// a step without auto_run surfaces as Ready for the UI to trigger
// explicitly). Returns the refreshed session.
func (m *Manager) Advance(ctx context.Context, id string) (*Session, error) {
	sess, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	ready := AdvanceSession(sess)
	for i, s := range sess.Steps {
		if !containsStep(ready, s) || !s.AutoRun {
			continue
		}
		if err := ExecuteStep(ctx, sess, s, i+1, m.starter); err != nil {
			continue
		}
	}

	allDone := true
	for _, s := range sess.Steps {
		if s.Status == StepFailed {
			sess.Status = SessionFailed
			allDone = false
			break
		}
		if s.Status != StepCompleted && s.Status != StepShared {
			allDone = false
		}
	}
	if allDone && sess.Status != SessionFailed {
		sess.Status = SessionCompleted
	} else if sess.Status != SessionFailed {
		sess.Status = SessionRunning
	}

	return sess, nil
}

// RunStep synchronously executes one named, locally-owned step regardless
// of auto_run, for callers (the bridge, the CLI) that drive execution
// explicitly rather than relying on auto-run.
func (m *Manager) RunStep(ctx context.Context, id, stepID string) (*Session, error) {
	sess, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	for i, s := range sess.Steps {
		if s.ID != stepID {
			continue
		}
		if err := ExecuteStep(ctx, sess, s, i+1, m.starter); err != nil {
			return nil, err
		}
		return sess, nil
	}
	return nil, errNotFound("multiparty.Manager.RunStep", stepID)
}

// ShareStep shares a completed step's outputs and records the Shared
// transition.
func (m *Manager) ShareStep(id, stepID string) (*Session, error) {
	sess, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	for i, s := range sess.Steps {
		if s.ID != stepID {
			continue
		}
		if err := ShareStepOutputs(sess, stepID, i+1); err != nil {
			return nil, err
		}
		return sess, nil
	}
	return nil, errNotFound("multiparty.Manager.ShareStep", stepID)
}

func containsStep(list []*Step, s *Step) bool {
	for _, c := range list {
		if c == s {
			return true
		}
	}
	return false
}
