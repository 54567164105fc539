package multiparty

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/openmined/biovault-desktop/internal/sharedtree"
)

// WriteProgressRecord writes the per-(role,step) status record a peer
// reads to observe another participant's progress on a step
// (spec §6, §4.4 "Observation").
func WriteProgressRecord(sessionDir, role, stepID string, status StepStatus) error {
	dir := sharedtree.ProgressDir(sessionDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errIO("multiparty.WriteProgressRecord", "create progress dir", err)
	}
	rec := ProgressRecord{StepID: stepID, Role: role, Status: string(status), Timestamp: time.Now().Unix()}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errIO("multiparty.WriteProgressRecord", "marshal progress record", err)
	}
	path := sharedtree.ProgressRecordPath(sessionDir, role, stepID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errIO("multiparty.WriteProgressRecord", "write progress record", err)
	}
	return os.Rename(tmp, path)
}

// ReadProgressRecord reads one peer's recorded status for a step, if
// present.
func ReadProgressRecord(sessionDir, role, stepID string) (*ProgressRecord, error) {
	path := sharedtree.ProgressRecordPath(sessionDir, role, stepID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errIO("multiparty.ReadProgressRecord", "read "+path, err)
	}
	var rec ProgressRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errIO("multiparty.ReadProgressRecord", "parse "+path, err)
	}
	return &rec, nil
}

// ReadAggregateState reads the flow-emitted `_progress/state.json`
// aggregate, if a flow wrote one. Returns (nil, nil) when absent, the
// same convention as ReadProgressRecord.
func ReadAggregateState(sessionDir string) (*AggregateState, error) {
	path := filepath.Join(sharedtree.ProgressDir(sessionDir), "state.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errIO("multiparty.ReadAggregateState", "read "+path, err)
	}
	var state AggregateState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errIO("multiparty.ReadAggregateState", "parse "+path, err)
	}
	return &state, nil
}

// AppendLogEvent appends one line to the session's _progress/log.jsonl.
func AppendLogEvent(sessionDir, role, event string, stepID *string) error {
	dir := sharedtree.ProgressDir(sessionDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errIO("multiparty.AppendLogEvent", "create progress dir", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "log.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errIO("multiparty.AppendLogEvent", "open log.jsonl", err)
	}
	defer f.Close()

	ev := LogEvent{Timestamp: time.Now().UTC().Format(time.RFC3339Nano), Event: event, StepID: stepID, Role: role}
	data, err := json.Marshal(ev)
	if err != nil {
		return errIO("multiparty.AppendLogEvent", "marshal log event", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return errIO("multiparty.AppendLogEvent", "write log event", err)
	}
	return nil
}

// ObserveStep folds every participant's progress record for step s into
// its current status, per the fixed rank order in FoldStatus, plus
// step s's entry in the flow-emitted aggregate state, if any. Records
// that can't be read are skipped rather than treated as a hard failure:
// a peer's tree may not have synced yet.
func ObserveStep(sessionDir string, s *Step, participants []Participant, aggregate *AggregateState) {
	for _, p := range participants {
		rec, err := ReadProgressRecord(sessionDir, p.Role, s.ID)
		if err != nil || rec == nil {
			continue
		}
		observed := NormalizeEngineStatus(rec.Status)
		s.Status = FoldStatus(s.Status, observed)
	}
	if aggregate != nil {
		if raw, ok := aggregate.Steps[s.ID]; ok {
			s.Status = FoldStatus(s.Status, NormalizeEngineStatus(raw))
		}
	}
}

// ObserveSession re-derives readiness and folds observations across every
// step of sess, in DAG order so a dependency's freshly observed status is
// visible to its dependents within the same pass. The flow-emitted
// aggregate state.json (spec §4.4 "Observation") is read once per pass
// and folded alongside per-(role,step) progress records.
func ObserveSession(sess *Session) {
	aggregate, _ := ReadAggregateState(sess.SessionDir)
	for _, s := range sess.Steps {
		ObserveStep(sess.SessionDir, s, sess.Participants, aggregate)
		RecomputeReadiness(s, sess.Steps)
	}
}

// readAllLogEvents returns every event in the session's log.jsonl. Nothing
// in this module calls it; the steady-state observation path only ever
// reads the latest progress record per (role, step).
func readAllLogEvents(sessionDir string) ([]LogEvent, error) {
	path := filepath.Join(sharedtree.ProgressDir(sessionDir), "log.jsonl")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errIO("multiparty.readAllLogEvents", "open log.jsonl", err)
	}
	defer f.Close()

	var events []LogEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev LogEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
