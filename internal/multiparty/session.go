package multiparty

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/openmined/biovault-desktop/internal/sharedtree"
)

const sessionMetaFile = "session.json"

// sessionMeta is the serialized form of a Session written to session.json
// inside its own directory, so any participant's copy can reconstruct the
// full step list and participant roster from the synced tree alone.
type sessionMeta struct {
	ID           string        `json:"id"`
	Flow         string        `json:"flow"`
	Participants []Participant `json:"participants"`
	Steps        []*Step       `json:"steps"`
}

// CreateSession is called by the organizer: it allocates a session id,
// computes the owner-rooted session directory, writes the coordination
// folder's permission document so every participant can read progress
// records, persists session.json, and appends an "invited" log event
// (spec §4.4 "Session invitation").
func CreateSession(homeDir, flow, localEmail, localRole string, participants []Participant, steps []*Step) (*Session, error) {
	id := uuid.New().String()
	sessionDir := sharedtree.SessionDir(homeDir, localEmail, flow, id)

	sess := &Session{
		ID:           id,
		Flow:         flow,
		LocalEmail:   localEmail,
		LocalRole:    localRole,
		Participants: participants,
		Steps:        steps,
		Status:       SessionInvited,
		SessionDir:   sessionDir,
		HomeDir:      homeDir,
		OwnerHomeDir: homeDir,
	}

	if err := initSessionDir(sess); err != nil {
		return nil, err
	}
	if err := AppendLogEvent(sessionDir, localRole, "invited", nil); err != nil {
		return nil, err
	}
	return sess, nil
}

// JoinSession is called by an invited peer: it mirrors the session
// directory under the peer's own home (per the sync agent's replication
// of the owner's shared tree into the peer's datasite), reads the
// organizer's session.json, records acceptance, and returns a local
// Session.
func JoinSession(homeDir, ownerEmail, flow, sessionID, localEmail, localRole string) (*Session, error) {
	sessionDir := sharedtree.PeerSessionDir(homeDir, ownerEmail, flow, sessionID)

	meta, err := readSessionMeta(sessionDir)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:           meta.ID,
		Flow:         meta.Flow,
		LocalEmail:   localEmail,
		LocalRole:    localRole,
		Participants: meta.Participants,
		Steps:        meta.Steps,
		Status:       SessionAccepted,
		SessionDir:   sessionDir,
		HomeDir:      homeDir,
		OwnerHomeDir: homeDir,
	}

	if err := AppendLogEvent(sessionDir, localRole, "accepted", nil); err != nil {
		return nil, err
	}
	if err := WriteProgressRecord(sessionDir, localRole, "__session", StepCompleted); err != nil {
		return nil, err
	}
	return sess, nil
}

func initSessionDir(sess *Session) error {
	if err := os.MkdirAll(sess.SessionDir, 0755); err != nil {
		return errIO("multiparty.initSessionDir", "create session dir", err)
	}

	readers := make([]string, 0, len(sess.Participants))
	for _, p := range sess.Participants {
		readers = append(readers, p.Email)
	}
	if err := sharedtree.WritePermissionDocument(sharedtree.ProgressDir(sess.SessionDir), sess.LocalEmail, readers); err != nil {
		return err
	}

	return writeSessionMeta(sess)
}

func writeSessionMeta(sess *Session) error {
	meta := sessionMeta{ID: sess.ID, Flow: sess.Flow, Participants: sess.Participants, Steps: sess.Steps}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errIO("multiparty.writeSessionMeta", "marshal session metadata", err)
	}
	path := filepath.Join(sess.SessionDir, sessionMetaFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errIO("multiparty.writeSessionMeta", "write session.json", err)
	}
	return os.Rename(tmp, path)
}

func readSessionMeta(sessionDir string) (*sessionMeta, error) {
	data, err := os.ReadFile(filepath.Join(sessionDir, sessionMetaFile))
	if err != nil {
		return nil, errNotFound("multiparty.readSessionMeta", "session.json not found under "+sessionDir)
	}
	var meta sessionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errIO("multiparty.readSessionMeta", "parse session.json", err)
	}
	return &meta, nil
}

// ShareStepOutputs publishes a completed step's output directory to its
// share-to peers and records the Shared progress transition
// (spec §4.4 "Sharing outputs"): only a step that is Completed and
// declares shares_output may be shared.
func ShareStepOutputs(sess *Session, stepID string, stepIndex int) error {
	s := findStep(sess.Steps, stepID)
	if s == nil {
		return errNotFound("multiparty.ShareStepOutputs", "unknown step: "+stepID)
	}
	if err := BeginShare(s); err != nil {
		return err
	}

	outputDir := sharedtree.StepOutputDir(sess.SessionDir, stepIndex, stepID)
	if err := sharedtree.WritePermissionDocument(outputDir, sess.LocalEmail, s.ShareTo); err != nil {
		return err
	}

	if err := WriteProgressRecord(sess.SessionDir, sess.LocalRole, stepID, StepShared); err != nil {
		return err
	}
	if err := AppendLogEvent(sess.SessionDir, sess.LocalRole, "shared", &stepID); err != nil {
		return err
	}
	return FinishShare(s)
}
