// Package sharedtree implements C2: computing paths inside the
// SyftBox-synced tree and writing the permission documents that control
// which peers can see them.
package sharedtree

import (
	"path/filepath"
	"strconv"
)

// SessionDir returns the owner-rooted directory for one multiparty session:
// {home}/datasites/{owner}/shared/flows/{flow}/{session}/
func SessionDir(home, owner, flow, session string) string {
	return filepath.Join(home, "datasites", owner, "shared", "flows", flow, session)
}

// PeerSessionDir resolves another participant's mirror of the same session,
// as replicated by the sync agent under the peer's own datasite.
func PeerSessionDir(home, peerEmail, flow, session string) string {
	return SessionDir(home, peerEmail, flow, session)
}

// SandboxSessionDir resolves the local single-machine development fallback
// path: {homeParent}/{email}/datasites/{email}/shared/flows/{flow}/{session}/
// (spec §4.4 "Local sandbox fallback").
func SandboxSessionDir(homeParent, email, flow, session string) string {
	return filepath.Join(homeParent, email, "datasites", email, "shared", "flows", flow, session)
}

// ProgressDir returns the session's coordination folder.
func ProgressDir(sessionDir string) string {
	return filepath.Join(sessionDir, "_progress")
}

// StepOutputDir returns the directory for step i's outputs (1-based index).
func StepOutputDir(sessionDir string, index int, stepID string) string {
	return filepath.Join(sessionDir, dirName(index, stepID))
}

// StepInputsDir returns the directory other peers contributed inputs to,
// for step i under the given contributing role.
func StepInputsDir(sessionDir string, index int, stepID, fromRole string) string {
	return filepath.Join(sessionDir, "_inputs", dirName(index, stepID), fromRole)
}

// ProgressRecordPath returns the path of the per-(role,step) status record.
func ProgressRecordPath(sessionDir, role, stepID string) string {
	return filepath.Join(ProgressDir(sessionDir), role+"_"+stepID+".json")
}

// StateFilePath returns the owner's aggregate session-state path.
func StateFilePath(sessionDir string) string {
	return filepath.Join(sessionDir, "multiparty.state.json")
}

func dirName(index int, stepID string) string {
	return strconv.Itoa(index) + "-" + stepID
}
