package flowrun

import "github.com/openmined/biovault-desktop/internal/bverrors"

const (
	// ErrLocksRemainPrefix prefixes the error returned when stale
	// .nextflow LOCK files survive cleanup (spec §4.3 "Resume").
	ErrLocksRemainPrefix = "NEXTFLOW_LOCKS_REMAIN"
	// ErrCacheCorruptedPrefix signals a possibly-corrupted engine cache.
	ErrCacheCorruptedPrefix = "NEXTFLOW_CACHE_CORRUPTED"
)

func errValidation(op, msg string) error {
	return bverrors.New(bverrors.KindValidation, op, msg)
}

func errNotFound(op, runID string) error {
	return bverrors.New(bverrors.KindNotFound, op, "run not found: "+bverrors.TruncateReference(runID))
}

func errState(op, msg string) error {
	return bverrors.New(bverrors.KindState, op, msg)
}

func errExternal(op, msg string, err error) error {
	return bverrors.Wrap(bverrors.KindExternal, op, msg, err)
}

func errIO(op, msg string, err error) error {
	return bverrors.Wrap(bverrors.KindIO, op, msg, err)
}
