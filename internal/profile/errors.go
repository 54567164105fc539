package profile

import "github.com/openmined/biovault-desktop/internal/bverrors"

// Failure taxonomy for C1 (spec §4.1): NotFound, AlreadyRunning,
// HomeInUseByOtherProfile, EmailInUseByOtherProfile, DestNonEmpty, IoError —
// all map onto bverrors.Kind via the constructors below.

func errNotFound(op, id string) error {
	return bverrors.New(bverrors.KindNotFound, op, "profile not found: "+bverrors.TruncateReference(id))
}

func errAlreadyRunning(op, home string) error {
	return bverrors.New(bverrors.KindConflict, op, "profile home is locked by a live process: "+bverrors.TruncateReference(home))
}

func errHomeInUse(op, home string) error {
	return bverrors.New(bverrors.KindConflict, op, "home already registered to another profile: "+bverrors.TruncateReference(home))
}

func errEmailInUse(op, email string) error {
	return bverrors.New(bverrors.KindConflict, op, "email already registered to another profile: "+bverrors.TruncateReference(email))
}

func errDestNonEmpty(op, dest string) error {
	return bverrors.New(bverrors.KindConflict, op, "destination directory is not empty: "+bverrors.TruncateReference(dest))
}

func errValidation(op, msg string) error {
	return bverrors.New(bverrors.KindValidation, op, msg)
}

func errIO(op, msg string, err error) error {
	return bverrors.Wrap(bverrors.KindIO, op, msg, err)
}
