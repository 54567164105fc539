package multiparty

import "github.com/openmined/biovault-desktop/internal/bverrors"

func errValidation(op, msg string) error {
	return bverrors.New(bverrors.KindValidation, op, msg)
}

func errState(op, msg string) error {
	return bverrors.New(bverrors.KindState, op, msg)
}

func errNotFound(op, msg string) error {
	return bverrors.New(bverrors.KindNotFound, op, msg)
}

func errIO(op, msg string, err error) error {
	return bverrors.Wrap(bverrors.KindIO, op, msg, err)
}

func errExternal(op, msg string) error {
	return bverrors.New(bverrors.KindExternal, op, msg)
}
