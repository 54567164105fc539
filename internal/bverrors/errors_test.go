package bverrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ErrorStringWithAndWithoutCause(t *testing.T) {
	bare := New(KindValidation, "profile.Switch", "selector is empty")
	assert.Equal(t, "profile.Switch: selector is empty", bare.Error())

	wrapped := Wrap(KindIO, "profile.Switch", "read store file", errors.New("disk full"))
	assert.Equal(t, "profile.Switch: read store file: disk full", wrapped.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(KindExternal, "flowrun.Start", "spawn engine", cause)
	assert.ErrorIs(t, wrapped, cause)
}

func TestKindOf_ReturnsWrappedKind(t *testing.T) {
	err := New(KindNotFound, "profile.Registry.Select", "no such profile")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestKindOf_ReturnsKindOfWrappedBverror(t *testing.T) {
	inner := New(KindConflict, "profile.Registry.Create", "email already registered")
	outer := errors.Join(errors.New("context"), inner)
	assert.Equal(t, KindConflict, KindOf(outer))
}

func TestKindOf_ReturnsExternalForForeignErrors(t *testing.T) {
	assert.Equal(t, KindExternal, KindOf(errors.New("some other package's error")))
}

func TestTruncateReference(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"short", "abc", "***"},
		{"exactly eight", "12345678", "***"},
		{"medium", "123456789", "1234***6789"},
		{"long", "abcdefghijklmnopqrstuvwxyz", "abcdefgh***wxyz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateReference(tt.in))
		})
	}
}
