package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWrapping(t *testing.T) {
	err := fmt.Errorf("dword: %w", &Error{Kind: ErrKindType, Msg: "value Start", Err: ErrTypeMismatch})

	assert.True(t, errors.Is(err, ErrTypeMismatch))
	assert.False(t, errors.Is(err, ErrTruncated))
	assert.True(t, IsKind(err, ErrKindType))
	assert.False(t, IsKind(err, ErrKindFormat))
	assert.Equal(t, "dword: value Start: registry value has different type", err.Error())

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrKindType, kind)
}

func TestIsKindFollowsCauseChain(t *testing.T) {
	// An IO error whose cause is a format sentinel matches both kinds.
	err := &Error{Kind: ErrKindIO, Msg: "read chunk", Err: ErrFormat}
	assert.True(t, IsKind(err, ErrKindIO))
	assert.True(t, IsKind(err, ErrKindFormat))
	assert.False(t, IsKind(errors.New("plain"), ErrKindIO))

	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestNilErrorString(t *testing.T) {
	var e *Error
	assert.Equal(t, "<nil>", e.Error())
	assert.Equal(t, "type mismatch", ErrKindType.String())
}
