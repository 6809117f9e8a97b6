package webd

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructuredError(t *testing.T) {
	err := NewError("accept", ErrCodeInvalidParams, "bad listen address")

	require.Equal(t, "accept", err.Op)
	require.Equal(t, ErrCodeInvalidParams, err.Code)
	require.Equal(t, "webd: bad listen address (op=accept)", err.Error())
}

func TestErrorWithErrno(t *testing.T) {
	err := NewErrorWithErrno("read", ErrCodeTransientIO, syscall.EAGAIN)

	require.Equal(t, syscall.EAGAIN, err.Errno)
	require.Equal(t, ErrCodeTransientIO, err.Code)
}

func TestConnError(t *testing.T) {
	err := NewConnError("write", 9, ErrCodePeerClosed, "connection reset")

	require.Equal(t, 9, err.ConnID)
	require.Equal(t, "webd: connection reset (op=write)", err.Error())
}

func TestWrapError(t *testing.T) {
	err := WrapError("close", syscall.ECONNRESET)

	require.Equal(t, ErrCodePeerClosed, err.Code)
	require.True(t, errors.Is(err, syscall.ECONNRESET))
}

func TestIsCodeAndIsTransient(t *testing.T) {
	err := NewErrorWithErrno("read", ErrCodeTransientIO, syscall.EAGAIN)

	require.True(t, IsCode(err, ErrCodeTransientIO))
	require.False(t, IsCode(err, ErrCodeDB))
	require.False(t, IsCode(nil, ErrCodeTransientIO))
	require.True(t, IsTransient(err))
	require.True(t, IsTransient(syscall.EAGAIN))
}

func TestErrnoMapping(t *testing.T) {
	cases := []struct {
		errno    syscall.Errno
		expected ErrorCode
	}{
		{syscall.EAGAIN, ErrCodeTransientIO},
		{syscall.ECONNRESET, ErrCodePeerClosed},
		{syscall.EPIPE, ErrCodePeerClosed},
		{syscall.ENOENT, ErrCodeNotFound},
		{syscall.EACCES, ErrCodeForbidden},
		{syscall.EINVAL, ErrCodeInvalidParams},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, mapErrnoToCode(c.errno))
	}
}
