//go:build linux

package mux

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEpollAddWaitReadable(t *testing.T) {
	m, err := New(16)
	require.NoError(t, err)
	defer m.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	connCh := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		connCh <- c
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	server := <-connCh
	defer server.Close()

	rawConn, err := server.(*net.TCPConn).SyscallConn()
	require.NoError(t, err)

	var fd int
	err = rawConn.Control(func(f uintptr) { fd = int(f) })
	require.NoError(t, err)

	require.NoError(t, m.AddFd(fd, EventReadable|EventOneShot))

	_, err = client.Write([]byte("hi"))
	require.NoError(t, err)

	events, err := m.Wait(1000)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, fd, events[0].Fd)
	require.NotZero(t, events[0].Events&EventReadable)

	require.NoError(t, m.ModFd(fd, EventReadable|EventOneShot))
	require.NoError(t, m.DelFd(fd))
}

func TestEpollWaitTimeout(t *testing.T) {
	m, err := New(16)
	require.NoError(t, err)
	defer m.Close()

	start := time.Now()
	events, err := m.Wait(50)
	require.NoError(t, err)
	require.Empty(t, events)
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}
