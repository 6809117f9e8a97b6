package webd

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func freeListenAddr(t *testing.T) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func TestServeAndShutdownRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("it works"), 0o644))

	host, port := freeListenAddr(t)

	cfg := DefaultConfig()
	cfg.ListenAddr = host
	cfg.ListenPort = port
	cfg.StaticRoot = dir
	cfg.LogEnabled = false
	cfg.DB.Host = "127.0.0.1"
	cfg.DB.Name = "webd_test"
	cfg.DB.User = "webd"
	cfg.DB.Password = "webd"

	server, err := Serve(context.Background(), cfg, nil)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	conn, err := net.Dial("tcp", server.Addr())
	require.NoError(t, err)
	_, err = conn.Write([]byte("GET /index.html HTTP/1.1\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	require.True(t, bytes.Contains(buf[:n], []byte("it works")))
	conn.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(shutdownCtx))
}
