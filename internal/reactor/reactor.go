// Package reactor implements the server's main event loop, grounded on the
// reference server's WebServer: a listen socket and one epoll instance
// shared by every connection, with connection I/O and request processing
// offloaded to a worker pool once a fd is ready.
package reactor

import (
	"context"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/behrlich/webd/internal/constants"
	"github.com/behrlich/webd/internal/httpd"
	"github.com/behrlich/webd/internal/logging"
	"github.com/behrlich/webd/internal/mux"
	"github.com/behrlich/webd/internal/timerheap"
	"github.com/behrlich/webd/internal/workerpool"
	"github.com/behrlich/webd/internal/workqueue"
)

// Config gathers what the reactor needs to run the accept/event loop.
type Config struct {
	ListenAddr  string
	ListenPort  int
	Trigger     TriggerMode
	IdleTimeout int // milliseconds; 0 disables idle eviction
	Linger      bool

	MaxEvents      int
	MaxConnections int
	WorkerCount    int

	StaticRoot string
	Auth       httpd.AuthVerifier
	Logger     *logging.Logger
	Metrics    Observer
}

// TriggerMode mirrors the listen/conn edge-vs-level-triggered choice
// without importing the top-level webd package (which itself imports
// reactor's siblings), avoiding an import cycle.
type TriggerMode int

const (
	TriggerLTLT TriggerMode = iota
	TriggerLTET
	TriggerETLT
	TriggerETET
)

func (m TriggerMode) listenEdgeTriggered() bool { return m == TriggerETLT || m == TriggerETET }
func (m TriggerMode) connEdgeTriggered() bool   { return m == TriggerLTET || m == TriggerETET }

// Observer receives lifecycle events the way webd.Observer does, kept as a
// narrow local interface so reactor doesn't import the root package.
type Observer interface {
	ObserveAccept()
	ObserveReject()
	ObserveClose()
	ObserveTimeoutEviction()
	ObserveRequest(bytesRead, bytesWritten uint64, latencyNs uint64, success bool)
}

type noopObserver struct{}

func (noopObserver) ObserveAccept()           {}
func (noopObserver) ObserveReject()           {}
func (noopObserver) ObserveClose()            {}
func (noopObserver) ObserveTimeoutEviction()  {}
func (noopObserver) ObserveRequest(uint64, uint64, uint64, bool) {}

// Reactor owns the listen socket, the epoll instance, the connection table,
// the idle timer heap and the worker pool that processes ready fds.
type Reactor struct {
	cfg    Config
	logger *logging.Logger
	obs    Observer

	listenFd int
	m        mux.Multiplexer
	pool     *workerpool.Pool
	timers   *timerheap.Heap

	connEvents mux.EventMask
	listenET   bool

	mu      sync.Mutex
	conns   map[int]*httpd.Conn
	closing bool
}

// New builds a Reactor from cfg. It opens the listen socket, the
// multiplexer and the worker pool, but does not start serving until Run is
// called.
func New(cfg Config) (*Reactor, error) {
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = constants.DefaultMaxEvents
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = constants.DefaultMaxConnections
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	obs := cfg.Metrics
	if obs == nil {
		obs = noopObserver{}
	}

	m, err := mux.New(cfg.MaxEvents)
	if err != nil {
		return nil, fmt.Errorf("reactor: create multiplexer: %w", err)
	}

	listenFd, err := listen(cfg.ListenAddr, cfg.ListenPort, cfg.Linger)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("reactor: listen: %w", err)
	}

	listenEvents := mux.EventReadable | mux.EventHangup
	if cfg.Trigger.listenEdgeTriggered() {
		listenEvents |= mux.EventEdgeTriggered
	}
	if err := m.AddFd(listenFd, listenEvents); err != nil {
		syscall.Close(listenFd)
		m.Close()
		return nil, fmt.Errorf("reactor: register listen fd: %w", err)
	}

	connEvents := mux.EventOneShot | mux.EventHangup
	if cfg.Trigger.connEdgeTriggered() {
		connEvents |= mux.EventEdgeTriggered
	}

	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = constants.DefaultWorkerCount
	}
	pool := workerpool.New(workerpool.Config{
		Workers:  workers,
		Capacity: cfg.MaxConnections,
		Strategy: workqueue.NewBlockWaitStrategy(),
		Logger:   logger,
	})

	return &Reactor{
		cfg:        cfg,
		logger:     logger,
		obs:        obs,
		listenFd:   listenFd,
		m:          m,
		pool:       pool,
		timers:     timerheap.New(),
		connEvents: connEvents,
		listenET:   cfg.Trigger.listenEdgeTriggered(),
		conns:      make(map[int]*httpd.Conn),
	}, nil
}

func listen(addr string, port int, linger bool) (int, error) {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", fmt.Sprintf("%s:%d", addr, port))
	if err != nil {
		return 0, err
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return 0, fmt.Errorf("reactor: expected *net.TCPListener")
	}

	raw, err := tcpLn.SyscallConn()
	if err != nil {
		ln.Close()
		return 0, err
	}

	var fd int
	var dupErr error
	err = raw.Control(func(rawFd uintptr) {
		fd, dupErr = syscall.Dup(int(rawFd))
	})
	if err != nil {
		ln.Close()
		return 0, err
	}
	if dupErr != nil {
		ln.Close()
		return 0, dupErr
	}

	// The duplicated fd is what the reactor drives directly through
	// epoll; the net.Listener wrapper is no longer needed.
	ln.Close()

	if linger {
		syscall.SetsockoptLinger(fd, syscall.SOL_SOCKET, syscall.SO_LINGER, &syscall.Linger{Onoff: 1, Linger: 1})
	}
	if err := syscall.SetNonblock(fd, true); err != nil {
		syscall.Close(fd)
		return 0, err
	}
	return fd, nil
}

// Run drives the accept/event loop until ctx is cancelled.
func (r *Reactor) Run(ctx context.Context) error {
	r.pool.Start(ctx)
	defer r.pool.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		// Cap the wait even with idle eviction disabled so Run notices a
		// cancelled ctx promptly instead of blocking in epoll_wait
		// indefinitely.
		timeout := shutdownPollMs
		if r.cfg.IdleTimeout > 0 {
			if t := r.nextTimeout(); t >= 0 && t < timeout {
				timeout = t
			}
		}

		events, err := r.m.Wait(timeout)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			return fmt.Errorf("reactor: wait: %w", err)
		}

		for _, ev := range events {
			r.dispatch(ev)
		}
	}
}

// shutdownPollMs bounds how long Run can block in a single Wait call, so
// that a cancelled context is noticed within this interval even when idle
// eviction is disabled.
const shutdownPollMs = 1000

func (r *Reactor) nextTimeout() int {
	d := r.timers.NextTick()
	if d < 0 {
		return -1
	}
	ms := int(d.Milliseconds())
	if ms < 0 {
		ms = 0
	}
	return ms
}

func (r *Reactor) dispatch(ev mux.Event) {
	if ev.Fd == r.listenFd {
		r.acceptLoop()
		return
	}

	if ev.Events&(mux.EventError|mux.EventHangup) != 0 {
		r.closeConn(ev.Fd)
		return
	}

	if ev.Events&mux.EventReadable != 0 {
		r.extendTimeout(ev.Fd)
		r.pool.Submit(func() { r.onRead(ev.Fd) })
		return
	}

	if ev.Events&mux.EventWritable != 0 {
		r.extendTimeout(ev.Fd)
		r.pool.Submit(func() { r.onWrite(ev.Fd) })
		return
	}
}

func (r *Reactor) acceptLoop() {
	for {
		fd, sa, err := syscall.Accept(r.listenFd)
		if err != nil {
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				return
			}
			r.logger.Warnf("reactor: accept: %v", err)
			return
		}

		r.mu.Lock()
		full := len(r.conns) >= r.cfg.MaxConnections
		r.mu.Unlock()

		if full {
			r.obs.ObserveReject()
			sendBusy(fd)
			syscall.Close(fd)
			if !r.listenET {
				return
			}
			continue
		}

		ip, port := sockaddrToIPPort(sa)
		r.addConn(fd, ip, port)
		r.obs.ObserveAccept()

		if !r.listenET {
			return
		}
	}
}

func sendBusy(fd int) {
	msg := []byte("HTTP/1.1 503 Server Busy\r\nConnection: close\r\n\r\nServer busy!")
	syscall.Write(fd, msg)
}

func sockaddrToIPPort(sa syscall.Sockaddr) (string, int) {
	switch v := sa.(type) {
	case *syscall.SockaddrInet4:
		return net.IP(v.Addr[:]).String(), v.Port
	case *syscall.SockaddrInet6:
		return net.IP(v.Addr[:]).String(), v.Port
	default:
		return "", 0
	}
}

func (r *Reactor) addConn(fd int, ip string, port int) {
	syscall.SetNonblock(fd, true)
	conn := httpd.NewConn(fd, ip, port, r.cfg.StaticRoot)

	r.mu.Lock()
	r.conns[fd] = conn
	r.mu.Unlock()

	if r.cfg.IdleTimeout > 0 {
		r.timers.Add(fd, msToDuration(r.cfg.IdleTimeout), func() { r.closeConn(fd) })
	}

	if err := r.m.AddFd(fd, mux.EventReadable|r.connEvents); err != nil {
		r.logger.WithConn(fd).Warn("reactor: register conn failed", "err", err)
		r.closeConn(fd)
		return
	}
	r.logger.WithConn(fd).Info("client connected", "ip", ip, "port", port)
}

func (r *Reactor) extendTimeout(fd int) {
	if r.cfg.IdleTimeout > 0 {
		r.timers.Adjust(fd, msToDuration(r.cfg.IdleTimeout))
	}
}

func (r *Reactor) onRead(fd int) {
	conn := r.lookupConn(fd)
	if conn == nil {
		return
	}

	n, err := conn.ReadOnce()
	if n <= 0 && !isAgain(err) {
		r.closeConn(fd)
		return
	}
	r.process(fd, conn)
}

func (r *Reactor) process(fd int, conn *httpd.Conn) {
	if conn.Process(r.cfg.Auth) {
		r.m.ModFd(fd, mux.EventWritable|r.connEvents)
	} else {
		r.m.ModFd(fd, mux.EventReadable|r.connEvents)
	}
}

func (r *Reactor) onWrite(fd int) {
	conn := r.lookupConn(fd)
	if conn == nil {
		return
	}

	// Keep writing while edge-triggered, or while more than
	// WriteDrainThreshold bytes remain, until done or an error.
	var err error
	for {
		_, err = conn.WriteOnce()
		pending := conn.PendingWriteBytes()
		if pending == 0 || err != nil {
			break
		}
		if !r.cfg.Trigger.connEdgeTriggered() && pending <= constants.WriteDrainThreshold {
			break
		}
	}
	if conn.PendingWriteBytes() == 0 {
		if conn.IsKeepAlive() {
			r.process(fd, conn)
			return
		}
	} else if err != nil && !isAgain(err) {
		r.closeConn(fd)
		return
	} else {
		// Bytes remain unsent with no hard error: either the kernel send
		// buffer filled (err == nil, a routine short write for a response
		// bigger than the socket buffer) or the fd isn't writable yet
		// (EAGAIN). Either way, re-arm and wait for the next writable event.
		r.m.ModFd(fd, mux.EventWritable|r.connEvents)
		return
	}
	r.closeConn(fd)
}

func isAgain(err error) bool {
	return err == syscall.EAGAIN || err == syscall.EWOULDBLOCK
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func (r *Reactor) lookupConn(fd int) *httpd.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[fd]
}

func (r *Reactor) closeConn(fd int) {
	r.mu.Lock()
	conn, ok := r.conns[fd]
	if ok {
		delete(r.conns, fd)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	r.timers.Cancel(fd)
	r.m.DelFd(fd)
	conn.Close()
	r.obs.ObserveClose()
	r.logger.WithConn(fd).Info("client quit")
}

// Close shuts down the listen socket, the multiplexer and every open
// connection. Run should have already returned (or ctx been cancelled)
// before calling Close.
func (r *Reactor) Close() error {
	r.mu.Lock()
	fds := make([]int, 0, len(r.conns))
	for fd := range r.conns {
		fds = append(fds, fd)
	}
	r.closing = true
	r.mu.Unlock()

	for _, fd := range fds {
		r.closeConn(fd)
	}

	syscall.Close(r.listenFd)
	return r.m.Close()
}
