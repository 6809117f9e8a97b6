//go:build linux

package mux

import (
	"golang.org/x/sys/unix"
)

// epollMux implements Multiplexer over epoll.
type epollMux struct {
	epfd   int
	events []unix.EpollEvent
}

func newMultiplexer(maxEvents int) (Multiplexer, error) {
	if maxEvents <= 0 {
		maxEvents = 1024
	}
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &epollMux{epfd: epfd, events: make([]unix.EpollEvent, maxEvents)}, nil
}

func toEpollEvents(m EventMask) uint32 {
	var e uint32
	if m&EventReadable != 0 {
		e |= unix.EPOLLIN
	}
	if m&EventWritable != 0 {
		e |= unix.EPOLLOUT
	}
	if m&EventError != 0 {
		e |= unix.EPOLLERR
	}
	if m&EventHangup != 0 {
		e |= unix.EPOLLHUP | unix.EPOLLRDHUP
	}
	if m&EventEdgeTriggered != 0 {
		e |= unix.EPOLLET
	}
	if m&EventOneShot != 0 {
		e |= unix.EPOLLONESHOT
	}
	return e
}

func fromEpollEvents(e uint32) EventMask {
	var m EventMask
	if e&unix.EPOLLIN != 0 {
		m |= EventReadable
	}
	if e&unix.EPOLLOUT != 0 {
		m |= EventWritable
	}
	if e&unix.EPOLLERR != 0 {
		m |= EventError
	}
	if e&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		m |= EventHangup
	}
	return m
}

func (m *epollMux) AddFd(fd int, events EventMask) error {
	ev := unix.EpollEvent{Fd: int32(fd), Events: toEpollEvents(events)}
	return unix.EpollCtl(m.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (m *epollMux) ModFd(fd int, events EventMask) error {
	ev := unix.EpollEvent{Fd: int32(fd), Events: toEpollEvents(events)}
	return unix.EpollCtl(m.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (m *epollMux) DelFd(fd int) error {
	return unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (m *epollMux) Wait(timeoutMs int) ([]Event, error) {
	n, err := unix.EpollWait(m.epfd, m.events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Event{
			Fd:     int(m.events[i].Fd),
			Events: fromEpollEvents(m.events[i].Events),
		})
	}
	return out, nil
}

func (m *epollMux) Close() error {
	return unix.Close(m.epfd)
}
