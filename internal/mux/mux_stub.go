//go:build !linux

package mux

import "fmt"

// newMultiplexer is unavailable outside Linux; the reactor's readiness
// multiplexer is epoll-specific. This exists so the package (and code that
// merely references the Multiplexer interface) builds on other platforms.
func newMultiplexer(maxEvents int) (Multiplexer, error) {
	return nil, fmt.Errorf("mux: epoll multiplexer requires linux")
}
