// Package constants holds the defaults referenced by Config and its
// collaborators.
package constants

import "time"

// Server defaults.
const (
	// DefaultListenBacklog matches the reference implementation's fixed
	// listen backlog.
	DefaultListenBacklog = 6

	// DefaultMaxConnections bounds the active-connection table; the
	// reactor rejects new accepts past this point (spec's MAX_FD).
	DefaultMaxConnections = 65536

	// DefaultIdleTimeout is the per-connection idle eviction deadline.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultWorkerCount is the fixed worker-pool size when unspecified.
	DefaultWorkerCount = 8

	// DefaultDBPoolSize is the fixed DB connection pool size when
	// unspecified.
	DefaultDBPoolSize = 12

	// DefaultMaxEvents bounds the multiplexer's per-Wait event buffer.
	DefaultMaxEvents = 1024

	// ScatterReadOverflow is the size of the stack-resident second iovec
	// used by the connection buffer's scatter read (64 KiB, matching the
	// reference buffer's readv overflow region).
	ScatterReadOverflow = 65535

	// WriteDrainThreshold: the connection write loop keeps draining
	// (rather than yielding back to the reactor) while more than this
	// many bytes remain unsent, mirroring the reference toWriteBytes()
	// > 10240 condition.
	WriteDrainThreshold = 10 * 1024

	// DefaultLogQueueCapacity bounds the async logger's line queue.
	DefaultLogQueueCapacity = 1000
)

// DB pool timing.
const (
	// DBAcquireTimeout bounds how long a caller waits on the pool's
	// counting semaphore before giving up.
	DBAcquireTimeout = 5 * time.Second
)
