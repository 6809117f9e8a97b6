package webd

import "github.com/behrlich/webd/internal/constants"

// Re-export defaults for public API.
const (
	DefaultListenBacklog    = constants.DefaultListenBacklog
	DefaultMaxConnections   = constants.DefaultMaxConnections
	DefaultIdleTimeout      = constants.DefaultIdleTimeout
	DefaultWorkerCount      = constants.DefaultWorkerCount
	DefaultDBPoolSize       = constants.DefaultDBPoolSize
	DefaultMaxEvents        = constants.DefaultMaxEvents
	ScatterReadOverflow     = constants.ScatterReadOverflow
	WriteDrainThreshold     = constants.WriteDrainThreshold
	DefaultLogQueueCapacity = constants.DefaultLogQueueCapacity
	DBAcquireTimeout        = constants.DBAcquireTimeout
)
