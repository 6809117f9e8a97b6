package webd

import (
	"fmt"
	"time"

	"github.com/behrlich/webd/internal/constants"
	"github.com/behrlich/webd/internal/logging"
)

// TriggerMode selects the edge/level-triggered combination for the listen
// socket and connected sockets, matching the four modes the reference
// server exposes on its command line.
type TriggerMode int

const (
	// TriggerLTLT: listen socket level-triggered, connections level-triggered.
	TriggerLTLT TriggerMode = iota
	// TriggerLTET: listen socket level-triggered, connections edge-triggered.
	TriggerLTET
	// TriggerETLT: listen socket edge-triggered, connections level-triggered.
	TriggerETLT
	// TriggerETET: listen socket edge-triggered, connections edge-triggered.
	TriggerETET
)

func (m TriggerMode) String() string {
	switch m {
	case TriggerLTLT:
		return "LT+LT"
	case TriggerLTET:
		return "LT+ET"
	case TriggerETLT:
		return "ET+LT"
	case TriggerETET:
		return "ET+ET"
	default:
		return "unknown"
	}
}

// ListenEdgeTriggered reports whether the listen socket should be armed
// edge-triggered under this mode.
func (m TriggerMode) ListenEdgeTriggered() bool { return m == TriggerETLT || m == TriggerETET }

// ConnEdgeTriggered reports whether connected sockets should be armed
// edge-triggered under this mode.
func (m TriggerMode) ConnEdgeTriggered() bool { return m == TriggerLTET || m == TriggerETET }

// DBConfig holds the parameters needed to open the backing relational store.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	PoolSize int
}

// Config is the single construction call for the server: every knob the
// reactor, the timer wheel, the worker pool, and the DB pool need, the way
// DefaultDeviceParams gathers a device's construction parameters into one
// struct.
type Config struct {
	ListenAddr  string
	ListenPort  int
	Trigger     TriggerMode
	IdleTimeout time.Duration
	Linger      bool // SO_LINGER on accepted connections

	WorkerCount int
	MaxEvents   int

	DB DBConfig

	StaticRoot string // directory mmap'd for static file serving

	LogEnabled       bool
	LogLevel         logging.LogLevel
	LogQueueCapacity int
}

// DefaultConfig returns a Config with the reference server's defaults:
// edge-triggered listen and connection sockets, a 120s idle timeout, and
// an 8-worker pool over a 12-connection DB pool.
func DefaultConfig() Config {
	return Config{
		ListenAddr:  "0.0.0.0",
		ListenPort:  9006,
		Trigger:     TriggerETET,
		IdleTimeout: constants.DefaultIdleTimeout,
		Linger:      false,

		WorkerCount: constants.DefaultWorkerCount,
		MaxEvents:   constants.DefaultMaxEvents,

		DB: DBConfig{
			Host:     "localhost",
			Port:     3306,
			PoolSize: constants.DefaultDBPoolSize,
		},

		StaticRoot: "./resources",

		LogEnabled:       true,
		LogLevel:         logging.LevelInfo,
		LogQueueCapacity: constants.DefaultLogQueueCapacity,
	}
}

// Validate checks the config for values the reactor cannot run with.
func (c Config) Validate() error {
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return NewError("config.Validate", ErrCodeInvalidParams, fmt.Sprintf("invalid listen port %d", c.ListenPort))
	}
	if c.WorkerCount <= 0 {
		return NewError("config.Validate", ErrCodeInvalidParams, "worker count must be positive")
	}
	if c.DB.PoolSize <= 0 {
		return NewError("config.Validate", ErrCodeInvalidParams, "DB pool size must be positive")
	}
	if c.IdleTimeout < 0 {
		return NewError("config.Validate", ErrCodeInvalidParams, "idle timeout must not be negative")
	}
	return nil
}
