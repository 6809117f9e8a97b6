package webd

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/behrlich/webd/internal/authsvc"
	"github.com/behrlich/webd/internal/dbpool"
	"github.com/behrlich/webd/internal/logging"
	"github.com/behrlich/webd/internal/reactor"
)

// Options carries optional collaborators for Serve, the way ublk.Options
// let a caller supply a context, logger, and observer for CreateAndServe.
type Options struct {
	Context  context.Context
	Logger   *logging.Logger
	Observer Observer
}

// Server is a running instance of the HTTP server: the DB pool, the auth
// service and the reactor event loop, wired together the way WebServer
// owned its SqlConnPool, ThreadPool and Epoller.
type Server struct {
	cfg      Config
	logger   *logging.Logger
	logQueue *logging.AsyncWriter
	db       *dbpool.Pool
	reactor  *reactor.Reactor

	cancel context.CancelFunc
	group  *errgroup.Group
}

// Serve validates cfg, opens the DB pool, builds the reactor and starts
// serving in the background. Call Server.Shutdown to stop it.
func Serve(ctx context.Context, cfg Config, options *Options) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if options == nil {
		options = &Options{}
	}
	if options.Context != nil {
		ctx = options.Context
	}

	logger := options.Logger
	var logQueue *logging.AsyncWriter
	if logger == nil {
		logConfig := logging.DefaultConfig()
		logConfig.Level = cfg.LogLevel
		if cfg.LogEnabled {
			logQueue = logging.NewAsyncWriter(os.Stderr, cfg.LogQueueCapacity)
			logConfig.Output = logQueue
		}
		logger = logging.NewLogger(logConfig)
	}
	if cfg.LogEnabled {
		logging.SetDefault(logger)
	}

	db, err := dbpool.Open(dbpool.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Name:     cfg.DB.Name,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("webd: open db pool: %w", err)
	}

	auth := authsvc.New(db, logger)

	var obs reactor.Observer
	if options.Observer != nil {
		obs = options.Observer
	}

	r, err := reactor.New(reactor.Config{
		ListenAddr:     cfg.ListenAddr,
		ListenPort:     cfg.ListenPort,
		Trigger:        reactor.TriggerMode(cfg.Trigger),
		IdleTimeout:    int(cfg.IdleTimeout.Milliseconds()),
		Linger:         cfg.Linger,
		MaxEvents:      cfg.MaxEvents,
		MaxConnections: DefaultMaxConnections,
		WorkerCount:    cfg.WorkerCount,
		StaticRoot:     cfg.StaticRoot,
		Auth:           auth,
		Logger:         logger,
		Metrics:        obs,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("webd: create reactor: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		logQueue: logQueue,
		db:       db,
		reactor:  r,
		cancel:   cancel,
		group:    group,
	}

	logger.Info("server starting",
		"addr", cfg.ListenAddr, "port", cfg.ListenPort, "trigger", cfg.Trigger.String())

	group.Go(func() error { return r.Run(groupCtx) })

	return s, nil
}

// Shutdown cancels the reactor's event loop, waits for the run goroutine
// to return, flushes the async log queue, and closes the DB pool, the way
// StopAndDelete cancels a device's context and tears down its queue
// runners.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	waitDone := make(chan error, 1)
	go func() { waitDone <- s.group.Wait() }()

	select {
	case err := <-waitDone:
		if err != nil {
			s.logger.Errorf("reactor run loop exited with error: %v", err)
		}
	case <-ctx.Done():
		s.logger.Warnf("shutdown: reactor did not stop before context deadline")
	}

	if err := s.reactor.Close(); err != nil {
		s.logger.Errorf("reactor close: %v", err)
	}
	if s.logQueue != nil {
		s.logQueue.Close()
	}
	return s.db.Close()
}

// Addr reports the configured listen address and port.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.ListenAddr, s.cfg.ListenPort)
}
