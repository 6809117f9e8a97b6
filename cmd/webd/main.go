// Command webd runs the HTTP/1.1 server, grounded on the reference
// server's main(): parse flags, build a Config, serve until signalled.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/behrlich/webd"
	"github.com/behrlich/webd/internal/logging"
)

func main() {
	defaults := webd.DefaultConfig()

	var (
		port       = flag.Int("port", defaults.ListenPort, "listen port")
		addr       = flag.String("addr", defaults.ListenAddr, "listen address")
		trigMode   = flag.Int("trigmode", int(defaults.Trigger), "0=LT+LT 1=LT+ET 2=ET+LT 3=ET+ET")
		timeoutMs  = flag.Int("timeout", int(defaults.IdleTimeout.Milliseconds()), "idle connection timeout in milliseconds, 0 disables eviction")
		openLinger = flag.Bool("linger", defaults.Linger, "enable SO_LINGER on accepted connections")

		sqlPort = flag.Int("sql-port", defaults.DB.Port, "MySQL port")
		sqlUser = flag.String("sql-user", defaults.DB.User, "MySQL user")
		sqlPwd  = flag.String("sql-pwd", defaults.DB.Password, "MySQL password")
		dbName  = flag.String("db-name", defaults.DB.Name, "MySQL database name")
		dbPool  = flag.Int("db-pool", defaults.DB.PoolSize, "DB connection pool size")

		threadNum  = flag.Int("threads", defaults.WorkerCount, "worker pool size")
		staticRoot = flag.String("static-root", defaults.StaticRoot, "static file document root")

		openLog  = flag.Bool("log", defaults.LogEnabled, "enable logging")
		logLevel = flag.Int("log-level", int(defaults.LogLevel), "0=debug 1=info 2=warn 3=error")
	)
	flag.Parse()

	cfg := defaults
	cfg.ListenPort = *port
	cfg.ListenAddr = *addr
	cfg.Trigger = webd.TriggerMode(*trigMode)
	cfg.IdleTimeout = time.Duration(*timeoutMs) * time.Millisecond
	cfg.Linger = *openLinger
	cfg.DB.Port = *sqlPort
	cfg.DB.User = *sqlUser
	cfg.DB.Password = *sqlPwd
	cfg.DB.Name = *dbName
	cfg.DB.PoolSize = *dbPool
	cfg.WorkerCount = *threadNum
	cfg.StaticRoot = *staticRoot
	cfg.LogEnabled = *openLog
	cfg.LogLevel = logging.LogLevel(*logLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logConfig := logging.DefaultConfig()
	logConfig.Level = cfg.LogLevel
	if !cfg.LogEnabled {
		logConfig.Output = io.Discard
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := webd.Serve(ctx, cfg, &webd.Options{Logger: logger})
	if err != nil {
		logger.Errorf("failed to start server: %v", err)
		os.Exit(1)
	}

	logger.Info("server listening", "addr", server.Addr(), "trigger", cfg.Trigger.String())
	fmt.Printf("webd listening on %s\n", server.Addr())
	fmt.Printf("Press Ctrl+C to stop...\n")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("error during shutdown: %v", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
