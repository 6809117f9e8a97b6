// Package dbpool implements the fixed-size DB connection pool backing the
// auth path, grounded on the reference server's SqlConnPool/SqlConn pair:
// a bounded multiset of connections guarded by a counting semaphore, with
// a scoped-acquisition wrapper that always returns its connection.
package dbpool

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"golang.org/x/sync/semaphore"
)

// Config gathers the parameters needed to open the pool.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	PoolSize int
}

// Pool is a fixed-size semaphore-guarded pool of DB connections. Unlike a
// bare *sql.DB, Acquire blocks (or times out) once PoolSize connections are
// checked out, the way the reference pool blocks on sem_wait once its
// queue is empty.
type Pool struct {
	db   *sql.DB
	sem  *semaphore.Weighted
	size int64

	inUse atomic.Int64
}

// Open connects to the backing MySQL instance and sizes the pool to
// cfg.PoolSize.
func Open(cfg Config) (*Pool, error) {
	if cfg.PoolSize <= 0 {
		return nil, fmt.Errorf("dbpool: pool size must be positive")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("dbpool: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.PoolSize)
	db.SetMaxIdleConns(cfg.PoolSize)

	return &Pool{
		db:   db,
		sem:  semaphore.NewWeighted(int64(cfg.PoolSize)),
		size: int64(cfg.PoolSize),
	}, nil
}

// FromDB wraps an already-open *sql.DB in a Pool, sizing the semaphore to
// poolSize. Intended for tests that back the pool with a sqlmock DB rather
// than a real MySQL instance.
func FromDB(db *sql.DB, poolSize int) *Pool {
	return &Pool{
		db:   db,
		sem:  semaphore.NewWeighted(int64(poolSize)),
		size: int64(poolSize),
	}
}

// Conn is one checked-out connection. Callers must call Release on every
// exit path, the way SqlConn's destructor returns its MYSQL* to the pool.
type Conn struct {
	underlying *sql.Conn
	pool       *Pool
	released   bool
}

// DB exposes the underlying *sql.Conn for queries.
func (c *Conn) DB() *sql.Conn { return c.underlying }

// Release returns the connection to the pool. Safe to call more than
// once; only the first call has effect.
func (c *Conn) Release() error {
	if c.released {
		return nil
	}
	c.released = true
	err := c.underlying.Close()
	c.pool.inUse.Add(-1)
	c.pool.sem.Release(1)
	return err
}

// Acquire blocks until a connection is available or ctx is cancelled.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	conn, err := p.db.Conn(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, fmt.Errorf("dbpool: acquire: %w", err)
	}
	p.inUse.Add(1)
	return &Conn{underlying: conn, pool: p}, nil
}

// AcquireTimeout is a convenience wrapper around Acquire bounding the wait
// to timeout.
func (p *Pool) AcquireTimeout(timeout time.Duration) (*Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return p.Acquire(ctx)
}

// Available reports the number of connections not currently checked out,
// the way the reference pool's getFreeConnCount reports its queue depth.
func (p *Pool) Available() int64 {
	return p.size - p.inUse.Load()
}

// Close closes the underlying *sql.DB, releasing every pooled connection.
func (p *Pool) Close() error {
	return p.db.Close()
}
