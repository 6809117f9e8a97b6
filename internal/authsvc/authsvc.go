// Package authsvc implements the login/register path, grounded on the
// reference server's HttpRequest::userVerify: look up the username, and
// either compare the stored password (login) or insert a new row
// (register) if the name is free.
package authsvc

import (
	"context"
	"database/sql"

	"github.com/behrlich/webd/internal/constants"
	"github.com/behrlich/webd/internal/dbpool"
	"github.com/behrlich/webd/internal/logging"
)

// Service checks and creates user credentials against the DB pool.
type Service struct {
	pool   *dbpool.Pool
	logger *logging.Logger
}

// New creates an auth Service backed by pool.
func New(pool *dbpool.Pool, logger *logging.Logger) *Service {
	return &Service{pool: pool, logger: logger}
}

// Verify implements httpd.AuthVerifier: for a login it checks the stored
// password matches; for a registration it creates the user if the name is
// not already taken. Reports false on any DB error, matching the
// reference server's fail-closed behavior.
func (s *Service) Verify(username, password string, isLogin bool) bool {
	if username == "" || password == "" {
		return false
	}

	conn, err := s.pool.AcquireTimeout(constants.DBAcquireTimeout)
	if err != nil {
		s.logf("auth: acquire connection: %v", err)
		return false
	}
	defer conn.Release()

	ctx := context.Background()
	var storedPassword string
	err = conn.DB().QueryRowContext(ctx,
		"SELECT password FROM user WHERE username = ? LIMIT 1", username,
	).Scan(&storedPassword)

	switch {
	case err == sql.ErrNoRows:
		if isLogin {
			return false
		}
		return s.register(ctx, conn, username, password)
	case err != nil:
		s.logf("auth: query user: %v", err)
		return false
	default:
		if isLogin {
			return storedPassword == password
		}
		// Registration against an already-taken username fails, matching
		// the reference server's "user used!" rejection.
		return false
	}
}

func (s *Service) register(ctx context.Context, conn *dbpool.Conn, username, password string) bool {
	result, err := conn.DB().ExecContext(ctx,
		"INSERT INTO user(username, password) VALUES (?, ?)", username, password,
	)
	if err != nil {
		s.logf("auth: insert user: %v", err)
		return false
	}

	affected, err := result.RowsAffected()
	if err != nil || affected != 1 {
		s.logf("auth: unexpected affected rows for %q: %d (err=%v)", username, affected, err)
		return false
	}
	return true
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Errorf(format, args...)
	}
}
