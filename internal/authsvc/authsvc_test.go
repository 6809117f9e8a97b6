package authsvc

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/behrlich/webd/internal/dbpool"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pool := dbpool.FromDB(db, 2)
	return New(pool, nil), mock
}

func TestVerifyLoginSucceedsOnMatchingPassword(t *testing.T) {
	s, mock := newTestService(t)

	rows := sqlmock.NewRows([]string{"password"}).AddRow("hunter2")
	mock.ExpectQuery("SELECT password FROM user WHERE username = ?").
		WithArgs("alice").
		WillReturnRows(rows)

	require.True(t, s.Verify("alice", "hunter2", true))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyLoginFailsOnWrongPassword(t *testing.T) {
	s, mock := newTestService(t)

	rows := sqlmock.NewRows([]string{"password"}).AddRow("hunter2")
	mock.ExpectQuery("SELECT password FROM user WHERE username = ?").
		WithArgs("alice").
		WillReturnRows(rows)

	require.False(t, s.Verify("alice", "wrongpass", true))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyLoginFailsWhenUserMissing(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery("SELECT password FROM user WHERE username = ?").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"password"}))

	require.False(t, s.Verify("ghost", "whatever", true))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyRegisterCreatesNewUser(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery("SELECT password FROM user WHERE username = ?").
		WithArgs("newbie").
		WillReturnRows(sqlmock.NewRows([]string{"password"}))
	mock.ExpectExec("INSERT INTO user").
		WithArgs("newbie", "secret").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.True(t, s.Verify("newbie", "secret", false))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyRegisterFailsWhenUsernameTaken(t *testing.T) {
	s, mock := newTestService(t)

	rows := sqlmock.NewRows([]string{"password"}).AddRow("existing")
	mock.ExpectQuery("SELECT password FROM user WHERE username = ?").
		WithArgs("alice").
		WillReturnRows(rows)

	require.False(t, s.Verify("alice", "whatever", false))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyRegisterFailsWhenInsertAffectsNoRows(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery("SELECT password FROM user WHERE username = ?").
		WithArgs("newbie").
		WillReturnRows(sqlmock.NewRows([]string{"password"}))
	mock.ExpectExec("INSERT INTO user").
		WithArgs("newbie", "secret").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.False(t, s.Verify("newbie", "secret", false))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyRejectsEmptyCredentials(t *testing.T) {
	s, _ := newTestService(t)
	require.False(t, s.Verify("", "secret", true))
	require.False(t, s.Verify("alice", "", true))
}
