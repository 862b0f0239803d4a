package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/courierchat/server/internal/utils"
)

func newSessionRepoWithMock(t *testing.T) (*SessionRepo, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewSessionRepo(db), mock, db
}

const (
	existsQuery  = `SELECT EXISTS\(SELECT 1 FROM sessions WHERE token_hash=\?\)`
	resolveQuery = `SELECT user_id, expires_at FROM sessions WHERE token_hash=\? LIMIT 1`
)

func TestIssue_StoresHashedToken(t *testing.T) {
	repo, mock, db := newSessionRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(existsQuery).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions (user_id, token_hash, expires_at) VALUES (?,?,?)")).
		WithArgs(uint64(7), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	tok, err := repo.Issue(context.Background(), 7, 7)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if len(tok.Raw) != 96 {
		t.Fatalf("unexpected raw token length: %d", len(tok.Raw))
	}
	want := time.Now().UTC().Add(7 * 24 * time.Hour)
	if diff := tok.Exp.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("unexpected expiry: %v", tok.Exp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIssue_RedrawsOnCollision(t *testing.T) {
	repo, mock, db := newSessionRepoWithMock(t)
	defer db.Close()

	// First draw collides with a live token; the second goes through.
	mock.ExpectQuery(existsQuery).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(existsQuery).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(uint64(7), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if _, err := repo.Issue(context.Background(), 7, 7); err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResolve_Valid(t *testing.T) {
	repo, mock, db := newSessionRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(resolveQuery).
		WithArgs(utils.HashSessionRaw("raw-token")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at"}).
			AddRow(uint64(42), time.Now().UTC().Add(time.Hour)))

	uid, err := repo.Resolve(context.Background(), "raw-token")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if uid != 42 {
		t.Fatalf("unexpected user id: %d", uid)
	}
}

func TestResolve_Missing(t *testing.T) {
	repo, mock, db := newSessionRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(resolveQuery).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Resolve(context.Background(), "unknown-token")
	if err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestResolve_ExpiredIsAbsentAndReaped(t *testing.T) {
	repo, mock, db := newSessionRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(resolveQuery).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at"}).
			AddRow(uint64(42), time.Now().UTC().Add(-time.Hour)))
	mock.ExpectExec(`DELETE FROM sessions WHERE token_hash=\?`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := repo.Resolve(context.Background(), "stale-token")
	if err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRevokeAllForUser(t *testing.T) {
	repo, mock, db := newSessionRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM sessions WHERE user_id=\?`).
		WithArgs(uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.RevokeAllForUser(context.Background(), 42); err != nil {
		t.Fatalf("RevokeAllForUser error: %v", err)
	}
}
