package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/courierchat/server/internal/utils"
)

// SessionRepo persists/validates opaque session tokens (single
// 'token_hash' column, SHA-256 of the raw value).
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Issue generates a fresh session token for a user and persists its
// hash with an expiry ttlDays from now. On the (astronomically rare)
// collision with a live token the draw is repeated.
func (r *SessionRepo) Issue(ctx context.Context, userID uint64, ttlDays int) (utils.SessionToken, error) {
	for {
		tok, err := utils.NewSessionToken(ttlDays)
		if err != nil {
			return utils.SessionToken{}, err
		}
		hash := utils.HashSessionRaw(tok.Raw)

		var exists bool
		err = r.DB.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM sessions WHERE token_hash=?)", hash).Scan(&exists)
		if err != nil {
			return utils.SessionToken{}, err
		}
		if exists {
			continue
		}

		_, err = r.DB.ExecContext(ctx,
			"INSERT INTO sessions (user_id, token_hash, expires_at) VALUES (?,?,?)",
			userID, hash, tok.Exp)
		if err != nil {
			return utils.SessionToken{}, err
		}
		return tok, nil
	}
}

// Resolve returns the user ID a raw token belongs to. Missing and
// expired sessions both report ErrSessionNotFound; an expired row is
// reaped on the way out so the table does not accumulate dead sessions.
func (r *SessionRepo) Resolve(ctx context.Context, raw string) (uint64, error) {
	hash := utils.HashSessionRaw(raw)
	var (
		userID    uint64
		expiresAt time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM sessions WHERE token_hash=? LIMIT 1",
		hash).Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, err
	}
	if time.Now().UTC().After(expiresAt) {
		_, _ = r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE token_hash=?", hash)
		return 0, ErrSessionNotFound
	}
	return userID, nil
}

// RevokeToken deletes the session belonging to a raw token (logout of a
// single session).
func (r *SessionRepo) RevokeToken(ctx context.Context, raw string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM sessions WHERE token_hash=?", utils.HashSessionRaw(raw))
	return err
}

// RevokeAllForUser deletes every session a user owns. Used by account
// deletion.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM sessions WHERE user_id=?", userID)
	return err
}
