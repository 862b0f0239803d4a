package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/courierchat/server/internal/model"
)

// CredentialKind selects which column GetByCredential matches against.
// Adding a kind is a compile-time-checked change: the repository switch
// rejects unknown values instead of falling through to a default query.
type CredentialKind int

const (
	CredentialID CredentialKind = iota
	CredentialLogin
	CredentialEmail
)

// Credential is a tagged lookup value for GetByCredential.
type Credential struct {
	Kind  CredentialKind
	Value string
}

// ByID, ByLogin and ByEmail build Credential values without the caller
// spelling the tag.
func ByID(id string) Credential       { return Credential{Kind: CredentialID, Value: id} }
func ByLogin(login string) Credential { return Credential{Kind: CredentialLogin, Value: login} }
func ByEmail(email string) Credential { return Credential{Kind: CredentialEmail, Value: email} }

// UserRepo provides persistence for the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,login,email,display_name,password_hash,avatar,is_confirmed,created_at,updated_at"

// Create inserts a user and returns its ID. The pre-insert lookups are
// advisory, giving precise error codes for the common case; the unique
// indexes on login and email remain authoritative under concurrent
// registration, so a duplicate-key failure is mapped back onto the same
// sentinels.
func (r *UserRepo) Create(ctx context.Context, login, email, passwordHash string, displayName *string) (uint64, error) {
	login = strings.TrimSpace(login)
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := r.GetByCredential(ctx, ByLogin(login)); err == nil {
		return 0, ErrLoginExists
	} else if err != ErrUserNotFound {
		return 0, err
	}
	if _, err := r.GetByCredential(ctx, ByEmail(email)); err == nil {
		return 0, ErrEmailExists
	} else if err != ErrUserNotFound {
		return 0, err
	}

	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (login, email, display_name, password_hash) VALUES (?,?,?,?)",
		login, email, displayName, passwordHash)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			if strings.Contains(err.Error(), "email") {
				return 0, ErrEmailExists
			}
			return 0, ErrLoginExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByCredential fetches a user by the tagged credential. A
// syntactically invalid ID returns ErrUserNotFound rather than an
// error: malformed lookups degrade to absence.
func (r *UserRepo) GetByCredential(ctx context.Context, cred Credential) (model.User, error) {
	var (
		where string
		arg   any
	)
	switch cred.Kind {
	case CredentialID:
		id, err := strconv.ParseUint(cred.Value, 10, 64)
		if err != nil || id == 0 {
			return model.User{}, ErrUserNotFound
		}
		where, arg = "id=?", id
	case CredentialLogin:
		where, arg = "login=?", strings.TrimSpace(cred.Value)
	case CredentialEmail:
		where, arg = "email=?", strings.ToLower(strings.TrimSpace(cred.Value))
	default:
		return model.User{}, ErrUserNotFound
	}
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg))
}

// GetByID is a convenience wrapper for numeric primary-key lookups.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// Search returns users whose login or display name contains the query,
// case-insensitively, capped at limit rows.
func (r *UserRepo) Search(ctx context.Context, query string, limit int) ([]model.User, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE LOWER(login) LIKE ? OR LOWER(display_name) LIKE ? ORDER BY login LIMIT ?",
		pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Confirm marks the account with the given login as confirmed.
func (r *UserRepo) Confirm(ctx context.Context, login string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_confirmed=1 WHERE login=?", login)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Already-confirmed accounts report zero affected rows on some
		// drivers; distinguish by checking existence.
		if _, err := r.GetByCredential(ctx, ByLogin(login)); err != nil {
			return err
		}
	}
	return nil
}

// UpdateProfile mutates the optional profile fields. Nil pointers leave
// the corresponding column untouched.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, displayName, avatar *string) error {
	sets := []string{}
	args := []any{}
	if displayName != nil {
		sets = append(sets, "display_name=?")
		args = append(args, *displayName)
	}
	if avatar != nil {
		sets = append(sets, "avatar=?")
		args = append(args, *avatar)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	return err
}

// Delete removes the user row. Sessions and messages are not cascaded
// here; the caller orchestrates session revocation, and authored
// messages outlive the account on purpose.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	u, err := r.scanRow(row)
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

func (r *UserRepo) scanRow(s rowScanner) (model.User, error) {
	var (
		u           model.User
		displayName sql.NullString
		avatar      sql.NullString
	)
	err := s.Scan(&u.ID, &u.Login, &u.Email, &displayName, &u.PasswordHash,
		&avatar, &u.IsConfirmed, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if displayName.Valid {
		u.DisplayName = &displayName.String
	}
	if avatar.Valid {
		u.Avatar = &avatar.String
	}
	return u, nil
}
