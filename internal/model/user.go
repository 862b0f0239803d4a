package model

import "time"

// User represents a registered account as stored in the `users`
// table. Each field corresponds to a column in the database. The
// json tags are omitted here because these structs are used
// internally by the repository layer; handlers define separate
// response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Login        – unique login name.
//  Email        – unique email address.
//  DisplayName  – optional human-readable name (nullable).
//  PasswordHash – bcrypt hashed password.
//  Avatar       – optional avatar reference (nullable).
//  IsConfirmed  – whether the account has been confirmed.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Login        string    // users.login
	Email        string    // users.email
	DisplayName  *string   // users.display_name (nullable)
	PasswordHash string    // users.password_hash
	Avatar       *string   // users.avatar (nullable)
	IsConfirmed  bool      // users.is_confirmed
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
