package model

import "time"

// Roles assignable to a user. ADMIN unlocks the catalog management
// endpoints; everyone else registers as USER.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User represents an application user record as stored in the `users`
// table. The rand_token column holds the single currently-valid refresh
// token for the account: issuing a new one invalidates the prior one,
// which is how refresh-token reuse is detected. It is never cleared,
// only replaced (on logout it becomes a fresh random value so the old
// refresh token dies immediately).
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique display name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – ADMIN or USER.
//  RandToken    – the sole valid refresh token (or a random placeholder).
//  ImageID      – optional avatar image (images.id), nil when unset.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	RandToken    string    // users.rand_token
	ImageID      *uint64   // users.image_id (nullable)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
