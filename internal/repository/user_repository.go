package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/zinlatt/courseware/internal/model"
)

var (
	// ErrEmailExists and ErrUsernameExists map MySQL duplicate-key
	// failures to the field the client collided on.
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")

	// ErrTokenRotated is returned by UpdateRefreshToken when the stored
	// refresh token no longer matches the value the caller read. A
	// concurrent request rotated first; the loser must be rejected
	// instead of silently overwriting the winner's session.
	ErrTokenRotated = errors.New("refresh token rotated concurrently")
)

// UserRepo persists users. The rand_token column doubles as the session
// store: it holds the one refresh token currently valid for the user.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id,username,email,password_hash,role,rand_token,image_id,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.RandToken, &u.ImageID, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts a user and returns its ID. randToken should be an
// unguessable placeholder; the real refresh token is written right after
// the first token pair is minted.
func (r *UserRepo) Create(ctx context.Context, username, email, passwordHash, role, randToken string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role, rand_token) VALUES (?,?,?,?,?)",
		username, email, passwordHash, role, randToken)
	if err != nil {
		low := strings.ToLower(err.Error())
		if strings.Contains(low, "1062") {
			if strings.Contains(low, "username") {
				return 0, ErrUsernameExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByUsername fetches a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE username=? LIMIT 1", username))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// SetRefreshToken unconditionally replaces the user's stored refresh
// token. Used on register, login and logout, where no prior value was
// read and last-write-wins is the intended behavior.
func (r *UserRepo) SetRefreshToken(ctx context.Context, id uint64, token string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET rand_token=? WHERE id=?", token, id)
	return err
}

// UpdateRefreshToken rotates the stored refresh token with a
// compare-and-swap against the previously read value. When two requests
// race on the same refresh token, exactly one UPDATE matches; the other
// sees zero affected rows and gets ErrTokenRotated.
func (r *UserRepo) UpdateRefreshToken(ctx context.Context, id uint64, oldToken, newToken string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET rand_token=? WHERE id=? AND rand_token=?", newToken, id, oldToken)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenRotated
	}
	return nil
}

// SetImage re-points the user's avatar to a new image row.
func (r *UserRepo) SetImage(ctx context.Context, id uint64, imageID *uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET image_id=? WHERE id=?", imageID, id)
	return err
}

// List returns users ordered by id, for the admin listing.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userCols+" FROM users ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
			&u.RandToken, &u.ImageID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
