package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/internal/domain/user"
)

// UserRepository implements user.Repository on PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

var _ user.Repository = (*UserRepository)(nil)

const userColumns = `id, name, phone, role, language, location, interests, level,
	progress, sessions, achievements, avatar, pin_hash, joined_date`

// Create inserts a new user. A duplicate phone yields shared.ErrPhoneTaken.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	achievements, err := json.Marshal(nonNil(u.Achievements))
	if err != nil {
		return fmt.Errorf("failed to encode achievements: %w", err)
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.conn.Exec(ctx, query,
		u.ID, u.Name, u.Phone, string(u.Role), u.Language, u.Location,
		nonNil(u.Interests), u.Level, u.Progress, u.Sessions, achievements,
		u.Avatar, u.PinHash, u.JoinedDate,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrPhoneTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByPhone retrieves a user by phone number.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*user.User, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
	u, err := scanUser(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPhoneNotFound
		}
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}
	return u, nil
}

// List returns every user in registration order.
func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	out := make([]*user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update replaces every mutable column of the user.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	achievements, err := json.Marshal(nonNil(u.Achievements))
	if err != nil {
		return fmt.Errorf("failed to encode achievements: %w", err)
	}

	query := `
		UPDATE users SET
			name = $2, phone = $3, role = $4, language = $5, location = $6,
			interests = $7, level = $8, progress = $9, sessions = $10,
			achievements = $11, avatar = $12, pin_hash = $13
		WHERE id = $1
	`
	tag, err := r.conn.Exec(ctx, query,
		u.ID, u.Name, u.Phone, string(u.Role), u.Language, u.Location,
		nonNil(u.Interests), u.Level, u.Progress, u.Sessions, achievements,
		u.Avatar, u.PinHash,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrPhoneTaken
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		u            user.User
		role         string
		achievements []byte
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Phone, &role, &u.Language, &u.Location,
		&u.Interests, &u.Level, &u.Progress, &u.Sessions, &achievements,
		&u.Avatar, &u.PinHash, &u.JoinedDate,
	)
	if err != nil {
		return nil, err
	}
	u.Role = user.Role(role)
	if len(achievements) > 0 {
		if err := json.Unmarshal(achievements, &u.Achievements); err != nil {
			return nil, fmt.Errorf("failed to decode achievements: %w", err)
		}
	}
	return &u, nil
}

// nonNil keeps NOT NULL array and JSON columns from receiving NULL.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
