package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/domain/shared"
)

// SessionRepository implements session.Repository on PostgreSQL.
type SessionRepository struct {
	conn *Connection
}

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

var _ session.Repository = (*SessionRepository)(nil)

const sessionColumns = `id, mentor_id, mentor_name, user_id, skill, scheduled_time,
	duration, status, type, notes, rating, created_at`

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.conn.Exec(ctx, query,
		s.ID, s.MentorID, s.MentorName, s.UserID, s.Skill, s.ScheduledTime,
		s.Duration, string(s.Status), string(s.Type), s.Notes, s.Rating, s.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewError("session.Create", shared.ErrAlreadyExists, "Session already exists")
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*session.Session, error) {
	s, err := scanSession(r.conn.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// List returns every session in creation order.
func (r *SessionRepository) List(ctx context.Context) ([]session.Session, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]session.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SessionRepository) Update(ctx context.Context, s *session.Session) error {
	query := `
		UPDATE sessions SET
			mentor_name = $2, skill = $3, scheduled_time = $4, duration = $5,
			status = $6, type = $7, notes = $8, rating = $9
		WHERE id = $1
	`
	tag, err := r.conn.Exec(ctx, query,
		s.ID, s.MentorName, s.Skill, s.ScheduledTime, s.Duration,
		string(s.Status), string(s.Type), s.Notes, s.Rating,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrSessionNotFound
	}
	return nil
}

func scanSession(row pgx.Row) (session.Session, error) {
	var (
		s      session.Session
		status string
		kind   string
	)
	err := row.Scan(
		&s.ID, &s.MentorID, &s.MentorName, &s.UserID, &s.Skill, &s.ScheduledTime,
		&s.Duration, &status, &kind, &s.Notes, &s.Rating, &s.CreatedAt,
	)
	s.Status = session.Status(status)
	s.Type = session.Kind(kind)
	return s, err
}
