package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/shared"
)

// MentorRepository implements mentor.Repository on PostgreSQL.
type MentorRepository struct {
	conn *Connection
}

// NewMentorRepository creates a new PostgreSQL mentor repository.
func NewMentorRepository(conn *Connection) *MentorRepository {
	return &MentorRepository{conn: conn}
}

var _ mentor.Repository = (*MentorRepository)(nil)

const mentorColumns = `id, name, skill, bio, rating, sessions, languages, location,
	experience, availability, tags, price, avatar, is_online`

// List returns the directory in seed order.
func (r *MentorRepository) List(ctx context.Context) ([]mentor.Mentor, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+mentorColumns+` FROM mentors ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentors: %w", err)
	}
	defer rows.Close()

	out := make([]mentor.Mentor, 0)
	for rows.Next() {
		m, err := scanMentor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mentor: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetByID retrieves a mentor by ID.
func (r *MentorRepository) GetByID(ctx context.Context, id string) (*mentor.Mentor, error) {
	m, err := scanMentor(r.conn.QueryRow(ctx, `SELECT `+mentorColumns+` FROM mentors WHERE id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrMentorNotFound
		}
		return nil, fmt.Errorf("failed to get mentor: %w", err)
	}
	return &m, nil
}

// Update replaces every column of the mentor.
func (r *MentorRepository) Update(ctx context.Context, m *mentor.Mentor) error {
	query := `
		UPDATE mentors SET
			name = $2, skill = $3, bio = $4, rating = $5, sessions = $6,
			languages = $7, location = $8, experience = $9, availability = $10,
			tags = $11, price = $12, avatar = $13, is_online = $14
		WHERE id = $1
	`
	tag, err := r.conn.Exec(ctx, query, mentorArgs(*m)...)
	if err != nil {
		return fmt.Errorf("failed to update mentor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrMentorNotFound
	}
	return nil
}

// Seed upserts the given mentors in one transaction. Existing rows keep their position.
func (r *MentorRepository) Seed(ctx context.Context, mentors []mentor.Mentor) error {
	query := `
		INSERT INTO mentors (` + mentorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, skill = EXCLUDED.skill, bio = EXCLUDED.bio,
			rating = EXCLUDED.rating, sessions = EXCLUDED.sessions,
			languages = EXCLUDED.languages, location = EXCLUDED.location,
			experience = EXCLUDED.experience, availability = EXCLUDED.availability,
			tags = EXCLUDED.tags, price = EXCLUDED.price, avatar = EXCLUDED.avatar,
			is_online = EXCLUDED.is_online
	`
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, m := range mentors {
			batch.Queue(query, mentorArgs(m)...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to seed mentors: %w", err)
		}
		return nil
	})
}

func mentorArgs(m mentor.Mentor) []any {
	return []any{
		m.ID, m.Name, m.Skill, m.Bio, m.Rating, m.Sessions, nonNil(m.Languages),
		m.Location, m.Experience, m.Availability, nonNil(m.Tags), m.Price, m.Avatar, m.IsOnline,
	}
}

func scanMentor(row pgx.Row) (mentor.Mentor, error) {
	var m mentor.Mentor
	err := row.Scan(
		&m.ID, &m.Name, &m.Skill, &m.Bio, &m.Rating, &m.Sessions, &m.Languages,
		&m.Location, &m.Experience, &m.Availability, &m.Tags, &m.Price, &m.Avatar, &m.IsOnline,
	)
	return m, err
}
