package query

import (
	"context"

	"github.com/voicementor/voicementor/internal/domain/mentor"
)

// ══════════════════════════════════════════════════════════════════════════════
// MENTOR DIRECTORY QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// ListMentorsQuery mirrors the GET /api/mentors query string.
type ListMentorsQuery struct {
	Skill      string
	Language   string
	OnlineOnly bool
	Search     string
}

func (q ListMentorsQuery) filter() mentor.Filter {
	return mentor.Filter{
		Skill:      q.Skill,
		Language:   q.Language,
		OnlineOnly: q.OnlineOnly,
		Search:     q.Search,
	}
}

// MentorQueries reads the mentor directory.
type MentorQueries struct {
	mentors mentor.Repository
}

func NewMentorQueries(mentors mentor.Repository) *MentorQueries {
	return &MentorQueries{mentors: mentors}
}

// List returns the mentors matching every supplied filter, in directory order.
func (q *MentorQueries) List(ctx context.Context, lq ListMentorsQuery) ([]mentor.Mentor, error) {
	all, err := q.mentors.List(ctx)
	if err != nil {
		return nil, err
	}
	return lq.filter().Apply(all), nil
}

// Get returns shared.ErrMentorNotFound when absent.
func (q *MentorQueries) Get(ctx context.Context, id string) (*mentor.Mentor, error) {
	return q.mentors.GetByID(ctx, id)
}

// Skills returns the distinct skills in first-seen order.
func (q *MentorQueries) Skills(ctx context.Context) ([]string, error) {
	all, err := q.mentors.List(ctx)
	if err != nil {
		return nil, err
	}
	return mentor.Skills(all), nil
}

// Languages returns the distinct languages in first-seen order.
func (q *MentorQueries) Languages(ctx context.Context) ([]string, error) {
	all, err := q.mentors.List(ctx)
	if err != nil {
		return nil, err
	}
	return mentor.Languages(all), nil
}
