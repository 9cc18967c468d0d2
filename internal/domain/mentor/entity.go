// Package mentor contains the mentor directory model.
package mentor

import (
	"strings"
)

// Mentor is a directory entry a learner can book.
type Mentor struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Skill        string   `json:"skill"`
	Bio          string   `json:"bio"`
	Rating       float64  `json:"rating"`
	Sessions     int      `json:"sessions"`
	Languages    []string `json:"languages"`
	Location     string   `json:"location"`
	Experience   string   `json:"experience"`
	Availability string   `json:"availability"`
	Tags         []string `json:"tags"`
	Price        string   `json:"price"`
	Avatar       string   `json:"avatar,omitempty"`
	IsOnline     bool     `json:"isOnline"`
}

// Clone returns a deep copy.
func (m Mentor) Clone() Mentor {
	m.Languages = append([]string(nil), m.Languages...)
	m.Tags = append([]string(nil), m.Tags...)
	return m
}

// Patch holds optional updates; nil means "don't change".
type Patch struct {
	Name         *string   `json:"name,omitempty"`
	Skill        *string   `json:"skill,omitempty"`
	Bio          *string   `json:"bio,omitempty"`
	Rating       *float64  `json:"rating,omitempty"`
	Sessions     *int      `json:"sessions,omitempty"`
	Languages    *[]string `json:"languages,omitempty"`
	Availability *string   `json:"availability,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
	Price        *string   `json:"price,omitempty"`
	IsOnline     *bool     `json:"isOnline,omitempty"`
}

// Apply returns a copy of m with every non-nil patch field applied.
func (m Mentor) Apply(p Patch) Mentor {
	c := m.Clone()
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Skill != nil {
		c.Skill = *p.Skill
	}
	if p.Bio != nil {
		c.Bio = *p.Bio
	}
	if p.Rating != nil {
		c.Rating = *p.Rating
	}
	if p.Sessions != nil {
		c.Sessions = *p.Sessions
	}
	if p.Languages != nil {
		c.Languages = append([]string(nil), (*p.Languages)...)
	}
	if p.Availability != nil {
		c.Availability = *p.Availability
	}
	if p.Tags != nil {
		c.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Price != nil {
		c.Price = *p.Price
	}
	if p.IsOnline != nil {
		c.IsOnline = *p.IsOnline
	}
	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// FILTERING
// ══════════════════════════════════════════════════════════════════════════════

// Filter narrows a directory listing. Zero values match everything.
type Filter struct {
	// Skill is a case-insensitive substring of the mentor's skill.
	Skill string

	// Language is a case-insensitive substring of any spoken language.
	Language string

	// OnlineOnly keeps only mentors with IsOnline set.
	OnlineOnly bool

	// Search is a case-insensitive substring of name, skill, bio or any tag.
	Search string
}

// Matches reports whether m passes every active criterion.
func (f Filter) Matches(m Mentor) bool {
	if f.Skill != "" && !containsFold(m.Skill, f.Skill) {
		return false
	}
	if f.Language != "" && !anyContainsFold(m.Languages, f.Language) {
		return false
	}
	if f.OnlineOnly && !m.IsOnline {
		return false
	}
	if f.Search != "" {
		if !containsFold(m.Name, f.Search) &&
			!containsFold(m.Skill, f.Search) &&
			!containsFold(m.Bio, f.Search) &&
			!anyContainsFold(m.Tags, f.Search) {
			return false
		}
	}
	return true
}

// Apply returns the mentors that match, preserving order.
func (f Filter) Apply(mentors []Mentor) []Mentor {
	out := make([]Mentor, 0, len(mentors))
	for _, m := range mentors {
		if f.Matches(m) {
			out = append(out, m)
		}
	}
	return out
}

// Skills returns the distinct skills in first-seen order.
func Skills(mentors []Mentor) []string {
	seen := make(map[string]struct{}, len(mentors))
	out := make([]string, 0, len(mentors))
	for _, m := range mentors {
		if _, ok := seen[m.Skill]; ok {
			continue
		}
		seen[m.Skill] = struct{}{}
		out = append(out, m.Skill)
	}
	return out
}

// Languages returns the distinct languages in first-seen order.
func Languages(mentors []Mentor) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, m := range mentors {
		for _, l := range m.Languages {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func anyContainsFold(list []string, sub string) bool {
	for _, s := range list {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}
