// Package user contains the learner/mentor identity model.
package user

import (
	"strings"
	"time"

	"github.com/voicementor/voicementor/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Role describes how a person participates on the platform.
type Role string

const (
	RoleLearner Role = "learner"
	RoleMentor  Role = "mentor"
	RoleBoth    Role = "both"
)

// ParseRole normalizes a role string. "mentee" is accepted as an alias for learner.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "learner", "mentee":
		return RoleLearner, nil
	case "mentor":
		return RoleMentor, nil
	case "both":
		return RoleBoth, nil
	default:
		return "", shared.ErrInvalidRole
	}
}

// Achievement is an earned milestone shown on the user's profile.
type Achievement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
	EarnedDate  time.Time `json:"earnedDate"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// User is a registered learner, mentor, or both.
type User struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Phone        string        `json:"phone"`
	Role         Role          `json:"role"`
	Language     string        `json:"language"`
	Location     string        `json:"location"`
	Interests    []string      `json:"interests"`
	Level        string        `json:"level"`
	Progress     int           `json:"progress"`
	Sessions     int           `json:"sessions"`
	Achievements []Achievement `json:"achievements"`
	Avatar       string        `json:"avatar,omitempty"`
	JoinedDate   time.Time     `json:"joinedDate"`

	// PinHash is the bcrypt hash of the optional login PIN. Never serialized.
	PinHash string `json:"-"`
}

// Validate checks the presence of the fields every user must carry.
func (u *User) Validate() error {
	if u.Name == "" || u.Phone == "" || u.Role == "" {
		return shared.ErrUserFieldsMissing
	}
	if _, err := ParseRole(string(u.Role)); err != nil {
		return err
	}
	return nil
}

// HasPin reports whether login requires a PIN.
func (u *User) HasPin() bool {
	return u.PinHash != ""
}

// Clone returns a deep copy so callers can mutate freely.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Interests = append([]string(nil), u.Interests...)
	c.Achievements = append([]Achievement(nil), u.Achievements...)
	return &c
}

// Patch holds optional updates; nil means "don't change".
type Patch struct {
	Name      *string   `json:"name,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Role      *Role     `json:"role,omitempty"`
	Language  *string   `json:"language,omitempty"`
	Location  *string   `json:"location,omitempty"`
	Interests *[]string `json:"interests,omitempty"`
	Level     *string   `json:"level,omitempty"`
	Progress  *int      `json:"progress,omitempty"`
	Sessions  *int      `json:"sessions,omitempty"`
	Avatar    *string   `json:"avatar,omitempty"`
}

// Apply returns a copy of u with every non-nil patch field applied.
func (u *User) Apply(p Patch) *User {
	c := u.Clone()
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Role != nil {
		c.Role = *p.Role
	}
	if p.Language != nil {
		c.Language = *p.Language
	}
	if p.Location != nil {
		c.Location = *p.Location
	}
	if p.Interests != nil {
		c.Interests = append([]string(nil), (*p.Interests)...)
	}
	if p.Level != nil {
		c.Level = *p.Level
	}
	if p.Progress != nil {
		c.Progress = *p.Progress
	}
	if p.Sessions != nil {
		c.Sessions = *p.Sessions
	}
	if p.Avatar != nil {
		c.Avatar = *p.Avatar
	}
	return c
}
