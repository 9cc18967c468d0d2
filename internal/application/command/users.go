// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/facebookgo/clock"
	"golang.org/x/crypto/bcrypt"

	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/internal/domain/user"
	"github.com/voicementor/voicementor/pkg/logger"
)

// EventPublisher publishes domain events after a command commits.
type EventPublisher interface {
	Publish(event shared.Event) error
}

// Deps bundles what every handler in this package needs.
type Deps struct {
	Publisher EventPublisher
	Clock     clock.Clock
	NewID     shared.IDGenerator
	Logger    *logger.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.NewID == nil {
		d.NewID = shared.NewID
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return d
}

// publish never fails the command; the write has already happened.
func (d Deps) publish(e shared.Event) {
	if d.Publisher == nil {
		return
	}
	if err := d.Publisher.Publish(e); err != nil {
		d.Logger.Warn("failed to publish event",
			logger.String("event_type", string(e.EventType())),
			logger.Err(err),
		)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand carries the onboarding form. ID is generated when empty.
type RegisterUserCommand struct {
	ID        string
	Name      string
	Phone     string
	Role      string
	Language  string
	Location  string
	Interests []string
	Level     string
	Progress  int
	Sessions  int
	Avatar    string

	// Pin is optional. When set, login requires it.
	Pin string
}

// Validate checks the fields every user must carry.
func (c RegisterUserCommand) Validate() error {
	if c.Name == "" || c.Phone == "" || c.Role == "" {
		return shared.ErrUserFieldsMissing
	}
	_, err := user.ParseRole(c.Role)
	return err
}

// RegisterUserHandler handles RegisterUserCommand.
type RegisterUserHandler struct {
	users   user.Repository
	deps    Deps
	pinCost int
}

// NewRegisterUserHandler creates the handler. pinCost of 0 uses bcrypt.DefaultCost.
func NewRegisterUserHandler(users user.Repository, deps Deps, pinCost int) *RegisterUserHandler {
	if pinCost == 0 {
		pinCost = bcrypt.DefaultCost
	}
	return &RegisterUserHandler{users: users, deps: deps.withDefaults(), pinCost: pinCost}
}

// Handle stores the user and publishes UserRegistered.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*user.User, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	role, _ := user.ParseRole(cmd.Role)

	u := &user.User{
		ID:           cmd.ID,
		Name:         cmd.Name,
		Phone:        cmd.Phone,
		Role:         role,
		Language:     cmd.Language,
		Location:     cmd.Location,
		Interests:    append([]string{}, cmd.Interests...),
		Level:        cmd.Level,
		Progress:     cmd.Progress,
		Sessions:     cmd.Sessions,
		Achievements: []user.Achievement{},
		Avatar:       cmd.Avatar,
		JoinedDate:   h.deps.Clock.Now().UTC(),
	}
	if u.ID == "" {
		u.ID = h.deps.NewID()
	}
	if cmd.Pin != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Pin), h.pinCost)
		if err != nil {
			return nil, fmt.Errorf("register_user: failed to hash pin: %w", err)
		}
		u.PinHash = string(hash)
	}

	if err := h.users.Create(ctx, u); err != nil {
		return nil, err
	}

	h.deps.Logger.Info("user registered", logger.UserID(u.ID), logger.String("role", string(u.Role)))
	h.deps.publish(shared.NewUserRegisteredEvent(u.ID, u.Name, string(u.Role)))
	return u, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LOGIN
// ══════════════════════════════════════════════════════════════════════════════

// LoginCommand identifies a user by phone, optionally proving a PIN.
type LoginCommand struct {
	Phone string
	Pin   string
}

// LoginHandler handles LoginCommand.
type LoginHandler struct {
	users user.Repository
	deps  Deps
}

func NewLoginHandler(users user.Repository, deps Deps) *LoginHandler {
	return &LoginHandler{users: users, deps: deps.withDefaults()}
}

// Handle returns the user owning the phone. Users with a PIN must supply it.
func (h *LoginHandler) Handle(ctx context.Context, cmd LoginCommand) (*user.User, error) {
	if cmd.Phone == "" {
		return nil, shared.ErrPhoneRequired
	}
	u, err := h.users.GetByPhone(ctx, cmd.Phone)
	if err != nil {
		return nil, err
	}
	if u.HasPin() {
		err := bcrypt.CompareHashAndPassword([]byte(u.PinHash), []byte(cmd.Pin))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, shared.ErrInvalidPin
		}
		if err != nil {
			return nil, fmt.Errorf("login: failed to verify pin: %w", err)
		}
	}

	h.deps.publish(loggedInEvent(u.ID, h.deps.Clock))
	return u, nil
}

// UserLoggedInEvent is published after a successful login.
type UserLoggedInEvent struct {
	shared.BaseEvent
}

// Payload returns the event data.
func (e UserLoggedInEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"user_id": e.AggregateId}
}

func loggedInEvent(userID string, clk clock.Clock) UserLoggedInEvent {
	base := shared.NewBaseEvent(shared.EventUserLoggedIn, userID)
	base.Timestamp = clk.Now().UTC()
	return UserLoggedInEvent{BaseEvent: base}
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE USER
// ══════════════════════════════════════════════════════════════════════════════

// UpdateUserCommand shallow-merges Patch into the user. The ID never changes.
type UpdateUserCommand struct {
	ID    string
	Patch user.Patch
}

// UpdateUserHandler handles UpdateUserCommand.
type UpdateUserHandler struct {
	users user.Repository
	deps  Deps
}

func NewUpdateUserHandler(users user.Repository, deps Deps) *UpdateUserHandler {
	return &UpdateUserHandler{users: users, deps: deps.withDefaults()}
}

func (h *UpdateUserHandler) Handle(ctx context.Context, cmd UpdateUserCommand) (*user.User, error) {
	current, err := h.users.GetByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	if cmd.Patch.Role != nil {
		role, err := user.ParseRole(string(*cmd.Patch.Role))
		if err != nil {
			return nil, err
		}
		cmd.Patch.Role = &role
	}

	updated := current.Apply(cmd.Patch)
	updated.ID = current.ID
	if err := h.users.Update(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}
