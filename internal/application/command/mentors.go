package command

import (
	"context"

	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE MENTOR STATUS
// ══════════════════════════════════════════════════════════════════════════════

// UpdateMentorStatusCommand toggles presence. A nil IsOnline and an empty
// Availability leave the respective field untouched.
type UpdateMentorStatusCommand struct {
	MentorID     string
	IsOnline     *bool
	Availability string
}

// UpdateMentorStatusHandler handles UpdateMentorStatusCommand.
type UpdateMentorStatusHandler struct {
	mentors mentor.Repository
	deps    Deps
}

func NewUpdateMentorStatusHandler(mentors mentor.Repository, deps Deps) *UpdateMentorStatusHandler {
	return &UpdateMentorStatusHandler{mentors: mentors, deps: deps.withDefaults()}
}

// Handle applies the status and publishes MentorWentOnline/Offline when the
// online flag actually flips.
func (h *UpdateMentorStatusHandler) Handle(ctx context.Context, cmd UpdateMentorStatusCommand) (*mentor.Mentor, error) {
	m, err := h.mentors.GetByID(ctx, cmd.MentorID)
	if err != nil {
		return nil, err
	}

	var patch mentor.Patch
	patch.IsOnline = cmd.IsOnline
	if cmd.Availability != "" {
		avail := cmd.Availability
		patch.Availability = &avail
	}
	updated := m.Apply(patch)
	if err := h.mentors.Update(ctx, &updated); err != nil {
		return nil, err
	}

	if cmd.IsOnline != nil && *cmd.IsOnline != m.IsOnline {
		h.deps.Logger.Info("mentor status changed",
			logger.MentorID(updated.ID),
			logger.Bool("online", updated.IsOnline),
		)
		ev := shared.NewMentorStatusChangedEvent(updated.ID, updated.Name, updated.IsOnline, updated.Availability)
		ev.Timestamp = h.deps.Clock.Now().UTC()
		h.deps.publish(ev)
	}
	return &updated, nil
}
