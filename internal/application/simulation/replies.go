package simulation

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"

	"github.com/voicementor/voicementor/internal/domain/interactive"
	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/pkg/logger"
)

const (
	replyMinDelay    = 2 * time.Second
	replyDelaySpread = 3 * time.Second
)

// CannedReplies are what a simulated mentor answers with.
var CannedReplies = []string{
	"That's a great question! Let me explain...",
	"I understand what you're asking. Here's my approach:",
	"Excellent! You're making good progress.",
	"Let me share a quick tip that might help:",
	"I can help you with that. Let's break it down:",
	"Good thinking! Have you considered...",
	"मैं समझ गया। आइए इसे step by step करते हैं।",
	"Perfect! That's exactly the right approach.",
}

// ReplierOptions configures a Replier.
type ReplierOptions struct {
	Clock  clock.Clock
	Rand   Rand
	NewID  shared.IDGenerator
	Logger *logger.Logger

	// Self returns the signed-in user's id.
	Self func() (string, bool)

	// MentorName resolves a mentor id. Messages to anyone else get no reply.
	MentorName func(id string) (string, bool)

	// Allowed reports whether userID gets simulated replies. Nil allows all.
	Allowed func(userID string) bool
}

// Replier answers the user's chat messages on behalf of mentors.
type Replier struct {
	clock      clock.Clock
	rng        Rand
	msgs       interactive.Reducer
	self       func() (string, bool)
	mentorName func(string) (string, bool)
	allowed    func(string) bool
	log        *logger.Logger

	mu          sync.Mutex
	ix          *InteractiveStore
	unsubscribe func()
	pending     map[string]*clock.Timer
	stopped     bool
}

// NewReplier creates a replier. It does nothing until Attach.
func NewReplier(opts ReplierOptions) *Replier {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Rand == nil {
		opts.Rand = DefaultRand()
	}
	if opts.NewID == nil {
		opts.NewID = shared.NewID
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Self == nil {
		opts.Self = func() (string, bool) { return "", false }
	}
	if opts.MentorName == nil {
		opts.MentorName = func(string) (string, bool) { return "", false }
	}
	if opts.Allowed == nil {
		opts.Allowed = func(string) bool { return true }
	}
	return &Replier{
		clock:      opts.Clock,
		rng:        opts.Rand,
		msgs:       interactive.Reducer{NewID: opts.NewID, Now: opts.Clock.Now},
		self:       opts.Self,
		mentorName: opts.MentorName,
		allowed:    opts.Allowed,
		log:        opts.Logger.With(logger.Component("reply_simulator")),
		pending:    make(map[string]*clock.Timer),
	}
}

// Attach starts watching ix for outgoing messages.
func (r *Replier) Attach(ix *InteractiveStore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ix = ix
	r.stopped = false
	r.unsubscribe = ix.Subscribe(r.onChange)
}

// Pending reports how many replies are scheduled.
func (r *Replier) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Stop cancels every scheduled reply and detaches from the store.
func (r *Replier) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	for id, t := range r.pending {
		t.Stop()
		delete(r.pending, id)
	}
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

func (r *Replier) onChange(_, _ interactive.State, action interactive.Action) {
	add, ok := action.(interactive.AddChatMessage)
	if !ok {
		return
	}
	msg := add.Message
	self, ok := r.self()
	if !ok || msg.SenderID != self || !r.allowed(self) {
		return
	}
	mentorID := msg.ReceiverID
	mentorName, ok := r.mentorName(mentorID)
	if !ok {
		return
	}

	r.mu.Lock()
	if r.stopped || r.ix == nil {
		r.mu.Unlock()
		return
	}
	ix := r.ix
	delay := replyMinDelay + time.Duration(r.rng.Float64()*float64(replyDelaySpread))
	text := CannedReplies[r.rng.IntN(len(CannedReplies))]
	r.pending[msg.ID] = r.clock.AfterFunc(delay, func() {
		r.reply(ix, msg.ID, self, mentorID, mentorName, text)
	})
	r.mu.Unlock()

	// queued by the store behind the current notification
	if err := ix.Dispatch(interactive.SetTypingIndicator{UserID: mentorID, Typing: true}); err != nil {
		r.log.Debug("typing indicator dropped", logger.Err(err))
	}
}

func (r *Replier) reply(ix *InteractiveStore, key, self, mentorID, mentorName, text string) {
	r.mu.Lock()
	if _, ok := r.pending[key]; !ok || r.stopped {
		r.mu.Unlock()
		return
	}
	delete(r.pending, key)
	r.mu.Unlock()

	actions := []interactive.Action{
		interactive.SetTypingIndicator{UserID: mentorID, Typing: false},
		interactive.AddChatMessage{Message: r.msgs.NewMessage(mentorID, mentorName, self, text, interactive.MessageText)},
	}
	for _, a := range actions {
		if err := ix.Dispatch(a); err != nil {
			r.log.Debug("simulated reply dropped", logger.MentorID(mentorID), logger.Err(err))
			return
		}
	}
}
