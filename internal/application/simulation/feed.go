// Package simulation produces the client's simulated real-time activity:
// the live feed, mentor chat replies and celebration expiry. Every timer comes
// from an injected clock so tests drive time explicitly.
package simulation

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/facebookgo/clock"

	"github.com/voicementor/voicementor/internal/application/store"
	"github.com/voicementor/voicementor/internal/domain/interactive"
	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/internal/infrastructure/scheduler"
	"github.com/voicementor/voicementor/pkg/logger"
)

// InteractiveStore is the store every simulator dispatches into.
type InteractiveStore = store.Store[interactive.State, interactive.Action]

// Rand is the randomness a simulator draws from.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// DefaultRand draws from math/rand/v2's global source.
func DefaultRand() Rand { return globalRand{} }

const (
	// FeedInterval is how often the feed job runs.
	FeedInterval = 10 * time.Second

	// feedThreshold makes roughly three runs in ten publish an event.
	feedThreshold = 0.7

	FeedJobName = "live-feed"
)

type feedTemplate struct {
	kind        interactive.LiveEventType
	title       string
	description string
}

var feedTemplates = []feedTemplate{
	{interactive.EventMentorOnline, "Mentor Online", "Priya Singh is now available for sessions"},
	{interactive.EventSessionStarting, "Session Reminder", "Your session starts in 15 minutes"},
}

// FeedOptions configures a Feed. Zero values fall back to production defaults.
type FeedOptions struct {
	Clock  clock.Clock
	Rand   Rand
	NewID  shared.IDGenerator
	Logger *logger.Logger
}

// Feed publishes a simulated live event on some of its runs.
type Feed struct {
	ix    *InteractiveStore
	clock clock.Clock
	rng   Rand
	newID shared.IDGenerator
	log   *logger.Logger
}

// NewFeed creates a feed that dispatches into ix.
func NewFeed(ix *InteractiveStore, opts FeedOptions) *Feed {
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
	return &Feed{
		ix:    ix,
		clock: opts.Clock,
		rng:   opts.Rand,
		newID: opts.NewID,
		log:   opts.Logger.With(logger.Component("live_feed")),
	}
}

// Name implements scheduler.Job.
func (f *Feed) Name() string { return FeedJobName }

// Description implements scheduler.Job.
func (f *Feed) Description() string { return "publishes simulated live activity" }

// Run implements scheduler.Job. It returns nil when the draw publishes nothing.
func (f *Feed) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.rng.Float64() <= feedThreshold {
		return nil
	}

	tpl := feedTemplates[f.rng.IntN(len(feedTemplates))]
	ev := interactive.LiveEvent{
		ID:          f.newID(),
		Type:        tpl.kind,
		Title:       tpl.title,
		Description: tpl.description,
		Timestamp:   f.clock.Now(),
		Data:        map[string]any{},
	}
	if err := f.ix.Dispatch(interactive.AddLiveEvent{Event: ev}); err != nil {
		return err
	}
	f.log.Debug("live event published", logger.String("type", string(ev.Type)))
	return nil
}

// Schedule returns the interval the feed runs on.
func (f *Feed) Schedule() scheduler.Schedule {
	return scheduler.Every(FeedInterval)
}
