// Package client assembles the headless client: both state stores, the
// durable mirror, the simulated feed and replies, celebration expiry and the
// optional connection to the API server.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/facebookgo/clock"

	"github.com/voicementor/voicementor/internal/application/persistence"
	"github.com/voicementor/voicementor/internal/application/simulation"
	"github.com/voicementor/voicementor/internal/application/store"
	"github.com/voicementor/voicementor/internal/domain/appstate"
	"github.com/voicementor/voicementor/internal/domain/interactive"
	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/internal/domain/user"
	"github.com/voicementor/voicementor/internal/infrastructure/persistence/kv"
	"github.com/voicementor/voicementor/internal/infrastructure/scheduler"
	"github.com/voicementor/voicementor/pkg/logger"
)

// Remote is the API server as seen by the client.
type Remote interface {
	SyncMentors(ctx context.Context, apply func(mentor.Mentor)) (int, error)
	Subscribe(ctx context.Context, onEvent func(interactive.LiveEvent)) error
	RegisterUser(ctx context.Context, u user.User, pin string) (*user.User, error)
	Login(ctx context.Context, phone, pin string) (*user.User, error)
	CreateSession(ctx context.Context, s session.Session) (*session.Session, error)
}

// ErrNoServer is returned by operations that need the API server when none
// is configured.
var ErrNoServer = errors.New("no server configured")

// Options configures a Runtime. Zero values fall back to production defaults.
type Options struct {
	KV     kv.Store
	Remote Remote

	Clock  clock.Clock
	Rand   simulation.Rand
	NewID  shared.IDGenerator
	Logger *logger.Logger

	LiveFeed       bool
	FeedInterval   time.Duration
	ReplySimulator bool
	RemoteFeed     bool

	// ReplySimulatorFor narrows the reply simulator to some users. Nil means
	// everyone.
	ReplySimulatorFor func(userID string) bool

	// OnJobResult is told about every scheduler run.
	OnJobResult func(scheduler.JobResult)
}

// Runtime owns the client state and everything that dispatches into it.
type Runtime struct {
	App *persistence.AppStore
	IX  *persistence.InteractiveStore

	// Actions builds messages and celebrations with the runtime's id and clock.
	Actions interactive.Reducer

	opts    Options
	log     *logger.Logger
	clock   clock.Clock
	mirror  *persistence.Mirror
	sched   *scheduler.Scheduler
	feed    *simulation.Feed
	replier *simulation.Replier
	expirer *simulation.Expirer

	mu       sync.Mutex
	started  bool
	closed   bool
	unsubApp func()
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New builds the runtime. Nothing runs until Start.
func New(opts Options) *Runtime {
	if opts.KV == nil {
		opts.KV = kv.NewMemoryStore()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Rand == nil {
		opts.Rand = simulation.DefaultRand()
	}
	if opts.NewID == nil {
		opts.NewID = shared.NewID
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.FeedInterval <= 0 {
		opts.FeedInterval = simulation.FeedInterval
	}

	actions := interactive.Reducer{NewID: opts.NewID, Now: opts.Clock.Now}
	r := &Runtime{
		App:     store.New(appstate.Initial(), appstate.Reduce, opts.Logger),
		IX:      store.New(interactive.Initial(opts.Clock.Now()), actions.Reduce, opts.Logger),
		Actions: actions,
		opts:    opts,
		log:     opts.Logger.With(logger.Component("client_runtime")),
		clock:   opts.Clock,
		mirror:  persistence.NewMirror(opts.KV, opts.Logger),
		sched: scheduler.New(scheduler.Config{
			Logger:   opts.Logger,
			Clock:    opts.Clock,
			OnResult: opts.OnJobResult,
		}),
		expirer: simulation.NewExpirer(opts.Clock, opts.Logger),
	}
	r.feed = simulation.NewFeed(r.IX, simulation.FeedOptions{
		Clock:  opts.Clock,
		Rand:   opts.Rand,
		NewID:  opts.NewID,
		Logger: opts.Logger,
	})
	r.replier = simulation.NewReplier(simulation.ReplierOptions{
		Clock:   opts.Clock,
		Rand:    opts.Rand,
		NewID:   opts.NewID,
		Logger:  opts.Logger,
		Self:    r.Self,
		Allowed: opts.ReplySimulatorFor,
		MentorName: func(id string) (string, bool) {
			m, ok := r.App.State().FindMentor(id)
			return m.Name, ok
		},
	})
	if opts.LiveFeed {
		// paused until Start sees a signed-in user
		_ = r.sched.Register(r.feed, scheduler.Every(opts.FeedInterval))
		_ = r.sched.SetEnabled(simulation.FeedJobName, false)
	}
	return r
}

// Start hydrates from the durable store and starts every producer.
func (r *Runtime) Start(ctx context.Context) (persistence.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return persistence.Report{}, store.ErrClosed
	}
	if r.started {
		return persistence.Report{}, errors.New("client runtime already started")
	}

	// attached first so a seeded directory is written back
	r.mirror.Attach(r.App, r.IX)
	report, err := persistence.Hydrate(ctx, r.opts.KV, r.App, r.IX, r.opts.Logger)
	if err != nil {
		r.mirror.Detach()
		return report, fmt.Errorf("hydrate: %w", err)
	}

	if r.opts.LiveFeed {
		// the feed runs only while someone is signed in
		_ = r.sched.SetEnabled(simulation.FeedJobName, r.App.State().IsAuthenticated)
		r.unsubApp = r.App.Subscribe(func(prev, next appstate.State, _ appstate.Action) {
			if prev.IsAuthenticated != next.IsAuthenticated {
				_ = r.sched.SetEnabled(simulation.FeedJobName, next.IsAuthenticated)
			}
		})
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := r.sched.Start(runCtx); err != nil {
		cancel()
		if r.unsubApp != nil {
			r.unsubApp()
			r.unsubApp = nil
		}
		r.mirror.Detach()
		return report, fmt.Errorf("start scheduler: %w", err)
	}
	r.cancel = cancel

	if r.opts.Remote != nil && r.opts.RemoteFeed {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			err := r.opts.Remote.Subscribe(runCtx, func(e interactive.LiveEvent) {
				if err := r.IX.Dispatch(interactive.AddLiveEvent{Event: e}); err != nil {
					r.log.Debug("live event dropped", logger.Err(err))
				}
			})
			if err != nil {
				r.log.Warn("live feed subscription ended", logger.Err(err))
			}
		}()
	}

	// nothing below can fail
	r.expirer.Attach(r.IX)
	if r.opts.ReplySimulator {
		r.replier.Attach(r.IX)
	}

	r.started = true
	r.log.Info("client runtime started",
		logger.Bool("identity", report.Identity),
		logger.Int("sessions", report.Sessions),
		logger.Bool("live_feed", r.opts.LiveFeed),
		logger.Bool("reply_simulator", r.opts.ReplySimulator),
	)
	return report, nil
}

// Self returns the signed-in user's id.
func (r *Runtime) Self() (string, bool) {
	st := r.App.State()
	if st.Identity == nil {
		return "", false
	}
	return st.Identity.ID, true
}

// Sync replaces the mentor directory with the server's.
func (r *Runtime) Sync(ctx context.Context) (int, error) {
	if r.opts.Remote == nil {
		return 0, ErrNoServer
	}
	var mentors []mentor.Mentor
	n, err := r.opts.Remote.SyncMentors(ctx, func(m mentor.Mentor) { mentors = append(mentors, m) })
	if err != nil {
		return 0, err
	}
	if err := r.App.Dispatch(appstate.SetMentorDirectory{Mentors: mentors}); err != nil {
		return 0, err
	}
	return n, nil
}

// Register signs u in. With a server the account is created there first and
// the server's copy becomes the identity.
func (r *Runtime) Register(ctx context.Context, u user.User, pin string) (*user.User, error) {
	if r.opts.Remote != nil {
		created, err := r.opts.Remote.RegisterUser(ctx, u, pin)
		if err != nil {
			return nil, err
		}
		u = *created
	}
	if err := r.App.Dispatch(appstate.SetIdentity{User: &u}); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login signs in an account that already exists on the server.
func (r *Runtime) Login(ctx context.Context, phone, pin string) (*user.User, error) {
	if r.opts.Remote == nil {
		return nil, ErrNoServer
	}
	u, err := r.opts.Remote.Login(ctx, phone, pin)
	if err != nil {
		return nil, err
	}
	if err := r.App.Dispatch(appstate.SetIdentity{User: u}); err != nil {
		return nil, err
	}
	return u, nil
}

// Book adds s to the session list, creating it on the server first when
// one is configured.
func (r *Runtime) Book(ctx context.Context, s session.Session) (session.Session, error) {
	if r.opts.Remote != nil {
		created, err := r.opts.Remote.CreateSession(ctx, s)
		if err != nil {
			return session.Session{}, err
		}
		s = *created
	}
	if err := r.App.Dispatch(appstate.AddSession{Session: s}); err != nil {
		return session.Session{}, err
	}
	return s, nil
}

// SignOut cancels pending replies and celebration timers, then clears the
// identity. The feed pauses until the next sign-in.
func (r *Runtime) SignOut() error {
	r.replier.Stop()
	r.expirer.Stop()

	if err := r.App.Dispatch(appstate.ClearIdentity{}); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started && !r.closed {
		r.expirer.Attach(r.IX)
		if r.opts.ReplySimulator {
			r.replier.Attach(r.IX)
		}
	}
	return nil
}

// Close stops every producer before closing the stores and the durable backend.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	started := r.started
	r.mu.Unlock()

	if started {
		_ = r.sched.Stop()
		r.cancel()
	}
	r.wg.Wait()
	r.replier.Stop()
	r.expirer.Stop()
	if r.unsubApp != nil {
		r.unsubApp()
	}
	r.mirror.Detach()

	r.App.Close()
	r.IX.Close()
	if err := r.opts.KV.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	r.log.Info("client runtime stopped")
	return nil
}

// Jobs lists the runtime's scheduled jobs.
func (r *Runtime) Jobs() []scheduler.JobInfo {
	return r.sched.ListJobs()
}

// RunJob runs a job once, outside its schedule.
func (r *Runtime) RunJob(ctx context.Context, name string) (scheduler.JobResult, error) {
	return r.sched.RunNow(ctx, name)
}

// JobHistory returns up to limit recent job runs, oldest first.
func (r *Runtime) JobHistory(limit int) []scheduler.JobResult {
	return r.sched.History(limit)
}
