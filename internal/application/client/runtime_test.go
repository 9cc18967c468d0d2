package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicementor/voicementor/internal/application/persistence"
	"github.com/voicementor/voicementor/internal/application/simulation"
	"github.com/voicementor/voicementor/internal/application/store"
	"github.com/voicementor/voicementor/internal/domain/appstate"
	"github.com/voicementor/voicementor/internal/domain/gamification"
	"github.com/voicementor/voicementor/internal/domain/interactive"
	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/internal/domain/user"
	"github.com/voicementor/voicementor/internal/infrastructure/persistence/kv"
	"github.com/voicementor/voicementor/internal/infrastructure/scheduler"
)

type fixedRand struct{ f float64 }

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) IntN(int) int     { return 0 }

type fakeRemote struct {
	mentors []mentor.Mentor
	events  []interactive.LiveEvent
	synced  int

	users    map[string]user.User
	sessions []session.Session
}

func (f *fakeRemote) SyncMentors(_ context.Context, apply func(mentor.Mentor)) (int, error) {
	f.synced++
	for _, m := range f.mentors {
		apply(m)
	}
	return len(f.mentors), nil
}

func (f *fakeRemote) Subscribe(ctx context.Context, onEvent func(interactive.LiveEvent)) error {
	for _, e := range f.events {
		onEvent(e)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeRemote) RegisterUser(_ context.Context, u user.User, pin string) (*user.User, error) {
	if f.users == nil {
		f.users = make(map[string]user.User)
	}
	if _, taken := f.users[u.Phone]; taken {
		return nil, shared.ErrPhoneTaken
	}
	u.ID = "srv-" + u.Phone
	u.PinHash = pin
	f.users[u.Phone] = u
	return &u, nil
}

func (f *fakeRemote) Login(_ context.Context, phone, pin string) (*user.User, error) {
	u, ok := f.users[phone]
	if !ok {
		return nil, shared.ErrPhoneNotFound
	}
	if u.PinHash != pin {
		return nil, shared.ErrInvalidPin
	}
	return &u, nil
}

func (f *fakeRemote) CreateSession(_ context.Context, s session.Session) (*session.Session, error) {
	s.MentorName = "from server"
	f.sessions = append(f.sessions, s)
	return &s, nil
}

// flakyStore fails every Get while failing is set and counts writes.
type flakyStore struct {
	kv.Store
	failing atomic.Bool
	writes  atomic.Int32
}

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failing.Load() {
		return nil, errors.New("backend down")
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	f.writes.Add(1)
	return f.Store.Set(ctx, key, value)
}

func newRuntime(t *testing.T, mock *clock.Mock, kvs kv.Store, remote Remote) *Runtime {
	t.Helper()
	rt := New(Options{
		KV:             kvs,
		Remote:         remote,
		Clock:          mock,
		Rand:           fixedRand{f: 0.9},
		NewID:          shared.Sequence("id"),
		LiveFeed:       true,
		ReplySimulator: true,
		RemoteFeed:     remote != nil,
	})
	return rt
}

func feedEnabled(rt *Runtime) bool {
	for _, j := range rt.Jobs() {
		if j.Name == simulation.FeedJobName {
			return j.Enabled
		}
	}
	return false
}

func TestRuntime_StartSeedsAndGatesFeedOnIdentity(t *testing.T) {
	mock := clock.NewMock()
	rt := newRuntime(t, mock, kv.NewMemoryStore(), nil)
	defer rt.Close()

	rep, err := rt.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.SeededMentors)
	assert.Len(t, rt.App.State().Mentors, 6)
	assert.False(t, feedEnabled(rt))

	mock.Add(30 * time.Second)
	assert.Empty(t, rt.IX.State().LiveEvents)

	require.NoError(t, rt.App.Dispatch(appstate.SetIdentity{User: &user.User{ID: "u1", Name: "Asha", Phone: "1", Role: user.RoleLearner}}))
	assert.True(t, feedEnabled(rt))

	mock.Add(10 * time.Second)
	require.Len(t, rt.IX.State().LiveEvents, 1)
	assert.Equal(t, interactive.EventMentorOnline, rt.IX.State().LiveEvents[0].Type)
}

func TestRuntime_SignOutCancelsTimersAndPersists(t *testing.T) {
	mock := clock.NewMock()
	kvs := kv.NewMemoryStore()
	rt := newRuntime(t, mock, kvs, nil)
	defer rt.Close()

	_, err := rt.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, rt.App.Dispatch(appstate.SetIdentity{User: &user.User{ID: "u1", Name: "Asha", Phone: "1", Role: user.RoleLearner}}))

	msg := rt.Actions.NewMessage("u1", "Asha", "1", "hello", interactive.MessageText)
	require.NoError(t, rt.IX.Dispatch(interactive.AddChatMessage{Message: msg}))
	assert.True(t, rt.IX.State().IsTyping("1"))

	require.NoError(t, rt.SignOut())
	assert.False(t, rt.App.State().IsAuthenticated)
	assert.False(t, feedEnabled(rt))

	// the pending reply was cancelled
	mock.Add(10 * time.Second)
	assert.Len(t, rt.IX.State().ChatMessages, 1)

	_, err = kvs.Get(context.Background(), persistence.KeyUser)
	assert.True(t, errors.Is(err, kv.ErrNotFound))
}

func TestRuntime_RemoteSyncAndLiveFeed(t *testing.T) {
	mock := clock.NewMock()
	remote := &fakeRemote{
		mentors: mentor.DefaultDirectory()[:2],
		events:  []interactive.LiveEvent{{ID: "srv-1", Type: interactive.EventSessionStarting, Title: "Session Reminder"}},
	}
	rt := newRuntime(t, mock, kv.NewMemoryStore(), remote)

	_, err := rt.Start(context.Background())
	require.NoError(t, err)

	n, err := rt.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, rt.App.State().Mentors, 2)

	assert.Eventually(t, func() bool {
		return len(rt.IX.State().LiveEvents) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, rt.Close())
	assert.ErrorIs(t, rt.IX.Dispatch(interactive.SetTutorialStep{Step: 1}), store.ErrClosed)
}

func TestRuntime_SyncWithoutServer(t *testing.T) {
	rt := newRuntime(t, clock.NewMock(), kv.NewMemoryStore(), nil)
	defer rt.Close()
	_, err := rt.Sync(context.Background())
	assert.ErrorIs(t, err, ErrNoServer)
	_, err = rt.Login(context.Background(), "9000", "")
	assert.ErrorIs(t, err, ErrNoServer)
}

func TestRuntime_FailedStartLeavesNothingAttached(t *testing.T) {
	mock := clock.NewMock()
	kvs := &flakyStore{Store: kv.NewMemoryStore()}
	kvs.failing.Store(true)
	rt := newRuntime(t, mock, kvs, nil)
	defer rt.Close()

	_, err := rt.Start(context.Background())
	require.Error(t, err)

	cel := rt.Actions.ChallengeCompleted(gamification.DailyChallenges()[0])
	require.NoError(t, rt.IX.Dispatch(interactive.AddCelebration{Celebration: cel}))
	require.NoError(t, rt.App.Dispatch(appstate.SetIdentity{User: &user.User{ID: "u1", Name: "Asha", Phone: "1", Role: user.RoleLearner}}))

	mock.Add(10 * time.Second)
	_, still := rt.IX.State().FindCelebration(cel.ID)
	assert.True(t, still, "celebration expired without a started runtime")
	assert.Equal(t, int32(0), kvs.writes.Load())
	assert.Equal(t, 0, rt.replier.Pending())

	// a retry after the backend recovers starts normally
	kvs.failing.Store(false)
	_, err = rt.Start(context.Background())
	require.NoError(t, err)
	mock.Add(10 * time.Second)
	_, still = rt.IX.State().FindCelebration(cel.ID)
	assert.False(t, still)
}

func TestRuntime_RegisterLoginAndBookThroughServer(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	rt := newRuntime(t, clock.NewMock(), kv.NewMemoryStore(), remote)
	defer rt.Close()
	_, err := rt.Start(ctx)
	require.NoError(t, err)

	u, err := rt.Register(ctx, user.User{ID: "local", Name: "Asha", Phone: "9000", Role: user.RoleLearner}, "1234")
	require.NoError(t, err)
	assert.Equal(t, "srv-9000", u.ID)
	assert.Equal(t, "srv-9000", rt.App.State().Identity.ID)

	_, err = rt.Register(ctx, user.User{Name: "Other", Phone: "9000", Role: user.RoleLearner}, "")
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	s, err := rt.Book(ctx, session.Session{ID: "s1", MentorID: "1", UserID: u.ID, Status: session.StatusScheduled})
	require.NoError(t, err)
	assert.Equal(t, "from server", s.MentorName)
	require.Len(t, remote.sessions, 1)
	got, ok := rt.App.State().FindSession("s1")
	require.True(t, ok)
	assert.Equal(t, "from server", got.MentorName)

	require.NoError(t, rt.SignOut())
	_, err = rt.Login(ctx, "9000", "0000")
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
	assert.False(t, rt.App.State().IsAuthenticated)

	_, err = rt.Login(ctx, "9000", "1234")
	require.NoError(t, err)
	assert.Equal(t, "Asha", rt.App.State().Identity.Name)
}

func TestRuntime_RegisterAndBookLocally(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, clock.NewMock(), kv.NewMemoryStore(), nil)
	defer rt.Close()
	_, err := rt.Start(ctx)
	require.NoError(t, err)

	u, err := rt.Register(ctx, user.User{ID: "local", Name: "Asha", Phone: "9000", Role: user.RoleLearner}, "")
	require.NoError(t, err)
	assert.Equal(t, "local", u.ID)

	_, err = rt.Book(ctx, session.Session{ID: "s1", MentorID: "1", UserID: u.ID, MentorName: "Priya Singh"})
	require.NoError(t, err)
	assert.Len(t, rt.App.State().Sessions, 1)
}

func TestRuntime_RunJobAndHistory(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, clock.NewMock(), kv.NewMemoryStore(), nil)
	defer rt.Close()
	_, err := rt.Start(ctx)
	require.NoError(t, err)

	_, err = rt.RunJob(ctx, "missing")
	assert.ErrorIs(t, err, scheduler.ErrJobNotFound)

	res, err := rt.RunJob(ctx, simulation.FeedJobName)
	require.NoError(t, err)
	assert.True(t, res.Manual)
	// fixedRand 0.9 wins the online draw
	assert.Len(t, rt.IX.State().LiveEvents, 1)

	hist := rt.JobHistory(10)
	require.Len(t, hist, 1)
	assert.Equal(t, simulation.FeedJobName, hist[0].JobName)
}

func TestRuntime_ReplySimulatorFor(t *testing.T) {
	mock := clock.NewMock()
	rt := New(Options{
		KV:                kv.NewMemoryStore(),
		Clock:             mock,
		Rand:              fixedRand{f: 0.9},
		NewID:             shared.Sequence("id"),
		ReplySimulator:    true,
		ReplySimulatorFor: func(id string) bool { return id == "u2" },
	})
	defer rt.Close()
	_, err := rt.Start(context.Background())
	require.NoError(t, err)

	for _, id := range []string{"u1", "u2"} {
		require.NoError(t, rt.App.Dispatch(appstate.SetIdentity{User: &user.User{ID: id, Name: id, Phone: id, Role: user.RoleLearner}}))
		msg := rt.Actions.NewMessage(id, id, "1", "hello", interactive.MessageText)
		require.NoError(t, rt.IX.Dispatch(interactive.AddChatMessage{Message: msg}))
	}
	mock.Add(10 * time.Second)

	var replies int
	for _, m := range rt.IX.State().ChatMessages {
		if m.SenderID == "1" {
			replies++
			assert.Equal(t, "u2", m.ReceiverID)
		}
	}
	assert.Equal(t, 1, replies)
}
