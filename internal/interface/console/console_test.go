package console

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/voicementor/voicementor/internal/application/client"
	appcommand "github.com/voicementor/voicementor/internal/application/command"
	"github.com/voicementor/voicementor/internal/domain/appstate"
	"github.com/voicementor/voicementor/internal/domain/gamification"
	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/internal/domain/user"
	"github.com/voicementor/voicementor/internal/infrastructure/external/apiclient"
	"github.com/voicementor/voicementor/internal/infrastructure/persistence/kv"
	"github.com/voicementor/voicementor/internal/infrastructure/persistence/memory"
	apihttp "github.com/voicementor/voicementor/internal/interface/http"
)

type halfRand struct{}

func (halfRand) Float64() float64 { return 0.5 }
func (halfRand) IntN(int) int     { return 0 }

type harness struct {
	mock *clock.Mock
	rt   *client.Runtime
	con  *Console
	out  *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, nil)
}

func newHarnessWith(t *testing.T, tweak func(*client.Options)) *harness {
	t.Helper()
	mock := clock.NewMock()
	mock.Add(24 * time.Hour)
	opts := client.Options{
		KV:             kv.NewMemoryStore(),
		Clock:          mock,
		Rand:           halfRand{},
		NewID:          shared.Sequence("id"),
		ReplySimulator: true,
	}
	if tweak != nil {
		tweak(&opts)
	}
	rt := client.New(opts)
	_, err := rt.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	out := &bytes.Buffer{}
	con := New(rt, Config{Out: out})
	con.Attach()
	t.Cleanup(con.Detach)
	return &harness{mock: mock, rt: rt, con: con, out: out}
}

func (h *harness) exec(lines ...string) {
	for _, l := range lines {
		h.con.Exec(context.Background(), l)
	}
}

func (h *harness) lastNotification(t *testing.T) appstate.Notification {
	t.Helper()
	ns := h.rt.App.State().Notifications
	require.NotEmpty(t, ns)
	return ns[len(ns)-1]
}

func TestSignup_AwardsProfilePoints(t *testing.T) {
	h := newHarness(t)
	h.exec("signup Amina 9000 mentee")

	st := h.rt.App.State()
	require.True(t, st.IsAuthenticated)
	assert.Equal(t, "Amina", st.Identity.Name)
	assert.Equal(t, user.RoleLearner, st.Identity.Role)
	assert.Equal(t, gamification.PointsFor(gamification.ActivityProfileComplete), h.rt.IX.State().Gamification.Points)
	assert.Equal(t, appstate.NotifySuccess, h.lastNotification(t).Kind)
	assert.Contains(t, h.out.String(), "signed in as Amina")

	h.exec("signup Other 9001")
	assert.Contains(t, h.out.String(), "already signed in as Amina")

	h.exec("signout")
	assert.False(t, h.rt.App.State().IsAuthenticated)
}

func TestUnknownCommand_AddsErrorNotification(t *testing.T) {
	h := newHarness(t)
	h.exec("fly away")

	n := h.lastNotification(t)
	assert.Equal(t, appstate.NotifyError, n.Kind)
	assert.Equal(t, "Unknown command", n.Title)
	assert.Contains(t, h.out.String(), `unknown command "fly"`)
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)
	h.exec("book", "online 1 maybe", "tutorial x")
	out := h.out.String()
	assert.Contains(t, out, "usage: book <mentorId>")
	assert.Contains(t, out, "usage: online <mentorId>")
	assert.Contains(t, out, "usage: tutorial")
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t)
	h.exec("book 1 2025-01-01T10:00:00Z")
	assert.Contains(t, h.out.String(), "error: sign up first")

	h.exec("signup Amina 9000")
	h.exec("book 1 2025-01-01T10:00:00Z video")

	sessions := h.rt.App.State().Sessions
	require.Len(t, sessions, 1)
	s := sessions[0]
	assert.Equal(t, "Priya Singh", s.MentorName)
	assert.Equal(t, session.KindVideo, s.Type)
	assert.Equal(t, session.StatusScheduled, s.Status)

	h.exec("join " + s.ID)
	got, _ := h.rt.App.State().FindSession(s.ID)
	assert.Equal(t, session.StatusOngoing, got.Status)

	h.exec("end " + s.ID + " 5 very helpful")
	got, _ = h.rt.App.State().FindSession(s.ID)
	assert.Equal(t, session.StatusCompleted, got.Status)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 5.0, *got.Rating)
	assert.Equal(t, "very helpful", got.Notes)

	stats := h.rt.IX.State().Gamification
	assert.Equal(t, 150, stats.Points)
	assert.True(t, stats.HasBadge(gamification.MilestoneFirstSession))

	// a completed session can be neither ended again nor rejoined
	h.exec("end " + s.ID + " 4")
	n := h.lastNotification(t)
	assert.Equal(t, appstate.NotifyError, n.Kind)
	assert.Contains(t, n.Message, "Only an ongoing session can be ended")
	assert.Equal(t, 150, h.rt.IX.State().Gamification.Points)
	got, _ = h.rt.App.State().FindSession(s.ID)
	assert.Equal(t, 5.0, *got.Rating)

	h.exec("join " + s.ID)
	n = h.lastNotification(t)
	assert.Equal(t, appstate.NotifyError, n.Kind)
	assert.Contains(t, n.Message, "Only a scheduled session can be joined")
	got, _ = h.rt.App.State().FindSession(s.ID)
	assert.Equal(t, session.StatusCompleted, got.Status)

	h.exec("cancel " + s.ID)
	assert.Empty(t, h.rt.App.State().Sessions)

	h.exec("join missing")
	assert.Contains(t, h.out.String(), "Session not found")
}

func TestEnd_RejectsBadRating(t *testing.T) {
	h := newHarness(t)
	h.exec("signup Amina 9000", "book 2 2025-01-01T10:00:00Z")
	id := h.rt.App.State().Sessions[0].ID

	h.exec("end " + id + " 9")
	got, _ := h.rt.App.State().FindSession(id)
	assert.Equal(t, session.StatusScheduled, got.Status)
	assert.Contains(t, h.out.String(), "Rating must be between 1 and 5")
}

func TestEnd_RequiresOngoingSession(t *testing.T) {
	h := newHarness(t)
	h.exec("signup Amina 9000", "book 2 2025-01-01T10:00:00Z")
	id := h.rt.App.State().Sessions[0].ID
	before := h.rt.IX.State().Gamification.Points

	h.exec("end " + id + " 5")
	got, _ := h.rt.App.State().FindSession(id)
	assert.Equal(t, session.StatusScheduled, got.Status)
	assert.Nil(t, got.Rating)
	assert.Equal(t, before, h.rt.IX.State().Gamification.Points)
	assert.Equal(t, appstate.NotifyError, h.lastNotification(t).Kind)
}

func TestChat_SimulatedReplyIsPrinted(t *testing.T) {
	h := newHarness(t)
	h.exec("signup Amina 9000", "chat 1 how do I start with React?")

	ix := h.rt.IX.State()
	require.Len(t, ix.ChatMessages, 1)
	assert.Equal(t, "1", ix.ActiveChatID)
	assert.Equal(t, 55, ix.Gamification.Points)
	assert.True(t, ix.IsTyping("1"))

	h.mock.Add(5 * time.Second)

	ix = h.rt.IX.State()
	require.Len(t, ix.ChatMessages, 2)
	reply := ix.ChatMessages[1]
	assert.Equal(t, "1", reply.SenderID)
	assert.False(t, ix.IsTyping("1"))
	assert.Contains(t, h.out.String(), "💬 Priya Singh:")

	h.exec("read " + reply.ID)
	assert.True(t, h.rt.IX.State().ChatMessages[1].IsRead)
}

func TestCheckin_ExtendsStreakAcrossDays(t *testing.T) {
	h := newHarness(t)
	h.exec("signup Amina 9000")

	for day := 0; day < 7; day++ {
		h.exec("checkin")
		h.mock.Add(24 * time.Hour)
	}

	stats := h.rt.IX.State().Gamification
	assert.Equal(t, 7, stats.Streak)
	assert.True(t, stats.HasBadge(gamification.MilestoneWeekStreak))
	assert.Contains(t, h.out.String(), "streak: 7 days")
}

func TestCheckin_OncePerDay(t *testing.T) {
	h := newHarness(t)
	h.exec("signup Amina 9000")
	base := h.rt.IX.State().Gamification.Points

	h.exec("checkin")
	h.mock.Add(time.Hour)
	h.exec("checkin")

	stats := h.rt.IX.State().Gamification
	assert.Equal(t, base+gamification.PointsFor(gamification.ActivityDailyLogin), stats.Points)
	assert.Equal(t, 1, stats.Streak)
	assert.Contains(t, h.out.String(), "already checked in today")

	h.mock.Add(24 * time.Hour)
	h.exec("checkin")
	stats = h.rt.IX.State().Gamification
	assert.Equal(t, 2, stats.Streak)
	assert.Equal(t, base+2*gamification.PointsFor(gamification.ActivityDailyLogin), stats.Points)
}

func TestChallenge_QueuesCelebration(t *testing.T) {
	h := newHarness(t)
	h.exec("challenge voice_session")

	ix := h.rt.IX.State()
	assert.Equal(t, 50, ix.Gamification.Points)
	require.Len(t, ix.Celebrations, 1)
	cel := ix.Celebrations[0]
	assert.Equal(t, "Challenge Complete!", cel.Title)
	assert.Equal(t, "+50 points earned!", cel.Message)
	assert.Equal(t, 3000, cel.DurationMs)

	h.mock.Add(3 * time.Second)
	assert.Empty(t, h.rt.IX.State().Celebrations)
}

func TestJobs_ListAndRun(t *testing.T) {
	h := newHarnessWith(t, func(o *client.Options) { o.LiveFeed = true })

	h.exec("jobs")
	assert.Contains(t, h.out.String(), "live-feed · @every 10s · paused")

	h.exec("jobs run live-feed", "jobs run nothing", "jobs")
	out := h.out.String()
	assert.Contains(t, out, "live-feed ran in")
	assert.Contains(t, out, "job not found")
	assert.Contains(t, out, "runs 1 · failed 0")
}

func TestGamificationCommands(t *testing.T) {
	h := newHarness(t)
	h.exec("points mentor_connect", "points nonsense")
	assert.Equal(t, 25, h.rt.IX.State().Gamification.Points)
	assert.Contains(t, h.out.String(), `unknown activity "nonsense"`)

	h.exec("challenge voice_session", "challenge voice_session")
	assert.Equal(t, 75, h.rt.IX.State().Gamification.Points)
	assert.Contains(t, h.out.String(), "already completed")

	h.exec("badge voice_master")
	ix := h.rt.IX.State()
	assert.True(t, ix.Gamification.HasBadge(gamification.MilestoneVoiceMaster))
	require.NotEmpty(t, ix.Celebrations)

	cel := ix.Celebrations[len(ix.Celebrations)-1]
	h.exec("dismiss " + cel.ID)
	_, still := h.rt.IX.State().FindCelebration(cel.ID)
	assert.False(t, still)

	h.exec("tutorial on", "tutorial 3")
	assert.True(t, h.rt.IX.State().TutorialActive)
	assert.Equal(t, 3, h.rt.IX.State().TutorialStep)

	h.out.Reset()
	h.exec("board")
	assert.Contains(t, h.out.String(), "🥇 Arjun Patel · 4250")
	assert.Contains(t, h.out.String(), "You · 75 ← you")
}

func TestMentorsAndOnline(t *testing.T) {
	h := newHarness(t)
	h.exec("mentors photography")
	out := h.out.String()
	assert.Contains(t, out, "Vikash Singh")
	assert.NotContains(t, out, "Priya Singh")

	h.exec("online 6 false")
	m, _ := h.rt.App.State().FindMentor("6")
	assert.False(t, m.IsOnline)

	h.exec("online 99 true")
	assert.Contains(t, h.out.String(), "Mentor not found")
}

func TestRecord(t *testing.T) {
	h := newHarness(t)
	h.exec("signup Amina 9000", "record 42")
	recs := h.rt.App.State().Recordings
	require.Len(t, recs, 1)
	assert.Equal(t, 42, recs[0].Duration)
	assert.Equal(t, 70, h.rt.IX.State().Gamification.Points)
}

func TestRun_StopsOnQuit(t *testing.T) {
	h := newHarness(t)
	err := h.con.Run(context.Background(), strings.NewReader("help\nquit\nsignup Late 1\n"))
	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "signup <name> <phone> [role] [pin]")
	assert.False(t, h.rt.App.State().IsAuthenticated)
}

func TestServerBackedAccountAndBooking(t *testing.T) {
	ctx := context.Background()
	mentors := memory.NewMentorRepository()
	require.NoError(t, mentors.Seed(ctx, mentor.DefaultDirectory()))
	sessions := memory.NewSessionRepository()
	deps := apihttp.NewDependencies(apihttp.Repositories{
		Users:    memory.NewUserRepository(),
		Mentors:  mentors,
		Sessions: sessions,
	}, appcommand.Deps{Clock: clock.NewMock(), NewID: shared.Sequence("srv")}, bcrypt.MinCost)
	cfg := apihttp.DefaultConfig()
	cfg.RateLimitPerSecond = 0
	srv := httptest.NewServer(apihttp.NewServer(cfg, deps).Handler())
	defer srv.Close()

	apiCfg := apiclient.DefaultConfig(srv.URL)
	apiCfg.RequestsPerSecond = 0
	api, err := apiclient.New(apiCfg)
	require.NoError(t, err)

	h := newHarnessWith(t, func(o *client.Options) { o.Remote = api })
	h.exec("signup Amina 9000 learner 1234")
	st := h.rt.App.State()
	require.True(t, st.IsAuthenticated)
	assert.Equal(t, "id-1", st.Identity.ID)

	h.exec("book 1 2025-01-01T10:00:00Z chat")
	require.Len(t, h.rt.App.State().Sessions, 1)
	booked := h.rt.App.State().Sessions[0]
	stored, err := sessions.GetByID(ctx, booked.ID)
	require.NoError(t, err)
	assert.Equal(t, "id-1", stored.UserID)
	assert.Equal(t, session.KindChat, stored.Type)

	h.exec("signout", "signin 9000 0000")
	assert.False(t, h.rt.App.State().IsAuthenticated)
	assert.Contains(t, h.lastNotification(t).Message, "Invalid PIN")

	h.exec("signin 9000 1234")
	st = h.rt.App.State()
	require.True(t, st.IsAuthenticated)
	assert.Equal(t, "Amina", st.Identity.Name)
	assert.Equal(t, "Welcome back!", h.lastNotification(t).Title)

	h.exec("signout", "signup Copy 9000")
	assert.Contains(t, h.out.String(), "already exists")
	assert.False(t, h.rt.App.State().IsAuthenticated)
}

func TestSignin_NeedsServer(t *testing.T) {
	h := newHarness(t)
	h.exec("signin 9000")
	assert.Contains(t, h.out.String(), "no server configured")
}
