package console

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/voicementor/voicementor/internal/domain/appstate"
	"github.com/voicementor/voicementor/internal/domain/gamification"
	"github.com/voicementor/voicementor/internal/domain/interactive"
	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/internal/domain/user"
	"github.com/voicementor/voicementor/pkg/timeutil"
)

const defaultSessionMinutes = 60

var errSignedOut = errors.New("sign up first")

func (c *Console) registerCommands() {
	// account
	c.register("signup", "signup <name> <phone> [role] [pin]", "create your profile", c.signup)
	c.register("signin", "signin <phone> [pin]", "sign in to an account on the server", c.signin)
	c.register("signout", "signout", "sign out and clear your sessions", c.signout)

	// directory
	c.register("mentors", "mentors [query]", "search the mentor directory", c.mentors)
	c.register("online", "online <mentorId> <true|false>", "set a mentor's availability", c.online)
	c.register("sync", "sync", "pull the mentor directory from the server", c.sync)

	// sessions
	c.register("book", "book <mentorId> <RFC3339> [voice|video|chat]", "schedule a session", c.book)
	c.register("join", "join <sessionId>", "start a scheduled session", c.join)
	c.register("end", "end <sessionId> <rating> [notes]", "complete a session", c.end)
	c.register("cancel", "cancel <sessionId>", "drop a session", c.cancel)
	c.register("sessions", "sessions", "list your sessions", c.sessions)

	// chat & voice
	c.register("chat", "chat <mentorId> <text>", "message a mentor", c.chat)
	c.register("read", "read <messageId>", "mark a message read", c.read)
	c.register("record", "record <seconds>", "save a voice note", c.record)

	// gamification
	c.register("points", "points <activity>", "award points for an activity", c.points)
	c.register("checkin", "checkin", "record today's activity", c.checkin)
	c.register("badge", "badge <milestone>", "unlock a badge", c.badge)
	c.register("challenge", "challenge <id>", "complete a daily challenge", c.challenge)
	c.register("dismiss", "dismiss <celebrationId>", "dismiss a celebration", c.dismiss)
	c.register("tutorial", "tutorial <step|on|off>", "drive the tutorial", c.tutorial)
	c.register("stats", "stats", "show your progress", c.stats)
	c.register("board", "board", "show the weekly leaderboard", c.board)
	c.register("events", "events", "show the live feed", c.events)
	c.register("jobs", "jobs [run <name>]", "show background jobs or run one now", c.jobs)

	c.register("help", "help", "list commands", c.help)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT
// ══════════════════════════════════════════════════════════════════════════════

func (c *Console) signup(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 4 {
		return errUsage
	}
	if st := c.rt.App.State(); st.IsAuthenticated {
		return fmt.Errorf("already signed in as %s", st.Identity.Name)
	}
	role := user.RoleLearner
	if len(args) > 2 {
		r, err := user.ParseRole(args[2])
		if err != nil {
			return err
		}
		role = r
	}

	pin := ""
	if len(args) > 3 {
		pin = args[3]
	}

	u := user.User{
		ID:           c.newID(),
		Name:         args[0],
		Phone:        args[1],
		Role:         role,
		Language:     "English",
		Interests:    []string{},
		Level:        "Beginner",
		Achievements: []user.Achievement{},
		JoinedDate:   c.now(),
	}
	if err := u.Validate(); err != nil {
		return err
	}
	created, err := c.rt.Register(ctx, u, pin)
	if err != nil {
		return err
	}
	if err := c.award(gamification.ActivityProfileComplete); err != nil {
		return err
	}
	c.notify(appstate.NotifySuccess, "Welcome to VoiceMentor!", "Your profile is ready.")
	c.printf("signed in as %s (%s)\n", created.Name, created.ID)
	return nil
}

func (c *Console) signin(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	if st := c.rt.App.State(); st.IsAuthenticated {
		return fmt.Errorf("already signed in as %s", st.Identity.Name)
	}
	pin := ""
	if len(args) == 2 {
		pin = args[1]
	}
	u, err := c.rt.Login(ctx, args[0], pin)
	if err != nil {
		return err
	}
	c.notify(appstate.NotifySuccess, "Welcome back!", u.Name)
	c.printf("signed in as %s (%s)\n", u.Name, u.ID)
	return nil
}

func (c *Console) signout(context.Context, []string) error {
	if _, err := c.self(); err != nil {
		return err
	}
	if err := c.rt.SignOut(); err != nil {
		return err
	}
	c.printf("signed out\n")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY
// ══════════════════════════════════════════════════════════════════════════════

func (c *Console) mentors(_ context.Context, args []string) error {
	q := strings.Join(args, " ")
	if err := c.rt.App.Dispatch(appstate.SetSearchFilters{Query: &q}); err != nil {
		return err
	}
	c.printf("%s", formatMentors(c.rt.App.State().VisibleMentors()))
	return nil
}

func (c *Console) online(_ context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	online, err := strconv.ParseBool(args[1])
	if err != nil {
		return errUsage
	}
	m, err := c.mentor(args[0])
	if err != nil {
		return err
	}
	if err := c.rt.App.Dispatch(appstate.PatchMentor{ID: m.ID, Patch: mentor.Patch{IsOnline: &online}}); err != nil {
		return err
	}
	c.printf("%s is now %s\n", m.Name, onlineLabel(online))
	return nil
}

func (c *Console) sync(ctx context.Context, _ []string) error {
	n, err := c.rt.Sync(ctx)
	if err != nil {
		return err
	}
	c.printf("synced %d mentors\n", n)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

func (c *Console) book(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errUsage
	}
	self, err := c.self()
	if err != nil {
		return err
	}
	m, err := c.mentor(args[0])
	if err != nil {
		return err
	}
	at, err := time.Parse(time.RFC3339, args[1])
	if err != nil {
		return fmt.Errorf("scheduled time must be RFC3339: %w", shared.ErrInvalidInput)
	}
	kind := session.KindVoice
	if len(args) == 3 {
		switch k := session.Kind(strings.ToLower(args[2])); k {
		case session.KindVoice, session.KindVideo, session.KindChat:
			kind = k
		default:
			return errUsage
		}
	}

	s := session.Session{
		ID:            c.newID(),
		MentorID:      m.ID,
		MentorName:    m.Name,
		UserID:        self,
		Skill:         m.Skill,
		ScheduledTime: at,
		Duration:      defaultSessionMinutes,
		Status:        session.StatusScheduled,
		Type:          kind,
		CreatedAt:     c.now(),
	}
	s, err = c.rt.Book(ctx, s)
	if err != nil {
		return err
	}
	c.notify(appstate.NotifySuccess, "Session scheduled", fmt.Sprintf("%s with %s", kind, m.Name))
	c.printf("booked %s with %s at %s [%s]\n", kind, m.Name, at.Format(time.RFC1123), s.ID)
	return nil
}

func (c *Console) join(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	s, err := c.session(args[0])
	if err != nil {
		return err
	}
	p, err := s.Join()
	if err != nil {
		return err
	}
	if err := c.rt.App.Dispatch(appstate.PatchSession{ID: s.ID, Patch: p}); err != nil {
		return err
	}
	c.printf("joined session with %s\n", s.MentorName)
	return nil
}

func (c *Console) end(_ context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	s, err := c.session(args[0])
	if err != nil {
		return err
	}
	rating, err := strconv.ParseFloat(args[1], 64)
	if err != nil || rating < 1 || rating > 5 {
		return shared.ErrInvalidRating
	}
	p, err := s.End(&rating, strings.Join(args[2:], " "))
	if err != nil {
		return err
	}
	if err := c.rt.App.Dispatch(appstate.PatchSession{ID: s.ID, Patch: p}); err != nil {
		return err
	}

	if err := c.award(gamification.ActivitySessionComplete); err != nil {
		return err
	}
	if err := c.rt.IX.Dispatch(interactive.AddCelebration{Celebration: interactive.Celebration{
		ID:         c.newID(),
		Type:       interactive.CelebrateSessionComplete,
		Title:      "Session Complete!",
		Message:    fmt.Sprintf("Great session with %s", s.MentorName),
		DurationMs: 3000,
		Timestamp:  c.now(),
	}}); err != nil {
		return err
	}
	if c.rt.App.State().CompletedSessions() == 1 {
		if err := c.unlock(gamification.MilestoneFirstSession); err != nil {
			return err
		}
	}
	c.printf("session with %s completed\n", s.MentorName)
	return nil
}

func (c *Console) cancel(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	s, err := c.session(args[0])
	if err != nil {
		return err
	}
	if err := c.rt.App.Dispatch(appstate.RemoveSession{ID: s.ID}); err != nil {
		return err
	}
	c.printf("cancelled session with %s\n", s.MentorName)
	return nil
}

func (c *Console) sessions(context.Context, []string) error {
	c.printf("%s", formatSessions(c.rt.App.State().Sessions, c.now()))
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CHAT & VOICE
// ══════════════════════════════════════════════════════════════════════════════

func (c *Console) chat(_ context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	st := c.rt.App.State()
	if st.Identity == nil {
		return errSignedOut
	}
	m, err := c.mentor(args[0])
	if err != nil {
		return err
	}
	msg := c.rt.Actions.NewMessage(st.Identity.ID, st.Identity.Name, m.ID, strings.Join(args[1:], " "), interactive.MessageText)
	for _, a := range []interactive.Action{
		interactive.SetActiveChat{ID: m.ID},
		interactive.AddChatMessage{Message: msg},
	} {
		if err := c.rt.IX.Dispatch(a); err != nil {
			return err
		}
	}
	return c.award(gamification.ActivityMessageSent)
}

func (c *Console) read(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	return c.rt.IX.Dispatch(interactive.MarkMessageRead{ID: args[0]})
}

func (c *Console) record(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	secs, err := strconv.Atoi(args[0])
	if err != nil || secs <= 0 {
		return errUsage
	}
	if _, err := c.self(); err != nil {
		return err
	}
	rec := appstate.Recording{ID: c.newID(), Duration: secs, Timestamp: c.now()}
	if err := c.rt.App.Dispatch(appstate.AddRecording{Recording: rec}); err != nil {
		return err
	}
	if err := c.award(gamification.ActivityVoiceRecording); err != nil {
		return err
	}
	c.printf("saved %ds recording\n", secs)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GAMIFICATION
// ══════════════════════════════════════════════════════════════════════════════

func (c *Console) points(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	a := gamification.Activity(strings.ToLower(args[0]))
	if gamification.PointsFor(a) == 0 {
		return fmt.Errorf("unknown activity %q", args[0])
	}
	return c.award(a)
}

func (c *Console) checkin(context.Context, []string) error {
	now := c.now()
	stats := c.rt.IX.State().Gamification
	if stats.Streak > 0 && !stats.LastActivityDate.IsZero() && timeutil.IsSameDay(stats.LastActivityDate, now) {
		c.printf("already checked in today · streak: %d days\n", stats.Streak)
		return nil
	}
	streak := gamification.NextStreak(stats.Streak, stats.LastActivityDate, now)
	if err := c.rt.IX.Dispatch(interactive.UpdateStreak{Streak: streak, At: now}); err != nil {
		return err
	}
	if err := c.award(gamification.ActivityDailyLogin); err != nil {
		return err
	}
	if streak >= 7 {
		if err := c.unlock(gamification.MilestoneWeekStreak); err != nil {
			return err
		}
	}
	c.printf("streak: %d days\n", streak)
	return nil
}

func (c *Console) badge(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	return c.unlock(args[0])
}

func (c *Console) challenge(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	ch, ok := gamification.ChallengeByID(args[0])
	if !ok {
		return fmt.Errorf("unknown challenge %q", args[0])
	}
	if c.challenges[ch.ID] {
		return fmt.Errorf("challenge %q already completed", ch.ID)
	}
	for _, a := range []interactive.Action{
		interactive.AddPoints{Delta: ch.Points},
		interactive.AddCelebration{Celebration: c.rt.Actions.ChallengeCompleted(ch)},
	} {
		if err := c.rt.IX.Dispatch(a); err != nil {
			return err
		}
	}
	c.challenges[ch.ID] = true
	c.printf("%s %s complete: +%d points\n", ch.Icon, ch.Title, ch.Points)
	return nil
}

func (c *Console) dismiss(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if _, ok := c.rt.IX.State().FindCelebration(args[0]); !ok {
		return fmt.Errorf("celebration %q: %w", args[0], shared.ErrNotFound)
	}
	return c.rt.IX.Dispatch(interactive.RemoveCelebration{ID: args[0]})
}

func (c *Console) tutorial(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	var a interactive.Action
	switch args[0] {
	case "on":
		a = interactive.SetTutorialActive{Active: true}
	case "off":
		a = interactive.SetTutorialActive{Active: false}
	default:
		step, err := strconv.Atoi(args[0])
		if err != nil || step < 0 {
			return errUsage
		}
		a = interactive.SetTutorialStep{Step: step}
	}
	return c.rt.IX.Dispatch(a)
}

func (c *Console) stats(context.Context, []string) error {
	c.printf("%s", formatStats(c.rt.App.State(), c.rt.IX.State()))
	return nil
}

func (c *Console) board(context.Context, []string) error {
	c.printf("%s", formatBoard(gamification.Leaderboard(c.rt.IX.State().Gamification.Points)))
	return nil
}

func (c *Console) events(context.Context, []string) error {
	c.printf("%s", formatEvents(c.rt.IX.State().LiveEvents, c.now()))
	return nil
}

func (c *Console) jobs(ctx context.Context, args []string) error {
	switch {
	case len(args) == 0:
		c.printf("%s", formatJobs(c.rt.Jobs(), c.rt.JobHistory(5)))
		return nil
	case len(args) == 2 && args[0] == "run":
		res, err := c.rt.RunJob(ctx, args[1])
		if err != nil {
			return err
		}
		c.printf("%s ran in %s\n", res.JobName, res.Duration)
		return nil
	default:
		return errUsage
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (c *Console) award(a gamification.Activity) error {
	return c.rt.IX.Dispatch(interactive.AddPoints{Delta: gamification.PointsFor(a)})
}

func (c *Console) unlock(milestone string) error {
	b, ok := gamification.BadgeFor(milestone, c.now())
	if !ok {
		return fmt.Errorf("unknown milestone %q", milestone)
	}
	return c.rt.IX.Dispatch(interactive.UnlockBadge{Badge: b})
}

func (c *Console) self() (string, error) {
	id, ok := c.rt.Self()
	if !ok {
		return "", errSignedOut
	}
	return id, nil
}

func (c *Console) mentor(id string) (mentor.Mentor, error) {
	m, ok := c.rt.App.State().FindMentor(id)
	if !ok {
		return mentor.Mentor{}, shared.ErrMentorNotFound
	}
	return m, nil
}

func (c *Console) session(id string) (session.Session, error) {
	s, ok := c.rt.App.State().FindSession(id)
	if !ok {
		return session.Session{}, shared.ErrSessionNotFound
	}
	return s, nil
}
