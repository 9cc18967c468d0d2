package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/voicementor/voicementor/internal/domain/appstate"
	"github.com/voicementor/voicementor/internal/domain/gamification"
	"github.com/voicementor/voicementor/internal/domain/interactive"
	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/infrastructure/scheduler"
	"github.com/voicementor/voicementor/pkg/timeutil"
)

func formatMentors(mentors []mentor.Mentor) string {
	if len(mentors) == 0 {
		return "no mentors match\n"
	}
	var sb strings.Builder
	for _, m := range mentors {
		fmt.Fprintf(&sb, "[%s] %s · %s · %s · ⭐ %.1f · %s · %s\n",
			m.ID, m.Name, m.Skill, m.Location, m.Rating, m.Price, onlineLabel(m.IsOnline))
	}
	return sb.String()
}

func formatSessions(sessions []session.Session, now time.Time) string {
	if len(sessions) == 0 {
		return "no sessions\n"
	}
	var sb strings.Builder
	for _, s := range sessions {
		fmt.Fprintf(&sb, "[%s] %s · %s · %s · %s (%s)",
			s.ID, s.MentorName, s.Type, s.Status, s.ScheduledTime.In(timeutil.IST).Format("02 Jan 15:04 IST"),
			timeutil.FormatRelative(s.ScheduledTime, now))
		if s.Rating != nil {
			fmt.Fprintf(&sb, " · rated %.1f", *s.Rating)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatStats(app appstate.State, ix interactive.State) string {
	g := ix.Gamification
	var sb strings.Builder
	if app.Identity != nil {
		fmt.Fprintf(&sb, "%s (%s)\n", app.Identity.Name, app.Identity.Role)
	}
	fmt.Fprintf(&sb, "Level %d · %d points · %d to next level\n", g.Level, g.Points, g.PointsToNextLevel())
	fmt.Fprintf(&sb, "Streak: %d days 🔥\n", g.Streak)
	fmt.Fprintf(&sb, "Sessions completed: %d · recordings: %d\n", app.CompletedSessions(), len(app.Recordings))
	if len(g.Badges) == 0 {
		sb.WriteString("Badges: none yet\n")
	} else {
		names := make([]string, 0, len(g.Badges))
		for _, b := range g.Badges {
			names = append(names, b.Icon+" "+b.Name)
		}
		fmt.Fprintf(&sb, "Badges: %s\n", strings.Join(names, ", "))
	}
	if unread := unreadCount(ix.ChatMessages, app); unread > 0 {
		fmt.Fprintf(&sb, "Unread messages: %d\n", unread)
	}
	return sb.String()
}

func unreadCount(msgs []interactive.ChatMessage, app appstate.State) int {
	self := ""
	if app.Identity != nil {
		self = app.Identity.ID
	}
	n := 0
	for _, m := range msgs {
		if !m.IsRead && m.SenderID != self {
			n++
		}
	}
	return n
}

func formatBoard(rows []gamification.Standing) string {
	var sb strings.Builder
	sb.WriteString("🏆 Weekly leaderboard\n")
	for _, r := range rows {
		marker := ""
		if r.IsUser {
			marker = " ← you"
		}
		fmt.Fprintf(&sb, "%s %s · %d%s\n", rankEmoji(r.Rank), r.Name, r.Points, marker)
	}
	return sb.String()
}

func rankEmoji(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank)
	}
}

func formatEvents(events []interactive.LiveEvent, now time.Time) string {
	if len(events) == 0 {
		return "no live activity yet\n"
	}
	var sb strings.Builder
	for _, e := range events {
		fmt.Fprintf(&sb, "%s · %s: %s\n", timeutil.FormatRelative(e.Timestamp, now), e.Title, e.Description)
	}
	return sb.String()
}

func formatJobs(jobs []scheduler.JobInfo, recent []scheduler.JobResult) string {
	if len(jobs) == 0 {
		return "no background jobs\n"
	}
	var sb strings.Builder
	for _, j := range jobs {
		state := "paused"
		if j.Enabled {
			state = "active"
		}
		fmt.Fprintf(&sb, "%s · %s · %s · runs %d · failed %d\n", j.Name, j.Schedule, state, j.RunCount, j.FailCount)
	}
	for _, r := range recent {
		outcome := "ok"
		if !r.Success {
			outcome = r.Error.Error()
		}
		fmt.Fprintf(&sb, "  %s %s: %s\n", r.StartedAt.In(timeutil.IST).Format("15:04:05"), r.JobName, outcome)
	}
	return sb.String()
}

func onlineLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
