// Package gamification holds the pure rules behind points, levels, streaks, badges,
// daily challenges and the leaderboard. Every lookup is total: unknown keys yield a
// zero value, never an error.
package gamification

import (
	"sort"
	"time"

	"github.com/voicementor/voicementor/pkg/timeutil"
)

// PointsPerLevel is the width of one level band.
const PointsPerLevel = 1000

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITIES & POINTS
// ══════════════════════════════════════════════════════════════════════════════

// Activity identifies something a learner did that earns points.
type Activity string

const (
	ActivitySessionComplete Activity = "session_complete"
	ActivityMessageSent     Activity = "message_sent"
	ActivityVoiceRecording  Activity = "voice_recording"
	ActivityProfileComplete Activity = "profile_complete"
	ActivityMentorConnect   Activity = "mentor_connect"
	ActivityDailyLogin      Activity = "daily_login"
	ActivityStreakMaintain  Activity = "streak_maintain"
)

var pointsTable = map[Activity]int{
	ActivitySessionComplete: 100,
	ActivityMessageSent:     5,
	ActivityVoiceRecording:  20,
	ActivityProfileComplete: 50,
	ActivityMentorConnect:   25,
	ActivityDailyLogin:      10,
	ActivityStreakMaintain:  15,
}

// PointsFor returns the points awarded for an activity, or 0 if unknown.
func PointsFor(a Activity) int {
	return pointsTable[a]
}

// LevelFor returns the level reached with the given points.
func LevelFor(points int) int {
	if points < 0 {
		points = 0
	}
	return points/PointsPerLevel + 1
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGES
// ══════════════════════════════════════════════════════════════════════════════

// Rarity grades a badge.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Milestone keys that unlock badges.
const (
	MilestoneFirstSession   = "first_session"
	MilestoneWeekStreak     = "week_streak"
	MilestoneVoiceMaster    = "voice_master"
	MilestoneMentorFavorite = "mentor_favorite"
)

// Badge is an awarded achievement record.
type Badge struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
	EarnedDate  time.Time `json:"earnedDate"`
	Rarity      Rarity    `json:"rarity"`
}

var badgeTable = map[string]Badge{
	MilestoneFirstSession: {
		ID:          MilestoneFirstSession,
		Name:        "First Steps",
		Description: "Completed your first mentorship session",
		Icon:        "🎯",
		Color:       "blue",
		Rarity:      RarityCommon,
	},
	MilestoneWeekStreak: {
		ID:          MilestoneWeekStreak,
		Name:        "Consistent Learner",
		Description: "Maintained a 7-day learning streak",
		Icon:        "🔥",
		Color:       "orange",
		Rarity:      RarityRare,
	},
	MilestoneVoiceMaster: {
		ID:          MilestoneVoiceMaster,
		Name:        "Voice Master",
		Description: "Completed 50 voice sessions",
		Icon:        "🎤",
		Color:       "purple",
		Rarity:      RarityEpic,
	},
	MilestoneMentorFavorite: {
		ID:          MilestoneMentorFavorite,
		Name:        "Mentor's Favorite",
		Description: "Received 5-star rating from 10 mentors",
		Icon:        "⭐",
		Color:       "gold",
		Rarity:      RarityLegendary,
	},
}

// BadgeFor returns the badge for a milestone stamped with earnedAt.
// The second result is false for unknown milestones.
func BadgeFor(milestone string, earnedAt time.Time) (Badge, bool) {
	b, ok := badgeTable[milestone]
	if !ok {
		return Badge{}, false
	}
	b.EarnedDate = earnedAt
	return b, true
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS
// ══════════════════════════════════════════════════════════════════════════════

// Stats is the learner's gamification progress.
type Stats struct {
	Points              int       `json:"points"`
	Level               int       `json:"level"`
	Streak              int       `json:"streak"`
	LastActivityDate    time.Time `json:"lastActivityDate"`
	Badges              []Badge   `json:"badges"`
	DailyGoal           int       `json:"dailyGoal"`
	WeeklyGoal          int       `json:"weeklyGoal"`
	TotalSessionMinutes int       `json:"totalSessionMinutes"`
}

// DefaultStats returns a fresh learner's stats.
func DefaultStats() Stats {
	return Stats{
		Points:     0,
		Level:      1,
		Streak:     0,
		Badges:     []Badge{},
		DailyGoal:  30,
		WeeklyGoal: 180,
	}
}

// HasBadge reports whether a badge with the given id is already held.
func (s Stats) HasBadge(id string) bool {
	for _, b := range s.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

// PointsToNextLevel returns how many points remain until the next level.
func (s Stats) PointsToNextLevel() int {
	return s.Level*PointsPerLevel - s.Points
}

// NextStreak computes the streak after a check-in at now.
// Same IST day keeps the streak, the following day extends it, any gap restarts at 1.
func NextStreak(current int, lastActivity, now time.Time) int {
	if lastActivity.IsZero() || current <= 0 {
		return 1
	}
	switch {
	case timeutil.IsSameDay(lastActivity, now):
		return current
	case timeutil.IsConsecutiveDay(lastActivity, now):
		return current + 1
	default:
		return 1
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY CHALLENGES
// ══════════════════════════════════════════════════════════════════════════════

// Challenge is a daily task worth bonus points.
type Challenge struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Target      int    `json:"target"`
	Icon        string `json:"icon"`
}

// DailyChallenges returns today's challenge set.
func DailyChallenges() []Challenge {
	return []Challenge{
		{ID: "voice_session", Title: "Voice Session", Description: "Complete a 15-minute voice session", Points: 50, Target: 1, Icon: "🎤"},
		{ID: "send_messages", Title: "Active Learner", Description: "Send 10 messages to mentors", Points: 30, Target: 10, Icon: "💬"},
		{ID: "practice_streak", Title: "Consistency", Description: "Maintain your learning streak", Points: 25, Target: 1, Icon: "🔥"},
	}
}

// ChallengeByID returns the challenge with the given id.
func ChallengeByID(id string) (Challenge, bool) {
	for _, c := range DailyChallenges() {
		if c.ID == id {
			return c, true
		}
	}
	return Challenge{}, false
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

// Standing is one leaderboard row.
type Standing struct {
	Rank   int    `json:"rank"`
	Name   string `json:"name"`
	Points int    `json:"points"`
	IsUser bool   `json:"isUser"`
}

var rivals = []Standing{
	{Name: "Arjun Patel", Points: 4250},
	{Name: "Priya Singh", Points: 3890},
	{Name: "Kavya Reddy", Points: 3650},
	{Name: "Rohit Kumar", Points: 3200},
}

// Leaderboard ranks the learner against the weekly rivals, highest points first.
// Ties keep the learner ahead.
func Leaderboard(userPoints int) []Standing {
	rows := make([]Standing, 0, len(rivals)+1)
	rows = append(rows, Standing{Name: "You", Points: userPoints, IsUser: true})
	rows = append(rows, rivals...)

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Points > rows[j].Points
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}
