// Package timeutil provides calendar helpers pinned to India Standard Time (UTC+5:30).
// Mentors and learners are in India, so "today" for streaks means the IST calendar day.
package timeutil

import (
	"fmt"
	"time"
)

// IST is India Standard Time (UTC+5:30, no DST).
var IST = time.FixedZone("Asia/Kolkata", 5*60*60+30*60)

// ToIST converts a time to IST.
func ToIST(t time.Time) time.Time {
	return t.In(IST)
}

// StartOfDay returns 00:00:00 of t's IST calendar day.
func StartOfDay(t time.Time) time.Time {
	ist := ToIST(t)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, IST)
}

// IsSameDay checks if two times fall on the same IST calendar day.
func IsSameDay(t1, t2 time.Time) bool {
	a1, a2 := ToIST(t1), ToIST(t2)
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// IsConsecutiveDay checks if t2 is the IST day after t1.
func IsConsecutiveDay(t1, t2 time.Time) bool {
	return IsSameDay(StartOfDay(t1).AddDate(0, 0, 1), t2)
}

// FormatRelative returns a short human-readable offset of t from now.
func FormatRelative(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		return formatFuture(-d)
	}
	return formatPast(d)
}

func formatPast(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d h ago", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatFuture(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("in %d min", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("in %d h", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "tomorrow"
		}
		return fmt.Sprintf("in %d days", days)
	}
}
