package appstate

import (
	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/session"
)

// Reduce applies a to s and returns the next state.
// Unknown or nil actions return s unchanged. Slices are copied on write,
// so a previously returned state is never modified.
func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case SetIdentity:
		if act.User == nil {
			return s
		}
		s.Identity = act.User.Clone()
		s.IsAuthenticated = true
		s.Error = ""
		return s

	case ClearIdentity:
		s.Identity = nil
		s.IsAuthenticated = false
		s.Sessions = []session.Session{}
		s.Recordings = []Recording{}
		return s

	case SetMentorDirectory:
		mentors := make([]mentor.Mentor, len(act.Mentors))
		for i, m := range act.Mentors {
			mentors[i] = m.Clone()
		}
		s.Mentors = mentors
		return s

	case PatchMentor:
		idx := indexMentor(s.Mentors, act.ID)
		if idx < 0 {
			return s
		}
		mentors := append([]mentor.Mentor(nil), s.Mentors...)
		mentors[idx] = mentors[idx].Apply(act.Patch)
		s.Mentors = mentors
		return s

	case AddSession:
		s.Sessions = appendCopy(s.Sessions, act.Session.Clone())
		return s

	case PatchSession:
		idx := indexSession(s.Sessions, act.ID)
		if idx < 0 {
			return s
		}
		sessions := append([]session.Session(nil), s.Sessions...)
		sessions[idx] = sessions[idx].Apply(act.Patch)
		s.Sessions = sessions
		return s

	case RemoveSession:
		if indexSession(s.Sessions, act.ID) < 0 {
			return s
		}
		sessions := make([]session.Session, 0, len(s.Sessions)-1)
		for _, ss := range s.Sessions {
			if ss.ID != act.ID {
				sessions = append(sessions, ss)
			}
		}
		s.Sessions = sessions
		return s

	case AddRecording:
		s.Recordings = appendCopy(s.Recordings, act.Recording)
		return s

	case SetRecordingFlag:
		s.IsRecording = act.Recording
		return s

	case SetSearchFilters:
		if act.Query != nil {
			s.Filters.Query = *act.Query
		}
		if act.Skill != nil {
			s.Filters.Skill = *act.Skill
		}
		if act.Language != nil {
			s.Filters.Language = *act.Language
		}
		return s

	case AddNotification:
		s.Notifications = appendCopy(s.Notifications, act.Notification)
		return s

	case RemoveNotification:
		out := make([]Notification, 0, len(s.Notifications))
		for _, n := range s.Notifications {
			if n.ID != act.ID {
				out = append(out, n)
			}
		}
		if len(out) == len(s.Notifications) {
			return s
		}
		s.Notifications = out
		return s

	case SetLoading:
		s.Loading = act.Loading
		return s

	case SetError:
		s.Error = act.Message
		return s

	case AddAchievement:
		if s.Identity == nil {
			return s
		}
		u := s.Identity.Clone()
		u.Achievements = append(u.Achievements, act.Achievement)
		s.Identity = u
		return s

	case SetProgress:
		if s.Identity == nil {
			return s
		}
		u := s.Identity.Clone()
		u.Progress = clamp(act.Progress, 0, 100)
		s.Identity = u
		return s

	default:
		return s
	}
}

// appendCopy appends v to a fresh copy of list so the caller's backing array is untouched.
func appendCopy[T any](list []T, v T) []T {
	out := make([]T, len(list), len(list)+1)
	copy(out, list)
	return append(out, v)
}

func indexMentor(list []mentor.Mentor, id string) int {
	for i, m := range list {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func indexSession(list []session.Session, id string) int {
	for i, s := range list {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
