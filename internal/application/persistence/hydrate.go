package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/voicementor/voicementor/internal/domain/appstate"
	"github.com/voicementor/voicementor/internal/domain/gamification"
	"github.com/voicementor/voicementor/internal/domain/interactive"
	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/domain/user"
	"github.com/voicementor/voicementor/internal/infrastructure/persistence/kv"
	"github.com/voicementor/voicementor/pkg/logger"
)

// Report tells what hydration restored.
type Report struct {
	Identity      bool
	Mentors       bool
	SeededMentors bool
	Sessions      int
	Gamification  bool

	// Malformed lists the keys whose stored value could not be decoded.
	Malformed []string
}

// snapshot is what was read before any dispatch.
type snapshot struct {
	user     *user.User
	mentors  []mentor.Mentor
	sessions []session.Session
	stats    *gamification.Stats

	mentorsAbsent bool
}

// Hydrate reads every slice first and then replays them through normal dispatch.
// A malformed slice is logged and left at its default. An absent mentor directory
// is seeded with the default directory.
func Hydrate(ctx context.Context, kvs kv.Store, app *AppStore, ix *InteractiveStore, log *logger.Logger) (Report, error) {
	log = log.With(logger.Component("persistence"), logger.Operation("hydrate"))

	var rep Report
	snap, err := read(ctx, kvs, log, &rep)
	if err != nil {
		return rep, err
	}

	if snap.user != nil {
		if err := app.Dispatch(appstate.SetIdentity{User: snap.user}); err != nil {
			return rep, err
		}
		rep.Identity = true
	}

	switch {
	case snap.mentors != nil:
		if err := app.Dispatch(appstate.SetMentorDirectory{Mentors: snap.mentors}); err != nil {
			return rep, err
		}
		rep.Mentors = true
	case snap.mentorsAbsent:
		if err := app.Dispatch(appstate.SetMentorDirectory{Mentors: mentor.DefaultDirectory()}); err != nil {
			return rep, err
		}
		rep.SeededMentors = true
	}

	for _, s := range snap.sessions {
		if err := app.Dispatch(appstate.AddSession{Session: s}); err != nil {
			return rep, err
		}
		rep.Sessions++
	}

	if st := snap.stats; st != nil {
		actions := []interactive.Action{
			interactive.AddPoints{Delta: st.Points},
			interactive.UpdateStreak{Streak: st.Streak, At: st.LastActivityDate},
		}
		for _, b := range st.Badges {
			actions = append(actions, interactive.UnlockBadge{Badge: b})
		}
		for _, a := range actions {
			if err := ix.Dispatch(a); err != nil {
				return rep, err
			}
		}
		rep.Gamification = true
	}

	log.Info("state hydrated",
		logger.Bool("identity", rep.Identity),
		logger.Bool("mentors", rep.Mentors),
		logger.Bool("seeded_mentors", rep.SeededMentors),
		logger.Int("sessions", rep.Sessions),
		logger.Bool("gamification", rep.Gamification),
		logger.Strings("malformed", rep.Malformed),
	)
	return rep, nil
}

func read(ctx context.Context, kvs kv.Store, log *logger.Logger, rep *Report) (snapshot, error) {
	var snap snapshot

	found, err := load(ctx, kvs, KeyUser, &snap.user)
	if err != nil {
		return snap, err
	}
	if found == loadMalformed {
		snap.user = nil
		rep.Malformed = append(rep.Malformed, KeyUser)
	}

	found, err = load(ctx, kvs, KeyMentors, &snap.mentors)
	if err != nil {
		return snap, err
	}
	switch found {
	case loadAbsent:
		snap.mentorsAbsent = true
	case loadMalformed:
		snap.mentors = nil
		rep.Malformed = append(rep.Malformed, KeyMentors)
	case loadOK:
		if snap.mentors == nil {
			snap.mentors = []mentor.Mentor{}
		}
	}

	found, err = load(ctx, kvs, KeySessions, &snap.sessions)
	if err != nil {
		return snap, err
	}
	if found == loadMalformed {
		snap.sessions = nil
		rep.Malformed = append(rep.Malformed, KeySessions)
	}

	found, err = load(ctx, kvs, KeyGamification, &snap.stats)
	if err != nil {
		return snap, err
	}
	if found == loadMalformed {
		snap.stats = nil
		rep.Malformed = append(rep.Malformed, KeyGamification)
	}

	for _, key := range rep.Malformed {
		log.Warn("malformed persisted slice ignored", logger.String("key", key))
	}
	return snap, nil
}

type loadResult int

const (
	loadAbsent loadResult = iota
	loadOK
	loadMalformed
)

// load decodes key into dst. Only backend failures are returned as errors.
func load(ctx context.Context, kvs kv.Store, key string, dst any) (loadResult, error) {
	data, err := kvs.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return loadAbsent, nil
	}
	if err != nil {
		return loadAbsent, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return loadMalformed, nil
	}
	return loadOK, nil
}
