// Package persistence mirrors client state slices into a key-value store and
// replays them on start.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"github.com/voicementor/voicementor/internal/application/store"
	"github.com/voicementor/voicementor/internal/domain/appstate"
	"github.com/voicementor/voicementor/internal/domain/interactive"
	"github.com/voicementor/voicementor/internal/infrastructure/persistence/kv"
	"github.com/voicementor/voicementor/pkg/logger"
)

// Keys under which each slice is stored.
const (
	KeyUser         = "voicementor_user"
	KeyMentors      = "voicementor_mentors"
	KeySessions     = "voicementor_sessions"
	KeyGamification = "voicementor_gamification"
)

const writeTimeout = 5 * time.Second

type (
	AppStore         = store.Store[appstate.State, appstate.Action]
	InteractiveStore = store.Store[interactive.State, interactive.Action]
)

// Mirror writes each slice to the key-value store whenever it changes.
type Mirror struct {
	kv  kv.Store
	log *logger.Logger

	unsub []func()
}

// NewMirror creates a mirror over kvs.
func NewMirror(kvs kv.Store, log *logger.Logger) *Mirror {
	return &Mirror{
		kv:  kvs,
		log: log.With(logger.Component("persistence")),
	}
}

// Attach subscribes the mirror to both stores.
func (m *Mirror) Attach(app *AppStore, ix *InteractiveStore) {
	m.unsub = append(m.unsub,
		app.Subscribe(m.onApp),
		ix.Subscribe(m.onInteractive),
	)
}

// Detach stops mirroring.
func (m *Mirror) Detach() {
	for _, u := range m.unsub {
		u()
	}
	m.unsub = nil
}

func (m *Mirror) onApp(prev, next appstate.State, _ appstate.Action) {
	if !reflect.DeepEqual(prev.Identity, next.Identity) {
		if next.Identity == nil {
			m.delete(KeyUser)
		} else {
			m.write(KeyUser, next.Identity)
		}
	}
	if !reflect.DeepEqual(prev.Mentors, next.Mentors) {
		m.write(KeyMentors, next.Mentors)
	}
	if !reflect.DeepEqual(prev.Sessions, next.Sessions) {
		m.write(KeySessions, next.Sessions)
	}
}

func (m *Mirror) onInteractive(prev, next interactive.State, _ interactive.Action) {
	if !reflect.DeepEqual(prev.Gamification, next.Gamification) {
		m.write(KeyGamification, next.Gamification)
	}
}

func (m *Mirror) write(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.log.Error("failed to encode slice", logger.String("key", key), logger.Err(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := m.kv.Set(ctx, key, data); err != nil {
		m.log.Warn("failed to persist slice", logger.String("key", key), logger.Err(err))
		return
	}
	m.log.Debug("slice persisted", logger.String("key", key), logger.Int("bytes", len(data)))
}

func (m *Mirror) delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := m.kv.Delete(ctx, key); err != nil && !errors.Is(err, kv.ErrNotFound) {
		m.log.Warn("failed to delete slice", logger.String("key", key), logger.Err(err))
	}
}
