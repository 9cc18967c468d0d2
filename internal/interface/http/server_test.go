package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/voicementor/voicementor/internal/application/command"
	"github.com/voicementor/voicementor/internal/domain/interactive"
	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/internal/infrastructure/persistence/memory"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Count   *int            `json:"count"`
}

func newTestServer(t *testing.T, live *LiveHub) *Server {
	t.Helper()
	mentors := memory.NewMentorRepository()
	require.NoError(t, mentors.Seed(context.Background(), mentor.DefaultDirectory()))

	deps := NewDependencies(Repositories{
		Users:    memory.NewUserRepository(),
		Mentors:  mentors,
		Sessions: memory.NewSessionRepository(),
	}, command.Deps{Clock: clock.NewMock(), NewID: shared.Sequence("id")}, bcrypt.MinCost)
	deps.Live = live

	cfg := DefaultConfig()
	cfg.RateLimitPerSecond = 0
	return NewServer(cfg, deps)
}

func do(t *testing.T, s *Server, method, path, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

const aliceJSON = `{"name":"Alice","phone":"+254700000001","role":"learner","language":"English","interests":["farming"]}`

func TestPing(t *testing.T) {
	s := newTestServer(t, nil)
	code, env := do(t, s, http.MethodGet, "/api/ping", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.Equal(t, "Hello from VoiceMentor server!", env.Message)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)
	code, env := do(t, s, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
	assert.Equal(t, "Route not found", env.Message)
}

func TestCreateUser(t *testing.T) {
	s := newTestServer(t, nil)

	code, env := do(t, s, http.MethodPost, "/api/users", aliceJSON)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "User created successfully", env.Message)

	var created map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "id-1", created["id"])
	assert.NotContains(t, created, "pinHash")

	code, env = do(t, s, http.MethodPost, "/api/users", aliceJSON)
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Success)
	assert.Equal(t, "User with this phone number already exists", env.Message)

	code, _ = do(t, s, http.MethodPost, "/api/users", `{"name":"Bob"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, s, http.MethodPost, "/api/users", `{not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = do(t, s, http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)
}

func TestUpdateUser_OnlyGivenFields(t *testing.T) {
	s := newTestServer(t, nil)
	_, _ = do(t, s, http.MethodPost, "/api/users", aliceJSON)

	code, env := do(t, s, http.MethodPut, "/api/users/id-1", `{"location":"Nakuru","progress":40}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "User updated successfully", env.Message)

	var got map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Alice", got["name"])
	assert.Equal(t, "Nakuru", got["location"])
	assert.Equal(t, float64(40), got["progress"])
	assert.Equal(t, "English", got["language"])

	code, _ = do(t, s, http.MethodPut, "/api/users/ghost", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, nil)
	_, _ = do(t, s, http.MethodPost, "/api/users",
		`{"name":"Alice","phone":"+254700000001","role":"learner","pin":"1234"}`)

	code, env := do(t, s, http.MethodPost, "/api/auth/login", `{"phone":"+254700000001","pin":"1234"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Login successful", env.Message)

	code, _ = do(t, s, http.MethodPost, "/api/auth/login", `{"phone":"+254700000001","pin":"0000"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, s, http.MethodPost, "/api/auth/login", `{"phone":"+254799999999"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, s, http.MethodPost, "/api/auth/login", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMentors(t *testing.T) {
	s := newTestServer(t, nil)

	code, env := do(t, s, http.MethodGet, "/api/mentors?online=true", "")
	require.Equal(t, http.StatusOK, code)
	var online []mentor.Mentor
	require.NoError(t, json.Unmarshal(env.Data, &online))
	assert.Len(t, online, 4)
	for _, m := range online {
		assert.True(t, m.IsOnline, m.ID)
	}

	code, _ = do(t, s, http.MethodGet, "/api/mentors/99", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, env = do(t, s, http.MethodPut, "/api/mentors/2/status", `{"isOnline":true,"availability":"Now"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Mentor status updated", env.Message)
	var m mentor.Mentor
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.True(t, m.IsOnline)
	assert.Equal(t, "Now", m.Availability)

	// a non-boolean isOnline leaves the flag alone
	_, env = do(t, s, http.MethodPut, "/api/mentors/2/status", `{"isOnline":"no"}`)
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.True(t, m.IsOnline)

	code, env = do(t, s, http.MethodGet, "/api/skills", "")
	assert.Equal(t, http.StatusOK, code)
	var skills []string
	require.NoError(t, json.Unmarshal(env.Data, &skills))
	assert.NotEmpty(t, skills)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	code, env := do(t, s, http.MethodPost, "/api/sessions",
		`{"mentorId":"1","userId":"u1","scheduledTime":"2025-01-10T10:00:00Z","duration":30}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Session scheduled successfully", env.Message)
	var created map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "scheduled", created["status"])
	id := created["id"].(string)

	code, _ = do(t, s, http.MethodPost, "/api/sessions", `{"mentorId":"1","userId":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, s, http.MethodPost, "/api/sessions", `{"mentorId":"1","userId":"u1","scheduledTime":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = do(t, s, http.MethodPut, "/api/sessions/"+id, `{"notes":"bring soil samples"}`)
	require.Equal(t, http.StatusOK, code)
	var updated map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "bring soil samples", updated["notes"])
	assert.Equal(t, float64(30), updated["duration"])

	code, env = do(t, s, http.MethodPost, "/api/sessions/"+id+"/join", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Session joined successfully", env.Message)

	code, env = do(t, s, http.MethodPost, "/api/sessions/"+id+"/end", `{"rating":5,"notes":"great"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Session completed successfully", env.Message)

	code, env = do(t, s, http.MethodGet, "/api/sessions?userId=u1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, *env.Count)

	code, _ = do(t, s, http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, s, http.MethodGet, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestJoinUnknownSession(t *testing.T) {
	s := newTestServer(t, nil)
	code, env := do(t, s, http.MethodPost, "/api/sessions/missing/join", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Session not found", env.Message)
}

func TestRecoveryMiddleware(t *testing.T) {
	s := newTestServer(t, nil)
	s.router.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	code, env := do(t, s, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal server error", env.Message)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, nil)
	cfg := DefaultConfig()
	cfg.RateLimitPerSecond = 1
	cfg.RateLimitBurst = 1
	limited := NewServer(cfg, s.deps)

	code, _ := do(t, limited, http.MethodGet, "/api/ping", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, limited, http.MethodGet, "/api/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestLiveHub_StreamsEvents(t *testing.T) {
	var clients atomic.Int32
	hub := NewLiveHub(LiveHubOptions{OnClients: func(d int) { clients.Add(int32(d)) }})
	s := newTestServer(t, hub)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/live", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(interactive.LiveEvent{ID: "e1", Type: interactive.EventMentorOnline, Title: "Mentor Online"})

	var got interactive.LiveEvent
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, interactive.EventMentorOnline, got.Type)

	hub.Close()
	_, _, err = conn.Read(ctx)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(0), clients.Load())
}

func TestLiveHub_BroadcastNeverBlocks(t *testing.T) {
	hub := NewLiveHub(LiveHubOptions{Buffer: 1})
	c, ok := hub.add()
	require.True(t, ok)

	for i := 0; i < 5; i++ {
		hub.Broadcast(interactive.LiveEvent{ID: "x"})
	}
	assert.Len(t, c.events, 1)

	hub.Close()
	_, ok = hub.add()
	assert.False(t, ok)
}
