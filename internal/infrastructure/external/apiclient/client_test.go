package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicementor/voicementor/internal/domain/interactive"
	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/internal/domain/user"
	"github.com/voicementor/voicementor/pkg/circuitbreaker"
	"github.com/voicementor/voicementor/pkg/retry"
)

func fastConfig(url string) Config {
	cfg := DefaultConfig(url)
	cfg.RequestsPerSecond = 0
	cfg.Retry = []retry.Option{
		retry.WithInitialDelay(time.Millisecond),
		retry.WithMaxDelay(2 * time.Millisecond),
		retry.WithJitter(0),
	}
	return cfg
}

func writeEnvelope(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 400, "data": data, "message": message})
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(DefaultConfig("not a url"))
	assert.Error(t, err)
}

func TestSyncMentors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/mentors", r.URL.Path)
		writeEnvelope(w, http.StatusOK, mentor.DefaultDirectory(), "")
	}))
	defer srv.Close()

	c, err := New(fastConfig(srv.URL))
	require.NoError(t, err)

	var got []string
	n, err := c.SyncMentors(context.Background(), func(m mentor.Mentor) { got = append(got, m.ID) })
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6"}, got)
}

func TestRegisterUser_SendsBodyAndMapsConflict(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		var req RegisterUserRequest
		assert.NoError(t, json.Unmarshal(body, &req))

		if req.Phone == "taken" {
			writeEnvelope(w, http.StatusConflict, nil, "User with this phone number already exists")
			return
		}
		writeEnvelope(w, http.StatusCreated, map[string]any{"id": "u1", "name": req.Name, "phone": req.Phone, "role": req.Role}, "User created successfully")
	}))
	defer srv.Close()

	c, err := New(fastConfig(srv.URL))
	require.NoError(t, err)

	u, err := c.RegisterUser(context.Background(), user.User{Name: "Amina", Phone: "+1", Role: user.RoleLearner}, "")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Amina", u.Name)

	_, err = c.RegisterUser(context.Background(), user.User{Name: "B", Phone: "taken", Role: user.RoleLearner}, "1234")
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	// a 409 is an answer, not an outage: one call each, breaker stays closed
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, circuitbreaker.StateClosed, c.BreakerState())
}

func TestCreateSessionAndLogin(t *testing.T) {
	at := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/api/sessions":
			var req CreateSessionRequest
			assert.NoError(t, json.Unmarshal(body, &req))
			assert.Equal(t, "video", req.Type)
			assert.True(t, at.Equal(req.ScheduledTime))
			writeEnvelope(w, http.StatusCreated, map[string]any{
				"id": req.ID, "mentorId": req.MentorID, "userId": req.UserID,
				"status": "scheduled", "type": req.Type, "scheduledTime": req.ScheduledTime,
			}, "Session scheduled successfully")
		case "/api/auth/login":
			var req map[string]string
			assert.NoError(t, json.Unmarshal(body, &req))
			if req["pin"] != "1234" {
				writeEnvelope(w, http.StatusUnauthorized, nil, "Invalid PIN")
				return
			}
			writeEnvelope(w, http.StatusOK, map[string]any{"id": "u1", "phone": req["phone"]}, "Login successful")
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c, err := New(fastConfig(srv.URL))
	require.NoError(t, err)
	ctx := context.Background()

	s, err := c.CreateSession(ctx, session.Session{ID: "s1", MentorID: "1", UserID: "u1", ScheduledTime: at, Type: session.KindVideo})
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, session.StatusScheduled, s.Status)

	u, err := c.Login(ctx, "+1", "1234")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = c.Login(ctx, "+1", "0000")
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeEnvelope(w, http.StatusServiceUnavailable, nil, "busy")
			return
		}
		writeEnvelope(w, http.StatusOK, nil, "Hello from VoiceMentor server!")
	}))
	defer srv.Close()

	c, err := New(fastConfig(srv.URL))
	require.NoError(t, err)
	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestBreakerOpensOnOutage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusInternalServerError, nil, "Internal server error")
	}))
	defer srv.Close()

	cfg := fastConfig(srv.URL)
	cfg.Retry = append(cfg.Retry, retry.WithMaxAttempts(1))
	c, err := New(cfg)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.Error(t, c.Ping(context.Background()))
	}
	assert.Equal(t, circuitbreaker.StateOpen, c.BreakerState())

	assert.ErrorIs(t, c.Ping(context.Background()), circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryAfterPausesLimiter(t *testing.T) {
	l := newLimiter(0, 1)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Pause(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)

	now = now.Add(2 * time.Hour)
	assert.NoError(t, l.Wait(context.Background()))
}

func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: http.StatusNotFound, Message: "Mentor not found"}
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NotErrorIs(t, err, shared.ErrAlreadyExists)
	assert.False(t, err.Temporary())
	assert.True(t, (&APIError{StatusCode: http.StatusTooManyRequests}).Temporary())
	assert.Contains(t, err.Error(), "Mentor not found")
}

func TestStream_DeliversLiveEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/live", r.URL.Path)
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		for _, id := range []string{"a", "b"} {
			_ = wsjson.Write(r.Context(), conn, interactive.LiveEvent{ID: id, Type: interactive.EventMentorOnline})
		}
		conn.Close(websocket.StatusNormalClosure, "done")
	}))
	defer srv.Close()

	c, err := New(fastConfig(srv.URL))
	require.NoError(t, err)

	var got []string
	err = c.Stream(context.Background(), func(e interactive.LiveEvent) { got = append(got, e.ID) })
	assert.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestSubscribe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		ctx := conn.CloseRead(r.Context())
		_ = wsjson.Write(ctx, conn, interactive.LiveEvent{ID: "only"})
		<-ctx.Done()
	}))
	defer srv.Close()

	c, err := New(fastConfig(srv.URL))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- c.Subscribe(ctx, func(e interactive.LiveEvent) {
			if e.ID == "only" {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("subscribe did not return after cancel")
	}
}
