// Package apiclient talks to the VoiceMentor API server on behalf of the
// client runtime: mentor directory sync, account registration, session
// booking and the websocket live feed.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/domain/user"
	"github.com/voicementor/voicementor/pkg/circuitbreaker"
	"github.com/voicementor/voicementor/pkg/logger"
	"github.com/voicementor/voicementor/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the API client.
type Config struct {
	// BaseURL is the server root, e.g. http://localhost:8080.
	BaseURL string

	Timeout time.Duration

	// RequestsPerSecond paces outgoing calls. 0 disables pacing.
	RequestsPerSecond float64
	Burst             int

	// Retry overrides the default API retry policy.
	Retry []retry.Option

	HTTPClient *http.Client
	Logger     *logger.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:           baseURL,
		Timeout:           10 * time.Second,
		RequestsPerSecond: 5,
		Burst:             10,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the VoiceMentor REST client.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *limiter
	breaker *circuitbreaker.Breaker
	retrier *retry.Retrier
	log     *logger.Logger
}

// New creates a client. It fails only on a malformed BaseURL.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("apiclient: invalid base url %q", cfg.BaseURL)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("api_client"))

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		base:    base,
		http:    httpClient,
		limiter: newLimiter(cfg.RequestsPerSecond, cfg.Burst),
		log:     log,
	}

	retryOpts := append([]retry.Option{
		retry.WithRetryIf(isRetryable),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			log.Debug("retrying api call",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Err(err),
			)
		}),
	}, cfg.Retry...)
	c.retrier = retry.New(append(apiRetryDefaults(), retryOpts...)...)

	onState := func(name string, from, to circuitbreaker.State) {
		log.Warn("api circuit breaker state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	}
	c.breaker = circuitbreaker.ServerBreaker(onState, circuitbreaker.WithIsFailure(isRetryable))

	return c, nil
}

func apiRetryDefaults() []retry.Option {
	cfg := retry.APIRetrier().Config()
	return []retry.Option{
		retry.WithMaxAttempts(cfg.MaxAttempts),
		retry.WithInitialDelay(cfg.InitialDelay),
		retry.WithMaxDelay(cfg.MaxDelay),
		retry.WithMultiplier(cfg.Multiplier),
		retry.WithJitter(cfg.JitterFactor),
	}
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

// ══════════════════════════════════════════════════════════════════════════════
// OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	var out envelope[json.RawMessage]
	return c.do(ctx, http.MethodGet, "/api/ping", nil, &out)
}

// ListMentors fetches the full mentor directory.
func (c *Client) ListMentors(ctx context.Context) ([]mentor.Mentor, error) {
	var out envelope[[]mentor.Mentor]
	if err := c.do(ctx, http.MethodGet, "/api/mentors", nil, &out); err != nil {
		return nil, fmt.Errorf("list mentors: %w", err)
	}
	return out.Data, nil
}

// SyncMentors fetches the directory and hands each mentor to apply.
// It returns how many mentors were applied.
func (c *Client) SyncMentors(ctx context.Context, apply func(mentor.Mentor)) (int, error) {
	mentors, err := c.ListMentors(ctx)
	if err != nil {
		return 0, err
	}
	for _, m := range mentors {
		apply(m)
	}
	c.log.Debug("mentors synced", logger.Int("count", len(mentors)))
	return len(mentors), nil
}

// RegisterUser creates an account for u on the server. An empty pin leaves
// login open to the phone number alone.
func (c *Client) RegisterUser(ctx context.Context, u user.User, pin string) (*user.User, error) {
	req := RegisterUserRequest{
		ID:        u.ID,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      string(u.Role),
		Language:  u.Language,
		Location:  u.Location,
		Interests: u.Interests,
		Level:     u.Level,
		Avatar:    u.Avatar,
		Pin:       pin,
	}
	var out envelope[user.User]
	if err := c.do(ctx, http.MethodPost, "/api/users", req, &out); err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	return &out.Data, nil
}

// Login fetches the account owning phone.
func (c *Client) Login(ctx context.Context, phone, pin string) (*user.User, error) {
	body := map[string]string{"phone": phone, "pin": pin}
	var out envelope[user.User]
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &out.Data, nil
}

// CreateSession books s on the server and returns the stored copy.
func (c *Client) CreateSession(ctx context.Context, s session.Session) (*session.Session, error) {
	req := CreateSessionRequest{
		ID:            s.ID,
		MentorID:      s.MentorID,
		MentorName:    s.MentorName,
		UserID:        s.UserID,
		Skill:         s.Skill,
		ScheduledTime: s.ScheduledTime,
		Duration:      s.Duration,
		Type:          string(s.Type),
	}
	var out envelope[session.Session]
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &out); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &out.Data, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// do runs one logical call through the breaker, with retries and pacing
// for every attempt.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		payload = b
	}

	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Permanent(err)
			}
			err := c.doSingle(ctx, method, path, payload, result)
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				c.limiter.Pause(apiErr.RetryAfter)
			}
			return err
		})
	})
}

func (c *Client) doSingle(ctx context.Context, method, path string, payload []byte, result any) error {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, bodyReader)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env envelope[json.RawMessage]
		if json.Unmarshal(respBody, &env) == nil {
			apiErr.Message = env.Message
		}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				apiErr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return retry.Permanent(fmt.Errorf("unmarshal response: %w", err))
		}
	}
	return nil
}

// isRetryable decides both retries and breaker accounting: a 4xx answer
// proves the server is up.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset")
}
