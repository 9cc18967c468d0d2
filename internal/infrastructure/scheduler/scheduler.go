// Package scheduler runs periodic jobs on an injected clock.
//
// Every registered job owns one timer. When the timer fires the job runs and
// its next timer is armed from the schedule. Stop cancels every timer and waits
// for running jobs, so nothing fires after Stop returns.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/facebookgo/clock"

	"github.com/voicementor/voicementor/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job is a unit of periodic work.
type Job interface {
	Name() string

	// Run executes the job. ctx is cancelled when the scheduler stops.
	Run(ctx context.Context) error

	Description() string
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	JobName string
	Desc    string
	Fn      func(ctx context.Context) error
}

func (f JobFunc) Name() string                  { return f.JobName }
func (f JobFunc) Description() string           { return f.Desc }
func (f JobFunc) Run(ctx context.Context) error { return f.Fn(ctx) }

// JobResult contains the outcome of one execution.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Success     bool
	Error       error
	Manual      bool
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrNilJob                  = errors.New("job cannot be nil")
	ErrNilSchedule             = errors.New("schedule cannot be nil")
	ErrJobAlreadyExists        = errors.New("job already exists")
	ErrJobNotFound             = errors.New("job not found")
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")
	ErrSchedulerNotRunning     = errors.New("scheduler is not running")
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the Scheduler.
type Config struct {
	Logger *logger.Logger

	// Clock drives every timer. Tests pass clock.NewMock().
	Clock clock.Clock

	// MaxHistorySize bounds the retained run history.
	MaxHistorySize int

	// OnResult is called after every execution, e.g. to feed metrics.
	OnResult func(JobResult)
}

// Scheduler manages and executes scheduled jobs.
type Scheduler struct {
	mu sync.Mutex

	log      *logger.Logger
	clock    clock.Clock
	onResult func(JobResult)

	jobs    map[string]*scheduledJob
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	history    []JobResult
	maxHistory int
}

type scheduledJob struct {
	job       Job
	schedule  Schedule
	enabled   bool
	timer     *clock.Timer
	lastRun   time.Time
	nextRun   time.Time
	runCount  int64
	failCount int64
}

// New creates a scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.MaxHistorySize <= 0 {
		cfg.MaxHistorySize = 100
	}
	return &Scheduler{
		log:        cfg.Logger.With(logger.Component("scheduler")),
		clock:      cfg.Clock,
		onResult:   cfg.OnResult,
		jobs:       make(map[string]*scheduledJob),
		maxHistory: cfg.MaxHistorySize,
	}
}

// Register adds a job. If the scheduler is running the job is armed at once.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	sj := &scheduledJob{job: job, schedule: schedule, enabled: true}
	s.jobs[name] = sj
	if s.running {
		s.arm(sj)
	}

	s.log.Info("job registered",
		logger.String("job", name),
		logger.String("schedule", schedule.String()),
	)
	return nil
}

// SetEnabled pauses or resumes a job.
func (s *Scheduler) SetEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sj, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	sj.enabled = enabled
	if !enabled {
		disarm(sj)
	} else if s.running && sj.timer == nil {
		s.arm(sj)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start arms every enabled job.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerAlreadyRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for _, sj := range s.jobs {
		if sj.enabled {
			s.arm(sj)
		}
	}
	s.log.Info("scheduler started", logger.Int("jobs_count", len(s.jobs)))
	return nil
}

// Stop cancels every timer and waits for running jobs to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	for _, sj := range s.jobs {
		disarm(sj)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
	return nil
}

// IsRunning reports whether Start has been called without Stop.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// arm schedules the next execution of sj. Caller holds mu.
func (s *Scheduler) arm(sj *scheduledJob) {
	now := s.clock.Now()
	next := sj.schedule.Next(now)
	if next.IsZero() {
		sj.nextRun = time.Time{}
		return
	}
	sj.nextRun = next

	ctx := s.ctx
	sj.timer = s.clock.AfterFunc(next.Sub(now), func() {
		s.fire(ctx, sj)
	})
}

func disarm(sj *scheduledJob) {
	if sj.timer != nil {
		sj.timer.Stop()
		sj.timer = nil
	}
	sj.nextRun = time.Time{}
}

// fire runs sj and rearms it if the scheduler is still running.
func (s *Scheduler) fire(ctx context.Context, sj *scheduledJob) {
	s.mu.Lock()
	if !s.running || ctx.Err() != nil || s.jobs[sj.job.Name()] != sj || !sj.enabled {
		s.mu.Unlock()
		return
	}
	sj.timer = nil
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	s.execute(ctx, sj, false)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && sj.enabled && sj.timer == nil && s.jobs[sj.job.Name()] == sj {
		s.arm(sj)
	}
}

// execute runs the job and records the result.
func (s *Scheduler) execute(ctx context.Context, sj *scheduledJob, manual bool) JobResult {
	name := sj.job.Name()
	started := s.clock.Now()

	err := s.safeRun(ctx, sj.job)

	completed := s.clock.Now()
	res := JobResult{
		JobName:     name,
		StartedAt:   started,
		CompletedAt: completed,
		Duration:    completed.Sub(started),
		Success:     err == nil,
		Error:       err,
		Manual:      manual,
	}

	s.mu.Lock()
	sj.lastRun = started
	sj.runCount++
	if err != nil {
		sj.failCount++
	}
	s.history = append(s.history, res)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
	onResult := s.onResult
	s.mu.Unlock()

	if err != nil {
		s.log.Error("job failed", logger.String("job", name), logger.Err(err))
	} else {
		s.log.Debug("job completed", logger.String("job", name), logger.Latency(res.Duration))
	}
	if onResult != nil {
		onResult(res)
	}
	return res
}

func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	return job.Run(ctx)
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) (JobResult, error) {
	s.mu.Lock()
	sj, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return JobResult{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	res := s.execute(ctx, sj, true)
	return res, res.Error
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS & INFO
// ══════════════════════════════════════════════════════════════════════════════

// JobInfo describes a registered job.
type JobInfo struct {
	Name        string
	Description string
	Enabled     bool
	Schedule    string
	LastRun     time.Time
	NextRun     time.Time
	RunCount    int64
	FailCount   int64
}

// ListJobs returns every registered job sorted by name.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, sj := range s.jobs {
		infos = append(infos, JobInfo{
			Name:        name,
			Description: sj.job.Description(),
			Enabled:     sj.enabled,
			Schedule:    sj.schedule.String(),
			LastRun:     sj.lastRun,
			NextRun:     sj.nextRun,
			RunCount:    sj.runCount,
			FailCount:   sj.failCount,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// History returns up to limit of the most recent results, oldest first.
func (s *Scheduler) History(limit int) []JobResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]JobResult, limit)
	copy(out, s.history[len(s.history)-limit:])
	return out
}
