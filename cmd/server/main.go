// Package main is the VoiceMentor API server: the REST surface, the
// websocket live feed, health endpoints, metrics and the session reminder job.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/voicementor/voicementor/config"
	"github.com/voicementor/voicementor/internal/application/command"
	"github.com/voicementor/voicementor/internal/application/eventhandler"
	"github.com/voicementor/voicementor/internal/domain/mentor"
	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/internal/infrastructure/messaging"
	"github.com/voicementor/voicementor/internal/infrastructure/metrics"
	"github.com/voicementor/voicementor/internal/infrastructure/persistence/memory"
	"github.com/voicementor/voicementor/internal/infrastructure/persistence/postgres"
	"github.com/voicementor/voicementor/internal/infrastructure/scheduler"
	"github.com/voicementor/voicementor/internal/infrastructure/scheduler/jobs"
	apihttp "github.com/voicementor/voicementor/internal/interface/http"
	"github.com/voicementor/voicementor/internal/interface/http/handlers"
	"github.com/voicementor/voicementor/pkg/logger"
	"github.com/voicementor/voicementor/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Observability.LoggerOptions()).With(logger.String("service", "api"))
	defer func() { _ = log.Sync() }()

	log.Info("starting VoiceMentor API server",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Int("port", cfg.HTTP.Port),
	)

	var m *metrics.Metrics
	if cfg.Features.Enabled(config.FeatureMetrics) && cfg.Observability.MetricsEnabled {
		m = metrics.New()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewReport(cfg.App.Version, cfg.HTTP.HealthTimeout)
	repos, closeRepos, err := openRepositories(ctx, cfg, health, log)
	if err != nil {
		return err
	}
	defer closeRepos()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. EVENT BUS & DISPATCHER
	// ─────────────────────────────────────────────────────────────────────────
	var recorder messaging.Recorder
	if m != nil {
		recorder = m
	}
	bus, err := openEventBus(ctx, cfg, recorder, health, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	var live *apihttp.LiveHub
	if cfg.Features.Enabled(config.FeatureLiveWebsocket) {
		hubOpts := apihttp.LiveHubOptions{
			OriginPatterns: cfg.HTTP.AllowedOrigins,
			Logger:         log,
		}
		if m != nil {
			hubOpts.OnClients = m.LiveClients
		}
		live = apihttp.NewLiveHub(hubOpts)
	}

	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{
		Bus:      bus,
		Recorder: recorder,
		Logger:   log,
	})
	dispatcher.Use(messaging.RecoveryMiddleware(log))
	dispatcher.Use(messaging.LoggingMiddleware(log))
	if live != nil {
		feedCfg := eventhandler.LiveFeedConfig{Logger: log}
		onOnline := eventhandler.NewOnMentorOnlineHandler(live, feedCfg)
		onSession := eventhandler.NewOnSessionStartedHandler(live, feedCfg)
		for _, reg := range []struct {
			event   shared.EventType
			name    string
			handler shared.EventHandler
		}{
			{shared.EventMentorWentOnline, "live_mentor_online", onOnline.Handle},
			{shared.EventSessionStarted, "live_session_started", onSession.Handle},
			{shared.EventSessionReminder, "live_session_reminder", onSession.Handle},
		} {
			if err := dispatcher.Register(reg.event, reg.name, reg.handler); err != nil {
				return fmt.Errorf("failed to register %s: %w", reg.name, err)
			}
		}
	}
	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}
	defer dispatcher.Stop()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	deps := apihttp.NewDependencies(repos, command.Deps{Publisher: bus, Logger: log}, cfg.HTTP.PinCost)
	deps.Health = health
	deps.Live = live
	deps.Metrics = m

	srvCfg := apihttp.DefaultConfig()
	srvCfg.Host = cfg.HTTP.Host
	srvCfg.Port = cfg.HTTP.Port
	srvCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	srvCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	srvCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	srvCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	srvCfg.EnableMetrics = m != nil
	srvCfg.RateLimitPerSecond = cfg.HTTP.RateLimitPerSecond
	srvCfg.RateLimitBurst = cfg.HTTP.RateLimitBurst
	server := apihttp.NewServer(srvCfg, deps)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger: log,
		OnResult: func(res scheduler.JobResult) {
			if m != nil {
				m.JobFinished(res.JobName, res.Success)
			}
		},
	})
	if cfg.Scheduler.Enabled {
		reminders := jobs.NewSessionReminderJob(deps.SessionsQuery, bus, nil, log, jobs.SessionReminderConfig{
			Window:  cfg.Scheduler.ReminderWindow,
			Timeout: cfg.Scheduler.JobTimeout,
		})
		if err := sched.Register(reminders, scheduler.Every(cfg.Scheduler.ReminderInterval)); err != nil {
			return fmt.Errorf("failed to register reminder job: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. SERVE & GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	serverErr := server.StartAsync()
	log.Info("VoiceMentor API server is running", logger.String("addr", srvCfg.Address()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", logger.Err(err))
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if sched.IsRunning() {
		_ = sched.Stop()
	}
	if live != nil {
		live.Close()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", logger.Err(err))
	}

	log.Info("shutdown completed successfully")
	return nil
}

// openRepositories picks PostgreSQL when a database URL is configured and the
// in-memory repositories otherwise. Both start with the seeded directory.
func openRepositories(ctx context.Context, cfg *config.Config, health *handlers.Report, log *logger.Logger) (apihttp.Repositories, func(), error) {
	if cfg.Database.URL == "" {
		log.Info("using in-memory repositories")
		mentors := memory.NewMentorRepository()
		if err := mentors.Seed(ctx, mentor.DefaultDirectory()); err != nil {
			return apihttp.Repositories{}, nil, fmt.Errorf("failed to seed mentors: %w", err)
		}
		health.Require("mentors", handlers.NewListCheck(mentors.List))
		return apihttp.Repositories{
			Users:    memory.NewUserRepository(),
			Mentors:  mentors,
			Sessions: memory.NewSessionRepository(),
		}, func() {}, nil
	}

	log.Info("connecting to database...")
	poolOpts := postgres.DefaultPoolOptions()
	if cfg.Database.MaxConns > 0 {
		poolOpts.MaxConns = cfg.Database.MaxConns
	}
	if cfg.Database.MinConns > 0 {
		poolOpts.MinConns = cfg.Database.MinConns
	}
	poolOpts.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolOpts.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	var conn *postgres.Connection
	err := retry.DatabaseRetrier().Do(ctx, func(ctx context.Context) error {
		var err error
		conn, err = postgres.Connect(ctx, cfg.Database.URL, poolOpts)
		return err
	})
	if err != nil {
		return apihttp.Repositories{}, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	closeConn := func() {
		log.Info("closing database connection...")
		conn.Close()
	}
	log.Info("database connection established")

	if cfg.Database.AutoMigrate {
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			closeConn()
			return apihttp.Repositories{}, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	mentors := postgres.NewMentorRepository(conn)
	if err := mentors.Seed(ctx, mentor.DefaultDirectory()); err != nil {
		closeConn()
		return apihttp.Repositories{}, nil, fmt.Errorf("failed to seed mentors: %w", err)
	}
	health.Require("postgres", conn.Check)

	return apihttp.Repositories{
		Users:    postgres.NewUserRepository(conn),
		Mentors:  mentors,
		Sessions: postgres.NewSessionRepository(conn),
	}, closeConn, nil
}

// openEventBus fans events out through Redis when enabled so every instance's
// live feed sees them. Otherwise events stay in process.
func openEventBus(ctx context.Context, cfg *config.Config, recorder messaging.Recorder, health *handlers.Report, log *logger.Logger) (shared.EventBus, error) {
	local := messaging.LocalBusOptions{Workers: 4, Logger: log, Recorder: recorder}

	if !cfg.Redis.Enabled {
		return messaging.NewLocalBus(local), nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Redis.Host + ":" + strconv.Itoa(cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	bus, err := messaging.NewRedisBus(ctx, messaging.RedisBusOptions{
		Client:         client,
		Channel:        cfg.Redis.Channel,
		PublishTimeout: cfg.Redis.WriteTimeout,
		Local:          local,
		Logger:         log,
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to start redis event bus: %w", err)
	}
	// without the relay each instance only streams its own events
	health.Watch("redis", bus.Ping)
	log.Info("redis event bus connected", logger.String("channel", cfg.Redis.Channel))
	return bus, nil
}
