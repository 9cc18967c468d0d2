// Package main is the VoiceMentor client: the interactive console over the
// client runtime, with state mirrored into a durable key-value store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/voicementor/voicementor/config"
	"github.com/voicementor/voicementor/internal/application/client"
	"github.com/voicementor/voicementor/internal/infrastructure/external/apiclient"
	"github.com/voicementor/voicementor/internal/infrastructure/persistence/kv"
	"github.com/voicementor/voicementor/internal/interface/console"
	"github.com/voicementor/voicementor/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	// stdout belongs to the console
	logOpts := cfg.Observability.LoggerOptions()
	logOpts.Output = os.Stderr
	log := logger.New(logOpts).With(logger.String("service", "client"))
	defer func() { _ = log.Sync() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 2. DURABLE STORE
	// ─────────────────────────────────────────────────────────────────────────
	store, err := kv.Open(ctx, kv.Options{
		Backend:    cfg.Store.Backend,
		SQLitePath: cfg.Store.SQLitePath,
		Redis: kv.RedisConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			Prefix:       cfg.Redis.Prefix,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}
	log.Info("store opened", logger.String("backend", cfg.Store.Backend))

	// ─────────────────────────────────────────────────────────────────────────
	// 3. SERVER CONNECTION (optional)
	// ─────────────────────────────────────────────────────────────────────────
	opts := client.Options{
		KV:             store,
		Logger:         log,
		LiveFeed:       cfg.Features.Enabled(config.FeatureLiveFeed),
		FeedInterval:   cfg.Scheduler.FeedInterval,
		ReplySimulator: cfg.Features.Enabled(config.FeatureReplySimulator),
	}
	// a partial rollout buckets users by id
	opts.ReplySimulatorFor = func(userID string) bool {
		return cfg.Features.EnabledFor(config.FeatureReplySimulator, userID)
	}
	if cfg.Client.ServerURL != "" {
		apiCfg := apiclient.DefaultConfig(cfg.Client.ServerURL)
		if cfg.Client.RequestTimeout > 0 {
			apiCfg.Timeout = cfg.Client.RequestTimeout
		}
		if cfg.Client.RequestsPerSecond > 0 {
			apiCfg.RequestsPerSecond = cfg.Client.RequestsPerSecond
			apiCfg.Burst = cfg.Client.Burst
		}
		apiCfg.Logger = log
		api, err := apiclient.New(apiCfg)
		if err != nil {
			_ = store.Close()
			return fmt.Errorf("failed to create api client: %w", err)
		}
		opts.Remote = api
		opts.RemoteFeed = cfg.Features.Enabled(config.FeatureLiveWebsocket)
		log.Info("server configured", logger.String("url", cfg.Client.ServerURL))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. RUNTIME & CONSOLE
	// ─────────────────────────────────────────────────────────────────────────
	rt := client.New(opts)
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn("runtime close failed", logger.Err(err))
		}
	}()

	report, err := rt.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start runtime: %w", err)
	}
	log.Info("state restored",
		logger.Bool("identity", report.Identity),
		logger.Int("sessions", report.Sessions),
		logger.Bool("seeded_mentors", report.SeededMentors),
		logger.Strings("malformed", report.Malformed),
	)

	if opts.Remote != nil {
		if n, err := rt.Sync(ctx); err != nil {
			log.Warn("mentor sync failed, using local directory", logger.Err(err))
		} else {
			log.Info("mentors synced", logger.Int("count", n))
		}
	}

	con := console.New(rt, console.Config{Out: os.Stdout, Logger: log})
	con.Attach()
	defer con.Detach()

	return con.Run(ctx, os.Stdin)
}
