package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"

	appcfg "github.com/park285/btl-chess/internal/config"
	"github.com/park285/btl-chess/internal/obslog"
	"github.com/park285/btl-chess/internal/relay"
	"go.uber.org/zap"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := obslog.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store relay.SlotStore = relay.NewMemoryStore()
	if cfg.RedisURL != "" {
		rs, err := relay.NewRedisStoreFromURL(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis error: %v", err)
		}
		defer func() { _ = rs.Close() }()
		store = rs
		logger.Info("slot_store_redis")
	}

	var recorder relay.SessionRecorder
	if cfg.DatabaseURL != "" {
		repo, err := relay.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database error: %v", err)
		}
		defer func() { _ = repo.Close() }()
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("schema error: %v", err)
		}
		recorder = repo
		logger.Info("session_recorder_postgres")
	}

	srv := relay.NewServer(relay.Options{
		Store:     store,
		MatchID:   cfg.RelayMatchID,
		QueueSize: cfg.SendQueueSize,
		Recorder:  recorder,
	})

	srv.ResetSlots(ctx)

	var wg sync.WaitGroup
	if cfg.RelayWSAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServeWebSocket(ctx, cfg.RelayWSAddr); err != nil {
				logger.Error("ws_listener_stopped", zap.Error(err))
			}
		}()
	}
	if cfg.RelayStatusAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServeStatus(ctx, cfg.RelayStatusAddr); err != nil {
				logger.Error("status_listener_stopped", zap.Error(err))
			}
		}()
	}

	if err := srv.ListenAndServe(ctx, cfg.RelayAddr()); err != nil {
		logger.Error("relay_stopped", zap.Error(err))
		stop()
	}
	wg.Wait()
	logger.Info("relay_exit", zap.Int64("lines_relayed", srv.Stats().LinesRelayed))
}
