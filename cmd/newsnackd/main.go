package main

import (
	"context"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/team-leekim/newsnack-ai/internal/config"
	"github.com/team-leekim/newsnack-ai/internal/logging"
	"github.com/team-leekim/newsnack-ai/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.FilePath,
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "newsnackd.lock")
	lock := flock.New(lockPath)
	held, err := lock.TryLock()
	if err != nil {
		logger.Error("acquire daemon lock", logging.Error(err))
		return
	}
	if !held {
		logger.Error("another newsnackd instance holds the lock", logging.String("path", lockPath))
		return
	}
	defer lock.Unlock() //nolint:errcheck

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return
	}
	defer st.Close()

	if reset, err := st.ResetStuckInProgress(ctx); err != nil {
		logger.Warn("reset stuck work items", logging.Error(err))
	} else if reset > 0 {
		logger.Info("reset stuck work items from previous run", logging.Int64("count", reset))
	}

	service, server, err := buildServices(cfg, st, logger)
	if err != nil {
		logger.Error("build services", logging.Error(err))
		return
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("api server", logging.Error(err))
			cancel()
		}
	}()
	logger.Info("newsnackd started", logging.String("bind", cfg.Paths.APIBind))

	<-ctx.Done()
	logger.Info("newsnackd shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api shutdown", logging.Error(err))
	}
	service.Wait()
}
