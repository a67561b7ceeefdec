package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"porto/internal/config"
	"porto/internal/infra/db"
	"porto/internal/infra/lock"
	infraRepo "porto/internal/infra/repository"
	"porto/internal/platform/logger"
	"porto/internal/platform/metrics"
	"porto/internal/usecase"

	"go.uber.org/zap"
)

const lockKey = "porto:archive"

// 期限切れの掲載・イベントを一回だけ掃く。cronから呼ぶ想定
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("archive failed", zap.Error(err))
		stop()
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	rdb, err := lock.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	release, err := lock.NewRedisLocker(rdb, cfg.Redis.LockTTL).Acquire(ctx, lockKey)
	if errors.Is(err, lock.ErrNotAcquired) {
		log.Info("another archiver is running, skip")
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			log.Warn("release lock", zap.Error(err))
		}
	}()

	gormDB, err := db.Connect(cfg.Postgres, log)
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	m := metrics.New("porto")
	uc := usecase.NewArchiveUsecase(infraRepo.NewTxManagerGorm(gormDB, cfg.PageSize))

	started := time.Now()
	res, err := uc.ArchiveExpired(ctx, started.UTC())
	if err != nil {
		return err
	}
	m.Archived("orders", res.Orders)
	m.Archived("events", res.Events)

	log.Info("archive done",
		zap.Int64("orders", res.Orders),
		zap.Int64("events", res.Events),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}
