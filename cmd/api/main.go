package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"porto/internal/config"
	"porto/internal/handler"
	"porto/internal/infra/broker"
	"porto/internal/infra/db"
	"porto/internal/infra/push"
	infraRepo "porto/internal/infra/repository"
	"porto/internal/notification"
	"porto/internal/platform/logger"
	"porto/internal/platform/metrics"
	"porto/internal/server"
	"porto/internal/usecase"
	"porto/internal/validator"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

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

	//DB接続
	gormDB, err := db.Connect(cfg.Postgres, log)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("db handle", zap.Error(err))
	}
	defer sqlDB.Close()

	//Repository（GORM実装）
	orderRepo := infraRepo.NewOrderGormRepository(gormDB, cfg.PageSize)
	offerRepo := infraRepo.NewOfferGormRepository(gormDB, cfg.PageSize)
	eventRepo := infraRepo.NewEventGormRepository(gormDB, cfg.PageSize)
	notificationRepo := infraRepo.NewNotificationGormRepository(gormDB, cfg.PageSize)
	deviceTokenRepo := infraRepo.NewDeviceTokenGormRepository(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB, cfg.PageSize)
	catalogRepo := infraRepo.NewCatalogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB, cfg.PageSize)

	m := metrics.New("porto")

	//通知
	var natsConn *nats.Conn
	consumers := make([]notification.Consumer, 0, len(cfg.Notification.Consumers))
	for _, name := range cfg.Notification.Consumers {
		switch name {
		case "db":
			consumers = append(consumers, notification.NewDBConsumer(notificationRepo))
		case "push":
			var sender notification.PushSender
			if cfg.Push.ServerKey != "" {
				sender = push.NewClient(cfg.Push.Endpoint, cfg.Push.ServerKey, cfg.Push.Timeout)
			} else {
				log.Warn("FCM_SERVER_KEY is empty, push disabled")
			}
			consumers = append(consumers, notification.NewPushConsumer(sender, notificationRepo, deviceTokenRepo))
		case "log":
			consumers = append(consumers, notification.NewLogConsumer(log))
		case "broker":
			if cfg.NATS.URL == "" {
				log.Warn("NATS_URL is empty, broker consumer skipped")
				continue
			}
			if natsConn == nil {
				natsConn, err = broker.NewConnection(cfg.NATS.URL, log)
				if err != nil {
					log.Fatal("nats connect", zap.Error(err))
				}
			}
			pub, err := broker.NewPublisher(natsConn)
			if err != nil {
				log.Fatal("nats publisher", zap.Error(err))
			}
			consumers = append(consumers, notification.NewBrokerConsumer(pub))
		}
	}
	if natsConn != nil {
		defer natsConn.Close()
	}
	notifier := notification.NewNotifier(log, m, consumers...)
	log.Info("notification consumers", zap.Strings("consumers", notifier.Consumers()))

	//Usecase
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, offerRepo, userRepo, notifier,
		validator.NewOrderValidator(catalogRepo), m)
	offerUC := usecase.NewOfferUsecase(txm, orderRepo, offerRepo, userRepo, notifier,
		validator.NewOfferValidator(), m)
	eventUC := usecase.NewEventUsecase(txm, eventRepo, validator.NewEventValidator(catalogRepo, userRepo))
	notificationUC := usecase.NewNotificationUsecase(notificationRepo)
	auditUC := usecase.NewAuditUsecase(auditRepo)
	catalogUC := usecase.NewCatalogUsecase(txm, catalogRepo)
	broadcastUC := usecase.NewBroadcastUsecase(txm, infraRepo.NewUserDirectoryGorm(gormDB), notifier)

	//Handler
	router := server.NewRouter(cfg, log, m, userRepo, server.Handlers{
		Orders:        handler.NewOrderHandler(orderUC, log),
		Offers:        handler.NewOfferHandler(offerUC, log),
		Events:        handler.NewEventHandler(eventUC, log),
		Notifications: handler.NewNotificationHandler(notificationUC, log),
		Catalog:       handler.NewCatalogHandler(catalogUC, log),
		Admin:         handler.NewAdminHandler(orderUC, eventUC, auditUC, broadcastUC, log),
		System:        handler.NewSystemHandler(sqlDB, m.Handler()),
	})

	srv := server.New(cfg.Port, router, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server started", zap.String("addr", srv.Addr()))
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("http server stopped", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("server exited")
}
