package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-api/internal/api"
	"github.com/eventpass/eventpass-api/internal/cache"
	"github.com/eventpass/eventpass-api/internal/config"
	"github.com/eventpass/eventpass-api/internal/db"
	"github.com/eventpass/eventpass-api/internal/einvoice"
	"github.com/eventpass/eventpass-api/internal/logger"
	"github.com/eventpass/eventpass-api/internal/mailer"
	"github.com/eventpass/eventpass-api/internal/queue"
	"github.com/eventpass/eventpass-api/internal/repository"
	"github.com/eventpass/eventpass-api/internal/repository/dao"
	"github.com/eventpass/eventpass-api/internal/scheduler"
	"github.com/eventpass/eventpass-api/internal/service"
)

const (
	taskTimeout     = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func Start() error {
	conf, err := config.Load("./cmd/app/config.yml")
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}
	defer func() { _ = zap.L().Sync() }()

	dbURL := os.Getenv("DATABASE_URL")
	var postgresDB *gorm.DB
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}
	if sqlDB, err := postgresDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := openRedis(ctx, conf.Redis)
	if rdb != nil {
		defer rdb.Close()
	}

	invoiceSvc, notificationSvc, err := initTaskServices(conf, postgresDB)
	if err != nil {
		return fmt.Errorf("failed to initialize task services -> %w", err)
	}

	router := queue.NewRouter(taskTimeout)
	service.RegisterTaskHandlers(router, notificationSvc, invoiceSvc)

	publisher, closeQueue := startQueue(ctx, conf, router)
	defer closeQueue()

	sched, err := scheduler.New()
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler -> %w", err)
	}
	if err = sched.AddInvoiceSweep(ctx, conf.Invoice.SweepInterval, invoiceSvc); err != nil {
		return fmt.Errorf("failed to schedule invoice sweep -> %w", err)
	}
	sched.Start()
	defer func() {
		if err := sched.Shutdown(); err != nil {
			zap.L().Warn("scheduler shutdown failed", zap.Error(err))
		}
	}()

	s := api.NewServer(conf, postgresDB, rdb, publisher)
	go s.LiveHub.Run(ctx)

	addr := ":" + s.Config.API.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info(fmt.Sprintf("starting server at %v", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err = <-errCh:
		return fmt.Errorf("failed to start the server -> %w", err)
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down the server -> %w", err)
	}

	return nil
}

// openRedis returns nil when redis is not configured or unreachable. The API
// then runs without the event cache and rate limiting.
func openRedis(ctx context.Context, conf *config.RedisConfig) *redis.Client {
	if conf.URL == "" {
		zap.L().Info("redis not configured, cache and rate limiting disabled")
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rdb, err := cache.NewRedisClient(pingCtx, conf.URL)
	if err != nil {
		zap.L().Warn("redis unavailable, cache and rate limiting disabled", zap.Error(err))
		return nil
	}

	return rdb
}

func initTaskServices(conf *config.AppConfig, db *gorm.DB) (*service.InvoiceService, *service.NotificationService, error) {
	bookingRepo := repository.NewBookingRepository(dao.NewBookingDAO(db))
	userRepo := repository.NewUserRepository(dao.NewUserDAO(db))
	invoiceRepo := repository.NewInvoiceRepository(dao.NewInvoiceDAO(db))

	provider := einvoice.NewSimulatedProvider(conf.Invoice.ProviderURL, conf.Invoice.Latency, conf.Invoice.SuccessRate, time.Now().UnixNano())
	invoiceSvc := service.NewInvoiceService(invoiceRepo, bookingRepo, userRepo, provider, conf.Invoice)

	var sender mailer.Sender = mailer.LogSender{}
	if conf.SMTP.Host != "" {
		c, err := mailer.NewSMTPClient(conf.SMTP)
		if err != nil {
			return nil, nil, err
		}
		sender = c
	}
	ticketMailer := mailer.NewTicketMailer(sender, conf.SMTP.From, conf.SMTP.FromName)
	notificationSvc := service.NewNotificationService(bookingRepo, ticketMailer)

	return invoiceSvc, notificationSvc, nil
}

// startQueue uses RabbitMQ when configured and an in-process worker pool
// otherwise. The returned func releases the queue.
func startQueue(ctx context.Context, conf *config.AppConfig, router *queue.Router) (queue.Publisher, func()) {
	if conf.RabbitMQ.URL != "" {
		publisher := queue.NewAMQPPublisher(conf.RabbitMQ.URL, conf.RabbitMQ.Queue)
		consumer := queue.NewAMQPConsumer(conf.RabbitMQ.URL, conf.RabbitMQ.Queue, conf.RabbitMQ.Prefetch, router)
		go consumer.Run(ctx)
		zap.L().Info("post-booking tasks go through rabbitmq", zap.String("queue", conf.RabbitMQ.Queue))

		return publisher, func() { _ = publisher.Close() }
	}

	mq := queue.NewMemoryQueue(router, conf.Workers.Buffer)
	mq.Start(ctx, conf.Workers.Count)
	zap.L().Info("post-booking tasks run in process", zap.Int("workers", conf.Workers.Count))

	return mq, mq.Close
}
