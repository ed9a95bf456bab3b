package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"fizzy/internal/config"
	"fizzy/internal/events"
	"fizzy/internal/mailer"
	"fizzy/internal/push"
	"fizzy/internal/repository"
	"fizzy/internal/services"
	"fizzy/internal/services/bundles"
	"fizzy/internal/services/notifier"
	"fizzy/internal/services/webhooks"
	"fizzy/pkg/database"
	"fizzy/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l := logger.New(cfg.Server.Environment)
	logger.SetGlobalLogger(l)

	db, err := database.Connect(cfg)
	if err != nil {
		l.Errorf("Failed to connect to database: %v", err)
		return
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	repos := repository.New(db)
	broadcaster := events.NewRedisBroadcaster(redisClient)

	notificationDispatcher := notifier.NewDispatcher(repos, broadcaster, nil, l)
	webhookDispatcher := webhooks.NewDispatcher(repos, nil, l)
	pushSender := push.NewSender(repos, cfg.Push, l)

	tracker := webhooks.NewDelinquencyTracker(repos, nil, l)
	deliverer := webhooks.NewDeliverer(repos, tracker, webhooks.Options{
		Timeout:          cfg.Webhooks.Timeout,
		MaxResponseBytes: cfg.Webhooks.MaxResponseBytes,
		UserAgent:        cfg.Webhooks.UserAgent,
	}, nil, l)

	sweeper := bundles.NewSweeper(repos, mailer.NewSMTPMailer(cfg.SMTP, l), nil, l)

	outboxWorker := services.NewOutboxWorker(
		repos.Outbox,
		notificationDispatcher,
		webhookDispatcher,
		pushSender,
		cfg.Outbox.PollInterval,
		cfg.Outbox.BatchSize,
		l,
	)
	deliveryWorker := services.NewDeliveryWorker(
		repos.Deliveries,
		deliverer,
		time.Second,
		50,
		cfg.Webhooks.MaxAttempts,
		l,
	)
	bundleWorker := services.NewBundleWorker(sweeper, cfg.Bundles.SweepInterval, l)

	outboxWorker.Start()
	deliveryWorker.Start()
	bundleWorker.Start()
	l.Infof("Worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	l.Infof("Quitting signal received.. Stopping workers")
	outboxWorker.Stop()
	deliveryWorker.Stop()
	bundleWorker.Stop()
	l.Infof("Workers stopped gracefully")
}
