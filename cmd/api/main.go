package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"fizzy/internal/config"
	"fizzy/internal/events"
	"fizzy/internal/handler"
	"fizzy/internal/repository"
	"fizzy/internal/server"
	"fizzy/internal/services"
	"fizzy/internal/services/timeline"
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

	recorder := services.NewRecorder(repos, nil, l)
	cardOps := services.NewCardOperations(db, repos, recorder, nil)
	projector := timeline.NewProjector(repos)
	authService := services.NewAuthService(cfg.Auth.JWTSecret, repos.Users)

	subscriber := events.NewSubscriber(redisClient)
	hub := server.NewHub(subscriber, l)
	go hub.Run()
	defer hub.Stop()

	handlers := &server.Handlers{
		Cards:         handler.NewCardHandler(cardOps),
		Webhooks:      handler.NewWebhookHandler(repos),
		Notifications: handler.NewNotificationHandler(repos),
		Push:          handler.NewPushHandler(repos),
		Timeline:      handler.NewTimelineHandler(projector),
		WebSocket:     server.NewWebSocketHandler(hub, authService, repos.Notifications, l),
	}

	srv := server.New(cfg, db, l)
	srv.SetupRoutes(handlers, authService)

	if err := srv.Start(); err != nil {
		l.Errorf("Server exited with error: %v", err)
	}
}
