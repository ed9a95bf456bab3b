package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"fizzy/internal/config"
	"fizzy/internal/handler"
	"fizzy/internal/middleware"
	"fizzy/internal/services"
	"fizzy/internal/transport/httpdto"
	"fizzy/pkg/logger"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	db         *sql.DB
	logger     *logger.Logger
}

var (
	ReleaseMode = "production"
	TestMode    = "test"
)

type Handlers struct {
	Cards         *handler.CardHandler
	Webhooks      *handler.WebhookHandler
	Notifications *handler.NotificationHandler
	Push          *handler.PushHandler
	Timeline      *handler.TimelineHandler
	WebSocket     *WebSocketHandler
}

func New(cfg *config.Config, db *sql.DB, l *logger.Logger) *Server {
	if cfg.Server.Environment == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.Server.Environment == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		db:     db,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := s.db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	auth := middleware.AuthMiddleware(authService)

	v1 := s.engine.Group("/v1")
	{
		cards := v1.Group("/cards", auth)
		{
			cards.POST("/:id/publish", handlers.Cards.Publish)
			cards.POST("/:id/close", handlers.Cards.Close)
			cards.POST("/:id/reopen", handlers.Cards.Reopen)
			cards.POST("/:id/move", handlers.Cards.Move)
			cards.POST("/:id/assign", handlers.Cards.Assign)
			cards.POST("/:id/unassign", handlers.Cards.Unassign)
			cards.POST("/:id/rename", handlers.Cards.Rename)
			cards.POST("/:id/description", handlers.Cards.UpdateDescription)
			cards.POST("/:id/comments", handlers.Cards.AddComment)
		}

		boards := v1.Group("/boards", auth)
		{
			boards.POST("/:board_id/webhooks", handlers.Webhooks.Create)
			boards.GET("/:board_id/webhooks", handlers.Webhooks.List)
		}

		webhooks := v1.Group("/webhooks", auth)
		{
			webhooks.GET("/:id", handlers.Webhooks.Get)
			webhooks.PATCH("/:id", handlers.Webhooks.Update)
			webhooks.DELETE("/:id", handlers.Webhooks.Delete)
			webhooks.POST("/:id/reactivate", handlers.Webhooks.Reactivate)
			webhooks.GET("/:id/deliveries", handlers.Webhooks.Deliveries)
		}

		notifications := v1.Group("/notifications", auth)
		{
			notifications.GET("", handlers.Notifications.List)
			notifications.POST("/:id/read", handlers.Notifications.MarkRead)
			notifications.POST("/read_all", handlers.Notifications.MarkAllRead)
		}

		push := v1.Group("/push_subscriptions", auth)
		{
			push.POST("", handlers.Push.Subscribe)
			push.DELETE("/:id", handlers.Push.Unsubscribe)
		}

		timeline := v1.Group("/timeline", auth)
		{
			timeline.GET("", handlers.Timeline.Day)
		}

		v1.GET("/ws", handlers.WebSocket.Handle)
	}
}

func (s *Server) Start() error {
	go func() {
		s.logger.Infof("Starting the server on port %s...", s.config.Server.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("Error in starting the server: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	s.logger.Infof("Server is running on :%s", s.config.Server.Port)

	<-quit

	s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		return err
	}

	s.logger.Infof("Server stopped gracefully")

	return nil
}
