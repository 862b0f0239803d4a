package main // Entry point package

import (
	"log" // Logging library

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/courierchat/server/internal/config"
	"github.com/courierchat/server/internal/database"
	"github.com/courierchat/server/internal/handler"
	"github.com/courierchat/server/internal/middleware"
	"github.com/courierchat/server/internal/queue"
	"github.com/courierchat/server/internal/repository"
	"github.com/courierchat/server/internal/router"
	"github.com/courierchat/server/internal/utils"
)

func main() {
	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables rate limiting.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting disabled")
	}

	// Repositories share the one pool opened above.
	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	messages := repository.NewMessageRepo(db)
	attachments := repository.NewAttachmentRepo(db)

	hasher := utils.BcryptHasher{Cost: cfg.BcryptCost}

	authHandler := handler.NewAuthHandler(cfg, users, sessions, hasher)
	userHandler := handler.NewUserHandler(users)
	messageHandler := handler.NewMessageHandler(messages, attachments, users)
	attachmentHandler := handler.NewAttachmentHandler(attachments)

	sessionAuth := middleware.SessionAuth(sessions)
	limiter := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, limiter, sessionAuth)
	router.RegisterUsers(e, userHandler, sessionAuth)
	router.RegisterMessaging(e, messageHandler, attachmentHandler, sessionAuth)

	// Background consumer for message.sent events; reconnects on its own.
	go func() {
		if err := queue.StartMessageConsumer(); err != nil {
			log.Printf("message consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
