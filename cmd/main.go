package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/hopeforeverybody/chat-service/internal/cache"
	"github.com/hopeforeverybody/chat-service/internal/chat"
	"github.com/hopeforeverybody/chat-service/internal/config"
	"github.com/hopeforeverybody/chat-service/internal/handlers"
	"github.com/hopeforeverybody/chat-service/internal/mail"
	"github.com/hopeforeverybody/chat-service/internal/store"
)

func main() {
	_ = godotenv.Load()

	v, err := config.LoadConfig("config")
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	cfg, err := config.ParseConfig(v)
	if err != nil {
		log.Fatalf("parsing config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("connecting to postgres: %v", err)
	}
	if err := store.AutoMigrate(db); err != nil {
		log.Fatalf("migrating schema: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("connecting to redis: %v", err)
	}

	if err := os.MkdirAll(cfg.Attachments.Dir, 0o755); err != nil {
		log.Fatalf("creating attachments dir: %v", err)
	}

	chatStore := store.NewChatStore(db, logger)
	userStore := store.NewUserStore(db, logger)
	notificationStore := store.NewNotificationStore(db, logger)
	pending := cache.New(rdb, logger)

	chatRegistry := chat.NewRegistry(logger)
	notifyRegistry := chat.NewRegistry(logger)
	attachments := chat.NewAttachmentProcessor(cfg.Attachments.Dir, cfg.Server.BaseURL, logger)
	resolver := chat.NewResolver(chatStore, logger)
	mailer := mail.NewMailgun(cfg.Mail.MailgunDomain, cfg.Mail.MailgunAPIKey, cfg.Mail.Sender, logger)

	tasks := chat.NewTaskQueue(64, logger)
	tasks.Start(context.Background())
	defer tasks.Stop()

	dispatcher := chat.NewDispatcher(chatRegistry, chatStore, userStore, pending, attachments, resolver, tasks, mailer, cfg.Mail.SupportEmail, logger)
	broadcaster := chat.NewBroadcaster(notifyRegistry, notificationStore, pending, userStore, logger)

	authHandler := handlers.NewAuthHandler(userStore, cfg.JWT.Secret, cfg.JWT.ExpiryHours, logger)
	chatHandler := handlers.NewChatHandler(chatRegistry, dispatcher, resolver, broadcaster, chatStore, userStore, pending, attachments, logger)
	notificationHandler := handlers.NewNotificationHandler(broadcaster, logger)
	sockets := handlers.NewSocketHandler(chatRegistry, notifyRegistry, dispatcher, broadcaster, logger)

	app := fiber.New()

	app.Static("/api/a", cfg.Attachments.Dir)

	app.Post("/api/auth/register", authHandler.Register)
	app.Post("/api/auth/login", authHandler.Login)

	app.Get("/api/ws/chat", websocket.New(sockets.ChatSocket))
	app.Get("/api/ws/notifications/:user_id", websocket.New(sockets.NotificationSocket))

	api := app.Group("/api", handlers.JWTAuth(cfg.JWT.Secret))
	api.Post("/chat/start", chatHandler.StartChat)
	api.Get("/chats", chatHandler.ListChats)
	api.Post("/chat/:chat_id/message", chatHandler.SendMessage)
	api.Get("/chat/:chat_id/messages", chatHandler.ListMessages)
	api.Get("/chat/:chat_id/media", chatHandler.ListMedia)
	api.Patch("/chat/:chat_id/read", chatHandler.MarkAllRead)
	api.Post("/chat/:chat_id/end", chatHandler.EndChat)
	api.Delete("/chat/:chat_id", chatHandler.DeleteChat)
	api.Patch("/message/:message_id/read", chatHandler.MarkMessageRead)

	api.Post("/notifications", notificationHandler.Create)
	api.Get("/notifications", notificationHandler.List)
	api.Patch("/notifications/:notification_id/read", notificationHandler.MarkRead)
	api.Delete("/notifications", notificationHandler.ClearAll)

	logger.Info("starting server", "port", cfg.Server.Port, "env", cfg.Server.Environment)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
