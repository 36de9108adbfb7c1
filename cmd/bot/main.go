// cmd/bot/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"subscription-bot/config"
	"subscription-bot/internal/bot"
	"subscription-bot/internal/db"
	"subscription-bot/internal/payment"
	"subscription-bot/internal/server"
	"subscription-bot/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatalw("Failed to load config", "error", err)
	}

	l := logger.New(cfg.Logging.Level)
	if cfg.Logging.Development {
		l = logger.NewDevelopment(cfg.Logging.Level)
	}
	defer l.Sync()
	l.Info("Starting subscription bot...")

	// Initialize database connection with retry
	var database *db.PostgresDB
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		database, err = db.NewPostgresDB(cfg.Database)
		if err == nil {
			break
		}
		l.Errorw("Failed to connect to database, retrying...", "attempt", i+1, "error", err)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	if database == nil {
		l.Fatalw("Failed to connect to database after multiple attempts", "error", err)
	}
	defer database.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(l); err != nil {
			l.Fatalw("Failed to apply migrations", "error", err)
		}
	}

	// Initialize Stripe client
	stripeClient, err := payment.NewStripeClient(cfg.Stripe, cfg.Server.BaseURL)
	if err != nil {
		l.Fatalw("Failed to create Stripe client", "error", err)
	}

	// Conversation sessions live in Redis when configured, in memory otherwise
	var sessions bot.SessionStore
	if cfg.Redis.URL != "" {
		redisStore, err := bot.NewRedisSessionStore(cfg.Redis.URL, cfg.SessionTTL)
		if err != nil {
			l.Fatalw("Failed to connect to Redis", "error", err)
		}
		defer redisStore.Close()
		sessions = redisStore
		l.Info("Using Redis session store")
	} else {
		sessions = bot.NewMemorySessionStore()
		l.Info("Using in-memory session store")
	}

	telegramBot, err := bot.NewTelegramBot(cfg.Telegram.Token, database, stripeClient, sessions, l)
	if err != nil {
		l.Fatalw("Failed to create Telegram bot", "error", err)
	}

	webhookURL, err := url.JoinPath(cfg.Server.BaseURL, "telegram-webhook")
	if err != nil {
		l.Fatalw("Invalid webhook url", "error", err)
	}
	if err := telegramBot.EnsureWebhook(webhookURL, cfg.Telegram.MaxConnections); err != nil {
		l.Fatalw("Failed to register Telegram webhook", "error", err)
	}

	// Start webhook server
	httpServer := server.NewServer(cfg.Server.Port, server.Dependencies{
		Dispatcher: telegramBot,
		Verifier:   stripeClient,
		Payments:   database,
		Health:     database,
	}, l)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatalw("Failed to start HTTP server", "error", err)
		}
	}()

	// Wait for termination signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down bot...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		l.Errorw("Error during HTTP server shutdown", "error", err)
	}

	l.Info("Bot stopped successfully")
}
