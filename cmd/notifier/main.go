package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/avelazquez/remate/internal/adapters/cache"
	"github.com/avelazquez/remate/internal/adapters/database"
	adapterevents "github.com/avelazquez/remate/internal/adapters/events"
	"github.com/avelazquez/remate/internal/adapters/notify"
	"github.com/avelazquez/remate/internal/config"
	"github.com/avelazquez/remate/internal/notifications"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down notifier...")
		cancel()
	}()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Unable to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if pingErr := pool.Ping(ctx); pingErr != nil {
		logger.Error("Unable to ping database", "error", pingErr)
		os.Exit(1)
	}
	logger.Info("Postgres Connected")

	if cfg.RabbitMQURL == "" {
		logger.Error("RABBITMQ_URL is not set")
		os.Exit(1)
	}
	amqpConn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()
	logger.Info("RabbitMQ Connected")

	notificationRepo := database.NewPostgresNotificationRepository(pool)

	// Settings lookups go through Redis when available.
	var settings notifications.SettingsSource = notificationRepo
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis connection failed, settings served from Postgres", "error", err)
		} else {
			logger.Info("Redis Connected")
			settings = cache.NewSettingsCache(rdb, notificationRepo, cfg.SettingsCacheTTL, logger)
		}
	}

	senders := map[notifications.ChannelType]notifications.Sender{}
	if cfg.SMTPAddr != "" {
		senders[notifications.ChannelEmail] = notify.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom, nil)
	}
	if cfg.WhatsAppBaseURL != "" {
		senders[notifications.ChannelWhatsApp] = notify.NewWhatsAppSender(
			cfg.WhatsAppBaseURL, cfg.WhatsAppToken,
			&http.Client{Timeout: 10 * time.Second},
		)
	}
	if len(senders) == 0 {
		logger.Warn("No delivery channels configured; events will be consumed and dropped")
	}

	dispatcher := notifications.NewDispatcher(settings, notificationRepo, senders, logger)
	consumer := adapterevents.NewNotificationConsumer(amqpConn, dispatcher, logger)

	logger.Info("Starting notification consumer...")
	if runErr := consumer.Run(ctx); runErr != nil {
		logger.Error("Consumer failed", "error", runErr)
		if ctx.Err() == nil {
			os.Exit(1)
		}
	}

	logger.Info("Notifier stopped")
}
