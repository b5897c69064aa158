package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/avelazquez/remate/internal/adapters/database"
	"github.com/avelazquez/remate/internal/auctions"
	"github.com/avelazquez/remate/internal/config"
	infradb "github.com/avelazquez/remate/internal/infra/database"
	"github.com/avelazquez/remate/pkg/clock"
	"github.com/avelazquez/remate/pkg/events"
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
		logger.Info("Shutting down sweeper...")
		cancel()
	}()

	loc, err := time.LoadLocation(cfg.ReferenceTimezone)
	if err != nil {
		logger.Error("Invalid reference timezone", "tz", cfg.ReferenceTimezone, "error", err)
		os.Exit(1)
	}
	clk := clock.NewSystemClock(loc)

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

	publisher, err := events.NewRabbitMQPublisher(amqpConn)
	if err != nil {
		logger.Error("Failed to create publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	txManager := infradb.NewPostgresTransactionManager(pool, cfg.LockTimeout)
	auctionRepo := database.NewPostgresAuctionRepository(pool)
	outboxRepo := database.NewPostgresOutboxRepository(pool, clk)

	sweeper := auctions.NewSweeper(txManager, auctionRepo, outboxRepo, clk, cfg.SweepInterval, logger)
	relay := events.NewOutboxRelay(
		outboxRepo,
		publisher,
		txManager,
		10,            // batch size
		1*time.Second, // interval
		events.Exchange,
		logger,
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting lifecycle sweeper", "interval", cfg.SweepInterval.String())
		return sweeper.Run(gCtx)
	})
	g.Go(func() error {
		logger.Info("Starting outbox relay")
		return relay.Run(gCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Sweeper stopped")
}
