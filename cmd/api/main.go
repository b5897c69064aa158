package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/avelazquez/remate/internal/adapters/api"
	"github.com/avelazquez/remate/internal/adapters/database"
	"github.com/avelazquez/remate/internal/adjudications"
	"github.com/avelazquez/remate/internal/auctions"
	"github.com/avelazquez/remate/internal/bids"
	"github.com/avelazquez/remate/internal/config"
	infradb "github.com/avelazquez/remate/internal/infra/database"
	"github.com/avelazquez/remate/pkg/auth"
	"github.com/avelazquez/remate/pkg/clock"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

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

	if cfg.MigrateDB {
		if migErr := runMigrations(cfg.DatabaseURL); migErr != nil {
			logger.Error("Failed to run migrations", "error", migErr)
			os.Exit(1)
		}
		logger.Info("Migrations applied")
	}

	publicKeyPEM, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		logger.Error("Failed to read JWT public key", "path", cfg.JWTPublicKeyPath, "error", err)
		os.Exit(1)
	}
	signer, err := auth.NewSignerFromPublicKey(publicKeyPEM, cfg.JWTIssuer)
	if err != nil {
		logger.Error("Failed to create token validator", "error", err)
		os.Exit(1)
	}

	txManager := infradb.NewPostgresTransactionManager(pool, cfg.LockTimeout)
	auctionRepo := database.NewPostgresAuctionRepository(pool)
	bidRepo := database.NewPostgresBidRepository(pool)
	adjRepo := database.NewPostgresAdjudicationRepository(pool)
	outboxRepo := database.NewPostgresOutboxRepository(pool, clk)

	policy := bids.IncrementPolicy{
		FixedAmount: cfg.BidIncrementFixed,
		BasisPoints: cfg.BidIncrementBasisPoints,
		MinAmount:   cfg.BidIncrementMin,
	}

	auctionService := auctions.NewService(txManager, auctionRepo, outboxRepo, clk)
	bidService := bids.NewService(txManager, bidRepo, auctionRepo, outboxRepo, policy, clk)
	adjService := adjudications.NewService(
		txManager, adjRepo, auctionRepo, bidRepo, outboxRepo,
		adjudications.RoleAuthorizer{}, clk, cfg.AdjudicationDispatchDelay,
	)

	app := fiber.New(fiber.Config{AppName: "remate-api"})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	handler := api.NewHandler(auctionService, bidService, adjService)
	handler.Register(app, auth.Middleware(signer))

	logger.Info("Starting API", "addr", cfg.APIAddr)
	if err := app.Listen(cfg.APIAddr); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func runMigrations(dbURL string) error {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}
