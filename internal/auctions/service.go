package auctions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avelazquez/remate/internal/infra/database"
	"github.com/avelazquez/remate/pkg/clock"
	"github.com/avelazquez/remate/pkg/events"
)

// Service errors
var (
	ErrAuctionNotFound  = fmt.Errorf("auction not found")
	ErrInvalidBasePrice = fmt.Errorf("base price must be greater than 0")
	ErrInvalidSchedule  = fmt.Errorf("end date must be after start date")
)

// CreateAuctionCommand represents the command to register a new auction
type CreateAuctionCommand struct {
	VehiclePlate       string
	VehicleDescription string
	BasePrice          int64
	StartDate          time.Time
	EndDate            time.Time
	AppraiserID        uuid.UUID
}

// Service implements auction registration and reads
type Service struct {
	txManager  database.TransactionManager
	repo       Repository
	outboxRepo OutboxRepository
	clk        clock.Clock
}

// NewService creates a new auction service
func NewService(txManager database.TransactionManager, repo Repository, outboxRepo OutboxRepository, clk clock.Clock) *Service {
	return &Service{
		txManager:  txManager,
		repo:       repo,
		outboxRepo: outboxRepo,
		clk:        clk,
	}
}

// CreateAuction registers a new auction in its initial no-bid state and
// emits auction.created through the outbox.
func (s *Service) CreateAuction(ctx context.Context, cmd CreateAuctionCommand) (*Auction, error) {
	if cmd.BasePrice <= 0 {
		return nil, ErrInvalidBasePrice
	}
	if !cmd.EndDate.After(cmd.StartDate) {
		return nil, ErrInvalidSchedule
	}

	now := s.clk.Now()
	auction := &Auction{
		ID:                 uuid.New(),
		VehiclePlate:       cmd.VehiclePlate,
		VehicleDescription: cmd.VehicleDescription,
		BasePrice:          cmd.BasePrice,
		CurrentPrice:       nil,
		StartDate:          cmd.StartDate,
		EndDate:            cmd.EndDate,
		Status:             StatusNoBids,
		AppraiserID:        cmd.AppraiserID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := s.repo.CreateAuction(ctx, tx, auction); err != nil {
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}

	payload, err := json.Marshal(events.AuctionCreated{AuctionID: auction.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	outboxEvent := &events.OutboxEvent{
		ID:          uuid.New(),
		EventType:   events.TypeAuctionCreated,
		Payload:     payload,
		Status:      events.OutboxStatusPending,
		AvailableAt: now,
		CreatedAt:   now,
	}
	if err := s.outboxRepo.SaveEvent(ctx, tx, outboxEvent); err != nil {
		return nil, fmt.Errorf("failed to save outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return auction, nil
}

// GetAuction retrieves an auction by ID. The repository returns
// ErrAuctionNotFound for a missing row; any other failure passes
// through so callers do not mistake an outage for a missing auction.
func (s *Service) GetAuction(ctx context.Context, auctionID uuid.UUID) (*Auction, error) {
	auction, err := s.repo.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return auction, nil
}

// ListAuctions retrieves auctions with pagination
func (s *Service) ListAuctions(ctx context.Context, limit, offset int) ([]*Auction, error) {
	result, err := s.repo.ListAuctions(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	return result, nil
}
