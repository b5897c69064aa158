package bids

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/avelazquez/remate/internal/auctions"
	"github.com/avelazquez/remate/internal/infra/database"
	"github.com/avelazquez/remate/pkg/clock"
	"github.com/avelazquez/remate/pkg/events"
)

// maxLockAttempts bounds how often PlaceBid retries when the auction
// row is held by another bidder before surfacing ErrConcurrentBid.
const maxLockAttempts = 3

// Service orchestrates bid placement: validate, persist, bump the
// auction price, and queue the bid.placed event in one transaction.
type Service struct {
	txManager   database.TransactionManager
	bidRepo     BidRepository
	auctionRepo AuctionRepository
	outboxRepo  OutboxRepository
	policy      IncrementPolicy
	clk         clock.Clock
}

// NewService creates a new bid service
func NewService(
	txManager database.TransactionManager,
	bidRepo BidRepository,
	auctionRepo AuctionRepository,
	outboxRepo OutboxRepository,
	policy IncrementPolicy,
	clk clock.Clock,
) *Service {
	return &Service{
		txManager:   txManager,
		bidRepo:     bidRepo,
		auctionRepo: auctionRepo,
		outboxRepo:  outboxRepo,
		policy:      policy,
		clk:         clk,
	}
}

// PlaceBid places a bid atomically. The auction row lock serializes
// competing bids on the same auction; bids on different auctions never
// contend. The bid and its outbox event commit together, so the
// notification can never fire for a bid that did not persist.
func (s *Service) PlaceBid(ctx context.Context, cmd PlaceBidCommand) (*Bid, error) {
	var lastErr error
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		bid, err := s.placeBidOnce(ctx, cmd)
		if err == nil {
			return bid, nil
		}
		if !database.IsLockTimeout(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrConcurrentBid, lastErr)
}

func (s *Service) placeBidOnce(ctx context.Context, cmd PlaceBidCommand) (*Bid, error) {
	now := s.clk.Now()

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Lock the auction row. Until commit, no other bid can read or
	// move the running price.
	auction, err := s.auctionRepo.GetAuctionByIDForUpdate(ctx, tx, cmd.AuctionID)
	if err != nil {
		return nil, err
	}

	if valErr := Validate(auction, cmd.Amount, now, s.policy); valErr != nil {
		return nil, valErr
	}

	// The reseller being outbid, if any. Read before the insert.
	previousLeader, err := s.bidRepo.GetLeadingBid(ctx, tx, cmd.AuctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read leading bid: %w", err)
	}

	bid := &Bid{
		ID:         uuid.New(),
		AuctionID:  cmd.AuctionID,
		ResellerID: cmd.ResellerID,
		Amount:     cmd.Amount,
		Comments:   cmd.Comments,
		CreatedAt:  now,
	}

	if saveErr := s.bidRepo.SaveBid(ctx, tx, bid); saveErr != nil {
		return nil, fmt.Errorf("failed to save bid: %w", saveErr)
	}

	// First accepted bid moves the auction into en_proceso.
	status := auction.Status
	if status == auctions.StatusNoBids {
		status = auctions.StatusInProcess
	}
	if updErr := s.auctionRepo.UpdateCurrentPrice(ctx, tx, cmd.AuctionID, cmd.Amount, status); updErr != nil {
		return nil, fmt.Errorf("failed to update current price: %w", updErr)
	}

	event := events.BidPlaced{
		AuctionID:  bid.AuctionID,
		BidID:      bid.ID,
		ResellerID: bid.ResellerID,
		Amount:     bid.Amount,
	}
	if previousLeader != nil {
		event.PreviousLeaderID = &previousLeader.ResellerID
	}

	payload, marshalErr := json.Marshal(event)
	if marshalErr != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", marshalErr)
	}

	outboxEvent := &events.OutboxEvent{
		ID:          uuid.New(),
		EventType:   events.TypeBidPlaced,
		Payload:     payload,
		Status:      events.OutboxStatusPending,
		AvailableAt: now,
		CreatedAt:   now,
	}
	if saveErr := s.outboxRepo.SaveEvent(ctx, tx, outboxEvent); saveErr != nil {
		return nil, fmt.Errorf("failed to save outbox event: %w", saveErr)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", commitErr)
	}

	return bid, nil
}

// ListBids retrieves all bids for an auction, newest first.
func (s *Service) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error) {
	result, err := s.bidRepo.GetBidsByAuctionID(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	return result, nil
}
