package adjudications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avelazquez/remate/internal/auctions"
	"github.com/avelazquez/remate/internal/infra/database"
	"github.com/avelazquez/remate/pkg/clock"
	"github.com/avelazquez/remate/pkg/events"
)

// Service errors
var (
	ErrUnauthorized = fmt.Errorf("user may not adjudicate this auction")
	ErrInvalidState = fmt.Errorf("auction is not awaiting adjudication")
	ErrNoBids       = fmt.Errorf("auction has no leading bid")
)

// Service orchestrates the appraiser's accept/reject decision on a won
// auction. The adjudication row and the status change commit together;
// the outbox event rides the same transaction with a deferred
// available_at, which is how the delayed notification dispatch works.
type Service struct {
	txManager     database.TransactionManager
	adjRepo       AdjudicationRepository
	auctionRepo   AuctionRepository
	bidRepo       BidRepository
	outboxRepo    OutboxRepository
	authorizer    Authorizer
	clk           clock.Clock
	dispatchDelay time.Duration
}

// NewService creates a new adjudication service. dispatchDelay holds
// back the accepted/rejected events from the relay.
func NewService(
	txManager database.TransactionManager,
	adjRepo AdjudicationRepository,
	auctionRepo AuctionRepository,
	bidRepo BidRepository,
	outboxRepo OutboxRepository,
	authorizer Authorizer,
	clk clock.Clock,
	dispatchDelay time.Duration,
) *Service {
	return &Service{
		txManager:     txManager,
		adjRepo:       adjRepo,
		auctionRepo:   auctionRepo,
		bidRepo:       bidRepo,
		outboxRepo:    outboxRepo,
		authorizer:    authorizer,
		clk:           clk,
		dispatchDelay: dispatchDelay,
	}
}

// Accept awards the auction to the leading bidder.
func (s *Service) Accept(ctx context.Context, cmd DecideCommand) (*Adjudication, error) {
	return s.decide(ctx, cmd, DecisionAccepted)
}

// Reject declines the leading bid. The auction becomes fallida and
// stays there; there is no re-adjudication path.
func (s *Service) Reject(ctx context.Context, cmd DecideCommand) (*Adjudication, error) {
	return s.decide(ctx, cmd, DecisionRejected)
}

func (s *Service) decide(ctx context.Context, cmd DecideCommand, decision Decision) (*Adjudication, error) {
	now := s.clk.Now()

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	auction, err := s.auctionRepo.GetAuctionByIDForUpdate(ctx, tx, cmd.AuctionID)
	if err != nil {
		return nil, err
	}

	if !s.authorizer.CanAdjudicate(cmd.Actor, auction) {
		return nil, ErrUnauthorized
	}

	if auction.Status != auctions.StatusWon || !auction.HasEnded(now) {
		return nil, ErrInvalidState
	}

	// ganada implies a bid exists, but the invariant is cheap to hold
	// here too.
	leader, err := s.bidRepo.GetLeadingBid(ctx, tx, cmd.AuctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read leading bid: %w", err)
	}
	if leader == nil {
		return nil, ErrNoBids
	}

	adjudication := &Adjudication{
		ID:         uuid.New(),
		AuctionID:  cmd.AuctionID,
		ResellerID: leader.ResellerID,
		Status:     decision,
		Notes:      cmd.Notes,
		CreatedAt:  now,
	}

	if saveErr := s.adjRepo.SaveAdjudication(ctx, tx, adjudication); saveErr != nil {
		return nil, fmt.Errorf("failed to save adjudication: %w", saveErr)
	}

	next := auctions.StatusAdjudicated
	eventType := events.TypeAdjudicationAccepted
	var payloadValue any = events.AdjudicationAccepted{AuctionID: cmd.AuctionID, ResellerID: leader.ResellerID}
	if decision == DecisionRejected {
		next = auctions.StatusFailed
		eventType = events.TypeAdjudicationRejected
		payloadValue = events.AdjudicationRejected{AuctionID: cmd.AuctionID, ResellerID: leader.ResellerID}
	}

	if updErr := s.auctionRepo.UpdateStatus(ctx, tx, cmd.AuctionID, next); updErr != nil {
		return nil, fmt.Errorf("failed to update status: %w", updErr)
	}

	payload, marshalErr := json.Marshal(payloadValue)
	if marshalErr != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", marshalErr)
	}

	outboxEvent := &events.OutboxEvent{
		ID:          uuid.New(),
		EventType:   eventType,
		Payload:     payload,
		Status:      events.OutboxStatusPending,
		AvailableAt: now.Add(s.dispatchDelay),
		CreatedAt:   now,
	}
	if saveErr := s.outboxRepo.SaveEvent(ctx, tx, outboxEvent); saveErr != nil {
		return nil, fmt.Errorf("failed to save outbox event: %w", saveErr)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", commitErr)
	}

	return adjudication, nil
}

// ListAdjudications retrieves the decision history for an auction.
func (s *Service) ListAdjudications(ctx context.Context, auctionID uuid.UUID) ([]*Adjudication, error) {
	result, err := s.adjRepo.GetAdjudicationsByAuctionID(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list adjudications: %w", err)
	}
	return result, nil
}
