package auctions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avelazquez/remate/internal/infra/database"
	"github.com/avelazquez/remate/pkg/clock"
	"github.com/avelazquez/remate/pkg/events"
)

const sweepBatchSize = 100

// Sweeper drives the time-based auction status transitions:
//
//	sin_oferta -> fallida   (ended, never received a bid)
//	en_proceso -> ganada    (ended with a leading bid, awaits adjudication)
//
// Each transition runs in its own transaction under a row lock, so the
// sweep is idempotent and safe to run from several workers at once:
// whoever loses the lock race re-reads a terminal status and skips.
type Sweeper struct {
	txManager  database.TransactionManager
	repo       Repository
	outboxRepo OutboxRepository
	clk        clock.Clock
	interval   time.Duration
	logger     *slog.Logger
}

// NewSweeper creates a new lifecycle sweeper
func NewSweeper(
	txManager database.TransactionManager,
	repo Repository,
	outboxRepo OutboxRepository,
	clk clock.Clock,
	interval time.Duration,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		txManager:  txManager,
		repo:       repo,
		outboxRepo: outboxRepo,
		clk:        clk,
		interval:   interval,
		logger:     logger,
	}
}

// Run executes SweepOnce on every tick until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if _, err := s.SweepOnce(ctx); err != nil {
		s.logger.Error("Sweep failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("Sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce promotes every due auction and returns how many changed
// status. Batches repeat until the backlog drains, so a pile-up larger
// than one batch clears in a single pass. A failure on one auction is
// logged and does not stop the pass; the time predicate is stateless,
// so the next tick retries it.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.clk.Now()

	transitioned := 0
	for {
		ids, err := s.repo.ListDueAuctionIDs(ctx, now, sweepBatchSize)
		if err != nil {
			return transitioned, fmt.Errorf("failed to list due auctions: %w", err)
		}

		batchChanged := 0
		for _, id := range ids {
			changed, err := s.closeAuction(ctx, id, now)
			if err != nil {
				s.logger.Error("Failed to close auction", "auction_id", id, "error", err)
				continue
			}
			if changed {
				batchChanged++
			}
		}
		transitioned += batchChanged

		// Done once the backlog is shorter than a batch. A full batch
		// with no progress means every row is erroring; bail out and
		// let the next tick retry rather than spin.
		if len(ids) < sweepBatchSize || batchChanged == 0 {
			return transitioned, nil
		}
	}
}

// closeAuction re-checks the transition predicate under a row lock and
// applies it. Returns false when the auction was already classified.
func (s *Sweeper) closeAuction(ctx context.Context, auctionID uuid.UUID, now time.Time) (bool, error) {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	auction, err := s.repo.GetAuctionByIDForUpdate(ctx, tx, auctionID)
	if err != nil {
		return false, fmt.Errorf("failed to lock auction: %w", err)
	}

	// Another worker may have closed it between the read and the lock.
	if auction.Status.IsTerminal() || !auction.HasEnded(now) {
		return false, nil
	}

	var next Status
	switch auction.Status {
	case StatusNoBids:
		next = StatusFailed
	case StatusInProcess:
		next = StatusWon
	default:
		return false, nil
	}

	if err := s.repo.UpdateStatus(ctx, tx, auction.ID, next); err != nil {
		return false, fmt.Errorf("failed to update status: %w", err)
	}

	// Closing with zero bids is the only sweep transition that notifies.
	if next == StatusFailed {
		payload, marshalErr := json.Marshal(events.AuctionClosedNoOffers{AuctionID: auction.ID})
		if marshalErr != nil {
			return false, fmt.Errorf("failed to marshal event: %w", marshalErr)
		}

		outboxEvent := &events.OutboxEvent{
			ID:          uuid.New(),
			EventType:   events.TypeAuctionClosedNoOffers,
			Payload:     payload,
			Status:      events.OutboxStatusPending,
			AvailableAt: now,
			CreatedAt:   now,
		}
		if saveErr := s.outboxRepo.SaveEvent(ctx, tx, outboxEvent); saveErr != nil {
			return false, fmt.Errorf("failed to save outbox event: %w", saveErr)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}
