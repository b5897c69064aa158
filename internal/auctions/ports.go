package auctions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avelazquez/remate/pkg/events"
)

// Repository defines the interface for auction persistence
type Repository interface {
	// CreateAuction inserts a new auction within a transaction
	CreateAuction(ctx context.Context, tx pgx.Tx, auction *Auction) error

	// GetAuctionByID retrieves an auction by its ID
	GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (*Auction, error)

	// GetAuctionByIDForUpdate retrieves an auction and locks its row.
	// Must be called within a transaction.
	GetAuctionByIDForUpdate(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*Auction, error)

	// ListAuctions retrieves auctions ordered by end date, newest first
	ListAuctions(ctx context.Context, limit, offset int) ([]*Auction, error)

	// ListDueAuctionIDs returns IDs of non-terminal auctions whose end
	// date has passed. Read-only; the sweep re-checks each auction
	// under a row lock before transitioning it.
	ListDueAuctionIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)

	// UpdateStatus updates an auction's status within a transaction
	UpdateStatus(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, status Status) error

	// CountBidsByAuctionID returns the number of bids for an auction
	CountBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) (int64, error)
}

// OutboxRepository is the slice of the outbox the auction lifecycle needs.
type OutboxRepository interface {
	SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error
}
