package bids

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avelazquez/remate/internal/auctions"
	"github.com/avelazquez/remate/pkg/events"
)

// BidRepository defines the interface for bid persistence
type BidRepository interface {
	// SaveBid saves a bid within a transaction
	SaveBid(ctx context.Context, tx pgx.Tx, bid *Bid) error

	// GetLeadingBid returns the highest committed bid for an auction,
	// or nil when the auction has none. Must run inside the same
	// transaction as the bid insert so the previous leader is exact.
	GetLeadingBid(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*Bid, error)

	// GetBidsByAuctionID retrieves all bids for an auction, newest first
	GetBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error)
}

// AuctionRepository is the slice of auction persistence bid placement needs.
type AuctionRepository interface {
	// GetAuctionByIDForUpdate retrieves an auction and locks its row.
	// This serializes concurrent bids on the same auction.
	GetAuctionByIDForUpdate(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*auctions.Auction, error)

	// UpdateCurrentPrice sets the auction's current price and status
	// within a transaction.
	UpdateCurrentPrice(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, amount int64, status auctions.Status) error
}

// OutboxRepository is the slice of the outbox bid placement needs.
type OutboxRepository interface {
	SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error
}
