package adjudications

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avelazquez/remate/internal/auctions"
	"github.com/avelazquez/remate/internal/bids"
	"github.com/avelazquez/remate/pkg/events"
)

// AdjudicationRepository defines the interface for adjudication persistence
type AdjudicationRepository interface {
	// SaveAdjudication saves an adjudication within a transaction
	SaveAdjudication(ctx context.Context, tx pgx.Tx, adjudication *Adjudication) error

	// GetAdjudicationsByAuctionID retrieves all adjudications for an auction
	GetAdjudicationsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*Adjudication, error)
}

// AuctionRepository is the slice of auction persistence adjudication needs.
type AuctionRepository interface {
	GetAuctionByIDForUpdate(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*auctions.Auction, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, status auctions.Status) error
}

// BidRepository is the slice of bid persistence adjudication needs.
type BidRepository interface {
	GetLeadingBid(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*bids.Bid, error)
}

// OutboxRepository is the slice of the outbox adjudication needs.
type OutboxRepository interface {
	SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error
}

// Authorizer is the capability check for adjudication. The UI layer
// may pre-filter, but the service never trusts client-side checks.
type Authorizer interface {
	CanAdjudicate(actor Actor, auction *auctions.Auction) bool
}

// Role names recognized by the default authorizer.
const (
	RoleAdmin     = "admin"
	RoleAppraiser = "tasador"
)

// RoleAuthorizer implements the capability model: an elevated role may
// adjudicate any auction; an appraiser only the auctions assigned to
// them.
type RoleAuthorizer struct{}

func (RoleAuthorizer) CanAdjudicate(actor Actor, auction *auctions.Auction) bool {
	if actor.HasRole(RoleAdmin) {
		return true
	}
	return actor.HasRole(RoleAppraiser) && actor.ID == auction.AppraiserID
}
