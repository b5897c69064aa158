package bids

import (
	"time"

	"github.com/google/uuid"
)

// Bid is a reseller's monetary offer against an auction. Rows are
// append-only; a committed bid is never mutated.
type Bid struct {
	ID         uuid.UUID `db:"id"`
	AuctionID  uuid.UUID `db:"auction_id"`
	ResellerID uuid.UUID `db:"reseller_id"`
	Amount     int64     `db:"amount"`
	Comments   string    `db:"comments"`
	CreatedAt  time.Time `db:"created_at"`
}

// PlaceBidCommand represents the command to place a bid
type PlaceBidCommand struct {
	AuctionID  uuid.UUID
	ResellerID uuid.UUID
	Amount     int64
	Comments   string
}
