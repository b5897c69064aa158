package events

import (
	"github.com/google/uuid"
)

// Exchange is the topic exchange all auction domain events flow through.
const Exchange = "remate.events"

// Routing keys. The outbox stores these as the event type and the
// relay publishes each payload under its key.
const (
	TypeAuctionCreated        = "auction.created"
	TypeAuctionClosedNoOffers = "auction.closed_no_offers"
	TypeBidPlaced             = "bid.placed"
	TypeAdjudicationAccepted  = "adjudication.accepted"
	TypeAdjudicationRejected  = "adjudication.rejected"
)

// AuctionCreated is emitted when a new auction is registered.
type AuctionCreated struct {
	AuctionID uuid.UUID `json:"auction_id"`
}

// AuctionClosedNoOffers is emitted exactly once when the sweep closes
// an auction that never received a bid.
type AuctionClosedNoOffers struct {
	AuctionID uuid.UUID `json:"auction_id"`
}

// BidPlaced is emitted after a bid commits. PreviousLeaderID carries
// the outbid reseller, when there was one, so the dispatcher can send
// the outbid notice.
type BidPlaced struct {
	AuctionID        uuid.UUID  `json:"auction_id"`
	BidID            uuid.UUID  `json:"bid_id"`
	ResellerID       uuid.UUID  `json:"reseller_id"`
	Amount           int64      `json:"amount"`
	PreviousLeaderID *uuid.UUID `json:"previous_leader_id,omitempty"`
}

// AdjudicationAccepted is emitted after an appraiser accepts the
// leading bid. Dispatch is delayed via the outbox available_at column.
type AdjudicationAccepted struct {
	AuctionID  uuid.UUID `json:"auction_id"`
	ResellerID uuid.UUID `json:"reseller_id"`
}

// AdjudicationRejected is emitted after an appraiser rejects the
// leading bid. Dispatch is delayed via the outbox available_at column.
type AdjudicationRejected struct {
	AuctionID  uuid.UUID `json:"auction_id"`
	ResellerID uuid.UUID `json:"reseller_id"`
}
