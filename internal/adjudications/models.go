package adjudications

import (
	"time"

	"github.com/google/uuid"
)

// Decision is the appraiser's verdict on the leading bid.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

// Adjudication records an appraiser's decision on a won auction.
// Owned by its auction; append-only.
type Adjudication struct {
	ID         uuid.UUID `db:"id"`
	AuctionID  uuid.UUID `db:"auction_id"`
	ResellerID uuid.UUID `db:"reseller_id"`
	Status     Decision  `db:"status"`
	Notes      string    `db:"notes"`
	CreatedAt  time.Time `db:"created_at"`
}

// Actor is the authenticated user attempting the decision, as carried
// by the access token claims.
type Actor struct {
	ID    uuid.UUID
	Roles []string
}

// HasRole reports whether the actor carries the given role.
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// DecideCommand represents an accept or reject request for an auction.
type DecideCommand struct {
	AuctionID uuid.UUID
	Actor     Actor
	Notes     string
}
