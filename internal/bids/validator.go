package bids

import (
	"fmt"
	"time"

	"github.com/avelazquez/remate/internal/auctions"
)

// Validation errors
var (
	ErrAuctionClosed    = fmt.Errorf("auction is not open for bids")
	ErrBidTooLow        = fmt.Errorf("bid amount does not clear the minimum increment")
	ErrInvalidBidAmount = fmt.Errorf("bid amount must be positive")
	ErrConcurrentBid    = fmt.Errorf("auction is locked by a concurrent bid")
)

// IncrementPolicy derives the minimum step a new bid must clear over
// the running price. When BasisPoints is zero the fixed amount
// applies; otherwise the increment is a percentage of the running
// price, floored at MinAmount. All values are integer minor units.
type IncrementPolicy struct {
	FixedAmount int64
	BasisPoints int64
	MinAmount   int64
}

// MinimumIncrement returns the increment for the given running price.
// Always positive.
func (p IncrementPolicy) MinimumIncrement(runningPrice int64) int64 {
	if p.BasisPoints > 0 {
		inc := runningPrice * p.BasisPoints / 10000
		if inc < p.MinAmount {
			inc = p.MinAmount
		}
		if inc > 0 {
			return inc
		}
	}
	if p.FixedAmount > 0 {
		return p.FixedAmount
	}
	return 1
}

// CanBid reports whether the auction accepts bids at the given instant:
// pre-adjudication status and inside the start/end window.
func CanBid(auction *auctions.Auction, now time.Time) bool {
	return auction.IsOpenForBids(now)
}

// Validate checks a bid amount against the auction's window and price
// rules. The auction snapshot must be read under the row lock so the
// running price cannot move underneath the check.
func Validate(auction *auctions.Auction, amount int64, now time.Time, policy IncrementPolicy) error {
	if !CanBid(auction, now) {
		return ErrAuctionClosed
	}
	if amount <= 0 {
		return ErrInvalidBidAmount
	}
	if amount < auction.RunningPrice()+policy.MinimumIncrement(auction.RunningPrice()) {
		return ErrBidTooLow
	}
	return nil
}
