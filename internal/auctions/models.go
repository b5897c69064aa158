package auctions

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an auction. The slugs match the
// auction_status enum in Postgres.
type Status string

const (
	// StatusNoBids is the initial state: open window, no bids yet.
	StatusNoBids Status = "sin_oferta"
	// StatusInProcess means at least one bid has been accepted.
	StatusInProcess Status = "en_proceso"
	// StatusFailed is terminal: ended with no bids, or adjudication rejected.
	StatusFailed Status = "fallida"
	// StatusWon means the auction ended with a leading bid and awaits adjudication.
	StatusWon Status = "ganada"
	// StatusAdjudicated is terminal: the appraiser accepted the leading bid.
	StatusAdjudicated Status = "adjudicada"
)

// IsValid checks the status is one of the known lifecycle states.
func (s Status) IsValid() bool {
	switch s {
	case StatusNoBids, StatusInProcess, StatusFailed, StatusWon, StatusAdjudicated:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the sweep should skip the auction. Won
// auctions are terminal for time-based transitions; only adjudication
// moves them further.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFailed, StatusWon, StatusAdjudicated:
		return true
	default:
		return false
	}
}

// Label returns the human-readable name used by admin screens.
func (s Status) Label() string {
	switch s {
	case StatusNoBids:
		return "Sin oferta"
	case StatusInProcess:
		return "En proceso"
	case StatusFailed:
		return "Fallida"
	case StatusWon:
		return "Ganada"
	case StatusAdjudicated:
		return "Adjudicada"
	default:
		return string(s)
	}
}

// Color returns the badge color used by admin screens.
func (s Status) Color() string {
	switch s {
	case StatusNoBids:
		return "gray"
	case StatusInProcess:
		return "info"
	case StatusFailed:
		return "danger"
	case StatusWon:
		return "warning"
	case StatusAdjudicated:
		return "success"
	default:
		return "gray"
	}
}

// Auction is a timed sale of one vehicle accepting competing bids.
// Prices are integer minor units.
type Auction struct {
	ID                 uuid.UUID  `db:"id"`
	VehiclePlate       string     `db:"vehicle_plate"`
	VehicleDescription string     `db:"vehicle_description"`
	BasePrice          int64      `db:"base_price"`
	CurrentPrice       *int64     `db:"current_price"`
	StartDate          time.Time  `db:"start_date"`
	EndDate            time.Time  `db:"end_date"`
	Status             Status     `db:"status"`
	AppraiserID        uuid.UUID  `db:"appraiser_id"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

// RunningPrice is the price a new bid competes against: the current
// price when one exists, the base price otherwise.
func (a *Auction) RunningPrice() int64 {
	if a.CurrentPrice != nil {
		return *a.CurrentPrice
	}
	return a.BasePrice
}

// IsOpenForBids reports whether a bid may be placed at the given instant.
func (a *Auction) IsOpenForBids(now time.Time) bool {
	if a.Status != StatusNoBids && a.Status != StatusInProcess {
		return false
	}
	return !now.Before(a.StartDate) && now.Before(a.EndDate)
}

// HasEnded reports whether the bidding window is over.
func (a *Auction) HasEnded(now time.Time) bool {
	return !now.Before(a.EndDate)
}
