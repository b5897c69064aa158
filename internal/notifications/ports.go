package notifications

import (
	"context"

	"github.com/google/uuid"
)

// SettingsSource answers which channels are enabled for a (role, event)
// pair. The production wiring layers a Redis read-through cache over
// the Postgres repository.
type SettingsSource interface {
	EnabledChannels(ctx context.Context, roleType, eventType string) ([]ChannelType, error)
}

// SettingsRepository is the persistent side of SettingsSource.
type SettingsRepository interface {
	SettingsSource

	// ListChannels returns all configured channels
	ListChannels(ctx context.Context) ([]*Channel, error)
}

// Directory resolves recipient contact details.
type Directory interface {
	// GetRecipient retrieves a recipient by ID
	GetRecipient(ctx context.Context, id uuid.UUID) (*Recipient, error)

	// ListRecipientsByRole retrieves every recipient holding a role
	ListRecipientsByRole(ctx context.Context, roleType string) ([]*Recipient, error)
}

// Sender delivers a message over one transport. Delivery is
// best-effort; a failed send is logged and never retried into the
// producing operation.
type Sender interface {
	Send(ctx context.Context, to *Recipient, msg Message) error
}
