package notifications

import (
	"time"

	"github.com/google/uuid"
)

// ChannelType identifies a delivery transport.
type ChannelType string

const (
	ChannelEmail    ChannelType = "email"
	ChannelWhatsApp ChannelType = "whatsapp"
)

// Role types notifications are routed by.
const (
	RoleReseller  = "reseller"
	RoleAppraiser = "tasador"
	RoleAdmin     = "admin"
)

// Channel is a delivery transport with a global on/off switch.
type Channel struct {
	ID          uuid.UUID   `db:"id"`
	ChannelType ChannelType `db:"channel_type"`
	IsEnabled   bool        `db:"is_enabled"`
}

// Setting enables or disables one channel for one (role, event) pair.
type Setting struct {
	ID        uuid.UUID `db:"id"`
	RoleType  string    `db:"role_type"`
	EventType string    `db:"event_type"`
	ChannelID uuid.UUID `db:"channel_id"`
	IsEnabled bool      `db:"is_enabled"`
	CreatedAt time.Time `db:"created_at"`
}

// Recipient is the contact card a message is delivered to.
type Recipient struct {
	ID       uuid.UUID `db:"id"`
	RoleType string    `db:"role_type"`
	FullName string    `db:"full_name"`
	Email    string    `db:"email"`
	Phone    string    `db:"phone"`
}

// Message is a rendered notification ready for a Sender.
type Message struct {
	Subject string
	Body    string
}
