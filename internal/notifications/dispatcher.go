package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/avelazquez/remate/pkg/events"
)

// Dispatcher routes domain events to the channels enabled for each
// recipient role. Delivery failures are logged and swallowed: a broken
// mail relay must never bounce a committed bid or adjudication.
type Dispatcher struct {
	settings  SettingsSource
	directory Directory
	senders   map[ChannelType]Sender
	logger    *slog.Logger
}

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(settings SettingsSource, directory Directory, senders map[ChannelType]Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		settings:  settings,
		directory: directory,
		senders:   senders,
		logger:    logger,
	}
}

// HandleAuctionCreated announces a new auction to every reseller.
func (d *Dispatcher) HandleAuctionCreated(ctx context.Context, event events.AuctionCreated) error {
	recipients, err := d.directory.ListRecipientsByRole(ctx, RoleReseller)
	if err != nil {
		return fmt.Errorf("failed to list resellers: %w", err)
	}

	msg := Message{
		Subject: "Nueva subasta disponible",
		Body:    fmt.Sprintf("Se ha publicado una nueva subasta (%s).", event.AuctionID),
	}
	for _, r := range recipients {
		d.deliver(ctx, RoleReseller, events.TypeAuctionCreated, r, msg)
	}
	return nil
}

// HandleAuctionClosedNoOffers tells the appraisers an auction closed
// without a single offer.
func (d *Dispatcher) HandleAuctionClosedNoOffers(ctx context.Context, event events.AuctionClosedNoOffers) error {
	recipients, err := d.directory.ListRecipientsByRole(ctx, RoleAppraiser)
	if err != nil {
		return fmt.Errorf("failed to list appraisers: %w", err)
	}

	msg := Message{
		Subject: "Subasta cerrada sin ofertas",
		Body:    fmt.Sprintf("La subasta %s finalizó sin ofertas.", event.AuctionID),
	}
	for _, r := range recipients {
		d.deliver(ctx, RoleAppraiser, events.TypeAuctionClosedNoOffers, r, msg)
	}
	return nil
}

// HandleBidPlaced confirms the new leader and, when someone was
// outbid, sends them the outbid notice.
func (d *Dispatcher) HandleBidPlaced(ctx context.Context, event events.BidPlaced) error {
	confirmation := Message{
		Subject: "Oferta registrada",
		Body:    fmt.Sprintf("Tu oferta de %d por la subasta %s es la más alta.", event.Amount, event.AuctionID),
	}
	if err := d.notifyRecipient(ctx, RoleReseller, events.TypeBidPlaced, event.ResellerID, confirmation); err != nil {
		return err
	}

	if event.PreviousLeaderID == nil || *event.PreviousLeaderID == event.ResellerID {
		return nil
	}

	outbid := Message{
		Subject: "Tu oferta fue superada",
		Body:    fmt.Sprintf("Otra oferta de %d superó la tuya en la subasta %s.", event.Amount, event.AuctionID),
	}
	return d.notifyRecipient(ctx, RoleReseller, events.TypeBidPlaced, *event.PreviousLeaderID, outbid)
}

// HandleAdjudicationAccepted congratulates the winning reseller.
func (d *Dispatcher) HandleAdjudicationAccepted(ctx context.Context, event events.AdjudicationAccepted) error {
	msg := Message{
		Subject: "Subasta adjudicada",
		Body:    fmt.Sprintf("La subasta %s te fue adjudicada.", event.AuctionID),
	}
	return d.notifyRecipient(ctx, RoleReseller, events.TypeAdjudicationAccepted, event.ResellerID, msg)
}

// HandleAdjudicationRejected informs the reseller the offer was declined.
func (d *Dispatcher) HandleAdjudicationRejected(ctx context.Context, event events.AdjudicationRejected) error {
	msg := Message{
		Subject: "Oferta rechazada",
		Body:    fmt.Sprintf("Tu oferta por la subasta %s fue rechazada por el tasador.", event.AuctionID),
	}
	return d.notifyRecipient(ctx, RoleReseller, events.TypeAdjudicationRejected, event.ResellerID, msg)
}

func (d *Dispatcher) notifyRecipient(ctx context.Context, roleType, eventType string, recipientID uuid.UUID, msg Message) error {
	recipient, err := d.directory.GetRecipient(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient %s: %w", recipientID, err)
	}
	d.deliver(ctx, roleType, eventType, recipient, msg)
	return nil
}

// deliver fans one message out over every enabled channel.
func (d *Dispatcher) deliver(ctx context.Context, roleType, eventType string, to *Recipient, msg Message) {
	channels, err := d.settings.EnabledChannels(ctx, roleType, eventType)
	if err != nil {
		d.logger.Error("Failed to load channel settings", "role", roleType, "event", eventType, "error", err)
		return
	}

	for _, ch := range channels {
		sender, ok := d.senders[ch]
		if !ok {
			d.logger.Warn("No sender registered for channel", "channel", ch)
			continue
		}
		if sendErr := sender.Send(ctx, to, msg); sendErr != nil {
			d.logger.Error("Failed to deliver notification",
				"channel", ch, "recipient", to.ID, "event", eventType, "error", sendErr)
		}
	}
}
