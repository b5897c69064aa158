package database_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelazquez/remate/internal/adapters/database"
	"github.com/avelazquez/remate/internal/notifications"
	"github.com/avelazquez/remate/pkg/events"
	"github.com/avelazquez/remate/pkg/testhelpers"
)

func TestNotificationRepository(t *testing.T) {
	db := testhelpers.NewTestDatabase(t, "../../../migrations")
	t.Cleanup(db.Close)

	ctx := context.Background()
	repo := database.NewPostgresNotificationRepository(db.Pool)

	t.Run("defaults enable both channels", func(t *testing.T) {
		channels, err := repo.EnabledChannels(ctx, notifications.RoleReseller, events.TypeBidPlaced)
		require.NoError(t, err)
		assert.ElementsMatch(t,
			[]notifications.ChannelType{notifications.ChannelEmail, notifications.ChannelWhatsApp},
			channels)
	})

	t.Run("disabled setting drops the channel", func(t *testing.T) {
		_, err := db.Pool.Exec(ctx, `
			UPDATE notification_settings SET is_enabled = FALSE
			WHERE role_type = 'tasador' AND event_type = 'auction.closed_no_offers'
			  AND channel_id = (SELECT id FROM notification_channels WHERE channel_type = 'whatsapp')
		`)
		require.NoError(t, err)

		channels, err := repo.EnabledChannels(ctx, notifications.RoleAppraiser, events.TypeAuctionClosedNoOffers)
		require.NoError(t, err)
		assert.Equal(t, []notifications.ChannelType{notifications.ChannelEmail}, channels)
	})

	t.Run("disabled channel wins over enabled setting", func(t *testing.T) {
		_, err := db.Pool.Exec(ctx,
			`UPDATE notification_channels SET is_enabled = FALSE WHERE channel_type = 'email'`)
		require.NoError(t, err)
		t.Cleanup(func() {
			_, resetErr := db.Pool.Exec(ctx,
				`UPDATE notification_channels SET is_enabled = TRUE WHERE channel_type = 'email'`)
			require.NoError(t, resetErr)
		})

		channels, err := repo.EnabledChannels(ctx, notifications.RoleAdmin, events.TypeAuctionCreated)
		require.NoError(t, err)
		assert.Equal(t, []notifications.ChannelType{notifications.ChannelWhatsApp}, channels)
	})

	t.Run("recipients round trip", func(t *testing.T) {
		id := uuid.New()
		_, err := db.Pool.Exec(ctx, `
			INSERT INTO recipients (id, role_type, full_name, email, phone)
			VALUES ($1, 'reseller', 'Carla Muñoz', 'carla@example.com', '+56911112222')
		`, id)
		require.NoError(t, err)

		recipient, err := repo.GetRecipient(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Carla Muñoz", recipient.FullName)
		assert.Equal(t, "carla@example.com", recipient.Email)

		resellers, err := repo.ListRecipientsByRole(ctx, notifications.RoleReseller)
		require.NoError(t, err)
		require.Len(t, resellers, 1)
		assert.Equal(t, id, resellers[0].ID)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		_, err := repo.GetRecipient(ctx, uuid.New())
		assert.Error(t, err)
	})
}
