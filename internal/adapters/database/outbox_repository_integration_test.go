package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelazquez/remate/internal/adapters/database"
	infradb "github.com/avelazquez/remate/internal/infra/database"
	"github.com/avelazquez/remate/pkg/clock"
	"github.com/avelazquez/remate/pkg/events"
	"github.com/avelazquez/remate/pkg/testhelpers"
)

func TestOutboxRepository_UpdateEventStatus(t *testing.T) {
	db := testhelpers.NewTestDatabase(t, "../../../migrations")
	t.Cleanup(db.Close)

	ctx := context.Background()
	instant := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := database.NewPostgresOutboxRepository(db.Pool, &clock.FixedClock{Instant: instant})
	txManager := infradb.NewPostgresTransactionManager(db.Pool, 0)

	eventID := uuid.New()
	tx, err := txManager.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.SaveEvent(ctx, tx, &events.OutboxEvent{
		ID:          eventID,
		EventType:   events.TypeAuctionCreated,
		Payload:     []byte(`{"auction_id":"00000000-0000-0000-0000-000000000000"}`),
		Status:      events.OutboxStatusPending,
		AvailableAt: instant,
		CreatedAt:   instant,
	}))
	require.NoError(t, tx.Commit(ctx))

	tx, err = txManager.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateEventStatus(ctx, tx, eventID, events.OutboxStatusPublished))
	require.NoError(t, tx.Commit(ctx))

	var status events.OutboxStatus
	var processedAt *time.Time
	err = db.Pool.QueryRow(ctx,
		`SELECT status, processed_at FROM outbox_events WHERE id = $1`, eventID).
		Scan(&status, &processedAt)
	require.NoError(t, err)

	assert.Equal(t, events.OutboxStatusPublished, status)
	// The processed timestamp comes from the injected clock, not the
	// wall clock.
	require.NotNil(t, processedAt)
	assert.True(t, processedAt.Equal(instant), "processed_at = %s, want %s", processedAt, instant)
}

func TestOutboxRepository_UpdateEventStatus_UnknownEvent(t *testing.T) {
	db := testhelpers.NewTestDatabase(t, "../../../migrations")
	t.Cleanup(db.Close)

	ctx := context.Background()
	repo := database.NewPostgresOutboxRepository(db.Pool, &clock.FixedClock{Instant: time.Now()})
	txManager := infradb.NewPostgresTransactionManager(db.Pool, 0)

	tx, err := txManager.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	err = repo.UpdateEventStatus(ctx, tx, uuid.New(), events.OutboxStatusPublished)
	assert.Error(t, err)
}
