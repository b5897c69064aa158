package adjudications_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelazquez/remate/internal/adapters/database"
	"github.com/avelazquez/remate/internal/adjudications"
	"github.com/avelazquez/remate/internal/auctions"
	infradb "github.com/avelazquez/remate/internal/infra/database"
	"github.com/avelazquez/remate/pkg/clock"
	"github.com/avelazquez/remate/pkg/events"
	"github.com/avelazquez/remate/pkg/testhelpers"
)

const testDispatchDelay = 15 * time.Second

type adjTestEnv struct {
	db      *testhelpers.TestDatabase
	service *adjudications.Service
	clk     *clock.FixedClock
}

func setupAdjTest(t *testing.T) *adjTestEnv {
	t.Helper()

	db := testhelpers.NewTestDatabase(t, "../../migrations")
	t.Cleanup(db.Close)

	clk := &clock.FixedClock{Instant: time.Now().UTC()}
	txManager := infradb.NewPostgresTransactionManager(db.Pool, 3*time.Second)
	auctionRepo := database.NewPostgresAuctionRepository(db.Pool)
	bidRepo := database.NewPostgresBidRepository(db.Pool)
	adjRepo := database.NewPostgresAdjudicationRepository(db.Pool)
	outboxRepo := database.NewPostgresOutboxRepository(db.Pool, clk)

	service := adjudications.NewService(
		txManager,
		adjRepo,
		auctionRepo,
		bidRepo,
		outboxRepo,
		adjudications.RoleAuthorizer{},
		clk,
		testDispatchDelay,
	)

	return &adjTestEnv{db: db, service: service, clk: clk}
}

// seedWonAuction creates an ended auction in ganada with one bid and
// returns the auction, appraiser and winning reseller IDs.
func (env *adjTestEnv) seedWonAuction(t *testing.T) (auctionID, appraiserID, resellerID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	now := env.clk.Instant

	auctionID = uuid.New()
	appraiserID = uuid.New()
	resellerID = uuid.New()

	_, err := env.db.Pool.Exec(ctx, `
		INSERT INTO auctions (id, vehicle_plate, vehicle_description, base_price, current_price, start_date, end_date, status, appraiser_id)
		VALUES ($1, 'ABCD12', 'Toyota Hilux 2019', 10000, 12000, $2, $3, 'ganada', $4)
	`, auctionID, now.Add(-24*time.Hour), now.Add(-1*time.Hour), appraiserID)
	require.NoError(t, err)

	_, err = env.db.Pool.Exec(ctx, `
		INSERT INTO bids (id, auction_id, reseller_id, amount, created_at)
		VALUES ($1, $2, $3, 12000, $4)
	`, uuid.New(), auctionID, resellerID, now.Add(-2*time.Hour))
	require.NoError(t, err)

	return auctionID, appraiserID, resellerID
}

func (env *adjTestEnv) auctionStatus(t *testing.T, id uuid.UUID) auctions.Status {
	t.Helper()
	var status auctions.Status
	err := env.db.Pool.QueryRow(context.Background(),
		`SELECT status FROM auctions WHERE id = $1`, id).Scan(&status)
	require.NoError(t, err)
	return status
}

func TestAccept_ByAssignedAppraiser(t *testing.T) {
	env := setupAdjTest(t)
	ctx := context.Background()
	auctionID, appraiserID, resellerID := env.seedWonAuction(t)

	adj, err := env.service.Accept(ctx, adjudications.DecideCommand{
		AuctionID: auctionID,
		Actor:     adjudications.Actor{ID: appraiserID, Roles: []string{adjudications.RoleAppraiser}},
		Notes:     "Documentación en regla",
	})
	require.NoError(t, err)

	assert.Equal(t, adjudications.DecisionAccepted, adj.Status)
	assert.Equal(t, resellerID, adj.ResellerID)
	assert.Equal(t, auctions.StatusAdjudicated, env.auctionStatus(t, auctionID))

	// The event is committed but held back from the relay.
	var availableAt time.Time
	err = env.db.Pool.QueryRow(ctx, `
		SELECT available_at FROM outbox_events WHERE event_type = $1 AND status = 'pending'
	`, events.TypeAdjudicationAccepted).Scan(&availableAt)
	require.NoError(t, err)
	assert.WithinDuration(t, env.clk.Instant.Add(testDispatchDelay), availableAt, time.Second)

	// The decision survives in the history.
	history, err := env.service.ListAdjudications(ctx, auctionID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Documentación en regla", history[0].Notes)
}

func TestAccept_ByAdmin(t *testing.T) {
	env := setupAdjTest(t)
	auctionID, _, _ := env.seedWonAuction(t)

	_, err := env.service.Accept(context.Background(), adjudications.DecideCommand{
		AuctionID: auctionID,
		Actor:     adjudications.Actor{ID: uuid.New(), Roles: []string{adjudications.RoleAdmin}},
	})
	require.NoError(t, err)
	assert.Equal(t, auctions.StatusAdjudicated, env.auctionStatus(t, auctionID))
}

func TestReject_MarksAuctionFailed(t *testing.T) {
	env := setupAdjTest(t)
	ctx := context.Background()
	auctionID, appraiserID, resellerID := env.seedWonAuction(t)

	adj, err := env.service.Reject(ctx, adjudications.DecideCommand{
		AuctionID: auctionID,
		Actor:     adjudications.Actor{ID: appraiserID, Roles: []string{adjudications.RoleAppraiser}},
		Notes:     "Oferta bajo el mínimo esperado",
	})
	require.NoError(t, err)

	assert.Equal(t, adjudications.DecisionRejected, adj.Status)
	assert.Equal(t, resellerID, adj.ResellerID)
	assert.Equal(t, auctions.StatusFailed, env.auctionStatus(t, auctionID))

	var count int64
	err = env.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox_events WHERE event_type = $1`,
		events.TypeAdjudicationRejected).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDecide_RejectsUnassignedAppraiser(t *testing.T) {
	env := setupAdjTest(t)
	auctionID, _, _ := env.seedWonAuction(t)

	_, err := env.service.Accept(context.Background(), adjudications.DecideCommand{
		AuctionID: auctionID,
		Actor:     adjudications.Actor{ID: uuid.New(), Roles: []string{adjudications.RoleAppraiser}},
	})
	assert.ErrorIs(t, err, adjudications.ErrUnauthorized)

	// Nothing changed.
	assert.Equal(t, auctions.StatusWon, env.auctionStatus(t, auctionID))
}

func TestDecide_RequiresWonStatus(t *testing.T) {
	env := setupAdjTest(t)
	ctx := context.Background()
	now := env.clk.Instant

	auctionID := uuid.New()
	appraiserID := uuid.New()
	_, err := env.db.Pool.Exec(ctx, `
		INSERT INTO auctions (id, vehicle_plate, vehicle_description, base_price, current_price, start_date, end_date, status, appraiser_id)
		VALUES ($1, 'ABCD12', 'Toyota Hilux 2019', 10000, 12000, $2, $3, 'en_proceso', $4)
	`, auctionID, now.Add(-24*time.Hour), now.Add(1*time.Hour), appraiserID)
	require.NoError(t, err)

	_, err = env.service.Accept(ctx, adjudications.DecideCommand{
		AuctionID: auctionID,
		Actor:     adjudications.Actor{ID: appraiserID, Roles: []string{adjudications.RoleAppraiser}},
	})
	assert.ErrorIs(t, err, adjudications.ErrInvalidState)
}

func TestDecide_NoReAdjudication(t *testing.T) {
	env := setupAdjTest(t)
	ctx := context.Background()
	auctionID, appraiserID, _ := env.seedWonAuction(t)
	actor := adjudications.Actor{ID: appraiserID, Roles: []string{adjudications.RoleAppraiser}}

	_, err := env.service.Reject(ctx, adjudications.DecideCommand{AuctionID: auctionID, Actor: actor})
	require.NoError(t, err)

	// fallida is terminal; a second decision is refused.
	_, err = env.service.Accept(ctx, adjudications.DecideCommand{AuctionID: auctionID, Actor: actor})
	assert.ErrorIs(t, err, adjudications.ErrInvalidState)
}

func TestDecide_UnknownAuction(t *testing.T) {
	env := setupAdjTest(t)

	_, err := env.service.Accept(context.Background(), adjudications.DecideCommand{
		AuctionID: uuid.New(),
		Actor:     adjudications.Actor{ID: uuid.New(), Roles: []string{adjudications.RoleAdmin}},
	})
	assert.ErrorIs(t, err, auctions.ErrAuctionNotFound)
}
