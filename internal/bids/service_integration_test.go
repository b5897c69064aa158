package bids_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelazquez/remate/internal/adapters/database"
	"github.com/avelazquez/remate/internal/auctions"
	"github.com/avelazquez/remate/internal/bids"
	infradb "github.com/avelazquez/remate/internal/infra/database"
	"github.com/avelazquez/remate/pkg/clock"
	"github.com/avelazquez/remate/pkg/events"
	"github.com/avelazquez/remate/pkg/testhelpers"
)

type bidTestEnv struct {
	db      *testhelpers.TestDatabase
	service *bids.Service
	clk     *clock.FixedClock
}

func setupBidTest(t *testing.T) *bidTestEnv {
	t.Helper()

	db := testhelpers.NewTestDatabase(t, "../../migrations")
	t.Cleanup(db.Close)

	clk := &clock.FixedClock{Instant: time.Now().UTC()}
	txManager := infradb.NewPostgresTransactionManager(db.Pool, 3*time.Second)
	auctionRepo := database.NewPostgresAuctionRepository(db.Pool)
	bidRepo := database.NewPostgresBidRepository(db.Pool)
	outboxRepo := database.NewPostgresOutboxRepository(db.Pool, clk)

	service := bids.NewService(
		txManager,
		bidRepo,
		auctionRepo,
		outboxRepo,
		bids.IncrementPolicy{FixedAmount: 500},
		clk,
	)

	return &bidTestEnv{db: db, service: service, clk: clk}
}

func (env *bidTestEnv) seedAuction(t *testing.T, status auctions.Status, start, end time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := env.db.Pool.Exec(context.Background(), `
		INSERT INTO auctions (id, vehicle_plate, vehicle_description, base_price, start_date, end_date, status, appraiser_id)
		VALUES ($1, 'ABCD12', 'Toyota Hilux 2019', 10000, $2, $3, $4::auction_status, $5)
	`, id, start, end, status, uuid.New())
	require.NoError(t, err)
	return id
}

func (env *bidTestEnv) auctionRow(t *testing.T, id uuid.UUID) (auctions.Status, *int64) {
	t.Helper()
	var status auctions.Status
	var currentPrice *int64
	err := env.db.Pool.QueryRow(context.Background(),
		`SELECT status, current_price FROM auctions WHERE id = $1`, id).
		Scan(&status, &currentPrice)
	require.NoError(t, err)
	return status, currentPrice
}

func TestPlaceBid_FirstBid(t *testing.T) {
	env := setupBidTest(t)
	ctx := context.Background()
	now := env.clk.Instant

	auctionID := env.seedAuction(t, auctions.StatusNoBids, now.Add(-1*time.Hour), now.Add(1*time.Hour))
	resellerID := uuid.New()

	bid, err := env.service.PlaceBid(ctx, bids.PlaceBidCommand{
		AuctionID:  auctionID,
		ResellerID: resellerID,
		Amount:     10500,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10500), bid.Amount)

	status, currentPrice := env.auctionRow(t, auctionID)
	assert.Equal(t, auctions.StatusInProcess, status)
	require.NotNil(t, currentPrice)
	assert.Equal(t, int64(10500), *currentPrice)

	// Bid and outbox event committed together.
	var payload []byte
	err = env.db.Pool.QueryRow(ctx,
		`SELECT payload FROM outbox_events WHERE event_type = $1 AND status = 'pending'`,
		events.TypeBidPlaced).Scan(&payload)
	require.NoError(t, err)

	var event events.BidPlaced
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, auctionID, event.AuctionID)
	assert.Equal(t, resellerID, event.ResellerID)
	assert.Nil(t, event.PreviousLeaderID)
}

func TestPlaceBid_MustClearRunningPricePlusIncrement(t *testing.T) {
	env := setupBidTest(t)
	ctx := context.Background()
	now := env.clk.Instant

	auctionID := env.seedAuction(t, auctions.StatusNoBids, now.Add(-1*time.Hour), now.Add(1*time.Hour))
	firstBidder := uuid.New()

	_, err := env.service.PlaceBid(ctx, bids.PlaceBidCommand{
		AuctionID: auctionID, ResellerID: firstBidder, Amount: 10500,
	})
	require.NoError(t, err)

	// 10500 + 500 = 11000 is the new floor.
	_, err = env.service.PlaceBid(ctx, bids.PlaceBidCommand{
		AuctionID: auctionID, ResellerID: uuid.New(), Amount: 10800,
	})
	assert.ErrorIs(t, err, bids.ErrBidTooLow)

	secondBidder := uuid.New()
	_, err = env.service.PlaceBid(ctx, bids.PlaceBidCommand{
		AuctionID: auctionID, ResellerID: secondBidder, Amount: 11000,
	})
	require.NoError(t, err)

	_, currentPrice := env.auctionRow(t, auctionID)
	require.NotNil(t, currentPrice)
	assert.Equal(t, int64(11000), *currentPrice)

	// The second event carries the outbid reseller.
	var payload []byte
	err = env.db.Pool.QueryRow(ctx, `
		SELECT payload FROM outbox_events
		WHERE event_type = $1 ORDER BY created_at DESC, id LIMIT 1
	`, events.TypeBidPlaced).Scan(&payload)
	require.NoError(t, err)

	var event events.BidPlaced
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, secondBidder, event.ResellerID)
	require.NotNil(t, event.PreviousLeaderID)
	assert.Equal(t, firstBidder, *event.PreviousLeaderID)
}

func TestPlaceBid_RejectsClosedAuction(t *testing.T) {
	env := setupBidTest(t)
	ctx := context.Background()
	now := env.clk.Instant

	tests := []struct {
		name   string
		status auctions.Status
		start  time.Time
		end    time.Time
	}{
		{
			name:   "window over",
			status: auctions.StatusInProcess,
			start:  now.Add(-2 * time.Hour),
			end:    now.Add(-1 * time.Hour),
		},
		{
			name:   "window not started",
			status: auctions.StatusNoBids,
			start:  now.Add(1 * time.Hour),
			end:    now.Add(2 * time.Hour),
		},
		{
			name:   "already won",
			status: auctions.StatusWon,
			start:  now.Add(-2 * time.Hour),
			end:    now.Add(1 * time.Hour),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auctionID := env.seedAuction(t, tt.status, tt.start, tt.end)
			_, err := env.service.PlaceBid(ctx, bids.PlaceBidCommand{
				AuctionID: auctionID, ResellerID: uuid.New(), Amount: 50000,
			})
			assert.ErrorIs(t, err, bids.ErrAuctionClosed)
		})
	}
}

func TestPlaceBid_UnknownAuction(t *testing.T) {
	env := setupBidTest(t)

	_, err := env.service.PlaceBid(context.Background(), bids.PlaceBidCommand{
		AuctionID: uuid.New(), ResellerID: uuid.New(), Amount: 10500,
	})
	assert.ErrorIs(t, err, auctions.ErrAuctionNotFound)
}

func TestPlaceBid_ConcurrentBidders(t *testing.T) {
	env := setupBidTest(t)
	ctx := context.Background()
	now := env.clk.Instant

	auctionID := env.seedAuction(t, auctions.StatusNoBids, now.Add(-1*time.Hour), now.Add(1*time.Hour))

	const bidders = 5
	var wg sync.WaitGroup
	errs := make([]error, bidders)
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.service.PlaceBid(ctx, bids.PlaceBidCommand{
				AuctionID:  auctionID,
				ResellerID: uuid.New(),
				Amount:     10500 + int64(i)*500,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			// Losers fail validation against the new floor or time out
			// on the row lock; nothing else is acceptable.
			assert.True(t,
				errors.Is(err, bids.ErrBidTooLow) || errors.Is(err, bids.ErrConcurrentBid),
				"unexpected error: %v", err)
		}
	}
	require.GreaterOrEqual(t, succeeded, 1)

	// The running price must match the highest accepted bid.
	var maxBid int64
	err := env.db.Pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(amount), 0) FROM bids WHERE auction_id = $1`, auctionID).Scan(&maxBid)
	require.NoError(t, err)

	status, currentPrice := env.auctionRow(t, auctionID)
	assert.Equal(t, auctions.StatusInProcess, status)
	require.NotNil(t, currentPrice)
	assert.Equal(t, maxBid, *currentPrice)

	var bidCount int64
	err = env.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM bids WHERE auction_id = $1`, auctionID).Scan(&bidCount)
	require.NoError(t, err)
	assert.Equal(t, int64(succeeded), bidCount)
}
