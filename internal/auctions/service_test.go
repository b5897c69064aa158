package auctions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/avelazquez/remate/internal/auctions"
	"github.com/avelazquez/remate/pkg/clock"
)

type mockAuctionRepo struct {
	mock.Mock
}

func (m *mockAuctionRepo) CreateAuction(ctx context.Context, tx pgx.Tx, auction *auctions.Auction) error {
	args := m.Called(ctx, tx, auction)
	return args.Error(0)
}

func (m *mockAuctionRepo) GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (*auctions.Auction, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auctions.Auction), args.Error(1)
}

func (m *mockAuctionRepo) GetAuctionByIDForUpdate(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*auctions.Auction, error) {
	args := m.Called(ctx, tx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auctions.Auction), args.Error(1)
}

func (m *mockAuctionRepo) ListAuctions(ctx context.Context, limit, offset int) ([]*auctions.Auction, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auctions.Auction), args.Error(1)
}

func (m *mockAuctionRepo) ListDueAuctionIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockAuctionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, status auctions.Status) error {
	args := m.Called(ctx, tx, auctionID, status)
	return args.Error(0)
}

func (m *mockAuctionRepo) CountBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) (int64, error) {
	args := m.Called(ctx, auctionID)
	return args.Get(0).(int64), args.Error(1)
}

func TestGetAuction_PropagatesRepositoryFailure(t *testing.T) {
	ctx := context.Background()
	auctionID := uuid.New()

	repo := new(mockAuctionRepo)
	repo.On("GetAuctionByID", ctx, auctionID).
		Return(nil, errors.New("connection refused"))

	service := auctions.NewService(nil, repo, nil, &clock.FixedClock{Instant: time.Now()})

	_, err := service.GetAuction(ctx, auctionID)
	assert.Error(t, err)
	// An outage must not masquerade as a missing auction.
	assert.NotErrorIs(t, err, auctions.ErrAuctionNotFound)
}

func TestGetAuction_ReportsMissingAuction(t *testing.T) {
	ctx := context.Background()
	auctionID := uuid.New()

	repo := new(mockAuctionRepo)
	repo.On("GetAuctionByID", ctx, auctionID).
		Return(nil, auctions.ErrAuctionNotFound)

	service := auctions.NewService(nil, repo, nil, &clock.FixedClock{Instant: time.Now()})

	_, err := service.GetAuction(ctx, auctionID)
	assert.ErrorIs(t, err, auctions.ErrAuctionNotFound)
}
