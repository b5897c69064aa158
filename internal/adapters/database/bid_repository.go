package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelazquez/remate/internal/bids"
)

// PostgresBidRepository implements bids.BidRepository using pgx
type PostgresBidRepository struct {
	pool *pgxpool.Pool // kept for read-only operations
}

// NewPostgresBidRepository creates a new PostgreSQL bid repository
func NewPostgresBidRepository(pool *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{pool: pool}
}

// SaveBid saves a bid within a transaction
func (r *PostgresBidRepository) SaveBid(ctx context.Context, tx pgx.Tx, bid *bids.Bid) error {
	query := `
		INSERT INTO bids (id, auction_id, reseller_id, amount, comments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Exec(ctx, query,
		bid.ID,
		bid.AuctionID,
		bid.ResellerID,
		bid.Amount,
		bid.Comments,
		bid.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// GetLeadingBid returns the highest committed bid for an auction, or
// nil when there is none.
func (r *PostgresBidRepository) GetLeadingBid(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*bids.Bid, error) {
	query := `
		SELECT id, auction_id, reseller_id, amount, comments, created_at
		FROM bids
		WHERE auction_id = $1
		ORDER BY amount DESC, created_at DESC
		LIMIT 1
	`
	var bid bids.Bid
	err := tx.QueryRow(ctx, query, auctionID).Scan(
		&bid.ID,
		&bid.AuctionID,
		&bid.ResellerID,
		&bid.Amount,
		&bid.Comments,
		&bid.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get leading bid: %w", err)
	}
	return &bid, nil
}

// GetBidsByAuctionID retrieves all bids for an auction, newest first
func (r *PostgresBidRepository) GetBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bids.Bid, error) {
	query := `
		SELECT id, auction_id, reseller_id, amount, comments, created_at
		FROM bids
		WHERE auction_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	var result []*bids.Bid
	for rows.Next() {
		var bid bids.Bid
		if err := rows.Scan(
			&bid.ID,
			&bid.AuctionID,
			&bid.ResellerID,
			&bid.Amount,
			&bid.Comments,
			&bid.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		result = append(result, &bid)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return result, nil
}
