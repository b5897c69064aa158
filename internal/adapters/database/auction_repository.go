package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelazquez/remate/internal/auctions"
	infradb "github.com/avelazquez/remate/internal/infra/database"
)

// PostgresAuctionRepository implements the auction persistence ports
// of the auctions, bids and adjudications packages.
type PostgresAuctionRepository struct {
	pool *pgxpool.Pool // kept for non-transactional reads
}

// NewPostgresAuctionRepository creates a new PostgreSQL auction repository
func NewPostgresAuctionRepository(pool *pgxpool.Pool) *PostgresAuctionRepository {
	return &PostgresAuctionRepository{pool: pool}
}

const auctionColumns = `id, vehicle_plate, vehicle_description, base_price, current_price,
		start_date, end_date, status, appraiser_id, created_at, updated_at`

// CreateAuction inserts a new auction within a transaction
func (r *PostgresAuctionRepository) CreateAuction(ctx context.Context, tx pgx.Tx, auction *auctions.Auction) error {
	query := `
		INSERT INTO auctions (id, vehicle_plate, vehicle_description, base_price, current_price,
			start_date, end_date, status, appraiser_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::auction_status, $9, $10, $11)
	`
	_, err := tx.Exec(ctx, query,
		auction.ID,
		auction.VehiclePlate,
		auction.VehicleDescription,
		auction.BasePrice,
		auction.CurrentPrice,
		auction.StartDate,
		auction.EndDate,
		auction.Status,
		auction.AppraiserID,
		auction.CreatedAt,
		auction.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert auction: %w", err)
	}
	return nil
}

// GetAuctionByID retrieves an auction by its ID (non-transactional read)
func (r *PostgresAuctionRepository) GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (*auctions.Auction, error) {
	return r.getAuctionByID(ctx, r.pool, auctionID, false)
}

// GetAuctionByIDForUpdate retrieves an auction and locks its row.
// This serializes concurrent bids and decisions on the same auction.
func (r *PostgresAuctionRepository) GetAuctionByIDForUpdate(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*auctions.Auction, error) {
	return r.getAuctionByID(ctx, tx, auctionID, true)
}

func (r *PostgresAuctionRepository) getAuctionByID(ctx context.Context, db infradb.DBTX, auctionID uuid.UUID, forUpdate bool) (*auctions.Auction, error) {
	query := fmt.Sprintf(`SELECT %s FROM auctions WHERE id = $1`, auctionColumns)
	if forUpdate {
		query += " FOR UPDATE"
	}

	var auction auctions.Auction
	err := db.QueryRow(ctx, query, auctionID).Scan(
		&auction.ID,
		&auction.VehiclePlate,
		&auction.VehicleDescription,
		&auction.BasePrice,
		&auction.CurrentPrice,
		&auction.StartDate,
		&auction.EndDate,
		&auction.Status,
		&auction.AppraiserID,
		&auction.CreatedAt,
		&auction.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auctions.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return &auction, nil
}

// ListAuctions retrieves auctions ordered by end date, newest first
func (r *PostgresAuctionRepository) ListAuctions(ctx context.Context, limit, offset int) ([]*auctions.Auction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM auctions
		ORDER BY end_date DESC
		LIMIT $1 OFFSET $2
	`, auctionColumns)

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query auctions: %w", err)
	}
	defer rows.Close()

	var result []*auctions.Auction
	for rows.Next() {
		var auction auctions.Auction
		if err := rows.Scan(
			&auction.ID,
			&auction.VehiclePlate,
			&auction.VehicleDescription,
			&auction.BasePrice,
			&auction.CurrentPrice,
			&auction.StartDate,
			&auction.EndDate,
			&auction.Status,
			&auction.AppraiserID,
			&auction.CreatedAt,
			&auction.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		result = append(result, &auction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}

	return result, nil
}

// ListDueAuctionIDs returns IDs of non-terminal auctions whose end date
// has passed. Read-only; the sweep re-checks under a row lock.
func (r *PostgresAuctionRepository) ListDueAuctionIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM auctions
		WHERE status IN ('sin_oferta', 'en_proceso') AND end_date <= $1
		ORDER BY end_date ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due auctions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan auction id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due auctions: %w", err)
	}

	return ids, nil
}

// UpdateStatus updates an auction's status within a transaction
func (r *PostgresAuctionRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, status auctions.Status) error {
	query := `
		UPDATE auctions
		SET status = $1::auction_status, updated_at = NOW()
		WHERE id = $2
	`
	result, err := tx.Exec(ctx, query, status, auctionID)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return auctions.ErrAuctionNotFound
	}
	return nil
}

// UpdateCurrentPrice sets the auction's current price and status within
// a transaction. The price check enforces monotonicity at the last line
// of defense; the service validates against the locked snapshot first.
func (r *PostgresAuctionRepository) UpdateCurrentPrice(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID, amount int64, status auctions.Status) error {
	query := `
		UPDATE auctions
		SET current_price = $1, status = $2::auction_status, updated_at = NOW()
		WHERE id = $3 AND (current_price IS NULL OR current_price <= $1)
	`
	result, err := tx.Exec(ctx, query, amount, status, auctionID)
	if err != nil {
		return fmt.Errorf("failed to update current price: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("auction %s rejected price update to %d", auctionID, amount)
	}
	return nil
}

// CountBidsByAuctionID returns the number of bids for an auction
func (r *PostgresAuctionRepository) CountBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bids WHERE auction_id = $1`, auctionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bids: %w", err)
	}
	return count, nil
}
