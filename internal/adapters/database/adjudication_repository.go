package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelazquez/remate/internal/adjudications"
)

// PostgresAdjudicationRepository implements adjudications.AdjudicationRepository using pgx
type PostgresAdjudicationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAdjudicationRepository creates a new PostgreSQL adjudication repository
func NewPostgresAdjudicationRepository(pool *pgxpool.Pool) *PostgresAdjudicationRepository {
	return &PostgresAdjudicationRepository{pool: pool}
}

// SaveAdjudication saves an adjudication within a transaction
func (r *PostgresAdjudicationRepository) SaveAdjudication(ctx context.Context, tx pgx.Tx, adjudication *adjudications.Adjudication) error {
	query := `
		INSERT INTO auction_adjudications (id, auction_id, reseller_id, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Exec(ctx, query,
		adjudication.ID,
		adjudication.AuctionID,
		adjudication.ResellerID,
		adjudication.Status,
		adjudication.Notes,
		adjudication.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert adjudication: %w", err)
	}
	return nil
}

// GetAdjudicationsByAuctionID retrieves all adjudications for an auction
func (r *PostgresAdjudicationRepository) GetAdjudicationsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*adjudications.Adjudication, error) {
	query := `
		SELECT id, auction_id, reseller_id, status, notes, created_at
		FROM auction_adjudications
		WHERE auction_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjudications: %w", err)
	}
	defer rows.Close()

	var result []*adjudications.Adjudication
	for rows.Next() {
		var adjudication adjudications.Adjudication
		if err := rows.Scan(
			&adjudication.ID,
			&adjudication.AuctionID,
			&adjudication.ResellerID,
			&adjudication.Status,
			&adjudication.Notes,
			&adjudication.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan adjudication: %w", err)
		}
		result = append(result, &adjudication)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating adjudications: %w", err)
	}

	return result, nil
}
