package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelazquez/remate/internal/notifications"
)

// PostgresNotificationRepository implements notifications.SettingsRepository
// and notifications.Directory using pgx.
type PostgresNotificationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresNotificationRepository creates a new PostgreSQL notification repository
func NewPostgresNotificationRepository(pool *pgxpool.Pool) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{pool: pool}
}

// EnabledChannels returns the channel types enabled for a (role, event)
// pair. Both the setting and the channel itself must be enabled.
func (r *PostgresNotificationRepository) EnabledChannels(ctx context.Context, roleType, eventType string) ([]notifications.ChannelType, error) {
	query := `
		SELECT c.channel_type
		FROM notification_settings s
		JOIN notification_channels c ON c.id = s.channel_id
		WHERE s.role_type = $1 AND s.event_type = $2
		  AND s.is_enabled AND c.is_enabled
	`
	rows, err := r.pool.Query(ctx, query, roleType, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var channels []notifications.ChannelType
	for rows.Next() {
		var ch notifications.ChannelType
		if err := rows.Scan(&ch); err != nil {
			return nil, fmt.Errorf("failed to scan channel type: %w", err)
		}
		channels = append(channels, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}

	return channels, nil
}

// ListChannels returns all configured channels
func (r *PostgresNotificationRepository) ListChannels(ctx context.Context) ([]*notifications.Channel, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, channel_type, is_enabled FROM notification_channels`)
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer rows.Close()

	var result []*notifications.Channel
	for rows.Next() {
		var ch notifications.Channel
		if err := rows.Scan(&ch.ID, &ch.ChannelType, &ch.IsEnabled); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		result = append(result, &ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channels: %w", err)
	}

	return result, nil
}

// GetRecipient retrieves a recipient by ID
func (r *PostgresNotificationRepository) GetRecipient(ctx context.Context, id uuid.UUID) (*notifications.Recipient, error) {
	query := `
		SELECT id, role_type, full_name, email, phone
		FROM recipients
		WHERE id = $1
	`
	var recipient notifications.Recipient
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&recipient.ID,
		&recipient.RoleType,
		&recipient.FullName,
		&recipient.Email,
		&recipient.Phone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("recipient not found")
		}
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}
	return &recipient, nil
}

// ListRecipientsByRole retrieves every recipient holding a role
func (r *PostgresNotificationRepository) ListRecipientsByRole(ctx context.Context, roleType string) ([]*notifications.Recipient, error) {
	query := `
		SELECT id, role_type, full_name, email, phone
		FROM recipients
		WHERE role_type = $1
	`
	rows, err := r.pool.Query(ctx, query, roleType)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipients: %w", err)
	}
	defer rows.Close()

	var result []*notifications.Recipient
	for rows.Next() {
		var recipient notifications.Recipient
		if err := rows.Scan(
			&recipient.ID,
			&recipient.RoleType,
			&recipient.FullName,
			&recipient.Email,
			&recipient.Phone,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		result = append(result, &recipient)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipients: %w", err)
	}

	return result, nil
}
