package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avelazquez/remate/internal/notifications"
)

// SettingsCache is a Redis read-through cache in front of the
// notification settings repository. Settings change rarely and every
// dispatched event consults them, so misses go to Postgres and the
// result is cached with a TTL. Redis being down degrades to direct
// Postgres reads.
type SettingsCache struct {
	rdb    *redis.Client
	source notifications.SettingsSource
	ttl    time.Duration
	logger *slog.Logger
}

// NewSettingsCache creates a new settings cache
func NewSettingsCache(rdb *redis.Client, source notifications.SettingsSource, ttl time.Duration, logger *slog.Logger) *SettingsCache {
	return &SettingsCache{
		rdb:    rdb,
		source: source,
		ttl:    ttl,
		logger: logger,
	}
}

func settingsKey(roleType, eventType string) string {
	return fmt.Sprintf("notify:settings:%s:%s", roleType, eventType)
}

// EnabledChannels implements notifications.SettingsSource.
func (c *SettingsCache) EnabledChannels(ctx context.Context, roleType, eventType string) ([]notifications.ChannelType, error) {
	key := settingsKey(roleType, eventType)

	cached, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var channels []notifications.ChannelType
		if unmarshalErr := json.Unmarshal(cached, &channels); unmarshalErr == nil {
			return channels, nil
		}
		// Unreadable entry; fall through and overwrite it.
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Settings cache read failed, falling back to database", "key", key, "error", err)
	}

	channels, err := c.source.EnabledChannels(ctx, roleType, eventType)
	if err != nil {
		return nil, err
	}

	payload, marshalErr := json.Marshal(channels)
	if marshalErr == nil {
		if setErr := c.rdb.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
			c.logger.Warn("Settings cache write failed", "key", key, "error", setErr)
		}
	}

	return channels, nil
}

// Invalidate drops the cached entry for a (role, event) pair.
func (c *SettingsCache) Invalidate(ctx context.Context, roleType, eventType string) error {
	return c.rdb.Del(ctx, settingsKey(roleType, eventType)).Err()
}
