package cache

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eventpass/eventpass-api/internal/domain"
)

func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL -> %w", err)
	}

	client := redis.NewClient(opt)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("client.Ping -> %w", err)
	}

	return client, nil
}

// EventCache keeps event listings for a short time. Keys embed a version
// counter, so bumping the counter orphans every cached listing at once.
type EventCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewEventCache(rdb *redis.Client, prefix string, ttl time.Duration) *EventCache {
	return &EventCache{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *EventCache) versionKey() string {
	return c.prefix + ":events:version"
}

// Lookup returns the key a listing is cached under and, on a hit, the
// listing itself. Redis errors count as a miss.
func (c *EventCache) Lookup(ctx context.Context, kind string, f domain.EventFilter) (string, []domain.Event, bool) {
	version, err := c.rdb.Get(ctx, c.versionKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		zap.L().Warn("event cache version lookup failed", zap.Error(err))
		return "", nil, false
	}

	key := c.listingKey(version, kind, f)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("event cache get failed", zap.String("key", key), zap.Error(err))
		}
		return key, nil, false
	}

	var events []domain.Event
	if err = json.Unmarshal(raw, &events); err != nil {
		zap.L().Warn("event cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return key, nil, false
	}

	return key, events, true
}

func (c *EventCache) Store(ctx context.Context, key string, events []domain.Event) error {
	if key == "" {
		return nil
	}

	raw, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("json.Marshal -> %w", err)
	}

	if err = c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("c.rdb.Set -> %w", err)
	}

	return nil
}

// Invalidate drops every cached listing.
func (c *EventCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, c.versionKey()).Err(); err != nil {
		return fmt.Errorf("c.rdb.Incr -> %w", err)
	}

	return nil
}

func (c *EventCache) listingKey(version int64, kind string, f domain.EventFilter) string {
	return fmt.Sprintf("%s:events:v%d:%s:%x", c.prefix, version, kind, sha1.Sum([]byte(filterFingerprint(f))))
}

func filterFingerprint(f domain.EventFilter) string {
	online := "any"
	if f.IsOnline != nil {
		online = strconv.FormatBool(*f.IsOnline)
	}

	return fmt.Sprintf("q=%s|location=%s|online=%s|from=%s|to=%s|desc=%t",
		f.Q, f.Location, online, formatTime(f.StartDate), formatTime(f.EndDate), f.MatchDescription)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}

	return t.UTC().Format(time.RFC3339)
}
