package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds rendered views and the activity feed.
type Cache struct {
	RDB *redis.Client
	TTL time.Duration // view lifetime; TTLView when zero
}

func (c *Cache) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return TTLView
}

// ViewGeneration returns the current view generation; zero before the first
// invalidation.
func (c *Cache) ViewGeneration(ctx context.Context) (int64, error) {
	gen, err := c.RDB.Get(ctx, KeyViewGen).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *Cache) GetView(ctx context.Context, gen int64, name string, dst any) (bool, error) {
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyView, gen, name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("decode cached view %s: %w", name, err)
	}
	return true, nil
}

// SetView stores v under generation gen. A view rendered before an
// invalidation lands under an old generation and is never read.
func (c *Cache) SetView(ctx context.Context, gen int64, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, fmt.Sprintf(KeyView, gen, name), b, c.ttl()).Err()
}

// InvalidateViews bumps the generation, then drops the stored views.
func (c *Cache) InvalidateViews(ctx context.Context) error {
	if err := c.RDB.Incr(ctx, KeyViewGen).Err(); err != nil {
		return err
	}
	var keys []string
	iter := c.RDB.Scan(ctx, 0, KeyViewPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.RDB.Del(ctx, keys...).Err()
}

// PushActivity prepends one entry to the feed and trims it to ActivityLimit.
func (c *Cache) PushActivity(ctx context.Context, entry any) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	pipe := c.RDB.TxPipeline()
	pipe.LPush(ctx, KeyActivity, b)
	pipe.LTrim(ctx, KeyActivity, 0, ActivityLimit-1)
	_, err = pipe.Exec(ctx)
	return err
}

// RecentActivity returns up to n feed entries, newest first.
func (c *Cache) RecentActivity(ctx context.Context, n int) ([]json.RawMessage, error) {
	if n <= 0 || n > ActivityLimit {
		n = ActivityLimit
	}
	vals, err := c.RDB.LRange(ctx, KeyActivity, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(vals))
	for _, v := range vals {
		out = append(out, json.RawMessage(v))
	}
	return out, nil
}

// ClaimEvent records that consumer is handling eventID. False means another
// delivery already claimed it.
func (c *Cache) ClaimEvent(ctx context.Context, consumer, eventID string) (bool, error) {
	return Claim(ctx, c.RDB, fmt.Sprintf(KeyDedup, consumer, eventID), TTLDedup)
}

// ReleaseEvent undoes a claim so a redelivery is processed again.
func (c *Cache) ReleaseEvent(ctx context.Context, consumer, eventID string) error {
	return c.RDB.Del(ctx, fmt.Sprintf(KeyDedup, consumer, eventID)).Err()
}
