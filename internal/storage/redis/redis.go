// Package redisstorage keeps participant poses in Redis. Each participant is
// one key that expires on its own; a per-activity set indexes the keys.
package redisstorage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gearxr/gear/internal/config"
	"github.com/gearxr/gear/internal/storage"
)

const keyPrefix = "gear:presence"

// Backend implements storage.PresenceStore.
type Backend struct {
	client *redis.Client
	ttl    time.Duration
}

var _ storage.PresenceStore = (*Backend)(nil)

// New connects to Redis. Records expire ttl after their last touch.
func New(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*Backend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *Backend {
	return &Backend{client: client, ttl: ttl}
}

// RecordKey is the key holding one participant's record.
func RecordKey(gearID, userID int64) string {
	return fmt.Sprintf("%s:%d:%d", keyPrefix, gearID, userID)
}

// IndexKey is the set of user ids seen in an activity.
func IndexKey(gearID int64) string {
	return fmt.Sprintf("%s:%d:users", keyPrefix, gearID)
}

// Touch writes the record with a fresh expiry.
func (b *Backend) Touch(ctx context.Context, rec storage.PresenceRecord) error {
	_, err := b.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, RecordKey(rec.GearID, rec.UserID), rec, b.ttl)
		p.SAdd(ctx, IndexKey(rec.GearID), rec.UserID)
		p.Expire(ctx, IndexKey(rec.GearID), b.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis touch: %w", err)
	}
	return nil
}

// Active returns the live records of gearID seen after since, ordered by
// user id. Expired members are pruned from the index on the way.
func (b *Backend) Active(ctx context.Context, gearID int64, since time.Time) ([]storage.PresenceRecord, error) {
	members, err := b.client.SMembers(ctx, IndexKey(gearID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis members: %w", err)
	}

	out := make([]storage.PresenceRecord, 0, len(members))
	var stale []any
	for _, m := range members {
		userID, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			stale = append(stale, m)
			continue
		}
		var rec storage.PresenceRecord
		err = b.client.Get(ctx, RecordKey(gearID, userID)).Scan(&rec)
		if errors.Is(err, redis.Nil) {
			stale = append(stale, m)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get: %w", err)
		}
		if rec.LastSeen.After(since) {
			out = append(out, rec)
		}
	}
	if len(stale) > 0 {
		_ = b.client.SRem(ctx, IndexKey(gearID), stale...).Err()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Sweep deletes records last seen before the cutoff. Records also expire on
// their own after the ttl; this only shortens their life.
func (b *Backend) Sweep(ctx context.Context, before time.Time) (int, error) {
	removed := 0
	iter := b.client.Scan(ctx, 0, keyPrefix+":*:users", 100).Iterator()
	for iter.Next(ctx) {
		index := iter.Val()
		var gearID int64
		if _, err := fmt.Sscanf(index, keyPrefix+":%d:users", &gearID); err != nil {
			continue
		}
		members, err := b.client.SMembers(ctx, index).Result()
		if err != nil {
			return removed, fmt.Errorf("redis members: %w", err)
		}
		for _, m := range members {
			userID, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				continue
			}
			key := RecordKey(gearID, userID)
			var rec storage.PresenceRecord
			err = b.client.Get(ctx, key).Scan(&rec)
			if err != nil && !errors.Is(err, redis.Nil) {
				return removed, fmt.Errorf("redis get: %w", err)
			}
			if err == nil && !rec.LastSeen.Before(before) {
				continue
			}
			if err == nil {
				if err := b.client.Del(ctx, key).Err(); err != nil {
					return removed, fmt.Errorf("redis del: %w", err)
				}
				removed++
			}
			_ = b.client.SRem(ctx, index, m).Err()
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan: %w", err)
	}
	return removed, nil
}

// Close closes the client.
func (b *Backend) Close() error {
	return b.client.Close()
}
