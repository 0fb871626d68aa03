package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "moviebot:session:"

// Redis stores sessions as JSON under moviebot:session:<owner>, with the
// TTL refreshed on every save.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	slog.Info("connected to Redis", "addr", addr)
	return client, nil
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{rdb: rdb, ttl: ttl, now: time.Now}
}

func key(ownerID int64) string {
	return keyPrefix + strconv.FormatInt(ownerID, 10)
}

func (r *Redis) Get(ctx context.Context, ownerID int64) (*Session, error) {
	raw, err := r.rdb.Get(ctx, key(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		slog.Warn("dropping unreadable session", "owner_id", ownerID, "error", err)
		_ = r.rdb.Del(ctx, key(ownerID)).Err()
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *Redis) Save(ctx context.Context, s *Session) error {
	c := s.Clone()
	c.UpdatedAt = r.now().UTC()
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, key(s.OwnerID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, ownerID int64) error {
	if err := r.rdb.Del(ctx, key(ownerID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
