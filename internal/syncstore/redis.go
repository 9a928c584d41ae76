package syncstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/anvargas/tiendaluz-core/pkg/config"
)

const (
	snapshotKey = "tiendaluz:sync:snapshot"
	backupsKey  = "tiendaluz:sync:backups"
)

// RedisBackend persists the snapshot and its backup history in Redis, so
// several store instances can share one authoritative copy.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects and verifies reachability before returning.
func NewRedisBackend(ctx context.Context, cfg config.RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisBackend{client: client}, nil
}

func (r *RedisBackend) Load(ctx context.Context) (StoredSnapshot, bool, error) {
	raw, err := r.client.Get(ctx, snapshotKey).Result()
	if errors.Is(err, redis.Nil) {
		return StoredSnapshot{}, false, nil
	}
	if err != nil {
		return StoredSnapshot{}, false, fmt.Errorf("loading snapshot: %w", err)
	}
	var snap StoredSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return StoredSnapshot{}, false, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, true, nil
}

func (r *RedisBackend) Save(ctx context.Context, snap StoredSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := r.client.Set(ctx, snapshotKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (r *RedisBackend) PushBackup(ctx context.Context, snap StoredSnapshot, limit int) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, backupsKey, raw)
	if limit > 0 {
		pipe.LTrim(ctx, backupsKey, 0, int64(limit-1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving backup: %w", err)
	}
	return nil
}

func (r *RedisBackend) Backups(ctx context.Context) ([]StoredSnapshot, error) {
	entries, err := r.client.LRange(ctx, backupsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	out := make([]StoredSnapshot, 0, len(entries))
	for _, raw := range entries {
		var snap StoredSnapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			return nil, fmt.Errorf("decoding backup: %w", err)
		}
		out = append(out, snap)
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
