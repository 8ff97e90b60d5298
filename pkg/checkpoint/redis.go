package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "schedlens:checkpoint:"

// checkpointTTL bounds how long abandoned checkpoints linger.
const checkpointTTL = 7 * 24 * time.Hour

// RedisStore persists checkpoints in Redis, for runs coordinated
// across hosts.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

// Save writes the checkpoint with a TTL.
func (s *RedisStore) Save(ctx context.Context, cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()
	data, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+cp.RunID, data, checkpointTTL).Err()
}

// Load reads the checkpoint for a run.
func (s *RedisStore) Load(ctx context.Context, runID string) (*Checkpoint, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+runID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// Delete removes the checkpoint for a run.
func (s *RedisStore) Delete(ctx context.Context, runID string) error {
	n, err := s.client.Del(ctx, redisKeyPrefix+runID).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all stored checkpoints.
func (s *RedisStore) List(ctx context.Context) ([]*Checkpoint, error) {
	var cps []*Checkpoint
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var cp Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			continue
		}
		cps = append(cps, &cp)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return cps, nil
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
