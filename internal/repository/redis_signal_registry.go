package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"SigDerive/internal/domain/models"
	domrepo "SigDerive/internal/domain/repository"
)

// RedisSignalRegistry stores each signal as a JSON value under prefix+id and keeps the
// set of ids under prefix+"index".
type RedisSignalRegistry struct {
	client *redis.Client
	prefix string
}

var _ domrepo.SignalRegistry = (*RedisSignalRegistry)(nil)

func NewRedisSignalRegistry(client *redis.Client, prefix string) *RedisSignalRegistry {
	if prefix == "" {
		prefix = "sigderive:signal:"
	}
	return &RedisSignalRegistry{client: client, prefix: prefix}
}

func (r *RedisSignalRegistry) key(id string) string { return r.prefix + id }
func (r *RedisSignalRegistry) indexKey() string    { return r.prefix + "index" }

func (r *RedisSignalRegistry) Create(ctx context.Context, s *models.DerivedSignal) error {
	if s.ID == "" {
		return errors.New("signal id required")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	ok, err := r.client.SetNX(ctx, r.key(s.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return domrepo.ErrSignalExists
	}
	if err := r.client.SAdd(ctx, r.indexKey(), s.ID).Err(); err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}

func (r *RedisSignalRegistry) Get(ctx context.Context, id string) (*models.DerivedSignal, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domrepo.ErrSignalNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var s models.DerivedSignal
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal signal: %w", err)
	}
	return &s, nil
}

func (r *RedisSignalRegistry) List(ctx context.Context) ([]*models.DerivedSignal, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	out := make([]*models.DerivedSignal, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			// id left in the index by an interrupted delete
			continue
		}
		var s models.DerivedSignal
		if err := json.Unmarshal([]byte(str), &s); err != nil {
			return nil, fmt.Errorf("unmarshal signal: %w", err)
		}
		out = append(out, &s)
	}
	sortSignals(out)
	return out, nil
}

func (r *RedisSignalRegistry) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return domrepo.ErrSignalNotFound
	}
	if err := r.client.SRem(ctx, r.indexKey(), id).Err(); err != nil {
		return fmt.Errorf("redis srem: %w", err)
	}
	return nil
}
