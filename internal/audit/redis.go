// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is the durable audit registry backend: records are stored as JSON
// under "audit:<key>" with a fixed TTL. It never reports "memory" usage —
// MemorySize always returns 0 since size accounting lives on the Redis
// side, not in this process.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to redisURL and pings it once so startup fails fast if
// the durable store is misconfigured; callers should fall back to Memory
// on error, per §4.5's startup-selection rule.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("audit: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("audit: redis ping: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Set(ctx context.Context, key string, record Record) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("audit: marshal record: %w", err)
	}
	return r.client.Set(ctx, "audit:"+key, body, r.ttl).Err()
}

func (r *Redis) Get(ctx context.Context, key string) (*Record, bool) {
	body, err := r.client.Get(ctx, "audit:"+key).Bytes()
	if err != nil {
		return nil, false
	}
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

func (r *Redis) Pop(ctx context.Context, key string) (*Record, bool) {
	body, err := r.client.Get(ctx, "audit:"+key).Bytes()
	if err != nil {
		return nil, false
	}
	r.client.Del(ctx, "audit:"+key)

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

func (r *Redis) BackendName() string { return "redis" }

func (r *Redis) MemorySize() int { return 0 }

// Ping reports whether the durable backend is currently reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
