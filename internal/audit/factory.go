// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"time"

	"github.com/analemma-bridge/governance-core/internal/telemetry"
)

// New selects the audit registry backend at startup: if redisURL is
// non-empty, it attempts a durable Redis-backed registry wrapped in a
// Fallback; any connection failure at startup is logged at WARN and the
// registry falls back to a bare in-memory store for the process lifetime.
func New(ctx context.Context, redisURL string, ttlSeconds int, log *telemetry.Logger) Registry {
	if redisURL == "" {
		return NewMemory()
	}

	ttl := time.Duration(ttlSeconds) * time.Second
	durable, err := NewRedis(ctx, redisURL, ttl)
	if err != nil {
		if log != nil {
			log.Warn("", "", "audit registry running in degraded mode (redis unavailable)", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return NewMemory()
	}
	return NewFallback(durable, log)
}
