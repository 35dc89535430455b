// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"

	"github.com/analemma-bridge/governance-core/internal/telemetry"
)

// Fallback wraps a durable backend with an in-memory one. Every operation
// is attempted on the durable backend first; any failure transparently
// downgrades to memory, logged at WARN, and never raises to the pipeline —
// this is the "per-call fallback" behavior required by §4.5.
type Fallback struct {
	durable Registry
	memory  *Memory
	log     *telemetry.Logger
}

// NewFallback composes a durable backend with an in-memory one.
func NewFallback(durable Registry, log *telemetry.Logger) *Fallback {
	return &Fallback{durable: durable, memory: NewMemory(), log: log}
}

func (f *Fallback) Set(ctx context.Context, key string, record Record) error {
	if err := f.durable.Set(ctx, key, record); err != nil {
		f.warn("set", err)
		return f.memory.Set(ctx, key, record)
	}
	return nil
}

func (f *Fallback) Get(ctx context.Context, key string) (*Record, bool) {
	if rec, ok := f.durable.Get(ctx, key); ok {
		return rec, true
	}
	return f.memory.Get(ctx, key)
}

func (f *Fallback) Pop(ctx context.Context, key string) (*Record, bool) {
	if rec, ok := f.durable.Pop(ctx, key); ok {
		return rec, true
	}
	return f.memory.Pop(ctx, key)
}

// BackendName reports the durable backend's name — the registry is still
// considered "durable" from a deployment-topology standpoint even though
// individual operations may transparently fall back.
func (f *Fallback) BackendName() string { return f.durable.BackendName() }

func (f *Fallback) MemorySize() int { return f.memory.MemorySize() }

func (f *Fallback) warn(op string, err error) {
	if f.log == nil {
		return
	}
	f.log.Warn("", "", "audit backend unavailable, falling back to memory", map[string]interface{}{
		"operation": op,
		"error":     err.Error(),
	})
}
