// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package audit

import "context"

// Registry is the abstract key→record store the pipeline's Stage 5 and the
// /v1/segment/observe and /v1/segment/fail handlers depend on. There are
// two concrete implementations — Memory and a Redis-backed durable store —
// selected at startup by configuration, plus a Fallback wrapper composing
// the two transparently. No implementation may return a backend-specific
// error to callers; operations must degrade, not fail, per §4.5/§7.
type Registry interface {
	Set(ctx context.Context, key string, record Record) error
	Get(ctx context.Context, key string) (*Record, bool)
	Pop(ctx context.Context, key string) (*Record, bool)
	BackendName() string
	MemorySize() int
}
