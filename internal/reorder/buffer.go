// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

// Package reorder implements the Reordering Buffer: a per-workflow FIFO
// gate keyed by sequence number, with a bounded wait and fail-open on
// timeout so multi-threaded agents that emit non-monotonic proposals never
// cascade into hard failures.
package reorder

import (
	"context"
	"sync"
	"time"

	"github.com/analemma-bridge/governance-core/internal/telemetry"
)

const pollInterval = 10 * time.Millisecond

// Buffer tracks the expected next sequence number per workflow_id.
type Buffer struct {
	mu       sync.Mutex
	expected map[string]int
	log      *telemetry.Logger
}

// New creates an empty Reordering Buffer.
func New(log *telemetry.Logger) *Buffer {
	return &Buffer{
		expected: make(map[string]int),
		log:      log,
	}
}

// WaitForTurn blocks (via coarse polling) until seq is at or before the
// workflow's expected_next counter, or until maxWait elapses. It returns
// true if the proposal arrived in order, false if the wait timed out and
// the counter was force-advanced. The return value is advisory only — per
// §4.6, Stage 0 never blocks the verdict on it.
func (b *Buffer) WaitForTurn(ctx context.Context, workflowID string, seq int, maxWait time.Duration) bool {
	deadline := time.Now().Add(maxWait)

	for {
		if inOrder, done := b.tryAdvance(workflowID, seq); done {
			return inOrder
		}

		if time.Now().After(deadline) {
			b.forceAdvance(workflowID, seq)
			return false
		}

		select {
		case <-ctx.Done():
			b.forceAdvance(workflowID, seq)
			return false
		case <-time.After(pollInterval):
		}
	}
}

// tryAdvance attempts a single in-order check. done=true means seq was in
// order and the counter advanced, so the caller should stop polling;
// done=false means seq is still ahead of expected_next.
func (b *Buffer) tryAdvance(workflowID string, seq int) (inOrder bool, done bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	expected, ok := b.expected[workflowID]
	if !ok {
		// First arrival for this workflow anchors the sequence.
		b.expected[workflowID] = seq
		expected = seq
	}

	if seq <= expected {
		next := expected
		if seq+1 > next {
			next = seq + 1
		}
		b.expected[workflowID] = next
		return true, true
	}

	return false, false
}

func (b *Buffer) forceAdvance(workflowID string, seq int) {
	b.mu.Lock()
	current := b.expected[workflowID]
	next := current
	if seq+1 > next {
		next = seq + 1
	}
	b.expected[workflowID] = next
	b.mu.Unlock()

	if b.log != nil {
		b.log.Warn(workflowID, "", "reorder buffer timeout, forcing advance", map[string]interface{}{
			"sequence_number": seq,
			"expected_next":   current,
		})
	}
}

// MarkDone is an explicit advancement primitive, used when a caller wants
// to signal completion of a sequence number without going through
// WaitForTurn (e.g. administrative tooling).
func (b *Buffer) MarkDone(workflowID string, seq int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if current, ok := b.expected[workflowID]; !ok || seq+1 > current {
		b.expected[workflowID] = seq + 1
	}
}

// Reset destroys the reorder state for workflowID, used on FINAL segments
// and explicit workflow deletion.
func (b *Buffer) Reset(workflowID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.expected, workflowID)

	if b.log != nil {
		b.log.Debug(workflowID, "", "reorder buffer reset", nil)
	}
}

// ExpectedNext returns the current expected_next counter for workflowID,
// and whether any state exists for it yet.
func (b *Buffer) ExpectedNext(workflowID string) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.expected[workflowID]
	return v, ok
}
