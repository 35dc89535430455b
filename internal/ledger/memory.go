// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"sync"
)

// maxRingBufferEntries bounds the in-memory ledger's per-workflow history,
// mirroring the Audit Registry's FIFO-bounded degraded-mode path.
const maxRingBufferEntries = 1000

// Memory is the memory-only ledger backend used when DECISION_LEDGER_DSN
// is unset: a per-workflow ring buffer, lost on process restart.
type Memory struct {
	mu      sync.Mutex
	entries map[string][]Entry
}

// NewMemory creates an empty in-memory ledger repository.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]Entry)}
}

func (m *Memory) Append(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append(m.entries[entry.WorkflowID], entry)
	if len(list) > maxRingBufferEntries {
		list = list[len(list)-maxRingBufferEntries:]
	}
	m.entries[entry.WorkflowID] = list
	return nil
}

func (m *Memory) Tail(_ context.Context, workflowID string, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.entries[workflowID]
	if limit <= 0 || limit >= len(list) {
		out := make([]Entry, len(list))
		copy(out, list)
		return out, nil
	}
	out := make([]Entry, limit)
	copy(out, list[len(list)-limit:])
	return out, nil
}

func (m *Memory) LastHash(_ context.Context, workflowID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.entries[workflowID]
	if len(list) == 0 {
		return GenesisHash, nil
	}
	return list[len(list)-1].AuditHash, nil
}
