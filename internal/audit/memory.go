// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"container/list"
	"context"
	"sync"
)

// maxMemoryEntries bounds the in-memory backend's size; on overflow the
// oldest record is evicted, FIFO, per §4.5.
const maxMemoryEntries = 10000

// Memory is the single-process, FIFO-bounded audit registry backend. It is
// the degraded-mode path when no durable store is configured or reachable.
type Memory struct {
	mu      sync.Mutex
	records map[string]*list.Element
	order   *list.List // front = oldest
}

type memoryEntry struct {
	key    string
	record Record
}

// NewMemory creates an empty in-memory audit registry.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (m *Memory) Set(_ context.Context, key string, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, exists := m.records[key]; exists {
		m.order.Remove(el)
	}

	el := m.order.PushBack(memoryEntry{key: key, record: record})
	m.records[key] = el

	for m.order.Len() > maxMemoryEntries {
		oldest := m.order.Front()
		if oldest == nil {
			break
		}
		entry := oldest.Value.(memoryEntry)
		delete(m.records, entry.key)
		m.order.Remove(oldest)
	}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (*Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.records[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(memoryEntry)
	rec := entry.record
	return &rec, true
}

func (m *Memory) Pop(_ context.Context, key string) (*Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.records[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(memoryEntry)
	delete(m.records, key)
	m.order.Remove(el)
	rec := entry.record
	return &rec, true
}

func (m *Memory) BackendName() string { return "memory" }

func (m *Memory) MemorySize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
