// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_ChainsHashesAcrossAppends(t *testing.T) {
	l := NewLedger(NewMemory(), nil)
	ctx := context.Background()

	l.Append(ctx, Entry{CheckpointID: "cp_1", WorkflowID: "wf-1", Status: "APPROVED", RecordedAt: time.Now()})
	l.Append(ctx, Entry{CheckpointID: "cp_2", WorkflowID: "wf-1", Status: "APPROVED", RecordedAt: time.Now()})
	l.Append(ctx, Entry{CheckpointID: "cp_3", WorkflowID: "wf-1", Status: "SIGKILL", RecordedAt: time.Now()})

	entries := l.Tail(ctx, "wf-1", 0)
	require.Len(t, entries, 3)

	assert.Equal(t, GenesisHash, entries[0].PrevHash)
	assert.Equal(t, ComputeHash(GenesisHash, "cp_1", "APPROVED"), entries[0].AuditHash)

	for i := 1; i < len(entries); i++ {
		assert.Equal(t, entries[i-1].AuditHash, entries[i].PrevHash, "entry %d should chain from entry %d", i, i-1)
	}
}

func TestLedger_IndependentWorkflowsDoNotShareChains(t *testing.T) {
	l := NewLedger(NewMemory(), nil)
	ctx := context.Background()

	l.Append(ctx, Entry{CheckpointID: "cp_a", WorkflowID: "wf-a", Status: "APPROVED", RecordedAt: time.Now()})
	l.Append(ctx, Entry{CheckpointID: "cp_b", WorkflowID: "wf-b", Status: "APPROVED", RecordedAt: time.Now()})

	a := l.Tail(ctx, "wf-a", 0)
	b := l.Tail(ctx, "wf-b", 0)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, GenesisHash, a[0].PrevHash)
	assert.Equal(t, GenesisHash, b[0].PrevHash)
}

func TestMemory_TailRespectsLimitAndBoundedSize(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i := 0; i < maxRingBufferEntries+5; i++ {
		_ = m.Append(ctx, Entry{CheckpointID: "cp", WorkflowID: "wf", Status: "APPROVED"})
	}

	all, err := m.Tail(ctx, "wf", 0)
	require.NoError(t, err)
	assert.Len(t, all, maxRingBufferEntries)

	recent, err := m.Tail(ctx, "wf", 3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestComputeHash_DeterministicAndSensitiveToInputs(t *testing.T) {
	h1 := ComputeHash("prev", "cp_1", "APPROVED")
	h2 := ComputeHash("prev", "cp_1", "APPROVED")
	h3 := ComputeHash("prev", "cp_1", "REJECTED")
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}
