// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"sync"

	"github.com/analemma-bridge/governance-core/internal/telemetry"
)

// Repository is the Decision Ledger's pluggable backend. Append is
// best-effort from the pipeline's point of view: Ledger.Append never
// returns an error to its caller, it only logs one.
type Repository interface {
	Append(ctx context.Context, entry Entry) error
	Tail(ctx context.Context, workflowID string, limit int) ([]Entry, error)
	LastHash(ctx context.Context, workflowID string) (string, error)
}

// Ledger wraps a Repository with the hash-chaining logic so callers only
// ever supply the fields that vary per verdict.
type Ledger struct {
	mu   sync.Mutex
	repo Repository
	log  *telemetry.Logger
}

// NewLedger builds a Ledger around repo. A nil logger is tolerated for
// tests. Production callers should prefer the backend-selecting New in
// factory.go.
func NewLedger(repo Repository, log *telemetry.Logger) *Ledger {
	return &Ledger{repo: repo, log: log}
}

// Append computes the next entry's audit_hash from the workflow's last
// known hash and persists it. Any repository error is logged at WARN and
// swallowed — the Decision Ledger is a supplementary record, never a
// blocking dependency of the governance pipeline.
func (l *Ledger) Append(ctx context.Context, entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevHash, err := l.repo.LastHash(ctx, entry.WorkflowID)
	if err != nil || prevHash == "" {
		prevHash = GenesisHash
	}

	entry.PrevHash = prevHash
	entry.AuditHash = ComputeHash(prevHash, entry.CheckpointID, entry.Status)

	if err := l.repo.Append(ctx, entry); err != nil {
		if l.log != nil {
			l.log.Warn(entry.WorkflowID, "", "decision ledger append failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

// Tail returns the most recent entries for workflowID, oldest first.
func (l *Ledger) Tail(ctx context.Context, workflowID string, limit int) []Entry {
	entries, err := l.repo.Tail(ctx, workflowID, limit)
	if err != nil {
		if l.log != nil {
			l.log.Warn(workflowID, "", "decision ledger tail failed", map[string]interface{}{"error": err.Error()})
		}
		return nil
	}
	return entries
}
