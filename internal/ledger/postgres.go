// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Postgres is the durable Decision Ledger backend: an append-only table,
// one row per verdict, queried by workflow_id for the chain-verification
// tail and the last-hash lookup Append needs to link the next entry.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wires a Postgres-backed ledger repository around an already
// open *sql.DB (the caller owns its lifecycle, matching
// orchestrator/replay's PostgresRepository convention).
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema is the DDL for the decision_ledger table. Callers run this once
// at startup; it is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS decision_ledger (
	id            BIGSERIAL PRIMARY KEY,
	checkpoint_id TEXT NOT NULL,
	workflow_id   TEXT NOT NULL,
	ring_level    INTEGER NOT NULL,
	action        TEXT NOT NULL,
	status        TEXT NOT NULL,
	severity      TEXT NOT NULL DEFAULT '',
	audit_hash    TEXT NOT NULL,
	prev_hash     TEXT NOT NULL,
	recorded_at   TIMESTAMPTZ NOT NULL,
	UNIQUE (workflow_id, checkpoint_id)
);
CREATE INDEX IF NOT EXISTS decision_ledger_workflow_recorded_idx
	ON decision_ledger (workflow_id, recorded_at);
`

func (p *Postgres) Append(ctx context.Context, entry Entry) error {
	const query = `
		INSERT INTO decision_ledger (
			checkpoint_id, workflow_id, ring_level, action, status,
			severity, audit_hash, prev_hash, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := p.db.ExecContext(ctx, query,
		entry.CheckpointID, entry.WorkflowID, entry.RingLevel, entry.Action, entry.Status,
		entry.Severity, entry.AuditHash, entry.PrevHash, entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("ledger: append entry: %w", err)
	}
	return nil
}

func (p *Postgres) Tail(ctx context.Context, workflowID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = maxRingBufferEntries
	}
	const query = `
		SELECT checkpoint_id, workflow_id, ring_level, action, status,
			severity, audit_hash, prev_hash, recorded_at
		FROM decision_ledger
		WHERE workflow_id = $1
		ORDER BY id DESC
		LIMIT $2`

	rows, err := p.db.QueryContext(ctx, query, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: tail query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.CheckpointID, &e.WorkflowID, &e.RingLevel, &e.Action, &e.Status,
			&e.Severity, &e.AuditHash, &e.PrevHash, &e.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("ledger: scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: tail rows: %w", err)
	}

	// Rows arrive newest-first; Tail's contract is oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (p *Postgres) LastHash(ctx context.Context, workflowID string) (string, error) {
	const query = `
		SELECT audit_hash FROM decision_ledger
		WHERE workflow_id = $1
		ORDER BY id DESC
		LIMIT 1`

	var hash string
	err := p.db.QueryRowContext(ctx, query, workflowID).Scan(&hash)
	if err == sql.ErrNoRows {
		return GenesisHash, nil
	}
	if err != nil {
		return "", fmt.Errorf("ledger: last hash: %w", err)
	}
	return hash, nil
}
