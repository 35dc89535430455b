// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/analemma-bridge/governance-core/internal/telemetry"
)

// New selects the ledger's backend at startup: dsn present and reachable
// gives a Postgres-backed ledger with its schema ensured; otherwise (or on
// any connection failure) the ledger degrades to the memory-only ring
// buffer, logged at WARN, matching the Audit Registry's own
// startup-selection rule in §4.5.
func New(ctx context.Context, dsn string, log *telemetry.Logger) *Ledger {
	if dsn == "" {
		return NewLedger(NewMemory(), log)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		warn(log, err)
		return NewLedger(NewMemory(), log)
	}
	if err := db.PingContext(ctx); err != nil {
		warn(log, err)
		return NewLedger(NewMemory(), log)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		warn(log, fmt.Errorf("ensure schema: %w", err))
		return NewLedger(NewMemory(), log)
	}

	return NewLedger(NewPostgres(db), log)
}

func warn(log *telemetry.Logger, err error) {
	if log == nil {
		return
	}
	log.Warn("", "", "decision ledger running in degraded mode (postgres unavailable)", map[string]interface{}{
		"error": err.Error(),
	})
}
