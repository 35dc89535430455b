// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO decision_ledger").
		WithArgs("cp_1", "wf-1", 3, "s3_get_object", "APPROVED", "", "hash-a", GenesisHash, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewPostgres(db)
	err = repo.Append(context.Background(), Entry{
		CheckpointID: "cp_1",
		WorkflowID:   "wf-1",
		RingLevel:    3,
		Action:       "s3_get_object",
		Status:       "APPROVED",
		AuditHash:    "hash-a",
		PrevHash:     GenesisHash,
		RecordedAt:   time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LastHash_NoRowsReturnsGenesis(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT audit_hash FROM decision_ledger").
		WithArgs("wf-unknown").
		WillReturnRows(sqlmock.NewRows([]string{"audit_hash"}))

	repo := NewPostgres(db)
	hash, err := repo.LastHash(context.Background(), "wf-unknown")
	require.NoError(t, err)
	assert.Equal(t, GenesisHash, hash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Tail_ReturnsOldestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"checkpoint_id", "workflow_id", "ring_level", "action", "status",
		"severity", "audit_hash", "prev_hash", "recorded_at",
	}).
		AddRow("cp_2", "wf-1", 3, "a", "APPROVED", "", "hash-2", "hash-1", now).
		AddRow("cp_1", "wf-1", 3, "a", "APPROVED", "", "hash-1", GenesisHash, now)

	mock.ExpectQuery("SELECT checkpoint_id, workflow_id").
		WithArgs("wf-1", 10).
		WillReturnRows(rows)

	repo := NewPostgres(db)
	entries, err := repo.Tail(context.Background(), "wf-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "cp_1", entries[0].CheckpointID)
	assert.Equal(t, "cp_2", entries[1].CheckpointID)
	require.NoError(t, mock.ExpectationsWereMet())
}
