// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package vsm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analemma-bridge/governance-core/internal/audit"
	"github.com/analemma-bridge/governance-core/internal/governance"
	"github.com/analemma-bridge/governance-core/internal/ledger"
	"github.com/analemma-bridge/governance-core/internal/pipeline"
	"github.com/analemma-bridge/governance-core/internal/policy"
	"github.com/analemma-bridge/governance-core/internal/reorder"
)

func newTestServer(t *testing.T) (*Server, audit.Registry, *reorder.Buffer) {
	t.Helper()
	reg := policy.NewDefaultRegistry()
	auditReg := audit.NewMemory()
	reorderBuf := reorder.New(nil)

	promReg := prometheus.NewRegistry()
	metrics := pipeline.NewMetrics(promReg)

	p := pipeline.New(
		reg, reorderBuf, auditReg,
		ledger.NewLedger(ledger.NewMemory(), nil),
		governance.NewCommunityEngine(),
		pipeline.Config{BudgetMaxTokens: 500000, ReorderMaxWaitMS: 50},
		nil, metrics,
	)

	s := New(p, reg, auditReg, reorderBuf, nil, promReg)
	return s, auditReg, reorderBuf
}

func proposeBody(action, thought string, ring, seq int, segmentType string) []byte {
	body := map[string]interface{}{
		"protocol_version": "1.0",
		"idempotency_key":  "key-1",
		"segment_context": map[string]interface{}{
			"workflow_id":     "wf-http",
			"loop_index":      seq,
			"segment_type":    segmentType,
			"sequence_number": seq,
			"ring_level":      ring,
		},
		"payload": map[string]interface{}{
			"thought":       thought,
			"action":        action,
			"action_params": map[string]interface{}{},
		},
		"state_snapshot": map[string]interface{}{},
	}
	b, _ := json.Marshal(body)
	return b
}

// S1 at the HTTP layer: approved proposal, audit registry grows, then
// OBSERVE with the matching action shrinks it back and reports consistency.
func TestHandlePropose_S1_ApprovedThenObserveConsistent(t *testing.T) {
	s, auditReg, _ := newTestServer(t)
	handler := s.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/segment/propose", bytes.NewReader(
		proposeBody("s3_get_object", "read billing report", 3, 1, "TOOL_CALL"),
	))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var commit pipeline.Commit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &commit))
	assert.Equal(t, pipeline.StatusApproved, commit.Status)
	assert.Equal(t, 1, auditReg.MemorySize())

	observeBody, _ := json.Marshal(ObserveRequest{CheckpointID: commit.CheckpointID, Action: "s3_get_object"})
	oReq := httptest.NewRequest(http.MethodPost, "/v1/segment/observe", bytes.NewReader(observeBody))
	oRec := httptest.NewRecorder()
	handler.ServeHTTP(oRec, oReq)

	require.Equal(t, http.StatusOK, oRec.Code)
	var observeResp ObserveResponse
	require.NoError(t, json.Unmarshal(oRec.Body.Bytes(), &observeResp))
	require.NotNil(t, observeResp.ConsistencyOK)
	assert.True(t, *observeResp.ConsistencyOK)
	assert.Equal(t, 0, auditReg.MemorySize())
}

// S8: a mismatched observed action reports consistency_ok=false.
func TestHandleObserve_S8_MismatchReportsInconsistent(t *testing.T) {
	s, _, _ := newTestServer(t)
	handler := s.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/segment/propose", bytes.NewReader(
		proposeBody("s3_get_object", "", 3, 1, "TOOL_CALL"),
	))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var commit pipeline.Commit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &commit))

	observeBody, _ := json.Marshal(ObserveRequest{CheckpointID: commit.CheckpointID, Action: "database_drop"})
	oReq := httptest.NewRequest(http.MethodPost, "/v1/segment/observe", bytes.NewReader(observeBody))
	oRec := httptest.NewRecorder()
	handler.ServeHTTP(oRec, oReq)

	var observeResp ObserveResponse
	require.NoError(t, json.Unmarshal(oRec.Body.Bytes(), &observeResp))
	require.NotNil(t, observeResp.ConsistencyOK)
	assert.False(t, *observeResp.ConsistencyOK)
}

// Observing a checkpoint that was never proposed (stale/optimistic) reports
// consistency_ok=null.
func TestHandleObserve_UnknownCheckpointReportsNilConsistency(t *testing.T) {
	s, _, _ := newTestServer(t)
	handler := s.Handler()

	observeBody, _ := json.Marshal(ObserveRequest{CheckpointID: "cp_doesnotexist", Action: "x"})
	oReq := httptest.NewRequest(http.MethodPost, "/v1/segment/observe", bytes.NewReader(observeBody))
	oRec := httptest.NewRecorder()
	handler.ServeHTTP(oRec, oReq)

	var observeResp ObserveResponse
	require.NoError(t, json.Unmarshal(oRec.Body.Bytes(), &observeResp))
	assert.True(t, observeResp.Ack)
	assert.Nil(t, observeResp.ConsistencyOK)
}

func TestHandleFail_AlwaysAcks(t *testing.T) {
	s, _, _ := newTestServer(t)
	handler := s.Handler()

	body, _ := json.Marshal(FailRequest{CheckpointID: "cp_whatever", Error: "tool exploded"})
	req := httptest.NewRequest(http.MethodPost, "/v1/segment/fail", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp FailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Ack)
}

func TestHandlePolicySync_ExcludesKernel(t *testing.T) {
	s, _, _ := newTestServer(t)
	handler := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/policy/sync", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var snap policy.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	_, hasKernel := snap.CapabilityMap[int(policy.KERNEL)]
	assert.False(t, hasKernel)
	assert.NotEmpty(t, snap.Version)
}

func TestHandleDeleteWorkflow_ResetsReorderBuffer(t *testing.T) {
	s, _, reorderBuf := newTestServer(t)
	handler := s.Handler()

	reorderBuf.WaitForTurn(context.Background(), "wf-del", 5, time.Millisecond)
	_, exists := reorderBuf.ExpectedNext("wf-del")
	require.True(t, exists)

	req := httptest.NewRequest(http.MethodDelete, "/v1/workflow/wf-del", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, exists = reorderBuf.ExpectedNext("wf-del")
	assert.False(t, exists)
}

func TestHandleHealth_ReportsBackendAndVersion(t *testing.T) {
	s, _, _ := newTestServer(t)
	handler := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "memory", health.AuditBackend)
}

// S7: a proposal for sequence 10 that arrives before 5..9 still returns
// promptly once REORDER_MAX_WAIT_MS elapses, unaffected in its verdict.
func TestHandlePropose_S7_ReorderLiveness(t *testing.T) {
	s, _, _ := newTestServer(t)
	handler := s.Handler()

	// Sequence 4 anchors the workflow, so expected_next becomes 5.
	anchor := httptest.NewRequest(http.MethodPost, "/v1/segment/propose", bytes.NewReader(
		proposeBody("basic_query", "", 3, 4, "TOOL_CALL"),
	))
	handler.ServeHTTP(httptest.NewRecorder(), anchor)

	start := time.Now()
	req := httptest.NewRequest(http.MethodPost, "/v1/segment/propose", bytes.NewReader(
		proposeBody("basic_query", "", 3, 10, "TOOL_CALL"),
	))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	elapsed := time.Since(start)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Less(t, elapsed, 200*time.Millisecond)
	var commit pipeline.Commit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &commit))
	assert.Equal(t, pipeline.StatusApproved, commit.Status)
}
