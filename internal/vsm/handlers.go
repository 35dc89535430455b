// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package vsm

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/analemma-bridge/governance-core/internal/pipeline"
)

func (s *Server) handlePropose(w http.ResponseWriter, r *http.Request) {
	var proposal pipeline.Proposal
	if err := json.NewDecoder(r.Body).Decode(&proposal); err != nil {
		writeError(w, http.StatusBadRequest, "malformed segment proposal: "+err.Error())
		return
	}
	if proposal.SegmentContext.WorkflowID == "" {
		writeError(w, http.StatusBadRequest, "segment_context.workflow_id is required")
		return
	}

	commit := s.pipeline.Propose(r.Context(), proposal)

	if s.log != nil {
		s.log.Info(proposal.SegmentContext.WorkflowID, requestIDFrom(r.Context()), "segment proposed", map[string]interface{}{
			"status":        commit.Status,
			"action":        proposal.Payload.Action,
			"ring_level":    proposal.SegmentContext.RingLevel,
			"checkpoint_id": commit.CheckpointID,
		})
	}

	writeJSON(w, http.StatusOK, commit)
}

func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	var req ObserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed observe request: "+err.Error())
		return
	}
	if req.CheckpointID == "" {
		writeError(w, http.StatusBadRequest, "checkpoint_id is required")
		return
	}

	record, found := s.auditReg.Pop(r.Context(), req.CheckpointID)

	var consistencyOK *bool
	if found {
		ok := req.Action == "" || req.Action == record.Action
		consistencyOK = &ok
		if !ok && s.log != nil {
			s.log.Warn(record.WorkflowID, requestIDFrom(r.Context()), "CONSISTENCY_MISMATCH", map[string]interface{}{
				"checkpoint_id":   req.CheckpointID,
				"proposed_action": record.Action,
				"observed_action": req.Action,
			})
		}
	}

	writeJSON(w, http.StatusOK, ObserveResponse{
		Ack:           true,
		CheckpointID:  req.CheckpointID,
		ConsistencyOK: consistencyOK,
	})
}

func (s *Server) handleFail(w http.ResponseWriter, r *http.Request) {
	var req FailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed fail request: "+err.Error())
		return
	}
	if req.CheckpointID == "" {
		writeError(w, http.StatusBadRequest, "checkpoint_id is required")
		return
	}

	record, _ := s.auditReg.Pop(r.Context(), req.CheckpointID)
	if s.log != nil {
		workflowID := ""
		if record != nil {
			workflowID = record.WorkflowID
		}
		s.log.Warn(workflowID, requestIDFrom(r.Context()), "segment failed", map[string]interface{}{
			"checkpoint_id": req.CheckpointID,
			"error":         req.Error,
		})
	}

	writeJSON(w, http.StatusOK, FailResponse{Ack: true})
}

func (s *Server) handlePolicySync(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Snapshot())
}

func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowID := mux.Vars(r)["id"]
	s.reorder.Reset(workflowID)
	writeJSON(w, http.StatusOK, map[string]bool{"ack": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:            "healthy",
		AuditBackend:      s.auditReg.BackendName(),
		AuditRegistrySize: s.auditReg.MemorySize(),
		PolicyVersion:     s.registry.Version(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
