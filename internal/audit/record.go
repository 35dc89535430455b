// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

// Package audit implements the Audit Registry: a pluggable key→record
// store correlating SEGMENT_PROPOSE with the later SEGMENT_OBSERVE/FAIL,
// TTL-bounded and never allowed to raise a backend-specific error to the
// governance pipeline.
package audit

import "time"

// Record is a Proposed Record: what the pipeline approved, kept around
// just long enough to be reconciled against what the agent reports back.
type Record struct {
	WorkflowID   string                 `json:"workflow_id"`
	Action       string                 `json:"action"`
	ActionParams map[string]interface{} `json:"action_params"`
	Thought      string                 `json:"thought"`
	RingLevel    int                    `json:"ring_level"`
	LoopIndex    int                    `json:"loop_index"`
	ProposedAt   time.Time              `json:"proposed_at"`
}
