// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

// Package vsm implements the Virtual Segment Manager's HTTP surface: the
// six JSON/HTTP endpoints of SPEC_FULL §4.7, independent of any particular
// transport framework beyond gorilla/mux for routing.
package vsm

// ObserveRequest is the body of POST /v1/segment/observe.
type ObserveRequest struct {
	CheckpointID string                 `json:"checkpoint_id"`
	Action       string                 `json:"action,omitempty"`
	Status       string                 `json:"status,omitempty"`
	Observation  map[string]interface{} `json:"observation,omitempty"`
}

// ObserveResponse is the response of POST /v1/segment/observe.
type ObserveResponse struct {
	Ack            bool   `json:"ack"`
	CheckpointID   string `json:"checkpoint_id"`
	ConsistencyOK  *bool  `json:"consistency_ok"`
}

// FailRequest is the body of POST /v1/segment/fail.
type FailRequest struct {
	CheckpointID string `json:"checkpoint_id"`
	Error        string `json:"error"`
}

// FailResponse is the response of POST /v1/segment/fail.
type FailResponse struct {
	Ack bool `json:"ack"`
}

// HealthResponse is the response of GET /v1/health.
type HealthResponse struct {
	Status            string `json:"status"`
	AuditBackend      string `json:"audit_backend"`
	AuditRegistrySize int    `json:"audit_registry_size"`
	PolicyVersion     string `json:"policy_version"`
}
