// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

// Package pipeline implements the Governance Pipeline: the ordered
// stage sequence (reordering → semantic shield → capability →
// budget watchdog → constitutional → checkpoint/audit) that a Segment
// Proposal runs through inside POST /v1/segment/propose, producing a
// Segment Commit verdict.
package pipeline

// SegmentType enumerates the kinds of segment a proposal can carry. Only
// FINAL carries reorder-buffer reset semantics.
type SegmentType string

const (
	SegmentTypeToolCall      SegmentType = "TOOL_CALL"
	SegmentTypeLLMCall       SegmentType = "LLM_CALL"
	SegmentTypeMemoryUpdate  SegmentType = "MEMORY_UPDATE"
	SegmentTypeFinal         SegmentType = "FINAL"
)

// Status is a Segment Commit's verdict, case-sensitive on the wire.
type Status string

const (
	StatusApproved     Status = "APPROVED"
	StatusModified     Status = "MODIFIED"
	StatusRejected     Status = "REJECTED"
	StatusSoftRollback Status = "SOFT_ROLLBACK"
	StatusSigkill      Status = "SIGKILL"
)

// Allowed reports whether status lets the agent proceed with its action.
func (s Status) Allowed() bool { return s == StatusApproved || s == StatusModified }

// ShouldKill reports whether status requires the agent to terminate.
func (s Status) ShouldKill() bool { return s == StatusSigkill }

// ShouldRollback reports whether status requires the agent to roll back.
func (s Status) ShouldRollback() bool { return s == StatusSoftRollback }

// SegmentContext is the Segment Proposal's context envelope (§3).
type SegmentContext struct {
	WorkflowID        string      `json:"workflow_id"`
	ParentSegmentID   string      `json:"parent_segment_id,omitempty"`
	LoopIndex         int         `json:"loop_index"`
	SegmentType       SegmentType `json:"segment_type"`
	SequenceNumber    int         `json:"sequence_number"`
	RingLevel         int         `json:"ring_level"`
	IsOptimisticReport bool       `json:"is_optimistic_report"`
}

// Payload is the Segment Proposal's thought/action/params body.
type Payload struct {
	Thought      string                 `json:"thought"`
	Action       string                 `json:"action"`
	ActionParams map[string]interface{} `json:"action_params"`
}

// Proposal is the wire shape of a SEGMENT_PROPOSE request.
type Proposal struct {
	ProtocolVersion string                 `json:"protocol_version"`
	IdempotencyKey  string                 `json:"idempotency_key"`
	SegmentContext  SegmentContext         `json:"segment_context"`
	Payload         Payload                `json:"payload"`
	StateSnapshot   map[string]interface{} `json:"state_snapshot"`
}

// Commands carries a commit's directives back to the agent.
type Commands struct {
	ActionOverride          map[string]interface{} `json:"action_override,omitempty"`
	InjectRecoveryInstruction string                `json:"inject_recovery_instruction,omitempty"`
}

// GovernanceFeedback carries the commit's advisory diagnostics.
type GovernanceFeedback struct {
	Warnings          []string `json:"warnings"`
	AnomalyScore      float64  `json:"anomaly_score"`
	ArticleViolations []string `json:"article_violations"`
}

// Commit is the wire shape of a SEGMENT_COMMIT response.
type Commit struct {
	Status             Status             `json:"status"`
	CheckpointID       string             `json:"checkpoint_id"`
	Commands           Commands           `json:"commands"`
	GovernanceFeedback GovernanceFeedback `json:"governance_feedback"`
}

// anomalyScoreFor implements §6's advisory anomaly-score mapping.
func anomalyScoreFor(status Status) float64 {
	switch status {
	case StatusSigkill:
		return 1.0
	case StatusRejected, StatusSoftRollback:
		return 0.5
	default:
		return 0.0
	}
}
