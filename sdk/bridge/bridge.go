// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/analemma-bridge/governance-core/internal/l1checker"
	"github.com/analemma-bridge/governance-core/internal/pipeline"
	"github.com/analemma-bridge/governance-core/internal/policy"
	"github.com/analemma-bridge/governance-core/internal/telemetry"
)

// Reserved checkpoint_id sentinels for synthetic (non-kernel-confirmed)
// handles. These are literal strings, not pipeline.CheckpointID values —
// the kernel never sees or confirms these segments, so they carry no real
// checkpoint hash.
const (
	checkpointIDLocalOnly       = "local_only"
	checkpointIDOptimisticLocal = "optimistic_local"
)

// ProposeRequest is the agent-facing convenience shape for submitting a
// segment through the bridge. The bridge always assigns loop_index itself
// and fills in parent_segment_id when left empty, so callers loop
// an agent without threading that bookkeeping through every call site.
type ProposeRequest struct {
	WorkflowID      string
	ParentSegmentID string
	SegmentType     pipeline.SegmentType
	SequenceNumber  int
	RingLevel       int
	Thought         string
	Action          string
	ActionParams    map[string]interface{}
	StateSnapshot   map[string]interface{}

	// OptimisticReport marks a segment as being reported after the fact
	// (the agent already acted). Ring-USER callers cannot use this to
	// soften a verdict — the kernel's pre-stage coercion overrides it.
	OptimisticReport bool
}

// Bridge is the embedded Hybrid Interceptor: the client-side segment
// manager an agent process constructs once and calls on every loop
// iteration. It elects between a local L1 check (Optimistic) and a
// synchronous kernel round trip (Strict), promoting to Strict whenever
// the proposed action is classified destructive regardless of the
// configured default mode.
type Bridge struct {
	cfg         Config
	httpClient  *http.Client
	checker     *l1checker.Checker
	destructive *policy.DestructiveActionSet
	log         *telemetry.Logger

	mu           sync.Mutex
	loopCounters map[string]int
	lastSegment  map[string]string
}

// New constructs a Bridge from its configuration. If cfg.AutoPolicySync
// is set, it performs a best-effort synchronous sync against the kernel
// before returning, then keeps syncing in the background every minute.
func New(cfg Config, log *telemetry.Logger) *Bridge {
	if log == nil {
		log = telemetry.New("bridge-sdk")
	}

	b := &Bridge{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: time.Duration(cfg.RequestTimeout) * time.Millisecond},
		checker:     l1checker.New(),
		destructive: policy.DefaultDestructiveActionSet(),
		log:         log,

		loopCounters: make(map[string]int),
		lastSegment:  make(map[string]string),
	}

	if cfg.AutoPolicySync {
		b.syncPolicy()
		go b.policySyncLoop()
	}

	return b
}

func (b *Bridge) policySyncLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		b.syncPolicy()
	}
}

func (b *Bridge) syncPolicy() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(b.cfg.PolicySyncTimeout)*time.Millisecond)
	defer cancel()
	b.checker.SyncFromKernel(ctx, b.cfg.KernelEndpoint, time.Duration(b.cfg.PolicySyncTimeout)*time.Millisecond, b.log)
}

// Propose submits a segment, returning a Handle once a verdict (real or
// synthetic) is available.
func (b *Bridge) Propose(ctx context.Context, req ProposeRequest) (Handle, error) {
	loopIndex := b.nextLoopIndex(req.WorkflowID)
	parentID := req.ParentSegmentID
	if parentID == "" {
		parentID = b.lastSegmentFor(req.WorkflowID)
	}

	key := idempotencyKey(req.WorkflowID, loopIndex, req.Action, req.ActionParams)

	proposal := pipeline.Proposal{
		ProtocolVersion: "1.0",
		IdempotencyKey:  key,
		SegmentContext: pipeline.SegmentContext{
			WorkflowID:         req.WorkflowID,
			ParentSegmentID:    parentID,
			LoopIndex:          loopIndex,
			SegmentType:        req.SegmentType,
			SequenceNumber:     req.SequenceNumber,
			RingLevel:          req.RingLevel,
			IsOptimisticReport: req.OptimisticReport,
		},
		Payload: pipeline.Payload{
			Thought:      req.Thought,
			Action:       req.Action,
			ActionParams: req.ActionParams,
		},
		StateSnapshot: req.StateSnapshot,
	}

	mode := b.cfg.Mode
	if b.isDestructive(req.Action, req.Thought, req.ActionParams) {
		mode = ModeStrict
	}

	var handle Handle
	var err error
	if mode == ModeOptimistic {
		handle = b.proposeOptimistic(proposal)
	} else {
		handle, err = b.proposeStrict(ctx, proposal)
	}
	if err != nil {
		return nil, err
	}

	b.setLastSegment(req.WorkflowID, handle.CheckpointID())
	return handle, nil
}

func (b *Bridge) isDestructive(action, thought string, params map[string]interface{}) bool {
	if b.destructive.IsDestructiveAction(action) {
		return true
	}
	text := thought
	if len(params) > 0 {
		if raw, err := json.Marshal(params); err == nil {
			text += " " + string(raw)
		}
	}
	_, hit := b.destructive.MatchesPattern(text)
	return hit
}

// proposeStrict performs a synchronous round trip to the kernel. On
// network failure it fails open (returns a locally-approved handle) or
// fails closed (returns the error) per cfg.FailOpen.
func (b *Bridge) proposeStrict(ctx context.Context, proposal pipeline.Proposal) (Handle, error) {
	commit, err := b.postPropose(ctx, proposal)
	if err != nil {
		if b.cfg.FailOpen {
			if b.log != nil {
				b.log.Warn(proposal.SegmentContext.WorkflowID, "", "kernel unreachable, failing open", map[string]interface{}{"error": err.Error()})
			}
			return &strictHandle{bridge: b, commit: pipeline.Commit{
				Status:       pipeline.StatusApproved,
				CheckpointID: checkpointIDLocalOnly,
			}}, nil
		}
		return nil, fmt.Errorf("segment proposal failed: %w", err)
	}
	return &strictHandle{bridge: b, commit: *commit}, nil
}

// proposeOptimistic runs the embedded L1 Checker synchronously, returns
// a handle immediately, and reports the segment to the kernel in the
// background so the decision ledger and audit trail still see it.
func (b *Bridge) proposeOptimistic(proposal pipeline.Proposal) Handle {
	result := b.checker.Check(
		proposal.Payload.Thought,
		proposal.Payload.Action,
		proposal.SegmentContext.RingLevel,
		proposal.Payload.ActionParams,
	)

	proposal.SegmentContext.IsOptimisticReport = true
	go b.reportOptimistic(proposal)

	if !result.Allowed {
		return &optimisticHandle{
			bridge:       b,
			checkpointID: checkpointIDOptimisticLocal,
			allowed:      false,
			recovery:     result.Reason,
		}
	}
	return &optimisticHandle{
		bridge:       b,
		checkpointID: checkpointIDOptimisticLocal,
		allowed:      true,
	}
}

// reportOptimistic fires the deferred propose in the background; its
// verdict is advisory only by the time it lands, since the agent has
// already acted on the local L1 result.
func (b *Bridge) reportOptimistic(proposal pipeline.Proposal) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(b.cfg.RequestTimeout)*time.Millisecond)
	defer cancel()
	if _, err := b.postPropose(ctx, proposal); err != nil && b.log != nil {
		b.log.Warn(proposal.SegmentContext.WorkflowID, "", "optimistic segment report failed", map[string]interface{}{"error": err.Error()})
	}
}

func (b *Bridge) postPropose(ctx context.Context, proposal pipeline.Proposal) (*pipeline.Commit, error) {
	body, err := json.Marshal(proposal)
	if err != nil {
		return nil, fmt.Errorf("marshal proposal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.KernelEndpoint+"/v1/segment/propose", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kernel returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var commit pipeline.Commit
	if err := json.Unmarshal(respBody, &commit); err != nil {
		return nil, fmt.Errorf("decode commit: %w", err)
	}
	return &commit, nil
}

func (b *Bridge) observe(ctx context.Context, checkpointID, actualAction string) error {
	body, _ := json.Marshal(map[string]string{
		"checkpoint_id": checkpointID,
		"action":        actualAction,
	})
	return b.postAck(ctx, "/v1/segment/observe", body)
}

func (b *Bridge) fail(ctx context.Context, checkpointID string, cause error) error {
	errText := ""
	if cause != nil {
		errText = cause.Error()
	}
	body, _ := json.Marshal(map[string]string{
		"checkpoint_id": checkpointID,
		"error":         errText,
	})
	return b.postAck(ctx, "/v1/segment/fail", body)
}

func (b *Bridge) postAck(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.KernelEndpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("kernel returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// DeleteWorkflow tells the kernel to forget a completed workflow's
// reorder state and clears the bridge's own loop/parent bookkeeping.
func (b *Bridge) DeleteWorkflow(ctx context.Context, workflowID string) error {
	b.mu.Lock()
	delete(b.loopCounters, workflowID)
	delete(b.lastSegment, workflowID)
	b.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.cfg.KernelEndpoint+"/v1/workflow/"+workflowID, nil)
	if err != nil {
		return err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return nil
}

func (b *Bridge) nextLoopIndex(workflowID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.loopCounters[workflowID]
	b.loopCounters[workflowID] = idx + 1
	return idx
}

func (b *Bridge) lastSegmentFor(workflowID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSegment[workflowID]
}

func (b *Bridge) setLastSegment(workflowID, checkpointID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSegment[workflowID] = checkpointID
}
