// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/analemma-bridge/governance-core/internal/audit"
	"github.com/analemma-bridge/governance-core/internal/governance"
	"github.com/analemma-bridge/governance-core/internal/ledger"
	"github.com/analemma-bridge/governance-core/internal/normalize"
	"github.com/analemma-bridge/governance-core/internal/policy"
	"github.com/analemma-bridge/governance-core/internal/reorder"
	"github.com/analemma-bridge/governance-core/internal/telemetry"
)

// Config is the Governance Pipeline's tunable thresholds, sourced from
// internal/config's ServerConfig.
type Config struct {
	BudgetMaxTokens  int
	ReorderMaxWaitMS int
}

// Pipeline runs a Segment Proposal through the ordered stage sequence of
// §4.6 and returns a Segment Commit. It holds no per-request state; all
// mutable state lives in its collaborators (policy registry, reorder
// buffer, audit registry, ledger).
type Pipeline struct {
	registry *policy.Registry
	reorder  *reorder.Buffer
	auditReg audit.Registry
	ledger   *ledger.Ledger
	engine   governance.Engine
	cfg      Config
	log      *telemetry.Logger
	metrics  *Metrics
}

// New builds a Pipeline from its collaborators.
func New(
	registry *policy.Registry,
	reorderBuf *reorder.Buffer,
	auditReg audit.Registry,
	decisionLedger *ledger.Ledger,
	engine governance.Engine,
	cfg Config,
	log *telemetry.Logger,
	metrics *Metrics,
) *Pipeline {
	return &Pipeline{
		registry: registry,
		reorder:  reorderBuf,
		auditReg: auditReg,
		ledger:   decisionLedger,
		engine:   engine,
		cfg:      cfg,
		log:      log,
		metrics:  metrics,
	}
}

// Propose runs a Segment Proposal through the full governance pipeline.
func (p *Pipeline) Propose(ctx context.Context, proposal Proposal) Commit {
	start := time.Now()
	wf := proposal.SegmentContext.WorkflowID

	// Pre-stage: Ring-3 optimistic-report coercion (§4.6 pre-stage). A
	// USER-trust client must not downgrade verdict severity by claiming
	// post-hoc reporting.
	if proposal.SegmentContext.RingLevel >= int(policy.USER) {
		proposal.SegmentContext.IsOptimisticReport = false
	}

	// Stage 0: Reordering. Fail-open — the returned flag only affects
	// logging, never the verdict.
	maxWait := time.Duration(p.cfg.ReorderMaxWaitMS) * time.Millisecond
	inOrder := p.reorder.WaitForTurn(ctx, wf, proposal.SegmentContext.SequenceNumber, maxWait)
	if !inOrder && p.log != nil {
		p.log.Warn(wf, "", "segment arrived out of order", map[string]interface{}{
			"sequence_number": proposal.SegmentContext.SequenceNumber,
		})
	}

	// Stage 1: Semantic Shield. Scans `thought` only on the server side,
	// per the resolved open question in SPEC_FULL §9.1.
	normThought := normalize.Text(proposal.Payload.Thought)
	if matched, hit := p.registry.InjectionPatterns().Match(normThought); hit {
		commit := p.finalize(proposal, StatusSigkill, []string{
			"injection pattern detected: " + matched,
		}, nil, recoveryInjection(proposal.Payload.Action))
		p.recordMetrics("stage1_injection", commit.Status, start)
		return commit
	}

	// Stage 2: Capability.
	ring := policy.RingFromInt(proposal.SegmentContext.RingLevel)
	if !p.registry.IsCapabilityAllowed(ring, proposal.Payload.Action) {
		alternatives, _ := p.registry.CapabilitiesFor(ring)
		status := StatusRejected
		if proposal.SegmentContext.IsOptimisticReport {
			status = StatusSoftRollback
		}
		commit := p.finalize(proposal, status, []string{
			fmt.Sprintf("capability denied: '%s' not allowed at %s", proposal.Payload.Action, ring.String()),
		}, nil, recoveryCapability(proposal.Payload.Action, ring.String(), alternatives))
		p.recordMetrics("stage2_capability", commit.Status, start)
		return commit
	}

	// Stage 3: Budget Watchdog.
	if tokenUsage := tokenUsageTotal(proposal.StateSnapshot); tokenUsage > p.cfg.BudgetMaxTokens {
		commit := p.finalize(proposal, StatusSoftRollback, []string{
			fmt.Sprintf("token budget exceeded: %d > %d", tokenUsage, p.cfg.BudgetMaxTokens),
		}, nil, recoveryBudget())
		p.recordMetrics("stage3_budget", commit.Status, start)
		return commit
	}

	// Stage 4: Constitutional. An unreachable/erroring engine degrades to
	// pass+WARN; it is never allowed to fail the request, per §4.6.
	status, warnings, articles, recovery := p.runConstitutional(ctx, proposal)
	if status != "" {
		commit := p.finalize(proposal, status, warnings, articles, recovery)
		p.recordMetrics("stage4_constitutional", commit.Status, start)
		return commit
	}

	// Stage 5: Checkpoint & Audit.
	commit := p.commitApproved(ctx, proposal)
	p.recordMetrics("stage5_checkpoint", commit.Status, start)
	return commit
}

func (p *Pipeline) runConstitutional(ctx context.Context, proposal Proposal) (status Status, warnings, articles []string, recovery string) {
	verdict, err := p.engine.Evaluate(ctx, governance.Request{
		WorkflowID:   proposal.SegmentContext.WorkflowID,
		RingLevel:    proposal.SegmentContext.RingLevel,
		Action:       proposal.Payload.Action,
		ActionParams: proposal.Payload.ActionParams,
		Thought:      proposal.Payload.Thought,
	})
	if err != nil {
		if p.log != nil {
			p.log.Warn(proposal.SegmentContext.WorkflowID, "", "governance engine unavailable, passing through", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return "", nil, nil, ""
	}

	severity := verdict.HighestSeverity()
	if severity == "" {
		return "", nil, nil, ""
	}

	details := joinViolations(verdict.Violations)
	articleList := make([]string, 0, len(verdict.Violations))
	for _, v := range verdict.Violations {
		articleList = append(articleList, v.Article)
	}

	switch severity {
	case governance.SeverityCritical:
		return StatusSigkill, []string{"critical constitutional violation: " + details}, articleList,
			recoveryConstitutionalCritical(proposal.Payload.Action, details)
	case governance.SeverityMedium, governance.SeverityHigh:
		st := StatusRejected
		if proposal.SegmentContext.IsOptimisticReport {
			st = StatusSoftRollback
		}
		return st, []string{"constitutional policy warning: " + details}, articleList,
			recoveryConstitutionalMedium(proposal.Payload.Action, details)
	default: // low, or unrecognized — passes through
		return "", nil, nil, ""
	}
}

func (p *Pipeline) commitApproved(ctx context.Context, proposal Proposal) Commit {
	sc := proposal.SegmentContext
	checkpointID := CheckpointID(sc.WorkflowID, sc.SequenceNumber, proposal.IdempotencyKey)

	record := audit.Record{
		WorkflowID:   sc.WorkflowID,
		Action:       proposal.Payload.Action,
		ActionParams: proposal.Payload.ActionParams,
		Thought:      proposal.Payload.Thought,
		RingLevel:    sc.RingLevel,
		LoopIndex:    sc.LoopIndex,
		ProposedAt:   time.Now().UTC(),
	}
	if err := p.auditReg.Set(ctx, checkpointID, record); err != nil && p.log != nil {
		p.log.Warn(sc.WorkflowID, "", "audit registry set failed", map[string]interface{}{"error": err.Error()})
	}

	if sc.SegmentType == SegmentTypeFinal {
		p.reorder.Reset(sc.WorkflowID)
	}

	p.appendLedger(sc, proposal.Payload.Action, checkpointID, StatusApproved, "")

	return Commit{
		Status:       StatusApproved,
		CheckpointID: checkpointID,
		Commands:     Commands{},
		GovernanceFeedback: GovernanceFeedback{
			Warnings:          []string{},
			AnomalyScore:      anomalyScoreFor(StatusApproved),
			ArticleViolations: []string{},
		},
	}
}

// finalize builds a non-APPROVED commit and appends its verdict to the
// decision ledger. Every rejecting stage funnels through here so the
// ledger sees every verdict, not only APPROVED ones.
func (p *Pipeline) finalize(proposal Proposal, status Status, warnings, articles []string, recovery string) Commit {
	sc := proposal.SegmentContext
	checkpointID := CheckpointID(sc.WorkflowID, sc.SequenceNumber, proposal.IdempotencyKey)

	severity := ""
	if status == StatusSigkill {
		severity = string(governance.SeverityCritical)
	}
	p.appendLedger(sc, proposal.Payload.Action, checkpointID, status, severity)

	if warnings == nil {
		warnings = []string{}
	}
	if articles == nil {
		articles = []string{}
	}

	return Commit{
		Status:       status,
		CheckpointID: checkpointID,
		Commands: Commands{
			InjectRecoveryInstruction: recovery,
		},
		GovernanceFeedback: GovernanceFeedback{
			Warnings:          warnings,
			AnomalyScore:      anomalyScoreFor(status),
			ArticleViolations: articles,
		},
	}
}

func (p *Pipeline) appendLedger(sc SegmentContext, action, checkpointID string, status Status, severity string) {
	if p.ledger == nil {
		return
	}
	p.ledger.Append(context.Background(), ledger.Entry{
		CheckpointID: checkpointID,
		WorkflowID:   sc.WorkflowID,
		RingLevel:    sc.RingLevel,
		Action:       action,
		Status:       string(status),
		Severity:     severity,
		RecordedAt:   time.Now().UTC(),
	})
}

func (p *Pipeline) recordMetrics(stage string, status Status, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.ObserveStage(stage, time.Since(start))
	p.metrics.CountVerdict(status)
}

// CheckpointID synthesizes the stable checkpoint identifier from a
// workflow_id, sequence_number and idempotency_key, per §6.
func CheckpointID(workflowID string, seq int, idempotencyKey string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", workflowID, seq, idempotencyKey)))
	return "cp_" + hex.EncodeToString(sum[:])[:16]
}

// tokenUsageTotal reads state_snapshot.token_usage_total, defaulting to 0
// for any missing or non-numeric value (JSON numbers decode as float64).
func tokenUsageTotal(snapshot map[string]interface{}) int {
	if snapshot == nil {
		return 0
	}
	v, ok := snapshot["token_usage_total"]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
