// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"

	"github.com/analemma-bridge/governance-core/internal/pipeline"
)

// Handle is what Propose returns for every segment, Strict or Optimistic
// alike. Callers drive their control flow off Allowed/ShouldKill/
// ShouldRollback/RecoveryInstruction without ever needing to know which
// mode produced the handle — the two concrete implementations below are
// deliberately duck-typed against this one interface.
type Handle interface {
	CheckpointID() string
	Allowed() bool
	ShouldKill() bool
	ShouldRollback() bool
	RecoveryInstruction() string
	Warnings() []string

	// Observe reports the action the agent actually executed. A Strict
	// handle posts this synchronously to /v1/segment/observe so the
	// kernel can detect plan/execution drift immediately; an Optimistic
	// handle posts it so the kernel can retroactively validate a segment
	// it never saw proposed before the agent acted on it.
	Observe(ctx context.Context, actualAction string) error

	// Fail reports that the agent attempted the approved action and it
	// errored out, so the kernel's audit trail reflects the true outcome.
	Fail(ctx context.Context, cause error) error
}

// strictHandle wraps a real Segment Commit returned synchronously by the
// kernel.
type strictHandle struct {
	bridge *Bridge
	commit pipeline.Commit
}

func (h *strictHandle) CheckpointID() string       { return h.commit.CheckpointID }
func (h *strictHandle) Allowed() bool              { return h.commit.Status.Allowed() }
func (h *strictHandle) ShouldKill() bool           { return h.commit.Status.ShouldKill() }
func (h *strictHandle) ShouldRollback() bool       { return h.commit.Status.ShouldRollback() }
func (h *strictHandle) RecoveryInstruction() string { return h.commit.Commands.InjectRecoveryInstruction }
func (h *strictHandle) Warnings() []string          { return h.commit.GovernanceFeedback.Warnings }

func (h *strictHandle) Observe(ctx context.Context, actualAction string) error {
	return h.bridge.observe(ctx, h.commit.CheckpointID, actualAction)
}

func (h *strictHandle) Fail(ctx context.Context, cause error) error {
	return h.bridge.fail(ctx, h.commit.CheckpointID, cause)
}

// optimisticHandle wraps a synthetic, locally-approved verdict produced
// by the embedded L1 Checker. No network round trip precedes it; its
// checkpoint id is reserved locally and reported to the kernel
// asynchronously, after the fact.
type optimisticHandle struct {
	bridge       *Bridge
	checkpointID string
	allowed      bool
	recovery     string
}

func (h *optimisticHandle) CheckpointID() string        { return h.checkpointID }
func (h *optimisticHandle) Allowed() bool               { return h.allowed }
func (h *optimisticHandle) ShouldKill() bool            { return false }
func (h *optimisticHandle) ShouldRollback() bool        { return !h.allowed }
func (h *optimisticHandle) RecoveryInstruction() string { return h.recovery }
func (h *optimisticHandle) Warnings() []string {
	if h.recovery == "" {
		return []string{}
	}
	return []string{h.recovery}
}

func (h *optimisticHandle) Observe(ctx context.Context, actualAction string) error {
	return h.bridge.observe(ctx, h.checkpointID, actualAction)
}

func (h *optimisticHandle) Fail(ctx context.Context, cause error) error {
	return h.bridge.fail(ctx, h.checkpointID, cause)
}
