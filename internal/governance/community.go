//go:build !enterprise

// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package governance

import "context"

// CommunityEngine is the Community-edition stub for the Stage-4
// Constitutional collaborator, grounded on the teacher repository's own
// community/enterprise split for compliance modules. It always returns an
// empty verdict — no constitutional rule set ships in Community mode — so
// the governance pipeline is fully runnable standalone. A stricter
// deployment substitutes a different Engine implementation behind the same
// interface; this stub documents the hook point rather than the policy.
type CommunityEngine struct{}

// NewCommunityEngine returns the no-op Stage-4 collaborator.
func NewCommunityEngine() *CommunityEngine {
	return &CommunityEngine{}
}

// Evaluate always returns an empty verdict and a nil error.
func (e *CommunityEngine) Evaluate(_ context.Context, _ Request) (Verdict, error) {
	return Verdict{}, nil
}
