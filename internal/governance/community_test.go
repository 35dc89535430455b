//go:build !enterprise

// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package governance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommunityEngine_AlwaysEmptyVerdict(t *testing.T) {
	e := NewCommunityEngine()

	verdict, err := e.Evaluate(context.Background(), Request{
		WorkflowID: "wf-1",
		RingLevel:  3,
		Action:     "s3_get_object",
		Thought:    "read billing report",
	})

	require.NoError(t, err)
	assert.Empty(t, verdict.Violations)
	assert.Equal(t, Severity(""), verdict.HighestSeverity())
}

func TestVerdict_HighestSeverity(t *testing.T) {
	v := Verdict{Violations: []Violation{
		{Article: "a1", Severity: SeverityLow},
		{Article: "a2", Severity: SeverityCritical},
		{Article: "a3", Severity: SeverityMedium},
	}}
	assert.Equal(t, SeverityCritical, v.HighestSeverity())
}
