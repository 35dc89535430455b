// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

// Package l1checker implements the Local L1 Checker: the in-process,
// network-free policy engine embedded in the Hybrid Interceptor SDK.
// It normalizes, pattern-matches and capability-checks in well under a
// millisecond so Optimistic-mode segments never pay a round trip.
package l1checker

// Result is the outcome of a local L1 check.
type Result struct {
	Allowed bool
	Reason  string
}
