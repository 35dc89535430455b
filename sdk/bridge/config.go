// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

// Package bridge implements the Optimistic/Strict Hybrid Interceptor: the
// client-side segment manager an agent process embeds to mediate every
// action through the governance core. It elects between a fast local L1
// check (Optimistic mode) and a synchronous server round trip (Strict
// mode), promoting Optimistic to Strict automatically when destructive
// intent is detected.
package bridge

import (
	"github.com/analemma-bridge/governance-core/internal/config"
)

// Mode is the interceptor's configured default; Strict destructive-intent
// detection can promote an Optimistic segment regardless of this setting.
type Mode string

const (
	ModeStrict     Mode = "strict"
	ModeOptimistic Mode = "optimistic"
)

// Config is the Hybrid Interceptor's construction-time configuration. A
// systems-language rewrite makes the SDK's environment-read explicit
// rather than a hidden global, per SPEC_FULL §9: callers build a Config
// (directly, or via FromEnv) and pass it to New.
type Config struct {
	KernelEndpoint    string
	Mode              Mode
	FailOpen          bool
	AutoPolicySync    bool
	RequestTimeout    int64 // milliseconds
	PolicySyncTimeout int64 // milliseconds
}

// FromEnv reads the SDK's environment-variable configuration surface
// (§6), mirroring internal/config.BridgeFromEnv's defaults.
func FromEnv() Config {
	env := config.BridgeFromEnv()
	return Config{
		KernelEndpoint:    env.KernelEndpoint,
		Mode:              Mode(env.Mode),
		FailOpen:          env.FailOpen,
		AutoPolicySync:    env.AutoPolicySync,
		RequestTimeout:    env.RequestTimeout.Milliseconds(),
		PolicySyncTimeout: env.PolicySyncTimeout.Milliseconds(),
	}
}
