// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

// Package config parses the governance core's environment-variable
// configuration surface into an immutable value, once, at process start.
package config

import (
	"os"
	"strconv"
	"time"
)

// ServerConfig is the Virtual Segment Manager's runtime configuration.
type ServerConfig struct {
	Port               string
	RedisURL           string
	AuditTTLSeconds    int
	BudgetMaxTokens    int
	ReorderMaxWaitMS   int
	DecisionLedgerDSN  string
	AuditLogComponent  string
}

// ServerFromEnv reads the VSM's configuration from the environment,
// applying the defaults named in the spec's external-interfaces section.
func ServerFromEnv() ServerConfig {
	return ServerConfig{
		Port:              getString("PORT", "8765"),
		RedisURL:          os.Getenv("REDIS_URL"),
		AuditTTLSeconds:   getInt("AUDIT_TTL_SECONDS", 3600),
		BudgetMaxTokens:   getInt("BUDGET_MAX_TOKENS", 500000),
		ReorderMaxWaitMS:  getInt("REORDER_MAX_WAIT_MS", 200),
		DecisionLedgerDSN: os.Getenv("DECISION_LEDGER_DSN"),
		AuditLogComponent: getString("AUDIT_LOG_COMPONENT", "vsm"),
	}
}

// BridgeConfig is the Hybrid Interceptor SDK's runtime configuration.
type BridgeConfig struct {
	KernelEndpoint   string
	Mode             string // "strict" | "optimistic"
	FailOpen         bool
	AutoPolicySync   bool
	RequestTimeout   time.Duration
	PolicySyncTimeout time.Duration
}

// BridgeFromEnv reads the SDK's configuration from the environment. Callers
// embedding the bridge in an agent process typically override Mode
// explicitly rather than relying on an environment default.
func BridgeFromEnv() BridgeConfig {
	return BridgeConfig{
		KernelEndpoint:    getString("BRIDGE_KERNEL_ENDPOINT", "http://localhost:8765"),
		Mode:              getString("BRIDGE_MODE", "strict"),
		FailOpen:          getBool("BRIDGE_FAIL_OPEN", true),
		AutoPolicySync:    getBool("AUTO_POLICY_SYNC", false),
		RequestTimeout:    10 * time.Second,
		PolicySyncTimeout: 5 * time.Second,
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
