// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

// Command vsm-server runs the Virtual Segment Manager: the governance
// pipeline's HTTP front door.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/analemma-bridge/governance-core/internal/audit"
	"github.com/analemma-bridge/governance-core/internal/config"
	"github.com/analemma-bridge/governance-core/internal/governance"
	"github.com/analemma-bridge/governance-core/internal/ledger"
	"github.com/analemma-bridge/governance-core/internal/pipeline"
	"github.com/analemma-bridge/governance-core/internal/policy"
	"github.com/analemma-bridge/governance-core/internal/reorder"
	"github.com/analemma-bridge/governance-core/internal/telemetry"
	"github.com/analemma-bridge/governance-core/internal/vsm"
)

func main() {
	cfg := config.ServerFromEnv()
	log := telemetry.New(cfg.AuditLogComponent)

	ctx := context.Background()

	registry := policy.NewDefaultRegistry()
	reorderBuf := reorder.New(log)
	auditReg := audit.New(ctx, cfg.RedisURL, cfg.AuditTTLSeconds, log)
	decisionLedger := ledger.New(ctx, cfg.DecisionLedgerDSN, log)
	engine := governance.NewCommunityEngine()

	promReg := prometheus.NewRegistry()
	metrics := pipeline.NewMetrics(promReg)

	p := pipeline.New(
		registry, reorderBuf, auditReg, decisionLedger, engine,
		pipeline.Config{
			BudgetMaxTokens:  cfg.BudgetMaxTokens,
			ReorderMaxWaitMS: cfg.ReorderMaxWaitMS,
		},
		log, metrics,
	)

	server := vsm.New(p, registry, auditReg, reorderBuf, log, promReg)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("", "", "vsm server starting", map[string]interface{}{
		"port":           cfg.Port,
		"audit_backend":  auditReg.BackendName(),
		"policy_version": registry.Version(),
	})

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("", "", "vsm server exited", map[string]interface{}{"error": err.Error()})
	}
}
