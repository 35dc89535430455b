// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package l1checker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/analemma-bridge/governance-core/internal/policy"
	"github.com/analemma-bridge/governance-core/internal/telemetry"
)

// SyncFromKernel pulls a Policy Snapshot from the VSM's `/v1/policy/sync`
// endpoint and, if its version differs from the checker's current version,
// hot-swaps the local patterns and capability overlay. Any failure (network
// error, bad status, decode error) leaves the existing local snapshot
// intact and is logged at WARN — this is a fail-open operation by design,
// so the bridge keeps working offline.
func (c *Checker) SyncFromKernel(ctx context.Context, endpoint string, timeout time.Duration, log *telemetry.Logger) bool {
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/v1/policy/sync", nil)
	if err != nil {
		log.Warn("", "", "policy sync failed (using local defaults)", map[string]interface{}{"error": err.Error()})
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Warn("", "", "policy sync failed (using local defaults)", map[string]interface{}{"error": err.Error()})
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn("", "", "policy sync failed (using local defaults)", map[string]interface{}{
			"error": fmt.Sprintf("unexpected status %d", resp.StatusCode),
		})
		return false
	}

	var snap policy.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		log.Warn("", "", "policy sync failed (using local defaults)", map[string]interface{}{"error": err.Error()})
		return false
	}

	if snap.Version == c.PolicyVersion() {
		log.Debug("", "", "policy already up-to-date", map[string]interface{}{"version": snap.Version})
		return true
	}

	c.InjectPatterns(snap.InjectionPatterns, snap.CapabilityMap, snap.Version)
	log.Info("", "", "policy synced from kernel", map[string]interface{}{
		"version":  snap.Version,
		"patterns": len(snap.InjectionPatterns),
	})
	return true
}
