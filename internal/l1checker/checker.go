// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package l1checker

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/analemma-bridge/governance-core/internal/normalize"
	"github.com/analemma-bridge/governance-core/internal/policy"
)

// maxParamsScanBytes bounds how much of the serialized params blob is
// scanned, protecting the ~1ms latency budget against pathological inputs.
const maxParamsScanBytes = 4096

// Checker is the embedded L1 policy engine. It holds its own copy of the
// injection patterns and capability map so it can be hot-swapped by policy
// sync independently of the server's registry.
type Checker struct {
	mu            sync.RWMutex
	patterns      *policy.InjectionPatternSet
	capability    *policy.CapabilityMap
	policyVersion string
}

// New builds a Checker seeded from the governance core's default policy
// definitions.
func New() *Checker {
	return &Checker{
		patterns:      policy.DefaultInjectionPatternSet(),
		capability:    policy.DefaultCapabilityMap(),
		policyVersion: "local_default",
	}
}

// Check runs the full L1 algorithm: normalize thought/action, truncate and
// normalize a canonical serialization of params, scan for injection
// patterns, then consult the capability map.
func (c *Checker) Check(thought, action string, ring int, params map[string]interface{}) Result {
	normThought := normalize.Text(thought)
	normAction := normalize.Text(action)

	paramsText := ""
	if len(params) > 0 {
		raw, err := json.Marshal(params)
		text := string(raw)
		if err != nil {
			text = fmt.Sprintf("%v", params)
		}
		if len(text) > maxParamsScanBytes {
			text = text[:maxParamsScanBytes]
		}
		paramsText = normalize.Text(text)
	}

	scanText := normThought + " " + normAction + " " + paramsText

	c.mu.RLock()
	patterns := c.patterns
	capability := c.capability
	c.mu.RUnlock()

	if matched, ok := patterns.Match(scanText); ok {
		return Result{
			Allowed: false,
			Reason:  "L1 injection pattern blocked: " + matched,
		}
	}

	r := policy.RingFromInt(ring)
	if r == policy.KERNEL {
		return Result{Allowed: true}
	}
	if !capability.IsAllowed(r, normAction) {
		return Result{
			Allowed: false,
			Reason: fmt.Sprintf(
				"L1 capability denied: '%s' not allowed at %s (Ring %d)",
				action, r.String(), ring,
			),
		}
	}
	return Result{Allowed: true}
}

// PolicyVersion returns the currently loaded policy version identifier.
func (c *Checker) PolicyVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.policyVersion
}

// InjectPatterns atomically replaces the checker's patterns and (if
// provided) capability overlay — used directly in tests and internally by
// policy sync.
func (c *Checker) InjectPatterns(patterns []string, capabilityByRing map[int][]string, version string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.patterns = policy.NewInjectionPatternSet(patterns)

	if capabilityByRing != nil {
		// Rebuild a CapabilityMap from the wire-format ring→actions overlay.
		c.capability = capabilityMapFromOverlay(capabilityByRing)
	}

	if version != "" {
		c.policyVersion = version
	}
}

func capabilityMapFromOverlay(overlay map[int][]string) *policy.CapabilityMap {
	byRing := make(map[policy.Ring][]string, len(overlay))
	for ringInt, actions := range overlay {
		byRing[policy.RingFromInt(ringInt)] = actions
	}
	return policy.NewCapabilityMap(byRing)
}
