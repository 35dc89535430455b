// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package policy

// CapabilityMap is an immutable mapping from Ring to its whitelisted set of
// action names. KERNEL is not present as an explicit entry: it is handled
// as the wildcard sentinel by IsAllowed and AllowedActions directly, since
// an infinite/"allow all" set is not representable as a finite Go set.
type CapabilityMap struct {
	byRing map[Ring]map[string]struct{}
}

// DefaultCapabilityMap returns the governance core's built-in whitelist,
// grounded on shared_policy.py's CAPABILITY_MAP.
func DefaultCapabilityMap() *CapabilityMap {
	driver := setOf(
		"filesystem_read", "subprocess_call", "network_limited",
		"database_write", "config_read", "network_read", "database_query",
		"cache_read", "event_publish", "basic_query", "read_only",
		"s3_get_object", "s3_put_object",
	)
	service := setOf(
		"network_read", "database_query", "cache_read", "event_publish",
		"basic_query", "read_only", "s3_get_object",
	)
	user := setOf("basic_query", "read_only", "s3_get_object")

	return &CapabilityMap{
		byRing: map[Ring]map[string]struct{}{
			DRIVER:  driver,
			SERVICE: service,
			USER:    user,
		},
	}
}

// NewCapabilityMap builds a CapabilityMap from an explicit ring→actions
// overlay, used by policy-sync hot-swaps on the SDK side. KERNEL entries in
// byRing are ignored: KERNEL is always the wildcard regardless of overlay
// content.
func NewCapabilityMap(byRing map[Ring][]string) *CapabilityMap {
	m := make(map[Ring]map[string]struct{}, len(byRing))
	for ring, actions := range byRing {
		if ring == KERNEL {
			continue
		}
		m[ring] = setOf(actions...)
	}
	return &CapabilityMap{byRing: m}
}

func setOf(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

// IsAllowed reports whether action is whitelisted for ring. KERNEL always
// returns true (wildcard); every other ring is default-deny: no wildcard,
// no fall-through, no inheritance between rings.
func (c *CapabilityMap) IsAllowed(ring Ring, action string) bool {
	if ring == KERNEL {
		return true
	}
	allowed, ok := c.byRing[ring]
	if !ok {
		return false
	}
	_, found := allowed[action]
	return found
}

// AllowedActions returns the sorted list of actions permitted for ring.
// Callers needing the KERNEL wildcard rendered as a literal list (for a
// policy snapshot response) must special-case it themselves — see §4.7's
// "capability_map SHOULD NOT include KERNEL".
func (c *CapabilityMap) AllowedActions(ring Ring) []string {
	allowed, ok := c.byRing[ring]
	if !ok {
		return nil
	}
	return sortedKeys(allowed)
}

// Rings returns the non-KERNEL rings in ascending ring order (DRIVER,
// SERVICE, USER), i.e. from most to least trusted.
func (c *CapabilityMap) Rings() []Ring {
	return []Ring{DRIVER, SERVICE, USER}
}
