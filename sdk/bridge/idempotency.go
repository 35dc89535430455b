// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// idempotencyKey derives the segment's idempotency key by hashing
// workflow_id, loop_index, the action name, and a canonical (sorted-key)
// serialization of its params, truncated to 16 hex characters — short
// enough to embed in a checkpoint id, long enough that two distinct
// segments collide only by design (identical workflow, loop iteration,
// action, and params).
func idempotencyKey(workflowID string, loopIndex int, action string, params map[string]interface{}) string {
	raw := fmt.Sprintf("%s:loop_%d:%s:%s", workflowID, loopIndex, action, canonicalJSON(params))
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}

// canonicalJSON serializes params with keys in sorted order so the same
// logical params always hash identically regardless of map iteration
// order or field insertion order upstream.
func canonicalJSON(params map[string]interface{}) string {
	if len(params) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := make([]byte, 0, 256)
	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		buf = append(buf, kb...)
		buf = append(buf, ':')
		vb, err := json.Marshal(params[k])
		if err != nil {
			vb = []byte("null")
		}
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return string(buf)
}
