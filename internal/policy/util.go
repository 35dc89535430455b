// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package policy

import "sort"

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
