// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

// Package normalize implements the text canonicalization pipeline that
// defeats Unicode evasion of the injection and destructive pattern sets.
// It must be applied, bit-identically, on both the server and the embedded
// SDK before any regex evaluation.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// zeroWidthChars is the exact, closed set of zero-width and RTL/LTR
// override code points stripped before normalization. Adding to this set is
// a breaking change requiring a policy version bump (see §4.1/§9.1).
const zeroWidthChars = "​‌‍﻿‭‮"

// homoglyphs is the closed substitution table of look-alike characters to
// their ASCII equivalents. It is intentionally small and fixed rather than
// a general confusables map, so normalization stays bit-stable across
// versions.
var homoglyphs = map[rune]rune{
	'а': 'a', // Cyrillic а → a
	'е': 'e', // Cyrillic е → e
	'о': 'o', // Cyrillic о → o
	'р': 'p', // Cyrillic р → p
	'с': 'c', // Cyrillic с → c
	'х': 'x', // Cyrillic х → x
	'α': 'a', // Greek α → a
	'ο': 'o', // Greek ο → o
	'ᴀ': 'a', // Small-caps ᴀ → a
	'ᴇ': 'e', // Small-caps ᴇ → e
}

func isZeroWidth(r rune) bool {
	return strings.ContainsRune(zeroWidthChars, r)
}

// Text runs the three-stage normalization pipeline: strip zero-width/RTL
// override code points, apply NFKC, then substitute homoglyphs. The result
// is idempotent — normalizing an already-normalized string is a no-op.
func Text(s string) string {
	var stripped strings.Builder
	stripped.Grow(len(s))
	for _, r := range s {
		if isZeroWidth(r) {
			continue
		}
		stripped.WriteRune(r)
	}

	folded := norm.NFKC.String(stripped.String())

	var out strings.Builder
	out.Grow(len(folded))
	for _, r := range folded {
		if repl, ok := homoglyphs[r]; ok {
			out.WriteRune(repl)
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}
