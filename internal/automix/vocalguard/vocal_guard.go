/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package vocalguard implements VocalActivityGuard: a small heuristic that
// defers a crossfade start when the outgoing track's vocal (mid-band)
// content dominates its instrumental, within a bounded defer budget.
package vocalguard

import (
	"math"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
)

const windowSeconds = 0.25

// IsVocalActive reports whether the mid band dominates low+mid+high at
// the given window index, matching the spec's 0.6 dominance threshold
// with a noise floor of 0.001 total energy.
func IsVocalActive(multiband []analyzer.MultibandWindow, windowIdx int) bool {
	if windowIdx < 0 || windowIdx >= len(multiband) {
		return false
	}
	w := multiband[windowIdx]
	total := w.Low + w.Mid + w.High
	if total <= 0.001 {
		return false
	}
	return w.Mid/total > 0.6
}

// ShouldDeferForVocals reports whether the crossfade should be deferred
// because vocals are active at the planned crossfade start and the
// remaining defer budget has not been exhausted.
func ShouldDeferForVocals(currentTime, crossfadeStart, effectiveEnd, outroStartTime float64, outroMultiband []analyzer.MultibandWindow, crossfadeDuration float64) bool {
	windowIdx := int(math.Floor((crossfadeStart - outroStartTime) / windowSeconds))
	if !IsVocalActive(outroMultiband, windowIdx) {
		return false
	}
	budget := deferBudget(crossfadeStart, effectiveEnd, crossfadeDuration)
	elapsed := currentTime - crossfadeStart
	return elapsed < budget
}

// deferBudget is the spec's min(crossfadeDuration*0.5, 5s, effectiveEnd -
// crossfadeStart - 2s).
func deferBudget(crossfadeStart, effectiveEnd, crossfadeDuration float64) float64 {
	b := math.Min(crossfadeDuration*0.5, 5)
	b = math.Min(b, effectiveEnd-crossfadeStart-2)
	if b < 0 {
		b = 0
	}
	return b
}
