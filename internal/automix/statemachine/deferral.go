/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package statemachine

import (
	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
	"github.com/friendsincode/grimnir_radio/internal/automix/vocalguard"
)

// shouldDeferCrossfade implements the WAITING deferral gates: outro types
// that already land on a clean edit point never defer; otherwise the
// vocal guard and the energy gate can each independently hold the
// crossfade start back.
func shouldDeferCrossfade(currentTime float64, settings deferSettings, a analyzer.TrackAnalysis, p CrossfadeParams) bool {
	switch p.OutroType {
	case analyzer.OutroFadeOut, analyzer.OutroSilence, analyzer.OutroReverbTail, analyzer.OutroLoopFade:
		return false
	}

	if settings.VocalGuard {
		effectiveEnd := a.Duration - a.Energy.TrailingSilence
		if vocalguard.ShouldDeferForVocals(currentTime, p.CrossfadeStartTime, effectiveEnd, a.OutroStartTime, a.OutroMultiband, p.Duration.Seconds()) {
			return true
		}
	}

	return energyGateDefers(a.Energy.EnergyPerSecond, a.Energy.AverageEnergy, currentTime)
}

// deferSettings is the narrow slice of hostapi.Settings shouldDeferCrossfade
// needs, kept separate so tests can construct it without the full Settings
// struct.
type deferSettings struct {
	VocalGuard bool
}

// energyGateDefers implements the three-condition energy gate over
// energyPerSecond at the current playback second.
func energyGateDefers(energyPerSecond []float64, averageEnergy, currentTime float64) bool {
	idx := int(currentTime)
	if idx < 0 || idx >= len(energyPerSecond) {
		return false
	}
	eNow := energyPerSecond[idx]

	if eNow < 0.5*averageEnergy {
		return false
	}

	e3sAgo := energyAt(energyPerSecond, idx-3)
	e1sAgo := energyAt(energyPerSecond, idx-1)

	ratioOK := e3sAgo <= 0.05 || eNow/e3sAgo >= 0.75
	if !ratioOK {
		return false
	}

	decaying := e3sAgo > e1sAgo && e1sAgo > eNow && (e3sAgo <= 0 || eNow/e3sAgo < 0.85)
	if decaying {
		return false
	}

	return true
}

func energyAt(energyPerSecond []float64, idx int) float64 {
	if idx < 0 || idx >= len(energyPerSecond) {
		return 0
	}
	return energyPerSecond[idx]
}

// maxDeferral is the spec's min(crossfadeDuration*0.5, 5s, effectiveEnd -
// crossfadeStartTime - 2s), re-exported here for the machine's re-clamp
// step after a deferral has eaten into the remaining content.
func maxDeferral(crossfadeDuration, effectiveEnd, crossfadeStartTime float64) float64 {
	b := crossfadeDuration * 0.5
	if b > 5 {
		b = 5
	}
	if room := effectiveEnd - crossfadeStartTime - 2; room < b {
		b = room
	}
	if b < 0 {
		b = 0
	}
	return b
}
