/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package statemachine

import (
	"testing"
	"time"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
)

func TestShouldDeferCrossfadeNeverDefersCleanOutroTypes(t *testing.T) {
	a := analyzer.TrackAnalysis{Duration: 100, Energy: analyzer.EnergyInfo{EnergyPerSecond: make([]float64, 100)}}
	p := CrossfadeParams{OutroType: analyzer.OutroFadeOut, Duration: 6 * time.Second}
	if shouldDeferCrossfade(90, deferSettings{VocalGuard: true}, a, p) {
		t.Fatalf("fadeOut outro must never defer")
	}
}

func TestShouldDeferCrossfadeVocalGuard(t *testing.T) {
	multiband := []analyzer.MultibandWindow{{Low: 0.05, Mid: 0.8, High: 0.05}}
	a := analyzer.TrackAnalysis{
		Duration:       100,
		OutroStartTime: 90,
		OutroMultiband: multiband,
		Energy:         analyzer.EnergyInfo{EnergyPerSecond: make([]float64, 100)},
	}
	p := CrossfadeParams{OutroType: analyzer.OutroHard, CrossfadeStartTime: 90, Duration: 6 * time.Second}

	if !shouldDeferCrossfade(90.1, deferSettings{VocalGuard: true}, a, p) {
		t.Fatalf("expected vocal guard to defer while mid-band dominates")
	}
}

func TestEnergyGateDefersOnSustainedEnergy(t *testing.T) {
	energy := make([]float64, 10)
	for i := range energy {
		energy[i] = 1.0
	}
	if !energyGateDefers(energy, 1.0, 5) {
		t.Fatalf("expected energy gate to defer on flat sustained energy")
	}
}

func TestEnergyGateAllowsOnDecay(t *testing.T) {
	energy := []float64{1, 1, 1, 0.8, 0.5, 0.1}
	if energyGateDefers(energy, 1.0, 5) {
		t.Fatalf("expected energy gate to allow crossfade on clear decay")
	}
}

func TestMaxDeferralClampsToRemainingContent(t *testing.T) {
	b := maxDeferral(10, 95, 90)
	if b != 3 {
		t.Fatalf("maxDeferral = %v, want 3 (95-90-2)", b)
	}
	b2 := maxDeferral(4, 200, 10)
	if b2 != 2 {
		t.Fatalf("maxDeferral = %v, want 2 (crossfadeDuration*0.5)", b2)
	}
}
