/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package statemachine

import (
	"testing"
	"time"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
	"github.com/friendsincode/grimnir_radio/internal/automix/curves"
	"github.com/friendsincode/grimnir_radio/internal/automix/hostapi"
)

func multiband(n int, low, mid, high float64) []analyzer.MultibandWindow {
	out := make([]analyzer.MultibandWindow, n)
	for i := range out {
		out[i] = analyzer.MultibandWindow{Low: low, Mid: mid, High: high}
	}
	return out
}

func baseSettings() hostapi.Settings {
	return hostapi.Settings{
		Enabled:           true,
		CrossfadeDuration: 6 * time.Second,
		TransitionStyle:   curves.EqualPower,
		SmartCurve:        true,
		VolumeNorm:        true,
	}
}

func TestComputeCrossfadeParamsOutroAvailable(t *testing.T) {
	current := analyzer.TrackAnalysis{
		Duration: 200,
		Energy:   analyzer.EnergyInfo{TrailingSilence: 0.5},
		Outro: analyzer.OutroClassification{
			Type:                    analyzer.OutroMusicalOutro,
			Confidence:              0.9,
			SuggestedCrossfadeStart: 180,
		},
		OutroMultiband: multiband(8, 0.1, 0.1, 0.1),
		IntroMultiband: multiband(8, 0.1, 0.1, 0.1),
	}
	next := analyzer.TrackAnalysis{
		Duration:       180,
		Volume:         analyzer.VolumeInfo{GainAdjustment: 1.1},
		IntroMultiband: multiband(8, 0.1, 0.1, 0.1),
	}

	p := computeCrossfadeParams(current, true, next, true, baseSettings(), DefaultProfiles())

	if !p.OutroKnown {
		t.Fatalf("expected outro known")
	}
	if p.CrossfadeStartTime <= 0 || p.CrossfadeStartTime > 198 {
		t.Fatalf("crossfadeStartTime out of range: %v", p.CrossfadeStartTime)
	}
	if p.Duration <= 0 {
		t.Fatalf("expected positive duration, got %v", p.Duration)
	}
	if p.IncomingGainAdjustment < 0.5 || p.IncomingGainAdjustment > 2.0 {
		t.Fatalf("gain adjustment out of clamp range: %v", p.IncomingGainAdjustment)
	}
}

func TestComputeCrossfadeParamsNoAnalysis(t *testing.T) {
	current := analyzer.TrackAnalysis{Duration: 200}
	p := computeCrossfadeParams(current, false, analyzer.TrackAnalysis{}, false, baseSettings(), DefaultProfiles())

	if p.OutroKnown {
		t.Fatalf("expected outro unknown in no-analysis tier")
	}
	wantStart := 200.0 - effectiveCrossfadeDuration(6*time.Second, 200).Seconds()
	if p.CrossfadeStartTime != wantStart {
		t.Fatalf("crossfadeStartTime = %v, want %v", p.CrossfadeStartTime, wantStart)
	}
}

func TestComputeCrossfadeParamsEnergyOnlyFadeOut(t *testing.T) {
	current := analyzer.TrackAnalysis{
		Duration: 200,
		Energy: analyzer.EnergyInfo{
			IsFadeOut:   true,
			OutroOffset: 10,
		},
	}
	p := computeCrossfadeParams(current, true, analyzer.TrackAnalysis{}, false, baseSettings(), DefaultProfiles())

	if p.OutroType != analyzer.OutroFadeOut {
		t.Fatalf("expected fadeOut outro type in energy-only tier, got %v", p.OutroType)
	}
	if !p.FadeInOnly {
		t.Fatalf("expected fadeInOnly for fadeOut outro type")
	}
}

func TestEffectiveCrossfadeDurationClampsToQuarterSongLength(t *testing.T) {
	d := effectiveCrossfadeDuration(20*time.Second, 40)
	if d != 10*time.Second {
		t.Fatalf("effectiveCrossfadeDuration = %v, want 10s", d)
	}

	d = effectiveCrossfadeDuration(500*time.Millisecond, 400)
	if d != 2*time.Second {
		t.Fatalf("effectiveCrossfadeDuration floor = %v, want 2s", d)
	}
}

func TestFinalizeCrossfadeParamsOutgoingEndedEarly(t *testing.T) {
	p := finalizeCrossfadeParams(CrossfadeParams{Duration: 8 * time.Second}, 200, 190, true)
	if p.Duration != 500*time.Millisecond || !p.FadeInOnly {
		t.Fatalf("expected forced 500ms fadeInOnly override, got %+v", p)
	}
}

func TestFinalizeCrossfadeParamsClampsToRemainingContent(t *testing.T) {
	p := finalizeCrossfadeParams(CrossfadeParams{Duration: 8 * time.Second}, 200, 197, false)
	if p.Duration != 3*time.Second {
		t.Fatalf("expected duration clamped to 3s remaining, got %v", p.Duration)
	}
}

func TestComputeSpectralCrossfadeGatesOnMinimumDiff(t *testing.T) {
	outro := multiband(8, 0.1, 0.1, 0.1)
	intro := multiband(8, 0.1001, 0.1001, 0.1001)
	ok, _ := computeSpectralCrossfade(outro, intro)
	if ok {
		t.Fatalf("expected no spectral crossfade for negligible diff")
	}

	intro2 := multiband(8, 0.2, 0.2, 0.2)
	ok2, data := computeSpectralCrossfade(outro, intro2)
	if !ok2 {
		t.Fatalf("expected spectral crossfade for a clear diff")
	}
	if data.OutTargetDb[0] <= 0 {
		t.Fatalf("expected positive outTargetDb low band, got %v", data.OutTargetDb[0])
	}
}
