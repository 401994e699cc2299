/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package compat

import (
	"math"
	"testing"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
)

func TestComputeScoreIdenticalTracksHighOverall(t *testing.T) {
	fp := make([]float64, 24)
	for i := range fp {
		fp[i] = float64(i + 1)
	}
	multiband := make([]analyzer.MultibandWindow, 10)
	for i := range multiband {
		multiband[i] = analyzer.MultibandWindow{Low: 1, Mid: 1, High: 1}
	}
	a := analyzer.TrackAnalysis{
		Volume:         analyzer.VolumeInfo{EstimatedLUFS: -14},
		BPM:            analyzer.BPMInfo{Known: true, BPM: 128},
		Fingerprint:    fp,
		OutroMultiband: multiband,
	}
	b := a
	b.IntroMultiband = multiband

	score := ComputeScore(a, b, DefaultWeights)
	if score.BPM != 1 {
		t.Fatalf("bpm score = %v, want 1", score.BPM)
	}
	if score.Spectral != 1 {
		t.Fatalf("spectral score = %v, want 1", score.Spectral)
	}
	if score.Overall < 0.9 {
		t.Fatalf("overall = %v, want close to 1", score.Overall)
	}
}

func TestComputeTransitionStrategyLowScore(t *testing.T) {
	score := Score{BPM: 0, Intensity: 0, Loudness: 0, Spectral: 0.1, Overall: 0.2}
	strategy := ComputeTransitionStrategy(score, analyzer.OutroHard)

	if !strategy.UseNoiseRiser {
		t.Fatalf("expected noise riser for low overall score")
	}
	if !strategy.UseFilterSweep {
		t.Fatalf("expected filter sweep for low spectral score")
	}
	if !strategy.UseReverbTail {
		t.Fatalf("expected reverb tail forced on by filter sweep")
	}
	if !strategy.HasShapeOverride {
		t.Fatalf("expected shape override for overall < 0.3")
	}
	if math.Abs(strategy.DurationMultiplier-(0.85+0.45*0.8)) > 1e-9 {
		t.Fatalf("duration multiplier = %v", strategy.DurationMultiplier)
	}
}

func TestComputeTransitionStrategyHighScore(t *testing.T) {
	score := Score{BPM: 1, Intensity: 1, Loudness: 1, Spectral: 1, Overall: 1}
	strategy := ComputeTransitionStrategy(score, analyzer.OutroFadeOut)

	if strategy.UseNoiseRiser || strategy.UseFilterSweep || strategy.UseReverbTail {
		t.Fatalf("expected no effects at overall=1 for a fadeOut outro")
	}
	if strategy.UseEffects {
		t.Fatalf("expected no effects at all at overall=1 for fadeOut")
	}
	if strategy.HasShapeOverride {
		t.Fatalf("expected no shape override at high score")
	}
}
