/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package analyzer

import (
	"context"
	"math"
	"testing"
)

// toneWithFadeOut synthesizes a 440Hz tone at sampleRate for durationSec
// seconds, linearly faded to silence over the last fadeSec seconds.
func toneWithFadeOut(sampleRate int, durationSec, fadeSec float64) []float64 {
	n := int(durationSec * float64(sampleRate))
	fadeStart := n - int(fadeSec*float64(sampleRate))
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		amp := 0.8
		if i >= fadeStart {
			amp *= 1 - float64(i-fadeStart)/float64(n-fadeStart)
		}
		samples[i] = amp * math.Sin(2*math.Pi*440*t)
	}
	return samples
}

func TestAnalyzeTrackFadeOut(t *testing.T) {
	samples := toneWithFadeOut(AnalysisSampleRate, 20, 6)
	dec := &MemoryPCMDecoder{Samples: samples}

	result, err := AnalyzeTrack(context.Background(), dec, nil, Options{AnalyzeBPM: false})
	if err != nil {
		t.Fatalf("AnalyzeTrack: %v", err)
	}

	if result.Duration < 19.9 || result.Duration > 20.1 {
		t.Fatalf("duration = %v, want ~20", result.Duration)
	}
	if !result.Energy.IsFadeOut {
		t.Fatalf("expected IsFadeOut true for a tone faded to silence")
	}
	if result.Volume.RMS <= 0 {
		t.Fatalf("expected positive RMS")
	}
	if len(result.Fingerprint) != fingerprintBands {
		t.Fatalf("fingerprint bands = %d, want %d", len(result.Fingerprint), fingerprintBands)
	}
}

func TestAnalyzeTrackSilentTail(t *testing.T) {
	sampleRate := AnalysisSampleRate
	tone := make([]float64, sampleRate*5)
	for i := range tone {
		tone[i] = 0.5 * math.Sin(2*math.Pi*220*float64(i)/float64(sampleRate))
	}
	silence := make([]float64, sampleRate*3)
	samples := append(tone, silence...)

	dec := &MemoryPCMDecoder{Samples: samples}
	result, err := AnalyzeTrack(context.Background(), dec, nil, Options{})
	if err != nil {
		t.Fatalf("AnalyzeTrack: %v", err)
	}
	if result.Energy.TrailingSilence < 2.5 {
		t.Fatalf("TrailingSilence = %v, want >= ~2.5s", result.Energy.TrailingSilence)
	}
	if result.Outro.Type != OutroSilence {
		t.Fatalf("outro type = %v, want silence", result.Outro.Type)
	}
}

// loopedToneWithTailCut synthesizes a steady 440Hz tone that holds constant
// amplitude until the final fadeSec seconds, where it cuts sharply to
// silence over a much shorter window than a gradual fade-out would use —
// the "seamless loop, sudden fade at the very end" shape.
func loopedToneWithTailCut(sampleRate int, durationSec, tailCutSec float64) []float64 {
	n := int(durationSec * float64(sampleRate))
	cutStart := n - int(tailCutSec*float64(sampleRate))
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		amp := 0.8
		if i >= cutStart {
			amp *= 1 - float64(i-cutStart)/float64(n-cutStart)
		}
		samples[i] = amp * math.Sin(2*math.Pi*440*t)
	}
	return samples
}

func TestAnalyzeTrackLoopFade(t *testing.T) {
	samples := loopedToneWithTailCut(AnalysisSampleRate, 20, 0.2)
	dec := &MemoryPCMDecoder{Samples: samples}

	result, err := AnalyzeTrack(context.Background(), dec, nil, Options{})
	if err != nil {
		t.Fatalf("AnalyzeTrack: %v", err)
	}
	if result.Outro.Type != OutroLoopFade {
		t.Fatalf("outro type = %v, want loopFade", result.Outro.Type)
	}
	if len(result.Outro.SpectralFlux) == 0 {
		t.Fatalf("expected non-empty SpectralFlux series")
	}
	if len(result.Outro.ShortTermLoudness) != len(result.OutroMultiband) {
		t.Fatalf("ShortTermLoudness len = %d, want %d", len(result.Outro.ShortTermLoudness), len(result.OutroMultiband))
	}
}

func TestAnalyzeTrackIntroCharacter(t *testing.T) {
	samples := toneWithFadeOut(AnalysisSampleRate, 20, 6)
	dec := &MemoryPCMDecoder{Samples: samples}

	result, err := AnalyzeTrack(context.Background(), dec, nil, Options{})
	if err != nil {
		t.Fatalf("AnalyzeTrack: %v", err)
	}
	if result.Intro.IntroEnergyRatio <= 0 {
		t.Fatalf("expected positive IntroEnergyRatio, got %v", result.Intro.IntroEnergyRatio)
	}
	if len(result.Intro.MultibandEnergy) != len(result.IntroMultiband) {
		t.Fatalf("Intro.MultibandEnergy len = %d, want %d", len(result.Intro.MultibandEnergy), len(result.IntroMultiband))
	}
}

func TestSpectralSimilarityIdentical(t *testing.T) {
	fp := []float64{1, 2, 3, 4}
	if sim := SpectralSimilarity(fp, fp); math.Abs(sim-1) > 1e-9 {
		t.Fatalf("similarity of identical fingerprints = %v, want 1", sim)
	}
}

func TestFindNearestBeat(t *testing.T) {
	grid := []float64{0, 0.5, 1.0, 1.5, 2.0}
	got := FindNearestBeat(grid, 1.1, 0)
	if math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("FindNearestBeat = %v, want 1.0", got)
	}
}

func TestPoolSubmit(t *testing.T) {
	samples := make([]float64, AnalysisSampleRate*3)
	for i := range samples {
		samples[i] = 0.3 * math.Sin(2*math.Pi*330*float64(i)/float64(AnalysisSampleRate))
	}
	pool := NewPool(&MemoryPCMDecoder{Samples: samples}, 1)
	defer pool.Close()

	_, resultCh := pool.Submit(context.Background(), nil, Options{})
	res := <-resultCh
	if res.Err != nil {
		t.Fatalf("pool result error: %v", res.Err)
	}
	if res.Analysis.Duration < 2.9 {
		t.Fatalf("duration = %v, want ~3", res.Analysis.Duration)
	}
}
