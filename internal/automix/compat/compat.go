/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package compat implements CompatibilityScorer: BPM/intensity/loudness/
// spectral sub-scores over two tracks' analyses, combined into an overall
// score, and the deterministic TransitionEffects strategy derived from it.
package compat

import (
	"math"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
	"github.com/friendsincode/grimnir_radio/internal/automix/curves"
	"github.com/friendsincode/grimnir_radio/internal/automix/effects"
)

// Weights assigns relative importance to the four sub-scores; they need
// not sum to 1 (Score normalizes).
type Weights struct {
	BPM, Intensity, Loudness, Spectral float64
}

// DefaultWeights is the overall-score weighting: 0.15 bpm + 0.30 intensity
// + 0.20 loudness + 0.35 spectral.
var DefaultWeights = Weights{BPM: 0.15, Intensity: 0.30, Loudness: 0.20, Spectral: 0.35}

// Score is the four sub-scores plus the weighted overall.
type Score struct {
	BPM, Intensity, Loudness, Spectral, Overall float64
}

var bpmRatios = []float64{1, 2, 0.5, 1.5, 2.0 / 3.0}

// bpmScore finds the best-matching ratio between bpm1 and bpm2 and scores
// the residual diff: <5% -> 1, >20% -> 0, linear in between.
func bpmScore(known1, known2 bool, bpm1, bpm2 float64) float64 {
	if !known1 || !known2 || bpm1 <= 0 || bpm2 <= 0 {
		return 0.5
	}
	best := math.Inf(1)
	for _, r := range bpmRatios {
		diff := math.Abs(bpm1*r-bpm2) / bpm2
		if diff < best {
			best = diff
		}
	}
	switch {
	case best < 0.05:
		return 1
	case best > 0.20:
		return 0
	default:
		return 1 - (best-0.05)/(0.20-0.05)
	}
}

func windowTotal(w analyzer.MultibandWindow) float64 { return w.Low + w.Mid + w.High }

func averageTail(windows []analyzer.MultibandWindow, n int, fromEnd bool) float64 {
	if len(windows) == 0 {
		return 0
	}
	var slice []analyzer.MultibandWindow
	if fromEnd {
		if n > len(windows) {
			n = len(windows)
		}
		slice = windows[len(windows)-n:]
	} else {
		if n > len(windows) {
			n = len(windows)
		}
		slice = windows[:n]
	}
	var sum float64
	for _, w := range slice {
		sum += windowTotal(w)
	}
	return sum / float64(len(slice))
}

// intensityScore compares the log-ratio of averaged multiband energy over
// the last 8 outro windows vs the first 8 intro windows: < 0.5 octave -> 1,
// > 2 octaves -> 0, linear between.
func intensityScore(outro, intro []analyzer.MultibandWindow) float64 {
	outAvg := averageTail(outro, 8, true)
	inAvg := averageTail(intro, 8, false)
	if outAvg <= 0 || inAvg <= 0 {
		return 0.5
	}
	octaves := math.Abs(math.Log2(inAvg / outAvg))
	switch {
	case octaves < 0.5:
		return 1
	case octaves > 2:
		return 0
	default:
		return 1 - (octaves-0.5)/(2-0.5)
	}
}

// loudnessScore scores |LUFS1 - LUFS2|: < 2dB -> 1, > 8dB -> 0, linear.
func loudnessScore(lufs1, lufs2 float64, known1, known2 bool) float64 {
	if !known1 || !known2 {
		return 0.5
	}
	diff := math.Abs(lufs1 - lufs2)
	switch {
	case diff < 2:
		return 1
	case diff > 8:
		return 0
	default:
		return 1 - (diff-2)/(8-2)
	}
}

func spectralScore(fp1, fp2 []float64) float64 {
	if len(fp1) == 0 || len(fp2) == 0 {
		return 0.5
	}
	return analyzer.SpectralSimilarity(fp1, fp2)
}

// ComputeScore computes all four sub-scores and the weighted overall for
// the outgoing (a) and incoming (b) track analyses.
func ComputeScore(a, b analyzer.TrackAnalysis, w Weights) Score {
	bpm := bpmScore(a.BPM.Known, b.BPM.Known, a.BPM.BPM, b.BPM.BPM)
	intensity := intensityScore(a.OutroMultiband, b.IntroMultiband)
	loudness := loudnessScore(a.Volume.EstimatedLUFS, b.Volume.EstimatedLUFS, true, true)
	spectral := spectralScore(a.Fingerprint, b.Fingerprint)

	total := w.BPM + w.Intensity + w.Loudness + w.Spectral
	if total <= 0 {
		total = 1
	}
	overall := (bpm*w.BPM + intensity*w.Intensity + loudness*w.Loudness + spectral*w.Spectral) / total

	return Score{BPM: bpm, Intensity: intensity, Loudness: loudness, Spectral: spectral, Overall: overall}
}

// ShapeOverride adjusts the per-outro-type curve shape profile.
type ShapeOverride struct {
	InShape, OutShape float64
}

// Strategy is the deterministic effects/curve plan derived from a Score
// and the outgoing track's outro classification.
type Strategy struct {
	DurationMultiplier   float64
	UseReverbTail        bool
	UseNoiseRiser        bool
	UseFilterSweep       bool
	FilterSweepIntensity float64
	UseEffects           bool
	RecommendedCurve     curves.Curve
	HasShapeOverride     bool
	ShapeOverride        ShapeOverride
}

// ComputeTransitionStrategy derives the effects/curve plan from score and
// outroType per the spec's deterministic rules.
func ComputeTransitionStrategy(score Score, outroType analyzer.OutroType) Strategy {
	s := Strategy{
		DurationMultiplier: 0.85 + 0.45*(1-score.Overall),
	}

	switch outroType {
	case analyzer.OutroHard, analyzer.OutroMusicalOutro, analyzer.OutroSustained:
		s.UseReverbTail = true
	}

	s.UseNoiseRiser = score.Overall < 0.4

	s.UseFilterSweep = score.Spectral < 0.35 || score.Overall < 0.3
	s.FilterSweepIntensity = clamp(1-2*score.Spectral, 0, 1)
	if s.UseFilterSweep {
		s.UseReverbTail = true
	}

	if score.Overall < 0.3 {
		s.RecommendedCurve = curves.SCurve
		s.HasShapeOverride = true
		s.ShapeOverride = ShapeOverride{InShape: 1.15, OutShape: 0.95}
	}

	s.UseEffects = s.UseReverbTail || s.UseNoiseRiser || s.UseFilterSweep

	return s
}

// ToEffectsOptions adapts a Strategy into effects.Options for a specific
// crossfade instance.
func (s Strategy) ToEffectsOptions(fadeInOnly bool, bpm float64) effects.Options {
	return effects.Options{
		ReverbTail:      s.UseReverbTail,
		NoiseRiser:      s.UseNoiseRiser,
		FilterSweep:     s.UseFilterSweep,
		FilterIntensity: s.FilterSweepIntensity,
		FadeInOnly:      fadeInOnly,
		BPM:             bpm,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
