/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package statemachine

import (
	"math"
	"time"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
	"github.com/friendsincode/grimnir_radio/internal/automix/compat"
	"github.com/friendsincode/grimnir_radio/internal/automix/curves"
	"github.com/friendsincode/grimnir_radio/internal/automix/eq"
	"github.com/friendsincode/grimnir_radio/internal/automix/hostapi"
)

// CrossfadeParams is the fully-resolved per-crossfade plan, computed by
// computeCrossfadeParams and refined by finalizeCrossfadeParams.
type CrossfadeParams struct {
	CrossfadeStartTime float64 // seconds from the outgoing track's start
	Duration           time.Duration
	OutroType          analyzer.OutroType
	OutroKnown         bool

	Curve      curves.Curve
	InShape    float64
	OutShape   float64
	FadeInOnly bool

	IncomingGainAdjustment float64
	SpectralCrossfade      bool
	SpectralData           eq.Data

	Strategy compat.Strategy
	Score    compat.Score
}

// effectiveCrossfadeDuration clamps the configured duration to
// [2, songDuration/4].
func effectiveCrossfadeDuration(configured time.Duration, songDuration float64) time.Duration {
	max := time.Duration(songDuration / 4 * float64(time.Second))
	lo := 2 * time.Second
	d := configured
	if d < lo {
		d = lo
	}
	if d > max && max > lo {
		d = max
	}
	return d
}

// computeCrossfadeParams implements the three-tier selection described in
// SPEC_FULL.md §4.10: outro-available, energy-only, and no-analysis.
func computeCrossfadeParams(current analyzer.TrackAnalysis, hasAnalysis bool, next analyzer.TrackAnalysis, hasNext bool, settings hostapi.Settings, profiles map[analyzer.OutroType]OutroProfile) CrossfadeParams {
	effectiveEnd := current.Duration - current.Energy.TrailingSilence
	effDur := effectiveCrossfadeDuration(settings.CrossfadeDuration, current.Duration)

	p := CrossfadeParams{
		Curve:    settings.TransitionStyle,
		InShape:  1,
		OutShape: 1,
	}

	switch {
	case hasAnalysis && current.Outro.Type != "":
		p.OutroKnown = true
		p.OutroType = current.Outro.Type

		if current.Outro.Confidence >= 0.75 {
			p.CrossfadeStartTime = current.Outro.SuggestedCrossfadeStart
		} else {
			p.CrossfadeStartTime = effectiveEnd - effDur.Seconds()
		}
		p.Duration = shapeOutroDuration(p.OutroType, effDur, p.CrossfadeStartTime, effectiveEnd, current.Outro.MusicalEndOffset, current.Outro.Confidence)

	case hasAnalysis:
		p.OutroKnown = true
		if current.Energy.IsFadeOut {
			p.OutroType = analyzer.OutroFadeOut
		} else {
			p.OutroType = analyzer.OutroHard
		}
		start := current.Duration - current.Energy.OutroOffset
		if current.Energy.IsFadeOut {
			start += current.Energy.OutroOffset * 0.5
		}
		p.CrossfadeStartTime = start
		p.Duration = effDur

	default:
		p.OutroKnown = false
		p.CrossfadeStartTime = effectiveEnd - effDur.Seconds()
		p.Duration = effDur
	}

	// Beat-align, except for the outro types that already land on a
	// musically-meaningful point.
	if settings.BeatAlign && hasAnalysis && len(current.BPM.BeatGrid) > 0 && !noBeatAlign(p.OutroType) {
		p.CrossfadeStartTime = analyzer.FindNearestBeat(current.BPM.BeatGrid, p.CrossfadeStartTime, current.OutroStartTime)
	}

	if p.CrossfadeStartTime < 0 {
		p.CrossfadeStartTime = 0
	}
	if max := effectiveEnd - 2; p.CrossfadeStartTime > max && max > 0 {
		p.CrossfadeStartTime = max
	}

	var score compat.Score
	if hasAnalysis && hasNext {
		score = compat.ComputeScore(current, next, compat.DefaultWeights)
	} else {
		score = compat.Score{Overall: 0.5}
	}
	strategy := compat.ComputeTransitionStrategy(score, p.OutroType)
	p.Strategy = strategy
	p.Score = score

	p.Duration = time.Duration(float64(p.Duration) * strategy.DurationMultiplier)

	if hasAnalysis {
		p.Duration = applyEnergyContrast(p.Duration, current.OutroMultiband, current.IntroMultiband, settings.CrossfadeDuration)
	}

	applyCurveProfile(&p, settings, profiles)

	if settings.VolumeNorm && hasNext {
		p.IncomingGainAdjustment = clamp(next.Volume.GainAdjustment, 0.5, 2.0)
	} else {
		p.IncomingGainAdjustment = 1
	}

	if settings.SmartCurve && !p.FadeInOnly && !strategy.UseFilterSweep && hasAnalysis && hasNext {
		p.SpectralCrossfade, p.SpectralData = computeSpectralCrossfade(current.OutroMultiband, next.IntroMultiband)
	}

	return p
}

func noBeatAlign(t analyzer.OutroType) bool {
	switch t {
	case analyzer.OutroFadeOut, analyzer.OutroReverbTail, analyzer.OutroSustained, analyzer.OutroLoopFade:
		return true
	}
	return false
}

// shapeOutroDuration applies the per-outroType duration shaping rules.
func shapeOutroDuration(outroType analyzer.OutroType, effDur time.Duration, crossfadeStartTime, effectiveEnd, musicalEndOffset, confidence float64) time.Duration {
	remaining := effectiveEnd - crossfadeStartTime
	switch outroType {
	case analyzer.OutroHard:
		d := clamp(effDur.Seconds(), 2, 3)
		return time.Duration(d * float64(time.Second))
	case analyzer.OutroFadeOut, analyzer.OutroLoopFade:
		d := math.Min(0.8*remaining, effDur.Seconds())
		return time.Duration(d * float64(time.Second))
	case analyzer.OutroReverbTail:
		d := math.Min(musicalEndOffset, effDur.Seconds())
		return time.Duration(d * float64(time.Second))
	case analyzer.OutroSlowDown:
		d := math.Min(0.7*remaining, effDur.Seconds())
		return time.Duration(d * float64(time.Second))
	case analyzer.OutroSustained:
		d := math.Min(musicalEndOffset+2, effDur.Seconds())
		return time.Duration(d * float64(time.Second))
	case analyzer.OutroMusicalOutro:
		d := math.Min(0.6*remaining, effDur.Seconds())
		return time.Duration(d * float64(time.Second))
	default: // silence, noiseEnd
		return effDur
	}
}

// applyEnergyContrast scales duration based on the ratio between average
// outro and intro multiband energy, never exceeding the configured
// crossfadeDuration.
func applyEnergyContrast(duration time.Duration, outro, intro []analyzer.MultibandWindow, configured time.Duration) time.Duration {
	outAvg := avgWindowTotal(outro, 8, true)
	inAvg := avgWindowTotal(intro, 8, false)
	if outAvg <= 0 || inAvg <= 0 {
		return duration
	}
	contrast := outAvg / inAvg
	mult := 1.0
	switch {
	case contrast > 6:
		mult = 1.3
	case contrast > 3:
		mult = 1.2
	case contrast < 1.0/3.0:
		mult = 1.15
	}
	if mult == 1.0 {
		return duration
	}
	scaled := time.Duration(float64(duration) * mult)
	if scaled > configured {
		return configured
	}
	return scaled
}

func avgWindowTotal(windows []analyzer.MultibandWindow, n int, fromEnd bool) float64 {
	if len(windows) == 0 {
		return 0
	}
	if n > len(windows) {
		n = len(windows)
	}
	var slice []analyzer.MultibandWindow
	if fromEnd {
		slice = windows[len(windows)-n:]
	} else {
		slice = windows[:n]
	}
	var sum float64
	for _, w := range slice {
		sum += w.Low + w.Mid + w.High
	}
	return sum / float64(len(slice))
}

// applyCurveProfile overlays the per-outroType curve/shape profile when
// smart curve is enabled and the outro classification is confident,
// otherwise falls back to the strategy's recommended curve.
func applyCurveProfile(p *CrossfadeParams, settings hostapi.Settings, profiles map[analyzer.OutroType]OutroProfile) {
	p.FadeInOnly = p.OutroType == analyzer.OutroFadeOut || p.OutroType == analyzer.OutroLoopFade

	if settings.SmartCurve && p.OutroKnown {
		profile, ok := profiles[p.OutroType]
		if ok {
			p.Curve = profile.Curve
			p.FadeInOnly = profile.FadeInOnly
			if p.Strategy.HasShapeOverride {
				p.InShape = clamp((profile.InShape+p.Strategy.ShapeOverride.InShape)/2, 0.7, 1.3)
				p.OutShape = clamp((profile.OutShape+p.Strategy.ShapeOverride.OutShape)/2, 0.7, 1.3)
			} else {
				p.InShape = clamp(profile.InShape, 0.7, 1.3)
				p.OutShape = clamp(profile.OutShape, 0.7, 1.3)
			}
			return
		}
	}

	if !p.OutroKnown && p.Strategy.RecommendedCurve != "" {
		p.Curve = p.Strategy.RecommendedCurve
	}
	if p.Strategy.HasShapeOverride {
		p.InShape = clamp(p.Strategy.ShapeOverride.InShape, 0.7, 1.3)
		p.OutShape = clamp(p.Strategy.ShapeOverride.OutShape, 0.7, 1.3)
	}
}

// computeSpectralCrossfade derives per-band target dB deltas between the
// outgoing outro tail and the incoming intro head, clamped to ±6dB, with
// a ≥1.5dB-somewhere gate and the low-band bass-swap rule.
func computeSpectralCrossfade(outro, intro []analyzer.MultibandWindow) (bool, eq.Data) {
	outroAvg := avgBand(outro, 8, true)
	introAvg := avgBand(intro, 8, false)

	var diff [3]float64
	maxAbs := 0.0
	for i := 0; i < 3; i++ {
		diff[i] = clamp(10*math.Log10(safeDiv(introAvg[i], outroAvg[i])), -6, 6)
		if math.Abs(diff[i]) > maxAbs {
			maxAbs = math.Abs(diff[i])
		}
	}
	if maxAbs < 1.5 {
		return false, eq.Data{}
	}

	data := eq.Data{
		OutTargetDb: [3]float64{diff[0], diff[1], diff[2]},
		InInitialDb: [3]float64{-diff[0], -diff[1], -diff[2]},
		BassSwapLow: outroAvg[0] > 0.01 && introAvg[0] > 0.01 && math.Abs(diff[0]) >= 2.0,
	}
	return true, data
}

func avgBand(windows []analyzer.MultibandWindow, n int, fromEnd bool) [3]float64 {
	if len(windows) == 0 {
		return [3]float64{}
	}
	if n > len(windows) {
		n = len(windows)
	}
	var slice []analyzer.MultibandWindow
	if fromEnd {
		slice = windows[len(windows)-n:]
	} else {
		slice = windows[:n]
	}
	var sum [3]float64
	for _, w := range slice {
		sum[0] += w.Low
		sum[1] += w.Mid
		sum[2] += w.High
	}
	n2 := float64(len(slice))
	return [3]float64{sum[0] / n2, sum[1] / n2, sum[2] / n2}
}

func safeDiv(a, b float64) float64 {
	if b <= 0 {
		return 1
	}
	return a / b
}

// finalizeCrossfadeParams applies the final safety clamp to the remaining
// content at the moment the async crossfade setup completes, against the
// outgoing sound's live playback position.
func finalizeCrossfadeParams(p CrossfadeParams, effectiveEnd, currentOutgoingTime float64, outgoingEndedEarly bool) CrossfadeParams {
	if outgoingEndedEarly {
		p.Duration = 500 * time.Millisecond
		p.FadeInOnly = true
		return p
	}
	remaining := effectiveEnd - currentOutgoingTime
	if remaining < 0.5 {
		remaining = 0.5
	}
	if p.Duration.Seconds() > remaining {
		p.Duration = time.Duration(remaining * float64(time.Second))
	}
	return p
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
