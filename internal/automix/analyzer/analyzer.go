/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package analyzer implements TrackAnalyzer: offline acoustic analysis of
// a decoded track producing loudness, energy, multiband, fingerprint, BPM,
// and outro-classification data for the TransitionStateMachine.
//
// Grounded on internal/mediaengine/analyzer.go's subprocess-decode-then-
// compute shape; the numerical core is grounded on vividhyeok-djbot's
// dsp.go, reimplemented against internal/automix/dsp.
package analyzer

import (
	"context"
	"math"
	"time"

	"github.com/friendsincode/grimnir_radio/internal/automix/dsp"
)

const (
	silenceRMSThreshold = 0.003
	frameSamples        = 2048
	hopSamples          = 1024
	onsetFrameSamples   = 1024
	onsetHopSamples     = 512
	lowHighHz           = 300.0
	midHighHz           = 4000.0
	multibandWindowSec  = 0.25
	fingerprintBands    = 24
	analysisTimeout     = 30 * time.Second
)

// Options configures analyzeTrack.
type Options struct {
	AnalyzeBPM bool
}

// AnalyzeTrack decodes blob via dec and runs the full analysis pipeline,
// bounded to a 30s timeout.
func AnalyzeTrack(ctx context.Context, dec PCMDecoder, blob []byte, opts Options) (TrackAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	samples, err := dec.Decode(ctx, blob)
	if err != nil {
		return TrackAnalysis{}, err
	}
	return analyzeSamples(samples, AnalysisSampleRate, opts), nil
}

// analyzeSamples runs the pure-math pipeline over mono PCM at sampleRate.
func analyzeSamples(samples []float64, sampleRate int, opts Options) TrackAnalysis {
	duration := float64(len(samples)) / float64(sampleRate)

	vol := computeVolume(samples)
	energy := computeEnergy(samples, sampleRate)

	outroRegionSec := math.Min(20, duration)
	introRegionSec := math.Min(20, duration)
	outroStart := math.Max(0, duration-outroRegionSec)
	outroSamples := samples[int(outroStart*float64(sampleRate)):]
	introEnd := int(introRegionSec * float64(sampleRate))
	if introEnd > len(samples) {
		introEnd = len(samples)
	}
	introSamples := samples[:introEnd]

	outroBands := multibandWindows(outroSamples, sampleRate)
	introBands := multibandWindows(introSamples, sampleRate)

	fp := fingerprint(samples, sampleRate)

	var bpm BPMInfo
	if opts.AnalyzeBPM {
		bpm = computeBPM(samples, sampleRate, duration)
	}

	outro := classifyOutro(energy, outroBands, bpm, duration)
	intro := computeIntroCharacter(energy, introBands)

	return TrackAnalysis{
		Duration:       duration,
		Volume:         vol,
		Energy:         energy,
		OutroMultiband: outroBands,
		IntroMultiband: introBands,
		Fingerprint:    fp,
		BPM:            bpm,
		Intro:          intro,
		Outro:          outro,
		OutroStartTime: outroStart,
		IntroStartTime: 0,
	}
}

// computeIntroCharacter derives the quiet-intro/build-up/energy-ratio
// signals from the already-computed energy envelope and intro multiband
// windows; quietIntroDuration reuses energy.IntroOffset (first second
// exceeding 0.4*avg), since both describe the same "intro is still quiet"
// boundary.
func computeIntroCharacter(energy EnergyInfo, introBands []MultibandWindow) IntroCharacter {
	content := energy.EnergyPerSecond
	quiet := energy.IntroOffset

	build := 0.0
	for i := int(quiet); i < len(content); i++ {
		if content[i] >= 0.8 {
			build = float64(i) - quiet
			break
		}
	}
	if build < 0 {
		build = 0
	}

	introSeconds := len(content)
	if introSeconds > 20 {
		introSeconds = 20
	}
	ratio := 0.0
	if energy.AverageEnergy > 0 && introSeconds > 0 {
		ratio = meanOf(content[:introSeconds]) / energy.AverageEnergy
	}

	return IntroCharacter{
		QuietIntroDuration:  quiet,
		EnergyBuildDuration: build,
		IntroEnergyRatio:    ratio,
		MultibandEnergy:     introBands,
	}
}

func computeVolume(samples []float64) VolumeInfo {
	peak := dsp.PeakAbs(samples)
	rms := dsp.RMS(samples)
	lufs := -70.0
	if rms > 0 {
		lufs = 20*math.Log10(rms/0.707) - 0.691
		if lufs < -70 {
			lufs = -70
		}
	}
	gainAdj := math.Pow(10, (-14-lufs)/20)
	gainAdj = clamp(gainAdj, 0.1, 3.0)
	return VolumeInfo{Peak: peak, RMS: rms, EstimatedLUFS: lufs, GainAdjustment: gainAdj}
}

func computeEnergy(samples []float64, sampleRate int) EnergyInfo {
	perSecond := dsp.FrameRMS(samples, sampleRate)
	n := len(perSecond)

	// trailingSilence: scan 100ms windows from the end.
	winSamples := sampleRate / 10
	if winSamples < 1 {
		winSamples = 1
	}
	trailing := 0.0
	for end := len(samples); end > 0; end -= winSamples {
		start := end - winSamples
		if start < 0 {
			start = 0
		}
		if dsp.RMS(samples[start:end]) >= silenceRMSThreshold {
			break
		}
		trailing += 0.1
	}
	trailing = math.Round(trailing*10) / 10

	contentSeconds := n - int(trailing)
	if contentSeconds < 1 {
		contentSeconds = n
	}
	if contentSeconds > n {
		contentSeconds = n
	}
	content := perSecond[:contentSeconds]

	maxEnergy := 0.0
	for _, e := range content {
		if e > maxEnergy {
			maxEnergy = e
		}
	}
	normalized := make([]float64, n)
	if maxEnergy > 0 {
		for i, e := range perSecond {
			normalized[i] = e / maxEnergy
		}
	}
	normContent := normalized[:contentSeconds]

	avg := meanOf(normContent)

	// outroOffset: last second where normalized energy exceeds 0.3*avg.
	lastActive := -1
	for i := contentSeconds - 1; i >= 0; i-- {
		if normalized[i] > 0.3*avg {
			lastActive = i
			break
		}
	}
	outroOffset := 3.0
	if lastActive >= 0 {
		outroOffset = float64(contentSeconds-1-lastActive) + trailing
		if outroOffset < 3 {
			outroOffset = 3
		}
	}

	// introOffset: first second where energy exceeds 0.4*avg.
	introOffset := 0.0
	for i := 0; i < contentSeconds; i++ {
		if normalized[i] > 0.4*avg {
			introOffset = float64(i)
			break
		}
	}
	introOffset = clamp(introOffset, 0, 10)

	isFadeOut := detectFadeOut(normalized, contentSeconds, int(outroOffset))

	return EnergyInfo{
		EnergyPerSecond: normalized,
		AverageEnergy:   avg,
		TrailingSilence: trailing,
		OutroOffset:     outroOffset,
		IntroOffset:     introOffset,
		IsFadeOut:       isFadeOut,
	}
}

// detectFadeOut checks whether the outro region's energy decays
// monotonically-ish from start to end with a bounded end/start ratio.
func detectFadeOut(normalized []float64, contentSeconds, outroOffsetSeconds int) bool {
	regionStart := contentSeconds - outroOffsetSeconds
	if regionStart < 0 {
		regionStart = 0
	}
	region := normalized[regionStart:contentSeconds]
	if len(region) < 3 {
		return false
	}
	start := region[0]
	end := region[len(region)-1]
	mid := region[len(region)/2]
	if start <= 0 {
		return false
	}
	ratio := end / start
	if ratio >= 0.3 {
		return false
	}
	// midpoint should lie between end and start (monotonic decay).
	return mid <= start && mid >= end
}

// multibandWindows splits samples into 250ms windows and computes
// low/mid/high band energy for each via FFT magnitude partitioning at
// 300Hz and 4kHz.
func multibandWindows(samples []float64, sampleRate int) []MultibandWindow {
	winSamples := int(multibandWindowSec * float64(sampleRate))
	if winSamples < 1 {
		winSamples = 1
	}
	n := dsp.NextPow2(winSamples)
	window := dsp.HannWindow(winSamples)

	var out []MultibandWindow
	for start := 0; start+winSamples <= len(samples); start += winSamples {
		frame := make([]float64, winSamples)
		for i := 0; i < winSamples; i++ {
			frame[i] = samples[start+i] * window[i]
		}
		mag := dsp.FFTMagnitude(frame, n)
		out = append(out, bandSplitEnergy(mag, sampleRate))
	}
	return out
}

func bandSplitEnergy(mag []float64, sampleRate int) MultibandWindow {
	if len(mag) < 2 {
		return MultibandWindow{}
	}
	nyquist := float64(sampleRate) / 2
	binHz := nyquist / float64(len(mag)-1)
	lowBin := int(lowHighHz / binHz)
	midBin := int(midHighHz / binHz)

	var low, mid, high float64
	for i, m := range mag {
		e := m * m
		switch {
		case i < lowBin:
			low += e
		case i < midBin:
			mid += e
		default:
			high += e
		}
	}
	return MultibandWindow{Low: low, Mid: mid, High: high}
}

// fingerprint computes the 24-band log-spaced spectral fingerprint as the
// average magnitude spectrum across overlapping frames.
func fingerprint(samples []float64, sampleRate int) []float64 {
	n := dsp.NextPow2(frameSamples)
	window := dsp.HannWindow(frameSamples)
	sum := make([]float64, n/2+1)
	count := 0

	for start := 0; start+frameSamples <= len(samples); start += hopSamples {
		frame := make([]float64, frameSamples)
		for i := 0; i < frameSamples; i++ {
			frame[i] = samples[start+i] * window[i]
		}
		mag := dsp.FFTMagnitude(frame, n)
		for i, m := range mag {
			sum[i] += m
		}
		count++
	}
	if count == 0 {
		return make([]float64, fingerprintBands)
	}
	for i := range sum {
		sum[i] /= float64(count)
	}
	return dsp.LogSpacedFingerprint(sum, sampleRate, fingerprintBands)
}

// SpectralSimilarity is cosine similarity between two fingerprints.
func SpectralSimilarity(fp1, fp2 []float64) float64 {
	return dsp.CosineSimilarity(fp1, fp2)
}

// FindNearestBeat returns the nearest beat grid timestamp to target,
// shifted by analysisOffset, O(N).
func FindNearestBeat(beatGrid []float64, target, analysisOffset float64) float64 {
	return dsp.FindNearestBeat(beatGrid, target, analysisOffset)
}

func computeBPM(samples []float64, sampleRate int, duration float64) BPMInfo {
	novelty := dsp.OnsetEnvelope(samples, sampleRate, onsetFrameSamples, onsetHopSamples)
	noveltyRateHz := float64(sampleRate) / float64(onsetHopSamples)
	result := dsp.EstimateBPM(novelty, noveltyRateHz)
	if result.BPM <= 0 {
		return BPMInfo{}
	}
	grid := dsp.BeatGrid(novelty, noveltyRateHz, result.BPM, duration, 8)
	return BPMInfo{Known: true, BPM: result.BPM, Confidence: result.Confidence, BeatGrid: grid}
}

// spectralFluxSeries returns the frame-to-frame Euclidean distance between
// consecutive multiband windows' (low, mid, high) vectors.
func spectralFluxSeries(bands []MultibandWindow) []float64 {
	if len(bands) < 2 {
		return nil
	}
	flux := make([]float64, len(bands)-1)
	for i := 1; i < len(bands); i++ {
		dl := bands[i].Low - bands[i-1].Low
		dm := bands[i].Mid - bands[i-1].Mid
		dh := bands[i].High - bands[i-1].High
		flux[i-1] = math.Sqrt(dl*dl + dm*dm + dh*dh)
	}
	return flux
}

// shortTermLoudnessSeries converts each window's total band energy to dB,
// one entry per window.
func shortTermLoudnessSeries(bands []MultibandWindow) []float64 {
	out := make([]float64, len(bands))
	for i, w := range bands {
		total := w.Low + w.Mid + w.High
		if total <= 0 {
			out[i] = -70
			continue
		}
		out[i] = 10 * math.Log10(total)
	}
	return out
}

// isLoopFade detects a track engineered to loop seamlessly and only fade
// at the very last instant: the spectral content holds steady through the
// outro (low average flux) while the short-term loudness trajectory drops
// sharply only in its final window, rather than decaying gradually the
// way a fadeOut does.
func isLoopFade(flux, loudness []float64) bool {
	if len(flux) < 3 || len(loudness) < 4 {
		return false
	}
	if meanOf(flux) > 0.02 {
		return false
	}
	tailDrop := loudness[len(loudness)-2] - loudness[len(loudness)-1]
	priorDrop := 0.0
	for i := 1; i < len(loudness)-1; i++ {
		if d := loudness[i-1] - loudness[i]; d > priorDrop {
			priorDrop = d
		}
	}
	return tailDrop >= 6 && priorDrop < 3
}

// classifyOutro scores the outro region against several signals and
// produces a mutually exclusive classification, defaulting to "hard" at
// low confidence.
func classifyOutro(energy EnergyInfo, outroBands []MultibandWindow, bpm BPMInfo, duration float64) OutroClassification {
	if len(outroBands) == 0 {
		return OutroClassification{Type: OutroHard, Confidence: 0.3, SuggestedCrossfadeStart: math.Max(0, duration-6), MusicalEndOffset: 2}
	}

	flux := spectralFluxSeries(outroBands)
	loudness := shortTermLoudnessSeries(outroBands)

	n := len(outroBands)
	lastN := outroBands
	if n > 8 {
		lastN = outroBands[n-8:]
	}
	avgLow, avgMid, avgHigh := 0.0, 0.0, 0.0
	for _, w := range lastN {
		avgLow += w.Low
		avgMid += w.Mid
		avgHigh += w.High
	}
	cnt := float64(len(lastN))
	avgLow /= cnt
	avgMid /= cnt
	avgHigh /= cnt
	tailTotal := avgLow + avgMid + avgHigh

	firstTotal := outroBands[0].Low + outroBands[0].Mid + outroBands[0].High

	var (
		outroType  OutroType
		confidence float64
	)

	switch {
	case energy.TrailingSilence >= 1.5:
		outroType = OutroSilence
		confidence = clamp(energy.TrailingSilence/3, 0.5, 0.95)
	case isLoopFade(flux, loudness):
		outroType = OutroLoopFade
		confidence = 0.6
	case energy.IsFadeOut:
		outroType = OutroFadeOut
		confidence = 0.8
	case firstTotal > 0 && tailTotal/firstTotal < 0.15:
		outroType = OutroReverbTail
		confidence = 0.7
	case firstTotal > 0 && avgHigh/firstTotal < 0.05 && avgLow/firstTotal > 0.3:
		outroType = OutroNoiseEnd
		confidence = 0.55
	case bpm.Known && bpm.Confidence < 0.3:
		outroType = OutroSlowDown
		confidence = 0.5
	case firstTotal > 0 && tailTotal/firstTotal > 0.85:
		outroType = OutroSustained
		confidence = 0.6
	case firstTotal > 0 && tailTotal/firstTotal > 0.5:
		outroType = OutroMusicalOutro
		confidence = 0.55
	default:
		outroType = OutroHard
		confidence = 0.4
	}

	suggestedStart := math.Max(0, duration-energy.OutroOffset)
	musicalEndOffset := clamp(energy.OutroOffset*0.3, 1, 6)

	return OutroClassification{
		Type:                    outroType,
		Confidence:              confidence,
		SuggestedCrossfadeStart: suggestedStart,
		MusicalEndOffset:        musicalEndOffset,
		SpectralFlux:            flux,
		ShortTermLoudness:       loudness,
	}
}

func meanOf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
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
