/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package effects implements the three additive TransitionEffects: a
// synthesized convolution reverb tail, a bandpass noise riser, and an
// inline LPF/HPF filter sweep. Each is scoped to one crossfade and torn
// down completely on cleanup/cancel/pause-cancel.
package effects

import (
	"math"
	"math/rand"
	"time"

	"github.com/friendsincode/grimnir_radio/internal/automix/graph"
)

// Options configure which effects to instantiate and their parameters,
// mirroring the flags CompatibilityScorer.computeTransitionStrategy
// derives.
type Options struct {
	ReverbTail      bool
	NoiseRiser      bool
	FilterSweep     bool
	FilterIntensity float64 // [0,1]
	FadeInOnly      bool
	BPM             float64 // 0 means unknown
}

// automation is one tracked ramp: param will reach target at end unless
// paused first, in which case remaining records how much of the ramp was
// still outstanding at pause time.
type automation struct {
	param     graph.AutomatedParam
	target    float64
	end       time.Time
	remaining time.Duration
}

// Bundle owns every node created for one crossfade's effects and tears
// them all down with a single Close call, following the "arena/bundle
// ownership keyed by one crossfade" design note.
type Bundle struct {
	teardown    []func()
	automations []*automation
	paused      bool
	pauseAt     time.Time
}

func (b *Bundle) own(fn func()) { b.teardown = append(b.teardown, fn) }

// track registers param's final ramp (to target, completing at end) as
// pausable: PauseAt freezes it, ResumeFrom re-ramps it.
func (b *Bundle) track(param graph.AutomatedParam, target float64, end time.Time) {
	b.automations = append(b.automations, &automation{param: param, target: target, end: end})
}

// PauseAt freezes every tracked automation at its current value and
// records how much of its original ramp remained, per the "freeze
// automation at current values" pause contract.
func (b *Bundle) PauseAt(now time.Time) {
	if b.paused {
		return
	}
	b.paused = true
	b.pauseAt = now
	for _, a := range b.automations {
		if !a.end.After(now) {
			a.remaining = 0
			continue
		}
		a.remaining = a.end.Sub(now)
		a.param.CancelScheduledValues(now)
		a.param.SetValueAtTime(a.param.Value(), now)
	}
}

// ResumeFrom re-ramps every tracked automation from its frozen value back
// to its original target, over half the duration that remained at pause
// time.
func (b *Bundle) ResumeFrom(now time.Time) {
	if !b.paused {
		return
	}
	b.paused = false
	for _, a := range b.automations {
		if a.remaining <= 0 {
			continue
		}
		half := a.remaining / 2
		a.param.SetValueAtTime(a.param.Value(), now)
		a.param.LinearRampToValueAtTime(a.target, now.Add(half))
		a.remaining = 0
	}
}

// Close runs every teardown function in reverse order of registration.
func (b *Bundle) Close() {
	for i := len(b.teardown) - 1; i >= 0; i-- {
		b.teardown[i]()
	}
	b.teardown = nil
}

// Setup instantiates the requested effects on g, scoped to [startTime,
// startTime+duration), and returns the owning Bundle.
func Setup(g graph.Graph, outgoingGain, incomingGain graph.GainNode, opts Options, startTime time.Time, duration time.Duration) *Bundle {
	b := &Bundle{}
	if opts.ReverbTail && outgoingGain != nil {
		setupReverbTail(g, b, outgoingGain, startTime, duration)
	}
	if opts.NoiseRiser {
		setupNoiseRiser(g, b, startTime, duration, opts.BPM)
	}
	if opts.FilterSweep {
		setupFilterSweep(g, b, outgoingGain, incomingGain, startTime, duration, opts.FilterIntensity, opts.FadeInOnly)
	}
	return b
}

// setupReverbTail synthesizes a stereo white-noise impulse response
// shaped by exp(-3t/decay), decay clamped to [1.5, 3.0]s, and hangs a
// parallel branch off outgoingGain held at 0.15 for the first 80% of the
// crossfade then linear-ramped to 0 over the last 20%.
func setupReverbTail(g graph.Graph, b *Bundle, outgoingGain graph.GainNode, startTime time.Time, duration time.Duration) {
	decay := clamp(duration.Seconds()*0.75, 1.5, 3.0)
	ir := synthesizeReverbImpulse(decay, 44100)

	conv := g.NewConvolver()
	conv.SetBuffer(ir)

	branchGain := g.NewGainNode()
	outgoingGain.Connect(branchGain)
	branchGain.Connect(conv)
	conv.Connect(g.Destination())

	holdEnd := startTime.Add(time.Duration(float64(duration) * 0.8))
	tailEnd := startTime.Add(duration)
	branchGain.Gain().SetValueAtTime(0.15, startTime)
	branchGain.Gain().SetValueAtTime(0.15, holdEnd)
	branchGain.Gain().LinearRampToValueAtTime(0, tailEnd)
	b.track(branchGain.Gain(), 0, tailEnd)

	b.own(func() {
		conv.Disconnect()
		branchGain.Disconnect()
	})
}

// synthesizeReverbImpulse builds a stereo exponentially-decaying
// white-noise impulse response of the given decay constant (seconds) at
// sampleRate.
func synthesizeReverbImpulse(decay float64, sampleRate int) [][]float64 {
	n := int(decay * float64(sampleRate))
	if n < 1 {
		n = 1
	}
	out := make([][]float64, 2)
	for ch := 0; ch < 2; ch++ {
		samples := make([]float64, n)
		for i := 0; i < n; i++ {
			t := float64(i) / float64(sampleRate)
			samples[i] = (rand.Float64()*2 - 1) * math.Exp(-3*t/decay)
		}
		out[ch] = samples
	}
	return out
}

// setupNoiseRiser builds a standalone white-noise buffer source through a
// bandpass filter sweeping 200Hz -> targetFreq exponentially, with a gain
// envelope -24dB -> -12dB over the first 90% then to 0. Duration is
// clamped to [1.0, 2.0]s and beat-quantized when bpm > 0.
func setupNoiseRiser(g graph.Graph, b *Bundle, startTime time.Time, crossfadeDuration time.Duration, bpm float64) {
	const targetFreq = 2000.0
	dur := clamp(crossfadeDuration.Seconds(), 1.0, 2.0)
	if bpm > 0 {
		beatDur := 60.0 / bpm
		beats := math.Round(dur / beatDur)
		if beats < 1 {
			beats = 1
		}
		dur = clamp(beats*beatDur, 1.0, 2.0)
	}
	duration := time.Duration(dur * float64(time.Second))

	src := g.NewBufferSource()
	src.SetBuffer(synthesizeWhiteNoise(dur, 44100), 44100)

	bp := g.NewBiquadFilter(graph.BiquadBandpass)
	bp.Q().SetValueAtTime(2, startTime)
	bp.Frequency().SetValueAtTime(200, startTime)
	bp.Frequency().ExponentialRampToValueAtTime(targetFreq, startTime.Add(duration))
	b.track(bp.Frequency(), targetFreq, startTime.Add(duration))

	riserGain := g.NewGainNode()
	src.Connect(bp)
	bp.Connect(riserGain)
	riserGain.Connect(g.Destination())

	gStart := dbToLinear(-24)
	gMid := dbToLinear(-12)
	midTime := startTime.Add(time.Duration(float64(duration) * 0.9))
	endTime := startTime.Add(duration)
	riserGain.Gain().SetValueAtTime(gStart, startTime)
	riserGain.Gain().LinearRampToValueAtTime(gMid, midTime)
	riserGain.Gain().LinearRampToValueAtTime(0, endTime)
	b.track(riserGain.Gain(), 0, endTime)

	src.Start(startTime)
	src.Stop(endTime)

	b.own(func() {
		bp.Disconnect()
		riserGain.Disconnect()
	})
}

func synthesizeWhiteNoise(durationSeconds float64, sampleRate int) [][]float64 {
	n := int(durationSeconds * float64(sampleRate))
	if n < 1 {
		n = 1
	}
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = rand.Float64()*2 - 1
	}
	return [][]float64{samples, samples}
}

// setupFilterSweep inserts a low-pass on the outgoing gain sweeping 20kHz
// -> outCutoff, and a high-pass on the incoming gain sweeping inStart ->
// 20Hz, both exponential. Teardown is asymmetric: the outgoing filter is
// disconnected without reconnecting the outgoing gain (it is about to be
// destroyed); the incoming gain IS reconnected to destination.
func setupFilterSweep(g graph.Graph, b *Bundle, outgoingGain, incomingGain graph.GainNode, startTime time.Time, duration time.Duration, intensity float64, fadeInOnly bool) {
	dst := g.Destination()
	endTime := startTime.Add(duration)

	if outgoingGain != nil {
		scale := 1.0
		if fadeInOnly {
			scale = 0.5
		}
		outCutoff := 2000 - math.Min(1, intensity*scale)*1600
		lp := g.NewBiquadFilter(graph.BiquadLowpass)
		lp.Q().SetValueAtTime(math.Sqrt(0.5), startTime)
		lp.Frequency().SetValueAtTime(20000, startTime)
		lp.Frequency().ExponentialRampToValueAtTime(outCutoff, endTime)
		b.track(lp.Frequency(), outCutoff, endTime)
		outgoingGain.Connect(lp)
		lp.Connect(dst)

		b.own(func() {
			lp.Disconnect()
		})
	}

	if incomingGain != nil {
		inStart := 300 + 900*intensity
		hp := g.NewBiquadFilter(graph.BiquadHighpass)
		hp.Q().SetValueAtTime(math.Sqrt(0.5), startTime)
		hp.Frequency().SetValueAtTime(inStart, startTime)
		hp.Frequency().ExponentialRampToValueAtTime(20, endTime)
		b.track(hp.Frequency(), 20, endTime)
		incomingGain.Connect(hp)
		hp.Connect(dst)

		b.own(func() {
			hp.Disconnect()
			incomingGain.Connect(dst)
		})
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

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}
