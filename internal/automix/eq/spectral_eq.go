/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eq implements the SpectralEQ: up to two 3-band shelf+peaking EQ
// chains (outgoing, incoming) inserted between a sound's gain node and the
// graph destination for the duration of one crossfade, used to morph
// spectral balance across a transition.
package eq

import (
	"time"

	"github.com/friendsincode/grimnir_radio/internal/automix/curves"
	"github.com/friendsincode/grimnir_radio/internal/automix/graph"
)

// Band indexes the three EQ bands, matching the ordering of per-band dB
// arrays throughout the spec (low, mid, high).
type Band int

const (
	BandLow Band = iota
	BandMid
	BandHigh
	bandCount
)

var bandFrequency = [bandCount]float64{300, 1100, 4000}
var bandType = [bandCount]graph.BiquadType{graph.BiquadLowShelf, graph.BiquadPeaking, graph.BiquadHighShelf}

// Data mirrors SpectralCrossfadeData: per-band target dB for the outgoing
// chain, per-band initial dB for the incoming chain, and whether the low
// band should use the bass-swap curve instead of a linear ramp.
type Data struct {
	OutTargetDb  [bandCount]float64
	InInitialDb  [bandCount]float64
	BassSwapLow  bool
}

type chain struct {
	filters [bandCount]graph.BiquadFilterNode
	gain    graph.GainNode
}

// SpectralEQ owns the outgoing/incoming EQ chains for one crossfade.
type SpectralEQ struct {
	g        graph.Graph
	outgoing *chain
	incoming *chain
	data     Data
}

// New constructs an (initially empty) SpectralEQ bound to the given graph.
func New(g graph.Graph) *SpectralEQ {
	return &SpectralEQ{g: g}
}

func buildChain(g graph.Graph, gainNode graph.GainNode, dst graph.Node) *chain {
	c := &chain{gain: gainNode}
	var prev graph.Node = dst
	for i := bandCount - 1; i >= 0; i-- {
		f := g.NewBiquadFilter(bandType[i])
		f.Frequency().SetValueAtTime(bandFrequency[i], g.CurrentTime())
		if bandType[i] == graph.BiquadPeaking {
			f.Q().SetValueAtTime(0.7, g.CurrentTime())
		}
		f.Connect(prev)
		c.filters[i] = f
		prev = f
	}
	gainNode.Connect(prev)
	return c
}

// Setup inserts the chains and schedules per-band dB automation.
//
// The outgoing chain ramps 0 -> OutTargetDb; the incoming chain ramps
// InInitialDb -> 0. The low band uses the bass-swap curve when
// data.BassSwapLow, linear otherwise. The outgoing chain is skipped
// entirely when fadeInOnly.
func (s *SpectralEQ) Setup(outgoingGain, incomingGain graph.GainNode, data Data, startTime time.Time, duration time.Duration, fadeInOnly bool) {
	s.data = data
	dst := s.g.Destination()

	if !fadeInOnly && outgoingGain != nil {
		s.outgoing = buildChain(s.g, outgoingGain, dst)
		s.scheduleChain(s.outgoing, [bandCount]float64{0, 0, 0}, data.OutTargetDb, startTime, duration, data.BassSwapLow)
	}
	if incomingGain != nil {
		s.incoming = buildChain(s.g, incomingGain, dst)
		s.scheduleChain(s.incoming, data.InInitialDb, [bandCount]float64{0, 0, 0}, startTime, duration, data.BassSwapLow)
	}
}

func (s *SpectralEQ) scheduleChain(c *chain, from, to [bandCount]float64, startTime time.Time, duration time.Duration, bassSwapLow bool) {
	resolution := curves.Resolution(duration.Seconds())
	for i := 0; i < int(bandCount); i++ {
		var samples []float64
		if Band(i) == BandLow && bassSwapLow {
			samples = curves.BuildBassSwapCurve(resolution, from[i], to[i])
		} else {
			samples = curves.BuildLinearCurve(resolution, from[i], to[i])
		}
		c.filters[i].GainDB().SetValueCurveAtTime(samples, startTime, duration)
	}
}

// valueAtProgress linearly interpolates a per-band schedule for freeze /
// resume, mirroring the curves package's own linear interpolation so
// pause/resume values match what the automation would have produced.
func valueAtProgress(from, to float64, bassSwap bool, progress float64) float64 {
	if bassSwap {
		return curves.BassSwapValueAt(progress, from, to)
	}
	return from + (to-from)*progress
}

// PauseAt cancels future automation and freezes every filter at its
// interpolated dB value for the given progress.
func (s *SpectralEQ) PauseAt(progress float64, now time.Time) {
	for _, c := range []*chain{s.outgoing, s.incoming} {
		if c == nil {
			continue
		}
		for i := 0; i < int(bandCount); i++ {
			c.filters[i].GainDB().CancelScheduledValues(now)
		}
	}
}

// ResumeFrom rebuilds curves for the remaining range [progress, 1] using
// the same per-band style (bass-swap or linear) recorded at Setup time.
func (s *SpectralEQ) ResumeFrom(progress float64, now time.Time, remaining time.Duration) {
	resolution := curves.Resolution(remaining.Seconds())
	if s.outgoing != nil {
		for i := 0; i < int(bandCount); i++ {
			from := valueAtProgress(0, s.data.OutTargetDb[i], Band(i) == BandLow && s.data.BassSwapLow, progress)
			var samples []float64
			if Band(i) == BandLow && s.data.BassSwapLow {
				samples = curves.BuildBassSwapCurve(resolution, from, s.data.OutTargetDb[i])
			} else {
				samples = curves.BuildLinearCurve(resolution, from, s.data.OutTargetDb[i])
			}
			s.outgoing.filters[i].GainDB().SetValueCurveAtTime(samples, now, remaining)
		}
	}
	if s.incoming != nil {
		for i := 0; i < int(bandCount); i++ {
			from := valueAtProgress(s.data.InInitialDb[i], 0, Band(i) == BandLow && s.data.BassSwapLow, progress)
			var samples []float64
			if Band(i) == BandLow && s.data.BassSwapLow {
				samples = curves.BuildBassSwapCurve(resolution, from, 0)
			} else {
				samples = curves.BuildLinearCurve(resolution, from, 0)
			}
			s.incoming.filters[i].GainDB().SetValueCurveAtTime(samples, now, remaining)
		}
	}
}

// ForceComplete linear-ramps all gains back to 0 dB over rampTime
// (approximately 50ms per the spec).
func (s *SpectralEQ) ForceComplete(now time.Time, rampTime time.Duration) {
	for _, c := range []*chain{s.outgoing, s.incoming} {
		if c == nil {
			continue
		}
		for i := 0; i < int(bandCount); i++ {
			c.filters[i].GainDB().CancelScheduledValues(now)
			c.filters[i].GainDB().LinearRampToValueAtTime(0, now.Add(rampTime))
		}
	}
}

// Cancel sets all gains to 0 dB instantly.
func (s *SpectralEQ) Cancel(now time.Time) {
	for _, c := range []*chain{s.outgoing, s.incoming} {
		if c == nil {
			continue
		}
		for i := 0; i < int(bandCount); i++ {
			c.filters[i].GainDB().CancelScheduledValues(now)
			c.filters[i].GainDB().SetValueAtTime(0, now)
		}
	}
}

// CleanupWithReconnect removes inserted filters and restores the direct
// gain -> destination connection on both gain nodes.
func (s *SpectralEQ) CleanupWithReconnect(outgoingGain, incomingGain graph.GainNode) {
	dst := s.g.Destination()
	if s.outgoing != nil {
		for _, f := range s.outgoing.filters {
			f.Disconnect()
		}
		if outgoingGain != nil {
			outgoingGain.Connect(dst)
		}
		s.outgoing = nil
	}
	if s.incoming != nil {
		for _, f := range s.incoming.filters {
			f.Disconnect()
		}
		if incomingGain != nil {
			incomingGain.Connect(dst)
		}
		s.incoming = nil
	}
}

// Active reports whether either chain is currently inserted, used by
// tests to assert the "exactly one child" invariant holds only while
// active.
func (s *SpectralEQ) Active() bool {
	return s.outgoing != nil || s.incoming != nil
}
