/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduler implements CrossfadeScheduler: the realtime side that
// schedules sample-accurate gain automation for one crossfade, owns
// pause/resume/cancel/force-complete, and reports progress.
//
// Grounded on the gain-automation sequencing in
// internal/mediaengine/crossfade.go's StartCrossfade/calculateFadeTiming,
// generalized from a single GStreamer-controller stub to full
// sample-array scheduling against the graph.GainNode contract.
package scheduler

import (
	"sync"
	"time"

	"github.com/friendsincode/grimnir_radio/internal/automix/curves"
	"github.com/friendsincode/grimnir_radio/internal/automix/eq"
	"github.com/friendsincode/grimnir_radio/internal/automix/graph"
)

// Params mirrors CrossfadeParams: the fully-resolved configuration for
// one crossfade.
type Params struct {
	Duration               time.Duration
	Curve                   curves.Curve
	InShape, OutShape       float64
	FadeInOnly              bool
	IncomingGainAdjustment  float64 // multiplier applied on top of curve value; 1 if unset
	SpectralCrossfade       bool
	SpectralData            eq.Data
}

// Scheduler drives the gain automation for exactly one crossfade at a
// time; a new call to ScheduleFullCrossfade implicitly cancels any prior
// schedule.
type Scheduler struct {
	mu sync.Mutex

	g  graph.Graph
	eq *eq.SpectralEQ

	active       bool
	paused       bool
	outgoingGain graph.GainNode
	incomingGain graph.GainNode
	params       Params
	startTime    time.Time
	pausedAt     time.Time
	pausedProgress float64

	outgoingTargetGain float64
	incomingTargetGain float64

	onComplete func()
	completeAt time.Time
}

// New constructs a Scheduler bound to the given graph.
func New(g graph.Graph) *Scheduler {
	return &Scheduler{g: g, eq: eq.New(g)}
}

// ScheduleFullCrossfade implements the spec's six-step contract:
// cancel prior schedule, capture the outgoing gain's current value,
// zero the incoming gain, optionally set up spectral EQ, build and apply
// the curve arrays, and arm a coarse completion timer.
func (s *Scheduler) ScheduleFullCrossfade(outgoingGain, incomingGain graph.GainNode, params Params, onComplete func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()

	now := s.g.CurrentTime()
	s.outgoingGain = outgoingGain
	s.incomingGain = incomingGain
	s.params = params
	s.startTime = now
	s.paused = false
	s.active = true
	s.onComplete = onComplete
	s.completeAt = now.Add(params.Duration)

	if outgoingGain != nil {
		s.outgoingTargetGain = outgoingGain.Gain().Value()
	} else {
		s.outgoingTargetGain = 1
	}
	s.incomingTargetGain = 1
	if params.IncomingGainAdjustment != 0 {
		s.incomingTargetGain = params.IncomingGainAdjustment
	}

	if incomingGain != nil {
		incomingGain.Gain().SetValueAtTime(0, now)
	}

	if params.SpectralCrossfade {
		s.eq.Setup(outgoingGain, incomingGain, params.SpectralData, now, params.Duration, params.FadeInOnly)
	}

	resolution := curves.Resolution(params.Duration.Seconds())
	if !params.FadeInOnly && outgoingGain != nil {
		samples := curves.BuildCurveArray(resolution, 0, 1, params.Curve, params.InShape, params.OutShape, s.outgoingTargetGain, curves.ChannelOutgoing)
		outgoingGain.Gain().SetValueCurveAtTime(samples, now, params.Duration)
	}
	if incomingGain != nil {
		samples := curves.BuildCurveArray(resolution, 0, 1, params.Curve, params.InShape, params.OutShape, s.incomingTargetGain, curves.ChannelIncoming)
		incomingGain.Gain().SetValueCurveAtTime(samples, now, params.Duration)
	}
}

// GetCrossfadeValues evaluates the outgoing/incoming gains the automation
// would apply at the given progress, without side effects.
func (s *Scheduler) GetCrossfadeValues(progress float64) (outGain, inGain float64) {
	outVol, inVol := curves.Volumes(progress, s.params.Curve, s.params.InShape, s.params.OutShape)
	return outVol * s.outgoingTargetGain, inVol * s.incomingTargetGain
}

// GetProgress returns -1 when inactive, the frozen value while paused, or
// the wall-clock-derived progress clamped to 1.
func (s *Scheduler) GetProgress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

func (s *Scheduler) progressLocked() float64 {
	if !s.active {
		return -1
	}
	if s.paused {
		return s.pausedProgress
	}
	if s.params.Duration <= 0 {
		return 1
	}
	p := float64(s.g.CurrentTime().Sub(s.startTime)) / float64(s.params.Duration)
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// PauseCrossfade computes current progress from wall time, cancels future
// automation, and freezes outgoing/incoming/EQ at their computed values.
func (s *Scheduler) PauseCrossfade() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.paused {
		return
	}
	now := s.g.CurrentTime()
	progress := s.progressLocked()
	outVal, inVal := s.GetCrossfadeValues(progress)

	if s.outgoingGain != nil {
		s.outgoingGain.Gain().CancelScheduledValues(now)
		s.outgoingGain.Gain().SetValueAtTime(outVal, now)
	}
	if s.incomingGain != nil {
		s.incomingGain.Gain().CancelScheduledValues(now)
		s.incomingGain.Gain().SetValueAtTime(inVal, now)
	}
	s.eq.PauseAt(progress, now)

	s.paused = true
	s.pausedAt = now
	s.pausedProgress = progress
}

// ResumeCrossfade virtually shifts startTime so progress is preserved,
// then reschedules the remainder.
func (s *Scheduler) ResumeCrossfade() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || !s.paused {
		return
	}
	now := s.g.CurrentTime()
	progress := s.pausedProgress
	remaining := time.Duration(float64(s.params.Duration) * (1 - progress))
	s.startTime = now.Add(-time.Duration(float64(s.params.Duration) * progress))
	s.completeAt = now.Add(remaining)

	resolution := curves.Resolution(remaining.Seconds())
	if !s.params.FadeInOnly && s.outgoingGain != nil {
		samples := curves.BuildCurveArray(resolution, progress, 1, s.params.Curve, s.params.InShape, s.params.OutShape, s.outgoingTargetGain, curves.ChannelOutgoing)
		s.outgoingGain.Gain().SetValueCurveAtTime(samples, now, remaining)
	}
	if s.incomingGain != nil {
		samples := curves.BuildCurveArray(resolution, progress, 1, s.params.Curve, s.params.InShape, s.params.OutShape, s.incomingTargetGain, curves.ChannelIncoming)
		s.incomingGain.Gain().SetValueCurveAtTime(samples, now, remaining)
	}
	s.eq.ResumeFrom(progress, now, remaining)

	s.paused = false
}

// ForceComplete linear-ramps both channels to their targets over 50ms,
// used when the outgoing source ends early.
func (s *Scheduler) ForceComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	const rampTime = 50 * time.Millisecond
	now := s.g.CurrentTime()

	if s.outgoingGain != nil {
		s.outgoingGain.Gain().CancelScheduledValues(now)
		s.outgoingGain.Gain().LinearRampToValueAtTime(0, now.Add(rampTime))
	}
	if s.incomingGain != nil {
		s.incomingGain.Gain().CancelScheduledValues(now)
		s.incomingGain.Gain().LinearRampToValueAtTime(s.incomingTargetGain, now.Add(rampTime))
	}
	s.eq.ForceComplete(now, rampTime)

	s.finishLocked()
}

// Cancel performs a fast 100ms linear ramp from computed current values
// to final targets; EQ is set to 0dB and disconnected.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *Scheduler) cancelLocked() {
	if !s.active {
		return
	}
	const rampTime = 100 * time.Millisecond
	now := s.g.CurrentTime()
	progress := s.progressLocked()
	outVal, inVal := s.GetCrossfadeValues(progress)

	if s.outgoingGain != nil {
		s.outgoingGain.Gain().CancelScheduledValues(now)
		s.outgoingGain.Gain().SetValueAtTime(outVal, now)
		s.outgoingGain.Gain().LinearRampToValueAtTime(0, now.Add(rampTime))
	}
	if s.incomingGain != nil {
		s.incomingGain.Gain().CancelScheduledValues(now)
		s.incomingGain.Gain().SetValueAtTime(inVal, now)
		s.incomingGain.Gain().LinearRampToValueAtTime(s.incomingTargetGain, now.Add(rampTime))
	}
	if s.eq.Active() {
		s.eq.Cancel(now)
		s.eq.CleanupWithReconnect(s.outgoingGain, s.incomingGain)
	}

	s.active = false
	s.paused = false
	s.onComplete = nil
}

func (s *Scheduler) finishLocked() {
	cb := s.onComplete
	s.active = false
	s.paused = false
	s.onComplete = nil
	if cb != nil {
		cb()
	}
}

// GetIncomingGainAdjustment returns the gain-adjustment multiplier
// applied to the incoming channel, used by the state machine to persist
// `activeGainAdjustment` after FINISHING.
func (s *Scheduler) GetIncomingGainAdjustment() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incomingTargetGain == 0 {
		return 1
	}
	return s.incomingTargetGain
}

// Active reports whether a crossfade is currently scheduled (audible).
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Tick should be invoked periodically by the driving loop; it fires the
// completion callback once CurrentTime passes the scheduled duration,
// matching the spec's "coarse timer that fires the completion callback...
// do not touch gains in the timer."
func (s *Scheduler) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.paused {
		return
	}
	if !s.g.CurrentTime().Before(s.completeAt) {
		s.finishLocked()
	}
}
