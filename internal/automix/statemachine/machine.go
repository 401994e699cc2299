/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package statemachine implements TransitionStateMachine: the orchestrator
// that owns the idle/analyzing/waiting/crossfading/finishing phase table,
// computes and refines crossfade parameters, gates the crossfade start on
// vocal/energy deferral, and drives the ten-step crossfade execution
// sequence against SoundManager, CrossfadeScheduler, and TransitionEffects.
//
// Grounded on internal/playout/director.go's ticker-driven Run/tick shape,
// generalized from schedule-entry polling to per-render-frame playback
// monitoring; every suspension point is a goroutine that reports back by
// re-entering Machine's own lock, never by mutating state from outside it.
package statemachine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
	"github.com/friendsincode/grimnir_radio/internal/automix/effects"
	"github.com/friendsincode/grimnir_radio/internal/automix/errs"
	"github.com/friendsincode/grimnir_radio/internal/automix/graph"
	"github.com/friendsincode/grimnir_radio/internal/automix/hostapi"
	"github.com/friendsincode/grimnir_radio/internal/automix/prebuffer"
	"github.com/friendsincode/grimnir_radio/internal/automix/scheduler"
	"github.com/friendsincode/grimnir_radio/internal/automix/soundmanager"
	"github.com/friendsincode/grimnir_radio/internal/automix/telemetry"
	"github.com/friendsincode/grimnir_radio/internal/events"
)

// DefaultMonitorPeriod is the tick period used by Run when the caller does
// not override it; short enough to approximate "per render frame" for a
// server-side host, per SPEC_FULL.md §4.10.1.
const DefaultMonitorPeriod = 200 * time.Millisecond

// failureCooldown is how long "no recent failure" holds idle back from
// re-entering analyzing after a failed crossfade attempt. The spec leaves
// the exact window open; 5s matches one monitor-loop "settle" cycle
// without meaningfully delaying the next real attempt.
const failureCooldown = 5 * time.Second

// finishingDelay is the FINISHING -> idle hold, keeping isCrossfading()
// true long enough for a debounced host-side song-change watcher.
const finishingDelay = 800 * time.Millisecond

// waitStartTimeout/waitStartRetry bound _waitForPlayStart's single retry.
const (
	waitStartTimeout = 3 * time.Second
	waitStartRetry   = 2 * time.Second
)

// unloadDelay lets the audio renderer apply the final gain=0 before the
// outgoing source stops, avoiding an audible pop.
const unloadDelay = 50 * time.Millisecond

// Deps bundles the Machine's external collaborators.
type Deps struct {
	Graph      graph.Graph
	Resolver   hostapi.Resolver
	Secondary  hostapi.Resolver
	Downloader hostapi.Downloader
	Decoder    analyzer.PCMDecoder
	Pool       *analyzer.Pool
	Store      hostapi.Store
	Volume     hostapi.PlaybackVolume
	Bus        *events.Bus
	Logger     zerolog.Logger
	Settings   func() hostapi.Settings
	Profiles   map[analyzer.OutroType]OutroProfile
}

// Machine is the TransitionStateMachine. All state is owned by the
// goroutine that calls MonitorPlayback; async work reports back under mu.
type Machine struct {
	deps Deps

	sm    *soundmanager.Manager
	sched *scheduler.Scheduler

	mu    sync.Mutex
	phase hostapi.Phase

	generation int // bumped on cancel/onTrackStarted to invalidate stale goroutines

	currentSongID   string
	currentAnalysis analyzer.TrackAnalysis
	hasCurrent      bool

	nextSongID   string
	nextAnalysis analyzer.TrackAnalysis
	hasNext      bool

	pre *prebuffer.Manager

	waitingStarted bool
	params         CrossfadeParams
	lastFailure    time.Time
	finishingUntil time.Time

	crossfadeStartedAt time.Time
	outgoingEndedEarly bool
	outgoingSound      graph.Sound
	incomingSound      graph.Sound

	effectsBundle *effects.Bundle

	softwareFade       bool
	softwareFadeCancel context.CancelFunc

	pausedSoftware   bool
	pauseAwaitResume chan struct{}

	activeGainAdjustment float64
}

// New constructs an idle Machine.
func New(deps Deps) *Machine {
	if deps.Profiles == nil {
		deps.Profiles = DefaultProfiles()
	}
	sm := soundmanager.New()
	sched := scheduler.New(deps.Graph)
	return &Machine{
		deps:                 deps,
		sm:                   sm,
		sched:                sched,
		phase:                hostapi.PhaseIdle,
		activeGainAdjustment: 1,
		pre:                  prebuffer.New(deps.Graph, deps.Resolver, deps.Secondary, deps.Downloader, deps.Decoder, deps.Pool, deps.Store),
	}
}

// Run drives MonitorPlayback on a ticker, grounded on Director.Run's
// ticker-select loop, generalized to a configurable period.
func (m *Machine) Run(ctx context.Context, period time.Duration, soundProvider func() (graph.Sound, string)) {
	if period <= 0 {
		period = DefaultMonitorPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sound, songID := soundProvider()
			if sound != nil {
				m.MonitorPlayback(ctx, sound, songID)
			}
		}
	}
}

// MonitorPlayback is the single synchronous entry point, invoked once per
// tick with the currently-playing sound. It MUST NOT block: every
// suspension point below is a goroutine that reports back via m.mu.
func (m *Machine) MonitorPlayback(ctx context.Context, sound graph.Sound, songID string) {
	settings := m.deps.Settings()
	if !settings.Enabled {
		return
	}

	m.mu.Lock()
	phase := m.phase
	gen := m.generation
	t := sound.Position().Seconds()
	dur := sound.Duration().Seconds()
	m.mu.Unlock()

	switch phase {
	case hostapi.PhaseIdle:
		m.tickIdle(ctx, gen, sound, songID, t, dur, settings)
	case hostapi.PhaseWaiting:
		m.tickWaiting(ctx, gen, sound, songID, t, dur, settings)
	case hostapi.PhaseCrossfading:
		m.sched.Tick()
	case hostapi.PhaseFinishing:
		m.mu.Lock()
		if !time.Now().Before(m.finishingUntil) {
			m.phase = hostapi.PhaseIdle
			m.publishState()
		}
		m.mu.Unlock()
	}
}

func (m *Machine) tickIdle(ctx context.Context, gen int, sound graph.Sound, songID string, t, dur float64, settings hostapi.Settings) {
	effDur := effectiveCrossfadeDuration(settings.CrossfadeDuration, dur)
	if time.Since(m.lastFailure) < failureCooldown {
		return
	}
	if t < dur-effDur.Seconds()-13 || t >= dur-1 {
		return
	}
	m.mu.Lock()
	if m.phase != hostapi.PhaseIdle || m.generation != gen {
		m.mu.Unlock()
		return
	}
	m.phase = hostapi.PhaseAnalyzing
	m.currentSongID = songID
	m.waitingStarted = false
	m.publishState()
	m.mu.Unlock()

	go m.doAnalysis(ctx, gen, songID, settings)
}

// doAnalysis resolves the current-track analysis (cache hit, or a fresh
// download+decode) and the next track's analysis, then computes the
// crossfade params and transitions to waiting. Analysis failure is not a
// hard error: the spec falls back to time-based params.
func (m *Machine) doAnalysis(ctx context.Context, gen int, currentSongID string, settings hostapi.Settings) {
	currentAnalysis, hasCurrent := m.deps.Store.CachedAnalysis(currentSongID)
	if !hasCurrent {
		if a, err := m.analyzeSong(ctx, currentSongID); err == nil {
			currentAnalysis, hasCurrent = a, true
			m.deps.Store.CacheAnalysis(currentSongID, a)
		}
	}

	nextIdx := m.deps.Store.NextIndex(m.deps.Store.CurrentIndex())
	entry, hasEntry := m.deps.Store.PlaylistEntry(nextIdx)
	var nextAnalysis analyzer.TrackAnalysis
	hasNext := false
	if hasEntry && settings.VolumeNorm {
		if a, ok := m.deps.Store.CachedAnalysis(entry.SongID); ok {
			nextAnalysis, hasNext = a, true
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen || m.phase != hostapi.PhaseAnalyzing {
		return // stale: a track change or cancel happened meanwhile
	}

	m.currentAnalysis, m.hasCurrent = currentAnalysis, hasCurrent
	if hasEntry {
		m.nextSongID = entry.SongID
	}
	m.nextAnalysis, m.hasNext = nextAnalysis, hasNext

	m.params = computeCrossfadeParams(currentAnalysis, hasCurrent, nextAnalysis, hasNext, settings, m.deps.Profiles)
	if hasCurrent && hasNext {
		telemetry.CompatibilityScore.Observe(m.params.Score.Overall)
	}
	m.phase = hostapi.PhaseWaiting
	m.publishState()
	m.deps.Logger.Debug().
		Str("song_id", currentSongID).
		Bool("has_analysis", hasCurrent).
		Str("outro_type", string(m.params.OutroType)).
		Float64("crossfade_start", m.params.CrossfadeStartTime).
		Msg("crossfade params computed")
}

func (m *Machine) tickWaiting(ctx context.Context, gen int, sound graph.Sound, songID string, t, dur float64, settings hostapi.Settings) {
	m.mu.Lock()
	if m.generation != gen || m.phase != hostapi.PhaseWaiting {
		m.mu.Unlock()
		return
	}
	started := m.waitingStarted
	if !started {
		m.waitingStarted = true
	}
	params := m.params
	current := m.currentAnalysis
	hasCurrent := m.hasCurrent
	nextSongID := m.nextSongID
	m.mu.Unlock()

	if !started {
		go m.startPreBuffer(ctx, gen, nextSongID, settings.VolumeNorm)
	}

	if t < params.CrossfadeStartTime {
		return
	}

	if hasCurrent && shouldDeferCrossfade(t, deferSettings{VocalGuard: settings.VocalGuard}, current, params) {
		return
	}

	m.mu.Lock()
	if m.generation != gen || m.phase != hostapi.PhaseWaiting {
		m.mu.Unlock()
		return
	}
	// If the deferral consumed remaining content, re-clamp duration
	// (minimum 1s) before handing off to _doCrossfade.
	if hasCurrent {
		effectiveEnd := current.Duration - current.Energy.TrailingSilence
		remaining := effectiveEnd - t
		if remaining < 1 {
			remaining = 1
		}
		if m.params.Duration.Seconds() > remaining {
			m.params.Duration = time.Duration(remaining * float64(time.Second))
		}
	}
	m.phase = hostapi.PhaseCrossfading
	m.publishState()
	m.mu.Unlock()

	go m.doCrossfade(ctx, gen, sound, songID, dur)
}

func (m *Machine) startPreBuffer(ctx context.Context, gen int, songID string, volumeNorm bool) {
	if songID == "" {
		return
	}
	isWaiting := func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.generation == gen && m.phase == hostapi.PhaseWaiting
	}
	nextIdx := m.deps.Store.NextIndex(m.deps.Store.CurrentIndex())
	m.pre.Run(ctx, nextIdx, songID, volumeNorm, isWaiting)
}

// analyzeSong resolves, downloads, and analyzes songID from scratch; used
// both by doAnalysis on a cache miss and, potentially, by callers priming
// the cache ahead of time (onTrackStarted).
func (m *Machine) analyzeSong(ctx context.Context, songID string) (analyzer.TrackAnalysis, error) {
	start := time.Now()
	a, err := m.analyzeSongUninstrumented(ctx, songID)
	telemetry.AnalysisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.AnalysisFailures.Inc()
	}
	return a, err
}

func (m *Machine) analyzeSongUninstrumented(ctx context.Context, songID string) (analyzer.TrackAnalysis, error) {
	url, isTrial, err := m.deps.Resolver.ResolveURL(ctx, songID)
	if err != nil {
		return analyzer.TrackAnalysis{}, errs.ErrTransientResolve
	}
	if isTrial && m.deps.Secondary != nil {
		if altURL, _, altErr := m.deps.Secondary.ResolveURL(ctx, songID); altErr == nil {
			url = altURL
		}
	}
	blob, err := m.deps.Downloader.Download(ctx, url)
	if err != nil {
		return analyzer.TrackAnalysis{}, errs.ErrTransientDecode
	}
	_, resultCh := m.deps.Pool.Submit(ctx, blob, analyzer.Options{AnalyzeBPM: true})
	result := <-resultCh
	return result.Analysis, result.Err
}

// doCrossfade implements the ten-step execution sequence of SPEC_FULL.md
// §4.10 "Executing the crossfade".
func (m *Machine) doCrossfade(ctx context.Context, gen int, outgoing graph.Sound, outgoingSongID string, outgoingDuration float64) {
	settings := m.deps.Settings()

	// Step 1: resolve next index (already cached in m.nextSongID from
	// doAnalysis; re-resolve in case the playlist advanced concurrently).
	m.mu.Lock()
	nextSongID := m.nextSongID
	params := m.params
	m.mu.Unlock()
	if nextSongID == "" {
		m.failCrossfade(gen, outgoing)
		return
	}

	// Step 2: prefer the pre-buffered sound; else the slow path.
	nextIdx := m.deps.Store.NextIndex(m.deps.Store.CurrentIndex())
	var incoming graph.Sound
	var incomingAnalysis analyzer.TrackAnalysis
	hasIncomingAnalysis := false
	if prepared := m.pre.Consume(nextIdx); prepared != nil {
		incoming = prepared.Sound
		incomingAnalysis, hasIncomingAnalysis = prepared.Analysis, prepared.HasAnalysis
	} else {
		url, isTrial, err := m.deps.Resolver.ResolveURL(ctx, nextSongID)
		if err != nil {
			m.failCrossfade(gen, outgoing)
			return
		}
		if isTrial && m.deps.Secondary != nil {
			if altURL, _, altErr := m.deps.Secondary.ResolveURL(ctx, nextSongID); altErr == nil {
				url = altURL
			}
		}
		blob, err := m.deps.Downloader.Download(ctx, url)
		if err != nil {
			m.failCrossfade(gen, outgoing)
			return
		}
		incoming, err = m.deps.Graph.DecodeToSound(ctx, nextSongID, blob)
		if err != nil {
			m.failCrossfade(gen, outgoing)
			return
		}
		if gain, ok := incoming.GainNode(); ok {
			gain.Gain().SetValueAtTime(0, m.deps.Graph.CurrentTime())
		}
	}

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		incoming.Unload()
		return
	}
	m.outgoingSound = outgoing
	m.incomingSound = incoming
	m.outgoingEndedEarly = false
	m.mu.Unlock()

	// Step 3: one-shot `end` safety handler on the outgoing sound.
	var endOnce sync.Once
	endHandler := func() {
		endOnce.Do(func() {
			m.mu.Lock()
			stillThisCrossfade := m.generation == gen && m.phase == hostapi.PhaseCrossfading
			schedActive := m.sched.Active()
			m.mu.Unlock()
			if !stillThisCrossfade {
				return
			}
			if !schedActive {
				m.mu.Lock()
				m.outgoingEndedEarly = true
				m.mu.Unlock()
			} else {
				m.sched.ForceComplete()
			}
		})
	}
	outgoing.On(graph.EventEnd, endHandler)
	defer outgoing.Off(graph.EventEnd, endHandler)

	// Step 4: begin the transition; start incoming at volume 0.
	m.sm.BeginTransition(incoming)
	if gain, ok := incoming.GainNode(); ok {
		gain.Gain().SetValueAtTime(0, m.deps.Graph.CurrentTime())
	}
	if err := incoming.Play(); err != nil {
		m.sm.RevertTransition()
		m.failCrossfade(gen, outgoing)
		return
	}

	// Step 5: finalize params against the live outgoing position.
	m.mu.Lock()
	outgoingEndedEarly := m.outgoingEndedEarly
	effectiveEnd := outgoingDuration
	if m.hasCurrent {
		effectiveEnd = m.currentAnalysis.Duration - m.currentAnalysis.Energy.TrailingSilence
	}
	if hasIncomingAnalysis {
		m.nextAnalysis, m.hasNext = incomingAnalysis, true
	}
	m.mu.Unlock()
	finalParams := finalizeCrossfadeParams(params, effectiveEnd, outgoing.Position().Seconds(), outgoingEndedEarly)

	m.mu.Lock()
	m.crossfadeStartedAt = time.Now()
	m.activeGainAdjustment = finalParams.IncomingGainAdjustment
	m.mu.Unlock()

	telemetry.CrossfadesStarted.WithLabelValues(string(finalParams.OutroType)).Inc()

	// Step 6: schedule via CrossfadeScheduler when both gain nodes are
	// available, else the software-fade fallback.
	outGain, hasOutGain := outgoing.GainNode()
	inGain, hasInGain := incoming.GainNode()
	var bundle *effects.Bundle
	if hasOutGain && hasInGain {
		m.sched.ScheduleFullCrossfade(outGain, inGain, scheduler.Params{
			Duration:               finalParams.Duration,
			Curve:                  finalParams.Curve,
			InShape:                finalParams.InShape,
			OutShape:               finalParams.OutShape,
			FadeInOnly:             finalParams.FadeInOnly,
			IncomingGainAdjustment: finalParams.IncomingGainAdjustment,
			SpectralCrossfade:      finalParams.SpectralCrossfade,
			SpectralData:           finalParams.SpectralData,
		}, func() { m.onCrossfadeComplete(gen) })

		// Step 7: optional effects, same timeline as the scheduler.
		if settings.TransitionEffects && finalParams.Strategy.UseEffects {
			opts := finalParams.Strategy.ToEffectsOptions(finalParams.FadeInOnly, m.currentAnalysisBPM())
			bundle = effects.Setup(m.deps.Graph, outGain, inGain, opts, m.deps.Graph.CurrentTime(), finalParams.Duration)
		}
	} else {
		m.softwareFadeCrossfade(gen, outgoing, incoming, finalParams)
	}

	m.mu.Lock()
	m.effectsBundle = bundle
	m.mu.Unlock()

	// Step 8/9: bounded wait for incoming to confirm playback, one retry,
	// then await any pending unpause.
	if !m.waitForPlayStart(incoming) {
		m.cancelCrossfadeInternal(gen, true)
		return
	}
	m.awaitUnpause(gen)

	// Step 10: update the host's now-playing pointer.
	m.deps.Store.SetPlaySongIndex(nextIdx)
}

func (m *Machine) currentAnalysisBPM() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasCurrent || !m.currentAnalysis.BPM.Known {
		return 0
	}
	return m.currentAnalysis.BPM.BPM
}

// softwareFadeCrossfade runs the fallback path when a gain node is
// unavailable on either side, using the Sound-level Fade primitive and a
// timer for completion instead of sample-accurate automation.
func (m *Machine) softwareFadeCrossfade(gen int, outgoing, incoming graph.Sound, params CrossfadeParams) {
	userVolume := m.deps.Volume.Volume()
	if !params.FadeInOnly {
		outgoing.Fade(userVolume, 0, params.Duration)
	}
	incoming.Fade(0, userVolume*params.IncomingGainAdjustment, params.Duration)

	ctx, cancel := context.WithTimeout(context.Background(), params.Duration)
	m.mu.Lock()
	m.softwareFade = true
	m.softwareFadeCancel = cancel
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		active := m.generation == gen && m.softwareFade
		m.softwareFade = false
		m.mu.Unlock()
		if active {
			m.onCrossfadeComplete(gen)
		}
	}()
}

// waitForPlayStart polls Playing() for up to waitStartRetry; if it hasn't
// started by then, retries Play() once and polls for the remainder of
// waitStartTimeout.
func (m *Machine) waitForPlayStart(sound graph.Sound) bool {
	if pollPlaying(sound, waitStartRetry) {
		return true
	}
	_ = sound.Play()
	return pollPlaying(sound, waitStartTimeout-waitStartRetry)
}

func pollPlaying(sound graph.Sound, window time.Duration) bool {
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		if sound.Playing() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return sound.Playing()
}

// awaitUnpause blocks until any pause that arrived during crossfade setup
// is resumed, or the crossfade is cancelled out from under it.
func (m *Machine) awaitUnpause(gen int) {
	m.mu.Lock()
	ch := m.pauseAwaitResume
	stillActive := m.generation == gen
	m.mu.Unlock()
	if ch == nil || !stillActive {
		return
	}
	<-ch
}

func (m *Machine) onCrossfadeComplete(gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen || m.phase != hostapi.PhaseCrossfading {
		return
	}

	go func() {
		time.Sleep(unloadDelay)
		m.sm.UnloadOutgoing()
	}()

	if m.deps.Volume != nil {
		if gain, ok := m.incomingSound.GainNode(); ok {
			gain.Gain().SetValueAtTime(m.deps.Volume.Volume()*m.activeGainAdjustment, m.deps.Graph.CurrentTime())
		}
	}
	if bundle := m.effectsBundle; bundle != nil {
		bundle.Close()
		m.effectsBundle = nil
	}

	m.currentSongID = m.nextSongID
	m.currentAnalysis, m.hasCurrent = m.nextAnalysis, m.hasNext
	m.nextAnalysis, m.hasNext = analyzer.TrackAnalysis{}, false

	m.phase = hostapi.PhaseFinishing
	m.finishingUntil = time.Now().Add(finishingDelay)
	m.publishState()
}

func (m *Machine) failCrossfade(gen int, outgoing graph.Sound) {
	m.mu.Lock()
	if m.generation == gen {
		m.lastFailure = time.Now()
	}
	m.mu.Unlock()
	m.deps.Logger.Warn().Str("outgoing_song_id", outgoing.SongID()).Msg("crossfade setup failed, reverting to idle")
	m.cancelCrossfadeInternal(gen, false)
}

// CancelCrossfade cancels any in-flight or active crossfade and reverts
// SoundManager if a transition had begun.
func (m *Machine) CancelCrossfade() {
	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()
	m.cancelCrossfadeInternal(gen, true)
}

func (m *Machine) cancelCrossfadeInternal(gen int, bumpGeneration bool) {
	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return
	}
	wasActive := m.phase == hostapi.PhaseCrossfading
	if bumpGeneration {
		m.generation++
	}
	if m.softwareFadeCancel != nil {
		m.softwareFadeCancel()
		m.softwareFadeCancel = nil
	}
	m.softwareFade = false
	bundle := m.effectsBundle
	m.effectsBundle = nil
	m.waitingStarted = false
	m.phase = hostapi.PhaseIdle
	m.publishState()
	m.mu.Unlock()

	if wasActive {
		telemetry.CrossfadesCancelled.Inc()
	}

	m.sched.Cancel()
	if bundle != nil {
		bundle.Close()
	}
	m.sm.RevertTransition()
	m.pre.Drop()
}

// PauseCrossfade returns true iff the scheduler was audibly active (in
// which case it freezes scheduler/effects and both sounds); if setup was
// still in progress it cancels outright and returns false so the host
// falls through to its normal pause.
func (m *Machine) PauseCrossfade() bool {
	m.mu.Lock()
	inCrossfade := m.phase == hostapi.PhaseCrossfading
	schedActive := m.sched.Active()
	outgoing, incoming := m.outgoingSound, m.incomingSound
	bundle := m.effectsBundle
	m.mu.Unlock()

	if !inCrossfade {
		return false
	}
	if !schedActive {
		m.CancelCrossfade()
		return false
	}

	m.sched.PauseCrossfade()
	if bundle != nil {
		bundle.PauseAt(m.deps.Graph.CurrentTime())
	}
	if outgoing != nil {
		outgoing.Pause()
	}
	if incoming != nil {
		incoming.Pause()
	}

	m.mu.Lock()
	m.pausedSoftware = true
	m.pauseAwaitResume = make(chan struct{})
	m.mu.Unlock()
	return true
}

// ResumeCrossfade undoes PauseCrossfade in reverse order and releases any
// goroutine blocked in awaitUnpause.
func (m *Machine) ResumeCrossfade() {
	m.mu.Lock()
	outgoing, incoming := m.outgoingSound, m.incomingSound
	bundle := m.effectsBundle
	ch := m.pauseAwaitResume
	m.pausedSoftware = false
	m.pauseAwaitResume = nil
	m.mu.Unlock()

	if outgoing != nil {
		_ = outgoing.Play()
	}
	if incoming != nil {
		_ = incoming.Play()
	}
	if bundle != nil {
		bundle.ResumeFrom(m.deps.Graph.CurrentTime())
	}
	m.sched.ResumeCrossfade()
	if ch != nil {
		close(ch)
	}
}

// OnTrackStarted resets the machine to idle (unless a transition is
// already live), clears stale pre-buffer state, resets the persisted gain
// adjustment, and fires off pre-analysis of the new current track.
func (m *Machine) OnTrackStarted(ctx context.Context, sound graph.Sound, songID string) {
	m.mu.Lock()
	if m.phase == hostapi.PhaseCrossfading || m.phase == hostapi.PhaseFinishing {
		m.mu.Unlock()
		return
	}
	m.generation++
	gen := m.generation
	m.phase = hostapi.PhaseIdle
	m.currentSongID = songID
	m.hasCurrent = false
	m.sm.SetCurrentSound(sound)
	m.waitingStarted = false
	m.activeGainAdjustment = 1
	m.publishState()
	m.mu.Unlock()

	m.pre.Drop()

	go func() {
		if _, ok := m.deps.Store.CachedAnalysis(songID); ok {
			return
		}
		a, err := m.analyzeSong(ctx, songID)
		if err != nil {
			return
		}
		m.mu.Lock()
		stillSameTrack := m.generation == gen
		m.mu.Unlock()
		if !stillSameTrack {
			return
		}
		m.deps.Store.CacheAnalysis(songID, a)
	}()
}

// GetState returns the observable autoMixState snapshot.
func (m *Machine) GetState() hostapi.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Machine) stateLocked() hostapi.State {
	st := hostapi.State{
		Phase:             m.phase,
		CrossfadeDuration: m.params.Duration,
		IncomingSongID:    m.nextSongID,
	}
	if m.hasCurrent {
		st.OutroType = m.currentAnalysis.Outro.Type
		st.OutroConfidence = m.currentAnalysis.Outro.Confidence
	}
	if m.phase == hostapi.PhaseCrossfading {
		st.CrossfadeStartTime = m.crossfadeStartedAt
		st.CrossfadeProgress = m.crossfadeProgressLocked()
	}
	if entry, ok := m.entryForSongLocked(m.nextSongID); ok {
		st.IncomingSongName = entry.Name
	}
	return st
}

func (m *Machine) entryForSongLocked(songID string) (hostapi.PlaylistEntry, bool) {
	if songID == "" || m.deps.Store == nil {
		return hostapi.PlaylistEntry{}, false
	}
	idx := m.deps.Store.NextIndex(m.deps.Store.CurrentIndex())
	entry, ok := m.deps.Store.PlaylistEntry(idx)
	if ok && entry.SongID == songID {
		return entry, true
	}
	return hostapi.PlaylistEntry{}, false
}

func (m *Machine) crossfadeProgressLocked() float64 {
	if p := m.sched.GetProgress(); p >= 0 {
		return p
	}
	if m.params.Duration <= 0 {
		return 0
	}
	elapsed := time.Since(m.crossfadeStartedAt)
	p := float64(elapsed) / float64(m.params.Duration)
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// IsCrossfading reports whether a crossfade is audibly in flight,
// including the FINISHING grace period.
func (m *Machine) IsCrossfading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase == hostapi.PhaseCrossfading || m.phase == hostapi.PhaseFinishing
}

// GetCrossfadeProgress reports [0,1], or 0 outside a crossfade.
func (m *Machine) GetCrossfadeProgress() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != hostapi.PhaseCrossfading {
		return 0
	}
	return m.crossfadeProgressLocked()
}

// GetActiveGainAdjustment reports the persisted normalization multiplier
// applied to the current sound's gain.
func (m *Machine) GetActiveGainAdjustment() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeGainAdjustment
}

// CurrentSound returns SoundManager's current sound: the host's own
// now-playing pointer (set by OnTrackStarted) for as long as AutoMix is
// idle, and the just-promoted incoming sound once a crossfade completes.
func (m *Machine) CurrentSound() graph.Sound {
	return m.sm.Current()
}

func (m *Machine) publishState() {
	if m.deps.Bus == nil || m.deps.Store == nil {
		return
	}
	st := m.stateLocked()
	m.deps.Store.SetAutoMixState(st)
	m.deps.Bus.Publish(events.EventAutoMixStateChanged, events.Payload{
		"phase":              string(st.Phase),
		"outro_type":         string(st.OutroType),
		"outro_confidence":   st.OutroConfidence,
		"crossfade_progress": st.CrossfadeProgress,
		"incoming_song_id":   st.IncomingSongID,
		"incoming_song_name": st.IncomingSongName,
	})
}
