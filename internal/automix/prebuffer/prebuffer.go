/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package prebuffer implements PreBufferManager: the fire-and-forget
// background preparation of the next track during WAITING, per §4.6.
package prebuffer

import (
	"context"
	"sync"
	"time"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
	"github.com/friendsincode/grimnir_radio/internal/automix/graph"
	"github.com/friendsincode/grimnir_radio/internal/automix/hostapi"
)

const loadTimeout = 30 * time.Second

// Prepared is the outcome of a successful prebuffer run.
type Prepared struct {
	Index    int
	Sound    graph.Sound
	Analysis analyzer.TrackAnalysis
	HasAnalysis bool
}

// StateChecker reports whether the caller's phase is still "waiting"; the
// manager bails and drops its work at every checkpoint once it returns
// false, per step 6 of §4.6.
type StateChecker func() bool

// Manager runs one prebuffer attempt at a time and hands off its result
// via Consume.
type Manager struct {
	g         graph.Graph
	resolver  hostapi.Resolver
	secondary hostapi.Resolver // optional, used by trial-URL routing
	downloader hostapi.Downloader
	decoder   analyzer.PCMDecoder
	pool      *analyzer.Pool
	cache     AnalysisCache

	mu       sync.Mutex
	prepared *Prepared
}

// AnalysisCache is the subset of hostapi.Store this package needs.
type AnalysisCache interface {
	CachedAnalysis(songID string) (analyzer.TrackAnalysis, bool)
	CacheAnalysis(songID string, a analyzer.TrackAnalysis)
}

// New constructs a Manager.
func New(g graph.Graph, resolver, secondary hostapi.Resolver, downloader hostapi.Downloader, decoder analyzer.PCMDecoder, pool *analyzer.Pool, cache AnalysisCache) *Manager {
	return &Manager{g: g, resolver: resolver, secondary: secondary, downloader: downloader, decoder: decoder, pool: pool, cache: cache}
}

// Run executes the six-step prebuffer sequence for the track at index,
// identified by songID, bailing at any checkpoint once isWaiting returns
// false. volumeNormalization controls step 4 (analyze-if-uncached).
func (m *Manager) Run(ctx context.Context, index int, songID string, volumeNormalization bool, isWaiting StateChecker) {
	// Step 1: resolve URL, trial substrings routed to the secondary resolver.
	url, isTrial, err := m.resolver.ResolveURL(ctx, songID)
	if err != nil {
		return
	}
	if isTrial && m.secondary != nil {
		if altURL, _, altErr := m.secondary.ResolveURL(ctx, songID); altErr == nil {
			url = altURL
		}
	}
	if !isWaiting() {
		return
	}

	// Step 2: download, then create a silent (volume=0) sound.
	loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	blob, err := m.downloader.Download(loadCtx, url)
	if err != nil {
		return
	}
	if !isWaiting() {
		return
	}

	sound, err := m.g.DecodeToSound(loadCtx, songID, blob)
	if err != nil {
		return
	}
	if gain, ok := sound.GainNode(); ok {
		gain.Gain().SetValueAtTime(0, m.g.CurrentTime())
	}

	// Step 3: wait up to 30s for the load event, else fail silently.
	if !waitForLoad(loadCtx, sound) {
		sound.Unload()
		return
	}
	if !isWaiting() {
		sound.Unload()
		return
	}

	// Step 4: analyze if normalization is enabled and uncached.
	var analysis analyzer.TrackAnalysis
	hasAnalysis := false
	if volumeNormalization {
		if cached, ok := m.cache.CachedAnalysis(songID); ok {
			analysis, hasAnalysis = cached, true
		} else {
			_, resultCh := m.pool.Submit(ctx, blob, analyzer.Options{AnalyzeBPM: true})
			result := <-resultCh
			if result.Err == nil {
				analysis, hasAnalysis = result.Analysis, true
				m.cache.CacheAnalysis(songID, analysis)
			}
		}
	}
	if !isWaiting() {
		sound.Unload()
		return
	}

	// Step 5: the audio graph (source/gain/analyser) is already initialized
	// by DecodeToSound. A missing gain node is tolerated here: the
	// crossfade simply falls back to software fades at execution time.

	m.mu.Lock()
	m.prepared = &Prepared{Index: index, Sound: sound, Analysis: analysis, HasAnalysis: hasAnalysis}
	m.mu.Unlock()
}

// waitForLoad blocks for ctx's remaining deadline for sound's load event.
func waitForLoad(ctx context.Context, sound graph.Sound) bool {
	loaded := make(chan struct{}, 1)
	var once sync.Once
	onLoad := func() { once.Do(func() { loaded <- struct{}{} }) }
	sound.On(graph.EventLoad, onLoad)
	defer sound.Off(graph.EventLoad, onLoad)

	select {
	case <-loaded:
		return true
	case <-ctx.Done():
		return false
	}
}

// Consume atomically hands off the prepared sound+analysis if its index
// matches expectedIndex; otherwise the buffer is dropped and nil is
// returned, matching the spec's "returning null if the prepared index
// doesn't match" contract.
func (m *Manager) Consume(expectedIndex int) *Prepared {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prepared == nil {
		return nil
	}
	p := m.prepared
	m.prepared = nil
	if p.Index != expectedIndex {
		p.Sound.Unload()
		return nil
	}
	return p
}

// Drop discards any pending prepared sound without consuming it, used
// when the state machine transitions away from waiting before consume.
func (m *Manager) Drop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prepared != nil {
		m.prepared.Sound.Unload()
		m.prepared = nil
	}
}
