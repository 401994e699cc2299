/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_radio/internal/automix/graph"
	"github.com/friendsincode/grimnir_radio/internal/automix/hostapi"
	"github.com/friendsincode/grimnir_radio/internal/automix/statemachine"
	"github.com/friendsincode/grimnir_radio/internal/events"
)

// player owns the "currently playing" pointer outside of a crossfade: it
// feeds Machine.Run's soundProvider, advances the playlist sequentially
// (or randomly, under personal-FM) whenever a track finishes without a
// crossfade having taken over, and tracks the live song id by watching
// the bus for the state transitions Machine.publishState already emits
// when a crossfade hands off to the incoming track. Grounded on
// internal/playout/director.go's schedule-advance loop, narrowed from
// schedule entries to a flat playlist index.
type player struct {
	machine    *statemachine.Machine
	store      *playlistStore
	g          graph.Graph
	resolver   hostapi.Resolver
	downloader hostapi.Downloader
	logger     zerolog.Logger

	mu     sync.Mutex
	songID string
}

func newPlayer(machine *statemachine.Machine, store *playlistStore, g graph.Graph, resolver hostapi.Resolver, downloader hostapi.Downloader, logger zerolog.Logger) *player {
	return &player{
		machine:    machine,
		store:      store,
		g:          g,
		resolver:   resolver,
		downloader: downloader,
		logger:     logger.With().Str("component", "automix.player").Logger(),
	}
}

// soundProvider satisfies statemachine.Machine.Run's callback.
func (p *player) soundProvider() (graph.Sound, string) {
	p.mu.Lock()
	songID := p.songID
	p.mu.Unlock()
	return p.machine.CurrentSound(), songID
}

// start loads and plays the playlist's current entry.
func (p *player) start(ctx context.Context) error {
	return p.loadAndPlay(ctx, p.store.CurrentIndex())
}

func (p *player) loadAndPlay(ctx context.Context, index int) error {
	entry, ok := p.store.PlaylistEntry(index)
	if !ok {
		return fmt.Errorf("automix: no playlist entry at index %d", index)
	}

	url, _, err := p.resolver.ResolveURL(ctx, entry.SongID)
	if err != nil {
		return fmt.Errorf("automix: resolve %s: %w", entry.SongID, err)
	}
	blob, err := p.downloader.Download(ctx, url)
	if err != nil {
		return fmt.Errorf("automix: download %s: %w", entry.SongID, err)
	}
	sound, err := p.g.DecodeToSound(ctx, entry.SongID, blob)
	if err != nil {
		return fmt.Errorf("automix: decode %s: %w", entry.SongID, err)
	}
	if err := sound.Play(); err != nil {
		return fmt.Errorf("automix: play %s: %w", entry.SongID, err)
	}

	p.mu.Lock()
	p.songID = entry.SongID
	p.mu.Unlock()
	p.store.SetPlaySongIndex(index)
	p.machine.OnTrackStarted(ctx, sound, entry.SongID)

	p.logger.Info().Str("song_id", entry.SongID).Str("name", entry.Name).Msg("now playing")
	return nil
}

// watchStateChanges subscribes to the bus's AutoMix state events and
// adopts the incoming song id once a crossfade reaches its finishing
// grace period, so soundProvider reports the promoted track instead of
// the one it replaced.
func (p *player) watchStateChanges(ctx context.Context, bus *events.Bus) {
	sub := bus.Subscribe(events.EventAutoMixStateChanged)
	defer bus.Unsubscribe(events.EventAutoMixStateChanged, sub)
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub:
			if !ok {
				return
			}
			phase, _ := payload["phase"].(string)
			if phase != string(hostapi.PhaseFinishing) {
				continue
			}
			incoming, _ := payload["incoming_song_id"].(string)
			if incoming == "" {
				continue
			}
			p.mu.Lock()
			p.songID = incoming
			p.mu.Unlock()
		}
	}
}

// watchAdvance polls for the current track ending without a crossfade
// having taken over (e.g. analysis unavailable, or AutoMix disabled) and
// advances the playlist itself, mirroring Director's own schedule-advance
// fallback.
func (p *player) watchAdvance(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sound := p.machine.CurrentSound()
			if sound == nil || p.machine.IsCrossfading() {
				continue
			}
			if sound.Position() < sound.Duration() {
				continue
			}
			next := p.store.NextIndex(p.store.CurrentIndex())
			if err := p.loadAndPlay(ctx, next); err != nil {
				p.logger.Error().Err(err).Msg("failed to advance playlist")
			}
		}
	}
}
