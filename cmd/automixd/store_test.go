/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"testing"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
	"github.com/friendsincode/grimnir_radio/internal/automix/hostapi"
	automixstore "github.com/friendsincode/grimnir_radio/internal/automix/store"
)

func newTestStore(entries []hostapi.PlaylistEntry, personalFM bool) *playlistStore {
	return &playlistStore{
		lru:        automixstore.NewLRU(10),
		entries:    entries,
		personalFM: personalFM,
	}
}

func TestPlaylistStoreNextIndexSequentialWraps(t *testing.T) {
	s := newTestStore([]hostapi.PlaylistEntry{{SongID: "a"}, {SongID: "b"}, {SongID: "c"}}, false)
	if got := s.NextIndex(0); got != 1 {
		t.Fatalf("NextIndex(0) = %d, want 1", got)
	}
	if got := s.NextIndex(2); got != 0 {
		t.Fatalf("NextIndex(2) = %d, want 0 (wraparound)", got)
	}
}

func TestPlaylistStoreNextIndexPersonalFMStaysInRange(t *testing.T) {
	s := newTestStore([]hostapi.PlaylistEntry{{SongID: "a"}, {SongID: "b"}}, true)
	for i := 0; i < 20; i++ {
		got := s.NextIndex(0)
		if got < 0 || got >= 2 {
			t.Fatalf("NextIndex out of range: %d", got)
		}
	}
}

func TestPlaylistStoreNextIndexEmptyPlaylist(t *testing.T) {
	s := newTestStore(nil, false)
	if got := s.NextIndex(0); got != 0 {
		t.Fatalf("NextIndex on empty playlist = %d, want 0", got)
	}
}

func TestPlaylistStorePlaylistEntryBounds(t *testing.T) {
	s := newTestStore([]hostapi.PlaylistEntry{{SongID: "a"}}, false)
	if _, ok := s.PlaylistEntry(-1); ok {
		t.Fatal("expected ok=false for negative index")
	}
	if _, ok := s.PlaylistEntry(1); ok {
		t.Fatal("expected ok=false for out-of-range index")
	}
	entry, ok := s.PlaylistEntry(0)
	if !ok || entry.SongID != "a" {
		t.Fatalf("PlaylistEntry(0) = %+v, %v", entry, ok)
	}
}

func TestPlaylistStoreCacheAnalysisRoundTripsThroughLRU(t *testing.T) {
	s := newTestStore(nil, false)
	want := analyzer.TrackAnalysis{Duration: 180}
	s.CacheAnalysis("song-1", want)

	got, ok := s.CachedAnalysis("song-1")
	if !ok {
		t.Fatal("expected cache hit after CacheAnalysis")
	}
	if got.Duration != want.Duration {
		t.Fatalf("Duration = %v, want %v", got.Duration, want.Duration)
	}

	if _, ok := s.CachedAnalysis("missing"); ok {
		t.Fatal("expected cache miss for unseen song id")
	}
}

func TestPlaylistStoreSetAndGetAutoMixState(t *testing.T) {
	s := newTestStore(nil, false)
	s.SetAutoMixState(hostapi.State{Phase: hostapi.PhaseCrossfading})
	if got := s.AutoMixState(); got.Phase != hostapi.PhaseCrossfading {
		t.Fatalf("AutoMixState().Phase = %v, want crossfading", got.Phase)
	}
}
