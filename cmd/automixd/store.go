/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
	"github.com/friendsincode/grimnir_radio/internal/automix/distcache"
	"github.com/friendsincode/grimnir_radio/internal/automix/hostapi"
	automixstore "github.com/friendsincode/grimnir_radio/internal/automix/store"
	"github.com/friendsincode/grimnir_radio/internal/models"
)

// playlistStore implements hostapi.Store over a single models.Playlist,
// backing CachedAnalysis/CacheAnalysis with the in-memory LRU, the Redis
// distcache, and the gorm Repository in that order (fastest tier first),
// per the three-tier analysis cache the spec describes.
type playlistStore struct {
	repo   *automixstore.Repository
	dist   *distcache.Cache
	lru    *automixstore.LRU
	logger zerolog.Logger

	mu           sync.Mutex
	entries      []hostapi.PlaylistEntry
	currentIndex int
	personalFM   bool
	state        hostapi.State
}

// newPlaylistStore loads playlistID's items (ordered by position) and
// their media titles once at startup.
func newPlaylistStore(db *gorm.DB, playlistID string, personalFM bool, repo *automixstore.Repository, dist *distcache.Cache, logger zerolog.Logger) (*playlistStore, error) {
	var pl models.Playlist
	err := db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	}).First(&pl, "id = ?", playlistID).Error
	if err != nil {
		return nil, err
	}

	entries := make([]hostapi.PlaylistEntry, 0, len(pl.Items))
	for _, item := range pl.Items {
		var media models.MediaItem
		if err := db.Select("id", "title").First(&media, "id = ?", item.MediaID).Error; err != nil {
			logger.Warn().Err(err).Str("media_id", item.MediaID).Msg("playlist item references missing media, skipping")
			continue
		}
		entries = append(entries, hostapi.PlaylistEntry{SongID: media.ID, Name: media.Title})
	}

	return &playlistStore{
		repo:       repo,
		dist:       dist,
		lru:        automixstore.NewLRU(10),
		logger:     logger.With().Str("component", "automix.store").Logger(),
		entries:    entries,
		personalFM: personalFM,
	}, nil
}

func (s *playlistStore) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIndex
}

func (s *playlistStore) PlaylistLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *playlistStore) PlaylistEntry(index int) (hostapi.PlaylistEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.entries) {
		return hostapi.PlaylistEntry{}, false
	}
	return s.entries[index], true
}

// NextIndex picks randomly under personal-FM, else advances sequentially
// with wraparound.
func (s *playlistStore) NextIndex(current int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return 0
	}
	if s.personalFM {
		return rand.Intn(len(s.entries))
	}
	return (current + 1) % len(s.entries)
}

func (s *playlistStore) PersonalFM() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.personalFM
}

func (s *playlistStore) SetAutoMixState(st hostapi.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *playlistStore) AutoMixState() hostapi.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *playlistStore) CachedAnalysis(songID string) (analyzer.TrackAnalysis, bool) {
	s.mu.Lock()
	if a, ok := s.lru.Get(songID); ok {
		s.mu.Unlock()
		return a, true
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if s.dist != nil {
		if a, ok := s.dist.Get(ctx, songID); ok {
			s.mu.Lock()
			s.lru.Put(songID, a)
			s.mu.Unlock()
			return a, true
		}
	}
	if s.repo != nil {
		if a, ok := s.repo.LoadAnalysis(ctx, songID); ok {
			s.mu.Lock()
			s.lru.Put(songID, a)
			s.mu.Unlock()
			return a, true
		}
	}
	return analyzer.TrackAnalysis{}, false
}

func (s *playlistStore) CacheAnalysis(songID string, a analyzer.TrackAnalysis) {
	s.mu.Lock()
	s.lru.Put(songID, a)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if s.dist != nil {
		s.dist.Set(ctx, songID, a)
	}
	if s.repo != nil {
		if err := s.repo.SaveAnalysis(ctx, songID, a); err != nil {
			s.logger.Debug().Err(err).Str("song_id", songID).Msg("persist analysis failed")
		}
	}
}

func (s *playlistStore) SetPlaySongIndex(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentIndex = index
}

// fixedVolume is a constant hostapi.PlaybackVolume, standing in for a
// host-side volume fader that cmd/automixd does not yet expose.
type fixedVolume float64

func (v fixedVolume) Volume() float64 { return float64(v) }
