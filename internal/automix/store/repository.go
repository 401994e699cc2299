/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
)

// Repository persists AnalysisRecord/TransitionLogEntry rows via gorm.
type Repository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewRepository wraps an existing gorm connection (from internal/db.Connect).
func NewRepository(db *gorm.DB, logger zerolog.Logger) *Repository {
	return &Repository{db: db, logger: logger.With().Str("component", "automix.store").Logger()}
}

// SaveAnalysis upserts an AnalysisRecord for songID.
func (r *Repository) SaveAnalysis(ctx context.Context, songID string, a analyzer.TrackAnalysis) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("store: marshal analysis: %w", err)
	}
	rec := AnalysisRecord{
		SongID:      songID,
		AnalysisRaw: raw,
		BPM:         a.BPM.BPM,
		OutroType:   string(a.Outro.Type),
		LUFS:        a.Volume.EstimatedLUFS,
		AnalyzedAt:  time.Now(),
	}
	err = r.db.WithContext(ctx).
		Where("song_id = ?", songID).
		Assign(rec).
		FirstOrCreate(&AnalysisRecord{}).Error
	if err != nil {
		r.logger.Warn().Err(err).Str("song_id", songID).Msg("failed to persist analysis")
		return fmt.Errorf("store: save analysis: %w", err)
	}
	return nil
}

// LoadAnalysis fetches a persisted AnalysisRecord and decodes it.
func (r *Repository) LoadAnalysis(ctx context.Context, songID string) (analyzer.TrackAnalysis, bool) {
	var rec AnalysisRecord
	if err := r.db.WithContext(ctx).Where("song_id = ?", songID).First(&rec).Error; err != nil {
		return analyzer.TrackAnalysis{}, false
	}
	var a analyzer.TrackAnalysis
	if err := json.Unmarshal(rec.AnalysisRaw, &a); err != nil {
		r.logger.Warn().Err(err).Str("song_id", songID).Msg("failed to decode persisted analysis")
		return analyzer.TrackAnalysis{}, false
	}
	return a, true
}

// LogTransition records a completed or cancelled crossfade.
func (r *Repository) LogTransition(ctx context.Context, entry TransitionLogEntry) error {
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		r.logger.Warn().Err(err).Msg("failed to log transition")
		return fmt.Errorf("store: log transition: %w", err)
	}
	return nil
}

// LRU is the in-memory, capacity-10, FIFO-eviction analysis cache that
// sits in front of Repository/distcache, matching the spec's description
// of the analyzer's own cache tier.
type LRU struct {
	capacity int
	order    []string
	entries  map[string]analyzer.TrackAnalysis
}

// NewLRU constructs an LRU with the given capacity (defaulting to 10).
func NewLRU(capacity int) *LRU {
	if capacity < 1 {
		capacity = 10
	}
	return &LRU{capacity: capacity, entries: make(map[string]analyzer.TrackAnalysis)}
}

// Get returns the cached analysis for songID, if present.
func (l *LRU) Get(songID string) (analyzer.TrackAnalysis, bool) {
	a, ok := l.entries[songID]
	return a, ok
}

// Put stores a into the cache, evicting the oldest entry (FIFO) when at
// capacity and songID is new.
func (l *LRU) Put(songID string, a analyzer.TrackAnalysis) {
	if _, exists := l.entries[songID]; !exists {
		if len(l.order) >= l.capacity {
			oldest := l.order[0]
			l.order = l.order[1:]
			delete(l.entries, oldest)
		}
		l.order = append(l.order, songID)
	}
	l.entries[songID] = a
}

// Len reports the number of cached entries.
func (l *LRU) Len() int { return len(l.entries) }
