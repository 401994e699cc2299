/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store is the persistence layer backing the analysis cache and
// transition audit log: gorm models supplementing the in-memory LRU
// (capacity 10, FIFO eviction, per §9) with durable, fleet-wide history.
package store

import (
	"time"

	"gorm.io/gorm"
)

// AnalysisRecord persists one TrackAnalysis, serialized, keyed by song id.
// It is the durable backstop behind the in-memory LRU and the Redis
// distcache tier; a cold station restart repopulates from here instead of
// re-running analysis.
type AnalysisRecord struct {
	SongID      string    `gorm:"type:varchar(64);primaryKey" json:"song_id"`
	AnalysisRaw []byte    `gorm:"type:bytea" json:"-"` // JSON-encoded analyzer.TrackAnalysis
	BPM         float64   `gorm:"index" json:"bpm"`
	OutroType   string    `gorm:"type:varchar(32);index" json:"outro_type"`
	LUFS        float64   `json:"lufs"`
	AnalyzedAt  time.Time `gorm:"not null" json:"analyzed_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (AnalysisRecord) TableName() string { return "automix_analysis_records" }

// TransitionLogEntry records one completed or cancelled crossfade for
// operator-facing diagnostics (§8's testable properties are the runtime
// invariants; this is the audit trail a station operator actually reads).
type TransitionLogEntry struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	StationID          string    `gorm:"type:varchar(64);index" json:"station_id"`
	OutgoingSongID     string    `gorm:"type:varchar(64)" json:"outgoing_song_id"`
	IncomingSongID     string    `gorm:"type:varchar(64)" json:"incoming_song_id"`
	OutroType          string    `gorm:"type:varchar(32)" json:"outro_type"`
	OutroConfidence    float64   `json:"outro_confidence"`
	CrossfadeDuration  float64   `json:"crossfade_duration_seconds"`
	CompatibilityScore float64   `json:"compatibility_score"`
	Cancelled          bool      `json:"cancelled"`
	OutgoingEndedEarly bool      `json:"outgoing_ended_early"`
	StartedAt          time.Time `gorm:"not null" json:"started_at"`
	CreatedAt          time.Time `json:"created_at"`
}

// TableName returns the table name for GORM.
func (TransitionLogEntry) TableName() string { return "automix_transition_log" }

// Migrate runs auto-migration for the AutoMix models, following the
// teacher's db.Connect + explicit migrate-on-startup split.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&AnalysisRecord{}, &TransitionLogEntry{})
}
