/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestRepositorySaveAndLoadAnalysisRoundTrips(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	ctx := context.Background()

	want := analyzer.TrackAnalysis{
		Duration: 210,
		BPM:      analyzer.BPMInfo{Known: true, BPM: 128},
		Outro:    analyzer.OutroClassification{Type: analyzer.OutroFadeOut, Confidence: 0.9},
		Volume:   analyzer.VolumeInfo{EstimatedLUFS: -14},
	}
	if err := repo.SaveAnalysis(ctx, "song-1", want); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	got, ok := repo.LoadAnalysis(ctx, "song-1")
	if !ok {
		t.Fatal("expected LoadAnalysis to find the saved record")
	}
	if got.Duration != want.Duration || got.BPM.BPM != want.BPM.BPM || got.Outro.Type != want.Outro.Type {
		t.Fatalf("LoadAnalysis = %+v, want %+v", got, want)
	}
}

func TestRepositorySaveAnalysisUpserts(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	ctx := context.Background()

	first := analyzer.TrackAnalysis{Duration: 100}
	second := analyzer.TrackAnalysis{Duration: 200}

	if err := repo.SaveAnalysis(ctx, "song-1", first); err != nil {
		t.Fatalf("first SaveAnalysis: %v", err)
	}
	if err := repo.SaveAnalysis(ctx, "song-1", second); err != nil {
		t.Fatalf("second SaveAnalysis: %v", err)
	}

	var count int64
	db.Model(&AnalysisRecord{}).Where("song_id = ?", "song-1").Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one row after upsert, got %d", count)
	}

	got, ok := repo.LoadAnalysis(ctx, "song-1")
	if !ok || got.Duration != second.Duration {
		t.Fatalf("LoadAnalysis after upsert = %+v, ok=%v, want Duration=%v", got, ok, second.Duration)
	}
}

func TestRepositoryLoadAnalysisMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	if _, ok := repo.LoadAnalysis(context.Background(), "missing"); ok {
		t.Fatal("expected LoadAnalysis to report a miss for an unknown song id")
	}
}

func TestLRUEvictsOldestBeyondCapacity(t *testing.T) {
	lru := NewLRU(2)
	lru.Put("a", analyzer.TrackAnalysis{Duration: 1})
	lru.Put("b", analyzer.TrackAnalysis{Duration: 2})
	lru.Put("c", analyzer.TrackAnalysis{Duration: 3})

	if _, ok := lru.Get("a"); ok {
		t.Fatal("expected \"a\" to have been evicted")
	}
	if _, ok := lru.Get("b"); !ok {
		t.Fatal("expected \"b\" to still be cached")
	}
	if _, ok := lru.Get("c"); !ok {
		t.Fatal("expected \"c\" to still be cached")
	}
	if got := lru.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
}
