/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
	"github.com/friendsincode/grimnir_radio/internal/automix/hostapi"
	"github.com/friendsincode/grimnir_radio/internal/events"
)

type fakeStateProvider struct {
	state      hostapi.State
	crossfade  bool
	progress   float64
	adjustment float64
}

func (f *fakeStateProvider) GetState() hostapi.State          { return f.state }
func (f *fakeStateProvider) IsCrossfading() bool               { return f.crossfade }
func (f *fakeStateProvider) GetCrossfadeProgress() float64     { return f.progress }
func (f *fakeStateProvider) GetActiveGainAdjustment() float64  { return f.adjustment }

type fakeAnalysisProvider struct {
	analyses map[string]analyzer.TrackAnalysis
}

func (f *fakeAnalysisProvider) CachedAnalysis(songID string) (analyzer.TrackAnalysis, bool) {
	a, ok := f.analyses[songID]
	return a, ok
}

func signedTestToken(t *testing.T, secret []byte) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "test"})
	s, err := tok.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestHandleStateReturnsMachineSnapshot(t *testing.T) {
	secret := []byte("test-secret")
	machine := &fakeStateProvider{
		state:      hostapi.State{Phase: hostapi.PhaseWaiting, IncomingSongID: "song-2"},
		crossfade:  false,
		progress:   0,
		adjustment: 1,
	}
	analyses := &fakeAnalysisProvider{analyses: map[string]analyzer.TrackAnalysis{}}
	a := New(machine, analyses, events.NewBus(), secret, zerolog.Nop())

	r := chi.NewRouter()
	a.Mount(r)

	req := httptest.NewRequest(http.MethodGet, "/automix/state", nil)
	req.Header.Set("Authorization", "Bearer "+signedTestToken(t, secret))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp stateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Phase != string(hostapi.PhaseWaiting) {
		t.Fatalf("Phase = %q, want %q", resp.Phase, hostapi.PhaseWaiting)
	}
	if resp.IncomingSongID != "song-2" {
		t.Fatalf("IncomingSongID = %q, want song-2", resp.IncomingSongID)
	}
}

func TestHandleAnalysisNotFound(t *testing.T) {
	secret := []byte("test-secret")
	machine := &fakeStateProvider{}
	analyses := &fakeAnalysisProvider{analyses: map[string]analyzer.TrackAnalysis{}}
	a := New(machine, analyses, events.NewBus(), secret, zerolog.Nop())

	r := chi.NewRouter()
	a.Mount(r)

	req := httptest.NewRequest(http.MethodGet, "/automix/analysis/unknown-song", nil)
	req.Header.Set("Authorization", "Bearer "+signedTestToken(t, secret))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleStateRejectsMissingToken(t *testing.T) {
	machine := &fakeStateProvider{}
	analyses := &fakeAnalysisProvider{analyses: map[string]analyzer.TrackAnalysis{}}
	a := New(machine, analyses, events.NewBus(), []byte("test-secret"), zerolog.Nop())

	r := chi.NewRouter()
	a.Mount(r)

	req := httptest.NewRequest(http.MethodGet, "/automix/state", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
