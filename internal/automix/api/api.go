/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes AutoMix's observable state over HTTP: the current
// autoMixState snapshot, per-song analysis lookups, and a websocket event
// stream forwarding events.Bus notifications. Grounded on internal/api's
// chi-router-plus-JWT-middleware shape and internal/api/webdj_ws.go's
// nhooyr.io/websocket subscribe loop.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	ws "nhooyr.io/websocket"

	"github.com/friendsincode/grimnir_radio/internal/auth"
	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
	"github.com/friendsincode/grimnir_radio/internal/automix/hostapi"
	"github.com/friendsincode/grimnir_radio/internal/events"
)

// StateProvider exposes the running TransitionStateMachine's observable
// state; satisfied by statemachine.Machine.
type StateProvider interface {
	GetState() hostapi.State
	IsCrossfading() bool
	GetCrossfadeProgress() float64
	GetActiveGainAdjustment() float64
}

// AnalysisProvider looks up a cached analysis by song id.
type AnalysisProvider interface {
	CachedAnalysis(songID string) (analyzer.TrackAnalysis, bool)
}

// API bundles the AutoMix HTTP surface.
type API struct {
	machine   StateProvider
	analyses  AnalysisProvider
	bus       *events.Bus
	jwtSecret []byte
	logger    zerolog.Logger
}

// New constructs the AutoMix API handler.
func New(machine StateProvider, analyses AnalysisProvider, bus *events.Bus, jwtSecret []byte, logger zerolog.Logger) *API {
	return &API{
		machine:   machine,
		analyses:  analyses,
		bus:       bus,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("component", "automix.api").Logger(),
	}
}

// Mount registers routes on r under the given prefix ("/automix" in
// production), all behind JWT auth.
func (a *API) Mount(r chi.Router) {
	r.Route("/automix", func(router chi.Router) {
		router.Use(auth.Middleware(a.jwtSecret))
		router.Get("/state", a.handleState)
		router.Get("/analysis/{songID}", a.handleAnalysis)
		router.Get("/events", a.handleEvents)
	})
}

type stateResponse struct {
	Phase             string  `json:"phase"`
	OutroType         string  `json:"outro_type,omitempty"`
	OutroConfidence   float64 `json:"outro_confidence"`
	CrossfadeProgress float64 `json:"crossfade_progress"`
	IsCrossfading     bool    `json:"is_crossfading"`
	GainAdjustment    float64 `json:"active_gain_adjustment"`
	IncomingSongID    string  `json:"incoming_song_id,omitempty"`
	IncomingSongName  string  `json:"incoming_song_name,omitempty"`
}

func (a *API) handleState(w http.ResponseWriter, r *http.Request) {
	st := a.machine.GetState()
	resp := stateResponse{
		Phase:             string(st.Phase),
		OutroType:         string(st.OutroType),
		OutroConfidence:   st.OutroConfidence,
		CrossfadeProgress: a.machine.GetCrossfadeProgress(),
		IsCrossfading:     a.machine.IsCrossfading(),
		GainAdjustment:    a.machine.GetActiveGainAdjustment(),
		IncomingSongID:    st.IncomingSongID,
		IncomingSongName:  st.IncomingSongName,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	songID := chi.URLParam(r, "songID")
	analysis, ok := a.analyses.CachedAnalysis(songID)
	if !ok {
		http.Error(w, "analysis not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// handleEvents streams events.EventAutoMixStateChanged notifications to
// the client as they are published on the bus.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	sub := a.bus.Subscribe(events.EventAutoMixStateChanged)
	defer a.bus.Unsubscribe(events.EventAutoMixStateChanged, sub)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "client disconnected")
			return
		case payload, ok := <-sub:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, ws.MessageText, mustJSON(payload))
			cancel()
			if err != nil {
				a.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
