/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry instruments the AutoMix core with Prometheus metrics
// and OpenTelemetry spans, reusing the host's global tracer provider
// (internal/telemetry.Tracer/StartSpan) rather than standing up a second
// one.
package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	hosttelemetry "github.com/friendsincode/grimnir_radio/internal/telemetry"
)

const tracerName = "automix"

var (
	// CrossfadesStarted counts ScheduleFullCrossfade invocations.
	CrossfadesStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grimnir_automix_crossfades_started_total",
		Help: "Crossfades started by outro type.",
	}, []string{"outro_type"})

	// CrossfadesCancelled counts crossfades cancelled before completion.
	CrossfadesCancelled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grimnir_automix_crossfades_cancelled_total",
		Help: "Crossfades cancelled before completion.",
	})

	// AnalysisDuration observes analyzeTrack wall-clock time.
	AnalysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "grimnir_automix_analysis_duration_seconds",
		Help:    "Wall-clock duration of analyzeTrack calls.",
		Buckets: prometheus.DefBuckets,
	})

	// AnalysisFailures counts analyzeTrack errors (decode/timeout).
	AnalysisFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grimnir_automix_analysis_failures_total",
		Help: "analyzeTrack calls that returned an error.",
	})

	// CompatibilityScore observes the overall CompatibilityScorer score.
	CompatibilityScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "grimnir_automix_compatibility_score",
		Help:    "Overall compatibility score computed per transition.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})
)

func init() {
	prometheus.MustRegister(CrossfadesStarted, CrossfadesCancelled, AnalysisDuration, AnalysisFailures, CompatibilityScore)
}

// StartSpan starts a span under the "automix" tracer.
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return hosttelemetry.StartSpan(ctx, tracerName, spanName)
}

// RecordError records err on span if non-nil.
func RecordError(span trace.Span, err error) {
	hosttelemetry.RecordError(span, err)
}
