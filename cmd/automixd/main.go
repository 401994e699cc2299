/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Command automixd is the AutoMix station daemon: it wires the
// TransitionStateMachine to a production audio graph (gstgraph), a
// three-tier analysis cache, an S3/HTTP track source, and an Icecast
// render sink, then exposes the result over HTTP. Composition mirrors
// cmd/grimnirradio/main.go and internal/server.New's dependency wiring,
// narrowed to the AutoMix subsystem.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
	"github.com/friendsincode/grimnir_radio/internal/automix/api"
	"github.com/friendsincode/grimnir_radio/internal/automix/curves"
	"github.com/friendsincode/grimnir_radio/internal/automix/distcache"
	"github.com/friendsincode/grimnir_radio/internal/automix/graph/gstgraph"
	"github.com/friendsincode/grimnir_radio/internal/automix/hostapi"
	"github.com/friendsincode/grimnir_radio/internal/automix/source"
	"github.com/friendsincode/grimnir_radio/internal/automix/statemachine"
	automixstore "github.com/friendsincode/grimnir_radio/internal/automix/store"
	"github.com/friendsincode/grimnir_radio/internal/config"
	"github.com/friendsincode/grimnir_radio/internal/db"
	"github.com/friendsincode/grimnir_radio/internal/events"
	"github.com/friendsincode/grimnir_radio/internal/logging"
	"github.com/friendsincode/grimnir_radio/internal/telemetry"
)

const sampleRate = 44100

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Environment)
	logger.Info().Msg("AutoMix daemon starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gdb, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connect failed")
	}
	if err := automixstore.Migrate(gdb); err != nil {
		logger.Fatal().Err(err).Msg("automix migration failed")
	}

	dist := distcache.New(distcache.Config{
		RedisAddr:      cfg.RedisAddr,
		RedisPassword:  cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DisableOnError: true,
	}, logger)
	defer dist.Close()

	repo := automixstore.NewRepository(gdb, logger)

	store, err := newPlaylistStore(gdb, cfg.AutoMixPlaylistID, cfg.AutoMixPersonalFM, repo, dist, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load automix playlist")
	}

	resolver, err := source.NewS3Resolver(ctx, source.S3Config{
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Region:          cfg.S3Region,
		Bucket:          cfg.S3Bucket,
		Endpoint:        cfg.S3Endpoint,
		UsePathStyle:    cfg.S3UsePathStyle,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct S3 resolver")
	}
	downloader := source.NewHTTPDownloader()

	decoder := analyzer.NewFFmpegDecoder()
	pool := analyzer.NewPool(decoder, 1)
	defer pool.Close()

	sink, err := newIcecastSink(ctx, cfg.GStreamerBin, cfg.IcecastURL, cfg.IcecastSourcePassword, sampleRate, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start icecast encoder")
	}
	defer sink.Close()

	g := gstgraph.New(gstgraph.Config{SampleRate: sampleRate}, sink, logger)
	go func() {
		if err := g.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("render pump stopped")
		}
	}()

	settings := func() hostapi.Settings {
		return hostapi.Settings{
			Enabled:           cfg.AutoMixEnabled,
			CrossfadeDuration: cfg.AutoMixCrossfadeDuration,
			TransitionStyle:   curves.Curve(cfg.AutoMixTransitionStyle),
			BPMMatch:          cfg.AutoMixBPMMatch,
			BeatAlign:         cfg.AutoMixBeatAlign,
			VolumeNorm:        cfg.AutoMixVolumeNorm,
			SmartCurve:        cfg.AutoMixSmartCurve,
			TransitionEffects: cfg.AutoMixTransitionEffects,
			VocalGuard:        cfg.AutoMixVocalGuard,
		}
	}

	bus := events.NewBus()

	machine := statemachine.New(statemachine.Deps{
		Graph:      g,
		Resolver:   resolver,
		Downloader: downloader,
		Decoder:    decoder,
		Pool:       pool,
		Store:      store,
		Volume:     fixedVolume(1.0),
		Bus:        bus,
		Logger:     logger,
		Settings:   settings,
	})

	p := newPlayer(machine, store, g, resolver, downloader, logger)
	if err := p.start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start playback")
	}

	go machine.Run(ctx, statemachine.DefaultMonitorPeriod, p.soundProvider)
	go p.watchStateChanges(ctx, bus)
	go p.watchAdvance(ctx, statemachine.DefaultMonitorPeriod)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.TracingMiddleware("automixd"))
	router.Use(telemetry.MetricsMiddleware)
	router.Handle("/metrics", telemetry.Handler())

	jwtSecret := []byte(cfg.JWTSigningKey)
	api.New(machine, store, bus, jwtSecret, logger).Mount(router)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("automixd HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("AutoMix daemon stopped")
}
