/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package gstgraph is the production graph.Graph implementation: it
// decodes tracks to PCM via an ffmpeg subprocess (mirroring
// internal/automix/analyzer.FFmpegDecoder's scratch-file idiom) and mixes
// active voices onto a single output sink with a real-time render pump,
// generalizing internal/playout/crossfade.go's two-voice mixS16LE
// crossfade to N voices weighted by each Sound's live AutomatedParam gain
// value. Automation bookkeeping (Gain/Biquad/Convolver/BufferSource) is
// delegated to memgraph, which already implements it without touching a
// device.
package gstgraph

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_radio/internal/automix/graph"
	"github.com/friendsincode/grimnir_radio/internal/automix/graph/memgraph"
)

// renderChannels is fixed at stereo; AutoMix never handles mono output.
const renderChannels = 2

// renderHz is the render pump's block rate, matching curves.Resolution's
// ~48 samples/sec automation granularity closely enough that no audible
// step is introduced between rendered blocks.
const renderHz = 50

// Config configures the ffmpeg-subprocess decoder and render pump.
type Config struct {
	FFmpegBin  string // defaults to "ffmpeg"
	SampleRate int    // defaults to 44100
}

type voice struct {
	sound *memgraph.Sound
	pcm   [][]float64
	rate  int
}

// Graph is the GStreamer/ffmpeg-backed graph.Graph. It embeds
// memgraph.Graph for node construction and automation, and owns the
// decode + render pump on top of it.
type Graph struct {
	*memgraph.Graph
	cfg    Config
	logger zerolog.Logger

	mu     sync.Mutex
	voices map[string]*voice
	sink   io.Writer
}

// New constructs a Graph writing mixed S16LE stereo PCM to sink (normally
// an encoder subprocess's stdin, per internal/playout.pcmCrossfadeSession).
func New(cfg Config, sink io.Writer, logger zerolog.Logger) *Graph {
	if cfg.FFmpegBin == "" {
		cfg.FFmpegBin = "ffmpeg"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	return &Graph{
		Graph:  memgraph.New(memgraph.RealClock),
		cfg:    cfg,
		logger: logger.With().Str("component", "automix.gstgraph").Logger(),
		voices: make(map[string]*voice),
		sink:   sink,
	}
}

// DecodeToSound decodes data via ffmpeg into stereo PCM at cfg.SampleRate
// and registers it as a mixable voice.
func (g *Graph) DecodeToSound(ctx context.Context, songID string, data []byte) (graph.Sound, error) {
	pcm, rate, err := decodePCM(ctx, g.cfg.FFmpegBin, g.cfg.SampleRate, data)
	if err != nil {
		return nil, fmt.Errorf("gstgraph: decode %s: %w", songID, err)
	}
	sound := memgraph.NewSound(memgraph.RealClock, songID, pcm, rate)
	g.mu.Lock()
	g.voices[songID] = &voice{sound: sound, pcm: pcm, rate: rate}
	g.mu.Unlock()
	return &trackedSound{Sound: sound, graph: g, songID: songID}, nil
}

// trackedSound wraps memgraph.Sound to deregister its voice on Unload, so
// a crossfaded-out track stops contributing to the render mix without the
// render loop having to special-case "ended" sounds.
type trackedSound struct {
	*memgraph.Sound
	graph  *Graph
	songID string
}

func (t *trackedSound) Unload() {
	t.Sound.Unload()
	t.graph.mu.Lock()
	delete(t.graph.voices, t.songID)
	t.graph.mu.Unlock()
}

// Run drives the render pump until ctx is cancelled, mixing all playing
// voices once per render tick and writing the result to sink.
func (g *Graph) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / renderHz)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := g.renderBlock(); err != nil {
				g.logger.Warn().Err(err).Msg("render block write failed")
			}
		}
	}
}

func (g *Graph) renderBlock() error {
	g.mu.Lock()
	active := make([]*voice, 0, len(g.voices))
	for _, v := range g.voices {
		if v.sound.Playing() {
			active = append(active, v)
		}
	}
	sink := g.sink
	g.mu.Unlock()

	if sink == nil || len(active) == 0 {
		return nil
	}

	frameSamples := g.cfg.SampleRate / renderHz
	if frameSamples <= 0 {
		frameSamples = 882
	}
	mix := make([]float64, frameSamples*renderChannels)

	for _, v := range active {
		gainVal := 1.0
		if gn, ok := v.sound.GainNode(); ok {
			gainVal = gn.Gain().Value()
		}
		start := int(v.sound.Position().Seconds() * float64(v.rate))
		for ch := 0; ch < renderChannels && ch < len(v.pcm); ch++ {
			src := v.pcm[ch]
			for i := 0; i < frameSamples; i++ {
				idx := start + i
				if idx >= len(src) {
					break
				}
				mix[i*renderChannels+ch] += src[idx] * gainVal
			}
		}
	}

	out := make([]byte, len(mix)*2)
	for i, s := range mix {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		out[i*2] = byte(uint16(v))
		out[i*2+1] = byte(uint16(v) >> 8)
	}
	_, err := sink.Write(out)
	return err
}

// decodePCM writes blob to a scratch file and runs ffmpeg to produce raw
// stereo S16LE PCM at rate, converting to per-channel float64 in [-1, 1];
// mirrors analyzer.FFmpegDecoder.Decode's scratch-file idiom, generalized
// from mono to stereo.
func decodePCM(ctx context.Context, bin string, rate int, blob []byte) ([][]float64, int, error) {
	tmp, err := os.CreateTemp("", "automix-gstgraph-*")
	if err != nil {
		return nil, 0, fmt.Errorf("gstgraph: scratch file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(blob); err != nil {
		return nil, 0, fmt.Errorf("gstgraph: write scratch file: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-i", tmp.Name(),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", fmt.Sprintf("%d", renderChannels),
		"-ar", fmt.Sprintf("%d", rate),
		"pipe:1",
	)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, 0, fmt.Errorf("gstgraph: ffmpeg decode failed: %w: %s", err, stderr.String())
	}

	return deinterleaveS16LE(out.Bytes(), renderChannels), rate, nil
}

func deinterleaveS16LE(raw []byte, channels int) [][]float64 {
	frameBytes := 2 * channels
	frames := len(raw) / frameBytes
	pcm := make([][]float64, channels)
	for ch := range pcm {
		pcm[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := i*frameBytes + ch*2
			v := int16(binary.LittleEndian.Uint16(raw[off : off+2]))
			pcm[ch][i] = float64(v) / 32768.0
		}
	}
	return pcm
}
