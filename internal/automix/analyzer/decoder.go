/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package analyzer

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
)

// AnalysisSampleRate is the fixed mono sample rate the analysis math
// operates at; ffmpeg resamples to this rate during decode.
const AnalysisSampleRate = 22050

// PCMDecoder turns an encoded audio blob into mono float64 PCM at
// AnalysisSampleRate, sample values in [-1, 1].
type PCMDecoder interface {
	Decode(ctx context.Context, blob []byte) ([]float64, error)
}

// FFmpegDecoder shells out to ffmpeg to decode and resample, mirroring
// internal/mediaengine/analyzer.go's gst-discoverer-1.0 subprocess idiom.
type FFmpegDecoder struct {
	// BinaryPath overrides the "ffmpeg" lookup, used in tests.
	BinaryPath string
}

// NewFFmpegDecoder constructs a decoder using the "ffmpeg" binary on PATH.
func NewFFmpegDecoder() *FFmpegDecoder {
	return &FFmpegDecoder{BinaryPath: "ffmpeg"}
}

// Decode writes blob to a scratch file, runs ffmpeg to produce raw mono
// S16LE PCM at AnalysisSampleRate on stdout, and converts it to float64.
func (d *FFmpegDecoder) Decode(ctx context.Context, blob []byte) ([]float64, error) {
	tmp, err := os.CreateTemp("", "automix-decode-*")
	if err != nil {
		return nil, fmt.Errorf("analyzer: scratch file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(blob); err != nil {
		return nil, fmt.Errorf("analyzer: write scratch file: %w", err)
	}

	bin := d.BinaryPath
	if bin == "" {
		bin = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-i", tmp.Name(),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", AnalysisSampleRate),
		"pipe:1",
	)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("analyzer: ffmpeg decode failed: %w: %s", err, stderr.String())
	}

	return decodeS16LE(out.Bytes()), nil
}

func decodeS16LE(raw []byte) []float64 {
	n := len(raw) / 2
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
		samples[i] = float64(v) / 32768.0
	}
	return samples
}

// MemoryPCMDecoder returns pre-decoded PCM as-is, used by tests and by
// automixctl when fed a raw PCM file directly.
type MemoryPCMDecoder struct {
	Samples []float64
}

// Decode returns the pre-loaded samples, ignoring blob.
func (d *MemoryPCMDecoder) Decode(ctx context.Context, blob []byte) ([]float64, error) {
	return d.Samples, nil
}
