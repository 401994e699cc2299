/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os/exec"

	"github.com/rs/zerolog"
)

// icecastSink spawns a gst-launch-1.0 subprocess that reads raw S16LE
// stereo PCM on stdin, encodes it, and streams it to an Icecast mount via
// shout2send. Grounded on internal/playout/crossfade.go's decoderProc,
// mirrored from decode (stdout) to encode (stdin).
type icecastSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	cancel context.CancelFunc
}

// newIcecastSink parses icecastURL (e.g. "icecast://host:8000/mount") and
// starts the encoder subprocess. Its stdin is the Graph's render sink.
func newIcecastSink(ctx context.Context, gstreamerBin, icecastURL, sourcePassword string, sampleRate int, logger zerolog.Logger) (*icecastSink, error) {
	u, err := url.Parse(icecastURL)
	if err != nil {
		return nil, fmt.Errorf("automix: parse icecast url: %w", err)
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "8000"
	}
	mount := u.Path

	cmdCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cmdCtx, gstreamerBin, "-e", "-q",
		"fdsrc", "fd=0",
		"!", "audio/x-raw,format=S16LE,rate="+fmt.Sprintf("%d", sampleRate)+",channels=2,layout=interleaved",
		"!", "audioconvert",
		"!", "lamemp3enc", "target=1", "bitrate=128", "cbr=true",
		"!", "shout2send", "ip="+host, "port="+port, "password="+sourcePassword, "mount="+mount,
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("automix: icecast stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("automix: start icecast encoder: %w", err)
	}

	logger.Info().Int("pid", cmd.Process.Pid).Strs("pipeline", cmd.Args[1:]).Msg("icecast encoder started")

	return &icecastSink{cmd: cmd, stdin: stdin, cancel: cancel}, nil
}

func (s *icecastSink) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

func (s *icecastSink) Close() error {
	s.cancel()
	err := s.stdin.Close()
	_ = s.cmd.Wait()
	return err
}
