/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package gstgraph

import "testing"

func TestDeinterleaveS16LE(t *testing.T) {
	// Two stereo frames: (1000, -1000), (2000, -2000).
	raw := []byte{
		0xE8, 0x03, // 1000 LE
		0x18, 0xFC, // -1000 LE
		0xD0, 0x07, // 2000 LE
		0x30, 0xF8, // -2000 LE
	}
	pcm := deinterleaveS16LE(raw, 2)
	if len(pcm) != 2 || len(pcm[0]) != 2 || len(pcm[1]) != 2 {
		t.Fatalf("unexpected shape: %+v", pcm)
	}
	if got, want := pcm[0][0], 1000.0/32768.0; got != want {
		t.Fatalf("left[0] = %v, want %v", got, want)
	}
	if got, want := pcm[1][0], -1000.0/32768.0; got != want {
		t.Fatalf("right[0] = %v, want %v", got, want)
	}
	if got, want := pcm[0][1], 2000.0/32768.0; got != want {
		t.Fatalf("left[1] = %v, want %v", got, want)
	}
}
