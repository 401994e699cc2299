/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package vocalguard

import (
	"testing"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
)

func TestIsVocalActive(t *testing.T) {
	multiband := []analyzer.MultibandWindow{
		{Low: 0.1, Mid: 0.8, High: 0.1},
		{Low: 0.4, Mid: 0.2, High: 0.4},
		{Low: 0, Mid: 0, High: 0},
	}
	if !IsVocalActive(multiband, 0) {
		t.Fatalf("expected vocal active at window 0")
	}
	if IsVocalActive(multiband, 1) {
		t.Fatalf("expected vocal inactive at window 1")
	}
	if IsVocalActive(multiband, 2) {
		t.Fatalf("expected vocal inactive under noise floor")
	}
	if IsVocalActive(multiband, 99) {
		t.Fatalf("expected false for out-of-range window")
	}
}

func TestShouldDeferForVocals(t *testing.T) {
	multiband := []analyzer.MultibandWindow{
		{Low: 0.1, Mid: 0.8, High: 0.1},
		{Low: 0.1, Mid: 0.8, High: 0.1},
	}
	// crossfadeStart - outroStartTime = 0.25 -> window index 1
	defer_ := ShouldDeferForVocals(100.0, 100.25, 110.0, 100.0, multiband, 4.0)
	if !defer_ {
		t.Fatalf("expected defer when vocals active and budget remains")
	}

	noDefer := ShouldDeferForVocals(104.0, 100.25, 110.0, 100.0, multiband, 4.0)
	if noDefer {
		t.Fatalf("expected no defer once budget exhausted")
	}
}
