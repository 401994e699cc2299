/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package distcache

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
)

// unreachableAddr is never a live Redis instance in test environments, so
// New's startup ping fails and the cache degrades to disabled, matching
// the "disable on error, don't crash" posture the package is grounded on.
const unreachableAddr = "127.0.0.1:1"

func TestNewDisablesCacheWhenRedisUnreachable(t *testing.T) {
	c := New(Config{RedisAddr: unreachableAddr, DisableOnError: true}, zerolog.Nop())
	defer c.Close()

	if c.available() {
		t.Fatal("expected cache to be disabled after a failed startup ping")
	}
}

func TestGetSetNoOpWhenDisabled(t *testing.T) {
	c := New(Config{RedisAddr: unreachableAddr, DisableOnError: true}, zerolog.Nop())
	defer c.Close()

	ctx := context.Background()
	c.Set(ctx, "song-1", analyzer.TrackAnalysis{Duration: 120})

	if _, ok := c.Get(ctx, "song-1"); ok {
		t.Fatal("expected a disabled cache to report a miss, not a hit")
	}
}
