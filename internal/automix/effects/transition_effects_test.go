/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package effects

import (
	"testing"
	"time"

	"github.com/friendsincode/grimnir_radio/internal/automix/graph/memgraph"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestBundlePauseResumeFreezesAndHalvesRemainingRamp(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	g := memgraph.New(clock)

	start := clock.now
	duration := 2 * time.Second
	opts := Options{NoiseRiser: true}

	bundle := Setup(g, nil, nil, opts, start, duration)
	defer bundle.Close()

	if len(bundle.automations) == 0 {
		t.Fatal("expected NoiseRiser to register at least one pausable automation")
	}

	// Halfway through the riser's gain ramp to 0.
	clock.now = start.Add(1 * time.Second)
	bundle.PauseAt(clock.now)

	// Value should hold steady across further elapsed time while paused.
	frozen := bundle.automations[0].param.Value()
	clock.now = start.Add(1500 * time.Millisecond)
	if got := bundle.automations[0].param.Value(); got != frozen {
		t.Fatalf("expected frozen value %v while paused, got %v", frozen, got)
	}

	clock.now = start.Add(1 * time.Second)
	bundle.ResumeFrom(clock.now)

	a := bundle.automations[0]
	if a.remaining != 0 {
		t.Fatalf("expected remaining to be cleared after resume, got %v", a.remaining)
	}
}

func TestBundlePauseAtIsIdempotent(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	g := memgraph.New(clock)
	bundle := Setup(g, nil, nil, Options{NoiseRiser: true}, clock.now, time.Second)
	defer bundle.Close()

	bundle.PauseAt(clock.now)
	firstRemaining := bundle.automations[0].remaining

	clock.now = clock.now.Add(500 * time.Millisecond)
	bundle.PauseAt(clock.now) // second call before a Resume must be a no-op

	if bundle.automations[0].remaining != firstRemaining {
		t.Fatalf("expected a second PauseAt to be a no-op, remaining changed from %v to %v", firstRemaining, bundle.automations[0].remaining)
	}
}
