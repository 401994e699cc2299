/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package errs enumerates the AutoMix error taxonomy as sentinel values.
//
// Every failure kind is expected and recovered somewhere in the engine;
// none of these are meant to propagate out of MonitorPlayback.
package errs

import "errors"

var (
	// ErrTransientResolve means the URL resolver returned nothing or failed.
	ErrTransientResolve = errors.New("automix: transient resolve failure")
	// ErrTransientDecode means the analyzer could not decode the source audio.
	ErrTransientDecode = errors.New("automix: transient decode failure")
	// ErrTimeout means a bounded wait (download+analysis, play confirmation) expired.
	ErrTimeout = errors.New("automix: timeout")
	// ErrGraphSetup means a gain node or other audio graph resource was unavailable.
	ErrGraphSetup = errors.New("automix: graph setup failure")
	// ErrInconsistentState means a suspension point woke into an unexpected state.
	ErrInconsistentState = errors.New("automix: inconsistent state")
)

// OutgoingEndedEarly is not a failure; it signals the outgoing sound's `end`
// event fired before the scheduler became active for the current crossfade.
type OutgoingEndedEarly struct{}

func (OutgoingEndedEarly) Error() string { return "automix: outgoing ended early" }
