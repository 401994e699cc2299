/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package soundmanager implements SoundManager: ownership of at most two
// sound slots (current, outgoing) with begin/revert/unload primitives.
// Exactly one caller (the TransitionStateMachine) mutates slots; callers
// never observe both slots populated outside an active transition.
package soundmanager

import (
	"sync"

	"github.com/friendsincode/grimnir_radio/internal/automix/graph"
)

// Manager owns the current/outgoing sound slots.
type Manager struct {
	mu       sync.Mutex
	current  graph.Sound
	outgoing graph.Sound
}

// New constructs an empty Manager.
func New() *Manager { return &Manager{} }

// SetCurrentSound installs s as the current sound with no transition in
// flight. Used for the very first track and by onTrackStarted.
func (m *Manager) SetCurrentSound(s graph.Sound) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
}

// Current returns the current sound, or nil if none.
func (m *Manager) Current() graph.Sound {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Outgoing returns the outgoing sound during a transition, or nil.
func (m *Manager) Outgoing() graph.Sound {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outgoing
}

// BeginTransition moves the current sound to outgoing and installs next
// as the new current sound.
func (m *Manager) BeginTransition(next graph.Sound) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outgoing = m.current
	m.current = next
}

// RevertTransition stops and unloads the current sound (the failed
// incoming track) and restores the outgoing sound as current.
func (m *Manager) RevertTransition() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outgoing == nil {
		return
	}
	if m.current != nil {
		m.current.Stop()
		m.current.Unload()
	}
	m.current = m.outgoing
	m.outgoing = nil
}

// UnloadOutgoing stops and unloads the outgoing sound after a successful
// crossfade, then clears the slot.
func (m *Manager) UnloadOutgoing() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outgoing == nil {
		return
	}
	m.outgoing.Stop()
	m.outgoing.Unload()
	m.outgoing = nil
}

// Unload releases both slots.
func (m *Manager) Unload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.Stop()
		m.current.Unload()
		m.current = nil
	}
	if m.outgoing != nil {
		m.outgoing.Stop()
		m.outgoing.Unload()
		m.outgoing = nil
	}
}

// InTransition reports whether an outgoing slot is populated.
func (m *Manager) InTransition() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outgoing != nil
}
