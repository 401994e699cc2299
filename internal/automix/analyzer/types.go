/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package analyzer

// OutroType enumerates the mutually exclusive outro classifications.
type OutroType string

const (
	OutroHard         OutroType = "hard"
	OutroFadeOut      OutroType = "fadeOut"
	OutroReverbTail   OutroType = "reverbTail"
	OutroSilence      OutroType = "silence"
	OutroNoiseEnd     OutroType = "noiseEnd"
	OutroSlowDown     OutroType = "slowDown"
	OutroSustained    OutroType = "sustained"
	OutroMusicalOutro OutroType = "musicalOutro"
	OutroLoopFade     OutroType = "loopFade"
)

// VolumeInfo holds the loudness sub-analysis.
type VolumeInfo struct {
	Peak           float64
	RMS            float64
	EstimatedLUFS  float64
	GainAdjustment float64
}

// EnergyInfo holds the per-second energy envelope and derived offsets.
type EnergyInfo struct {
	EnergyPerSecond []float64
	AverageEnergy   float64
	TrailingSilence float64 // seconds
	OutroOffset     float64 // seconds from end
	IntroOffset     float64 // seconds from start
	IsFadeOut       bool
}

// MultibandWindow is one 250ms window's three-band energy.
type MultibandWindow struct {
	Low, Mid, High float64
}

// BPMInfo holds the tempo estimate.
type BPMInfo struct {
	Known      bool
	BPM        float64
	Confidence float64
	BeatGrid   []float64 // seconds, relative to analyzed region start
}

// OutroClassification holds the outro-scoring result.
type OutroClassification struct {
	Type                    OutroType
	Confidence              float64
	SuggestedCrossfadeStart float64 // seconds from start
	MusicalEndOffset        float64 // seconds, duration of the musical tail after SuggestedCrossfadeStart

	// SpectralFlux is the frame-to-frame multiband energy delta across the
	// outro windows (len(outroMultiband)-1 entries); near-zero values mean
	// the outro's spectral content is holding steady rather than evolving.
	SpectralFlux []float64
	// ShortTermLoudness is each outro window's total-band energy in dB,
	// one entry per outro multiband window.
	ShortTermLoudness []float64
}

// IntroCharacter describes how a track opens, used to judge how much
// headroom a crossfade has before the incoming track's own content
// arrives at full energy.
type IntroCharacter struct {
	QuietIntroDuration  float64 // seconds before energy first exceeds the quiet threshold
	EnergyBuildDuration float64 // seconds from the end of the quiet intro to near-full energy
	IntroEnergyRatio    float64 // mean intro energy over mean track energy
	MultibandEnergy     []MultibandWindow
}

// TrackAnalysis is the full output of analyzeTrack.
type TrackAnalysis struct {
	Duration float64

	Volume VolumeInfo
	Energy EnergyInfo

	OutroMultiband []MultibandWindow
	IntroMultiband []MultibandWindow

	Fingerprint []float64 // 24 log-spaced bands

	BPM BPMInfo

	Intro IntroCharacter
	Outro OutroClassification

	OutroStartTime float64 // seconds from start where OutroMultiband[0] begins
	IntroStartTime float64 // seconds from start where IntroMultiband[0] begins
}
