/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package statemachine

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
	"github.com/friendsincode/grimnir_radio/internal/automix/curves"
)

// OutroProfile is one row of the per-outro-type curve/shape table.
type OutroProfile struct {
	Curve      curves.Curve
	FadeInOnly bool
	InShape    float64
	OutShape   float64
}

// yamlProfile mirrors OutroProfile for an operator-editable override file,
// loaded per the `gopkg.in/yaml.v3` wiring noted in SPEC_FULL.md §2.2 so a
// station can retune profiles without a rebuild.
type yamlProfile struct {
	Curve      string  `yaml:"curve"`
	FadeInOnly bool    `yaml:"fadeInOnly"`
	InShape    float64 `yaml:"inShape"`
	OutShape   float64 `yaml:"outShape"`
}

// DefaultProfiles is the spec's table §4.10 "Curve and shape" profile set.
func DefaultProfiles() map[analyzer.OutroType]OutroProfile {
	return map[analyzer.OutroType]OutroProfile{
		analyzer.OutroHard:         {Curve: curves.EqualPower, FadeInOnly: false, InShape: 0.85, OutShape: 1.20},
		analyzer.OutroFadeOut:      {Curve: curves.EqualPower, FadeInOnly: true, InShape: 1.15, OutShape: 1.00},
		analyzer.OutroReverbTail:   {Curve: curves.SCurve, FadeInOnly: false, InShape: 1.20, OutShape: 0.90},
		analyzer.OutroSilence:      {Curve: curves.EqualPower, FadeInOnly: false, InShape: 0.90, OutShape: 1.00},
		analyzer.OutroNoiseEnd:     {Curve: curves.EqualPower, FadeInOnly: false, InShape: 0.90, OutShape: 1.15},
		analyzer.OutroSlowDown:     {Curve: curves.SCurve, FadeInOnly: false, InShape: 1.10, OutShape: 1.00},
		analyzer.OutroSustained:    {Curve: curves.SCurve, FadeInOnly: false, InShape: 1.15, OutShape: 0.95},
		analyzer.OutroMusicalOutro: {Curve: curves.EqualPower, FadeInOnly: false, InShape: 1.00, OutShape: 1.00},
		analyzer.OutroLoopFade:     {Curve: curves.EqualPower, FadeInOnly: true, InShape: 1.00, OutShape: 1.00},
	}
}

// LoadProfilesOverride reads a YAML file of outroType -> profile overrides
// and merges them onto DefaultProfiles. A missing file is not an error
// (stations that never configured one simply keep the defaults).
func LoadProfilesOverride(path string) (map[analyzer.OutroType]OutroProfile, error) {
	profiles := DefaultProfiles()
	if path == "" {
		return profiles, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return profiles, nil
	}
	if err != nil {
		return nil, err
	}

	var raw map[string]yamlProfile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for outroType, p := range raw {
		profiles[analyzer.OutroType(outroType)] = OutroProfile{
			Curve:      curves.Curve(p.Curve),
			FadeInOnly: p.FadeInOnly,
			InShape:    p.InShape,
			OutShape:   p.OutShape,
		}
	}
	return profiles, nil
}
