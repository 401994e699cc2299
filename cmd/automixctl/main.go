/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Command automixctl is an offline operator tool for tuning AutoMix: it
// runs the same TrackAnalyzer used in production against a local file and
// prints the resulting TrackAnalysis as JSON, so outro classification and
// BPM detection can be checked against real tracks without starting a
// station.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir_radio/internal/automix/analyzer"
)

var rootCmd = &cobra.Command{
	Use:   "automixctl",
	Short: "Offline tooling for the AutoMix crossfade engine",
}

var analyzeBPM bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>",
	Short: "Run TrackAnalyzer against a local audio file and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeBPM, "bpm", true, "run BPM/beat-grid analysis")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	dec := analyzer.NewFFmpegDecoder()
	result, err := analyzer.AnalyzeTrack(context.Background(), dec, blob, analyzer.Options{AnalyzeBPM: analyzeBPM})
	if err != nil {
		return fmt.Errorf("analyze %s: %w", path, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
