package main

import "time"

// Defaults for CLI commands.
const (
	// DefaultEmbeddingBlend is the share of an embedding score taken by
	// similarity when scoring is "embedding".
	DefaultEmbeddingBlend = 0.5
	// MinSweepInterval is the shortest accepted --every interval.
	MinSweepInterval = 10 * time.Second
)

// Valid output formats.
var validFormats = []string{"text", "json"}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}
