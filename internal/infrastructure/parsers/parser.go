// Package parsers reads procedural-log dumps exported from the portal.
package parsers

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
)

// Parser defines the interface for parsing log rows from various formats.
// Rows are returned in file order, which is portal order (most recent
// first).
type Parser interface {
	Parse(r io.Reader) ([]entities.RawLogRow, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string) Parser {
	return ForFormat(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// CaseIDFromFile returns the case id of a dump named "<case-id>.<ext>".
func CaseIDFromFile(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
