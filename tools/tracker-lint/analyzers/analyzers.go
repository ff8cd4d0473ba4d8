// Package analyzers provides all custom static analyzers for pjud-tracker.
package analyzers

import (
	"golang.org/x/tools/go/analysis"

	"github.com/ersonp/pjud-tracker/tools/tracker-lint/analyzers/txscope"
)

// All returns all analyzers to run.
func All() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		txscope.Analyzer,
	}
}
