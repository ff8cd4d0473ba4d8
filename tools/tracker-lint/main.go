// tracker-lint is a custom static analyzer for pjud-tracker conventions.
package main

import (
	"golang.org/x/tools/go/analysis/multichecker"

	"github.com/ersonp/pjud-tracker/tools/tracker-lint/analyzers"
)

func main() {
	multichecker.Main(analyzers.All()...)
}
