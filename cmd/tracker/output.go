package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ersonp/pjud-tracker/internal/application/handlers"
	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/services"
)

const dateLayout = "02/01/2006"

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCase(w io.Writer, c *entities.Case) {
	fmt.Fprintf(w, "ID: %s\n", c.ID)
	fmt.Fprintf(w, "  %s [%s]\n", c.Title, c.Status)
	fmt.Fprintf(w, "  Role: %s (%d)\n", c.Role, c.Year)
	if c.Court != "" {
		fmt.Fprintf(w, "  Court: %s\n", c.Court)
	}
	if c.Winner != nil {
		fmt.Fprintf(w, "  Winner: %s\n", *c.Winner)
	}
	fmt.Fprintln(w)
}

func printChain(w io.Writer, entries []handlers.ChainEntry) {
	for i, entry := range entries {
		e := entry.Event
		date := "-"
		if e.ProcedureDate != nil {
			date = e.ProcedureDate.Format(dateLayout)
		}
		fmt.Fprintf(w, "%d. [%s] %s (%s)\n", i+1, e.Type, e.Title, date)
		fmt.Fprintf(w, "   %s -> %s  id=%s\n", e.SourceParty, e.TargetParty, e.ID)
		if entry.Document != nil && entry.Document.StorageKey != nil {
			fmt.Fprintf(w, "   document: %s\n", *entry.Document.StorageKey)
		}
	}
}

func printViolations(w io.Writer, violations []services.Violation) {
	if len(violations) == 0 {
		fmt.Fprintln(w, "Chain is consistent.")
		return
	}
	fmt.Fprintf(w, "Found %d violations:\n", len(violations))
	for _, v := range violations {
		branch := "real"
		if v.Simulated {
			branch = "simulated"
		}
		fmt.Fprintf(w, "  - %s (%s branch): %s\n", v.Kind, branch, v.Detail)
	}
}

func printSummary(w io.Writer, s *services.Summary) {
	fmt.Fprintf(w, "Case %s (run %s)\n", s.CaseID, s.RunID)
	fmt.Fprintf(w, "  rows: %d  classified: %d  ingested: %d  duplicates: %d\n",
		s.Rows, s.Classified, len(s.Ingested), s.SkippedDuplicate)

	var failed []string
	for _, f := range []struct {
		name  string
		count int
	}{
		{"malformed", s.Malformed},
		{"fetch", s.FetchFailed},
		{"generator", s.GeneratorFailed},
		{"append", s.AppendFailed},
		{"suggestion", s.SuggestionFailed},
	} {
		if f.count > 0 {
			failed = append(failed, fmt.Sprintf("%s: %d", f.name, f.count))
		}
	}
	if len(failed) > 0 {
		fmt.Fprintf(w, "  failures: %s\n", strings.Join(failed, ", "))
	}

	for _, m := range s.Ingested {
		note := fmt.Sprintf("%d suggestions", m.Suggestions)
		if m.Adopted {
			note = "adopted"
		}
		fmt.Fprintf(w, "  + folio %d %s (%s)\n", m.Folio, m.Tag, note)
	}
	for _, err := range s.Failures {
		fmt.Fprintf(w, "  ! %v\n", err)
	}
	if s.Cancelled {
		fmt.Fprintln(w, "  run cancelled; committed milestones were kept")
	}
}

func printSuggestions(w io.Writer, groups []handlers.EventSuggestions) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No suggestions found.")
		return
	}
	for _, g := range groups {
		fmt.Fprintf(w, "[%s] %s\n", g.Event.Type, g.Event.Title)
		for _, s := range g.Suggestions {
			fmt.Fprintf(w, "  %.2f  %s (%s)  id=%s\n", s.Score, s.Name, s.Type, s.ID)
		}
	}
}

func printFolios(w io.Writer, folios []entities.FolioEntry) {
	if len(folios) == 0 {
		fmt.Fprintln(w, "No folios recorded.")
		return
	}
	for _, f := range folios {
		fmt.Fprintf(w, "%4d  %-24s %s\n", f.Folio, f.Tag, f.Description)
	}
}
