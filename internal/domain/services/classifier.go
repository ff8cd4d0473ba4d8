// Package services contains domain business logic.
package services

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
)

// classificationRule assigns a milestone to rows whose normalized fields
// match. Rules are evaluated in slice order; the first match wins.
type classificationRule struct {
	milestone entities.EventType
	// anyOf matches when the description contains any of the phrases.
	anyOf []string
	// procedure, when set, must also appear in the procedure field.
	procedure string
	// counted milestones get an ordinal per run (NOTIFICATION.1, ...).
	counted bool
}

var classificationRules = []classificationRule{
	{milestone: entities.EventDemandStart, anyOf: []string{"ingreso demanda"}},
	{milestone: entities.EventDispatchResolution, anyOf: []string{"ordena despachar mandamiento"}},
	{
		milestone: entities.EventNotification,
		anyOf: []string{
			"búsqueda negativa",
			"búsqueda positiva",
			"notificación de demanda",
			"notificación exitosa",
		},
		counted: true,
	},
	{milestone: entities.EventExceptions, anyOf: []string{"opone excepciones"}, procedure: "escrito"},
	{milestone: entities.EventTranslationEvacuation, anyOf: []string{"evacúa traslado"}},
	{milestone: entities.EventTrialStart, anyOf: []string{"recibe la causa a prueba"}},
	{milestone: entities.EventSentence, anyOf: []string{"sentencia"}},
}

func init() {
	for i := range classificationRules {
		for j, phrase := range classificationRules[i].anyOf {
			classificationRules[i].anyOf[j] = NormalizeText(phrase)
		}
		classificationRules[i].procedure = NormalizeText(classificationRules[i].procedure)
	}
}

func (r classificationRule) matches(description, procedure string) bool {
	if r.procedure != "" && !strings.Contains(procedure, r.procedure) {
		return false
	}
	for _, phrase := range r.anyOf {
		if strings.Contains(description, phrase) {
			return true
		}
	}
	return false
}

// NormalizeText lowercases s, strips diacritics and collapses whitespace.
func NormalizeText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// Classify tags procedural-log rows with canonical milestones.
//
// rows are in portal order (most recent first). They are evaluated oldest
// first so that ordinals of repeated milestones grow chronologically; the
// result keeps the input order and each row carries its chronological
// Position. Classify has no side effects.
func Classify(rows []entities.RawLogRow) []entities.TaggedRow {
	out := make([]entities.TaggedRow, len(rows))
	counters := make(map[entities.EventType]int)

	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		tagged := entities.TaggedRow{
			Row:      row,
			Position: len(rows) - 1 - i,
		}

		description := NormalizeText(row.Description)
		procedure := NormalizeText(row.Procedure)
		for _, rule := range classificationRules {
			if !rule.matches(description, procedure) {
				continue
			}
			tag := entities.MilestoneTag{Type: rule.milestone}
			if rule.counted {
				counters[rule.milestone]++
				tag.Ordinal = counters[rule.milestone]
			}
			tagged.Tag = &tag
			break
		}

		out[i] = tagged
	}

	return out
}

// Chronological returns the tagged rows in ascending Position, dropping
// untagged rows.
func Chronological(rows []entities.TaggedRow) []entities.TaggedRow {
	out := make([]entities.TaggedRow, 0, len(rows))
	for i := range rows {
		if rows[i].Tag != nil {
			out = append(out, rows[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}
