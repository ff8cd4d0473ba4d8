package services

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
)

func row(folio, procedure, description string) entities.RawLogRow {
	return entities.RawLogRow{
		Folio:       folio,
		Procedure:   procedure,
		Description: description,
		Date:        "01/03/2023",
		Page:        "1",
	}
}

func tagOf(t *testing.T, r entities.TaggedRow) string {
	t.Helper()
	if r.Tag == nil {
		return ""
	}
	return r.Tag.String()
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercases", input: "Ingreso Demanda", expected: "ingreso demanda"},
		{name: "strips diacritics", input: "Búsqueda Negativa NOTIFICACIÓN", expected: "busqueda negativa notificacion"},
		{name: "collapses whitespace", input: "  evacúa \t\n  traslado  ", expected: "evacua traslado"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeText(tt.input))
		})
	}
}

func TestClassify_Rules(t *testing.T) {
	tests := []struct {
		name     string
		row      entities.RawLogRow
		expected string
	}{
		{
			name:     "demand start with mixed case and extra whitespace",
			row:      row("1", "Ingreso", "  Ingreso   DEMANDA   Ejecutiva "),
			expected: "DEMAND_START",
		},
		{
			name:     "dispatch resolution",
			row:      row("2", "Resolución", "Ordena despachar mandamiento de ejecución y embargo"),
			expected: "DISPATCH_RESOLUTION",
		},
		{
			name:     "notification keyword without accent",
			row:      row("3", "Actuación Receptor", "Busqueda positiva"),
			expected: "NOTIFICATION.1",
		},
		{
			name:     "exceptions from a brief",
			row:      row("4", "Escrito", "Opone excepciones"),
			expected: "EXCEPTIONS",
		},
		{
			name:     "exceptions outside a brief is untagged",
			row:      row("4", "Resolución", "Ténganse presente opone excepciones"),
			expected: "",
		},
		{
			name:     "translation evacuation",
			row:      row("5", "Escrito", "Evacúa traslado"),
			expected: "TRANSLATION_EVACUATION",
		},
		{
			name:     "trial start",
			row:      row("6", "Resolución", "Recibe la causa a prueba"),
			expected: "TRIAL_START",
		},
		{
			name:     "sentence",
			row:      row("7", "Resolución", "Sentencia definitiva"),
			expected: "SENTENCE",
		},
		{
			name:     "earlier rule wins",
			row:      row("8", "Escrito", "Ingreso demanda, solicita sentencia"),
			expected: "DEMAND_START",
		},
		{
			name:     "unrelated row passes through",
			row:      row("9", "Escrito", "Téngase presente patrocinio y poder"),
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Classify([]entities.RawLogRow{tt.row})
			require.Len(t, out, 1)
			assert.Equal(t, tt.expected, tagOf(t, out[0]))
			assert.Equal(t, tt.row, out[0].Row)
		})
	}
}

func TestClassify_NotificationOrdinalsAreChronological(t *testing.T) {
	// Portal order: most recent first.
	rows := []entities.RawLogRow{
		row("30", "Actuación Receptor", "Notificación de demanda"),
		row("20", "Actuación Receptor", "Búsqueda negativa"),
		row("10", "Actuación Receptor", "Notificación exitosa"),
	}

	out := Classify(rows)

	require.Len(t, out, 3)
	// Output preserves input order.
	assert.Equal(t, "NOTIFICATION.3", tagOf(t, out[0]))
	assert.Equal(t, "NOTIFICATION.2", tagOf(t, out[1]))
	assert.Equal(t, "NOTIFICATION.1", tagOf(t, out[2]))

	chrono := Chronological(out)
	require.Len(t, chrono, 3)
	assert.Equal(t, "10", chrono[0].Row.Folio)
	assert.Equal(t, "NOTIFICATION.1", tagOf(t, chrono[0]))
	assert.Equal(t, "NOTIFICATION.2", tagOf(t, chrono[1]))
	assert.Equal(t, "NOTIFICATION.3", tagOf(t, chrono[2]))
}

func TestClassify_Positions(t *testing.T) {
	rows := []entities.RawLogRow{
		row("3", "Escrito", "Evacúa traslado"),
		row("2", "Escrito", "Otro"),
		row("1", "Ingreso", "Ingreso demanda"),
	}

	out := Classify(rows)

	assert.Equal(t, 2, out[0].Position)
	assert.Equal(t, 1, out[1].Position)
	assert.Equal(t, 0, out[2].Position)

	chrono := Chronological(out)
	require.Len(t, chrono, 2)
	assert.Equal(t, "DEMAND_START", tagOf(t, chrono[0]))
	assert.Equal(t, "TRANSLATION_EVACUATION", tagOf(t, chrono[1]))
}

func TestClassify_Empty(t *testing.T) {
	assert.Empty(t, Classify(nil))
	assert.Empty(t, Chronological(nil))
}

var sampleRows = []entities.RawLogRow{
	row("1", "Ingreso", "Ingreso demanda ejecutiva"),
	row("2", "Resolución", "Ordena despachar mandamiento"),
	row("3", "Actuación Receptor", "Búsqueda negativa"),
	row("4", "Actuación Receptor", "búsqueda POSITIVA"),
	row("5", "Actuación Receptor", "Notificación exitosa"),
	row("6", "Escrito", "Opone excepciones"),
	row("7", "Escrito", "Evacúa traslado"),
	row("8", "Resolución", "Recibe la causa a prueba"),
	row("9", "Resolución", "Sentencia"),
	row("10", "Escrito", "Acompaña documentos"),
}

func rowsFromIndexes(idx []int) []entities.RawLogRow {
	rows := make([]entities.RawLogRow, len(idx))
	for i, n := range idx {
		rows[i] = sampleRows[n]
	}
	return rows
}

func TestClassify_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	indexes := gen.SliceOf(gen.IntRange(0, len(sampleRows)-1))

	properties.Property("classification is deterministic", prop.ForAll(
		func(idx []int) bool {
			rows := rowsFromIndexes(idx)
			first := Classify(rows)
			second := Classify(rows)
			if len(first) != len(second) {
				return false
			}
			for i := range first {
				a, b := first[i], second[i]
				if a.Position != b.Position || (a.Tag == nil) != (b.Tag == nil) {
					return false
				}
				if a.Tag != nil && *a.Tag != *b.Tag {
					return false
				}
			}
			return true
		},
		indexes,
	))

	properties.Property("input order and rows are preserved", prop.ForAll(
		func(idx []int) bool {
			rows := rowsFromIndexes(idx)
			out := Classify(rows)
			if len(out) != len(rows) {
				return false
			}
			for i := range out {
				if out[i].Row != rows[i] || out[i].Position != len(rows)-1-i {
					return false
				}
			}
			return true
		},
		indexes,
	))

	properties.Property("notification ordinals count up oldest first", prop.ForAll(
		func(idx []int) bool {
			want := 1
			for _, r := range Chronological(Classify(rowsFromIndexes(idx))) {
				if r.Tag.Type != entities.EventNotification {
					continue
				}
				if r.Tag.Ordinal != want {
					return false
				}
				want++
			}
			return true
		},
		indexes,
	))

	properties.TestingRun(t)
}
