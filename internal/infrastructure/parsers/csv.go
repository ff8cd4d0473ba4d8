package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
)

// CSVParser parses log rows from CSV.
// Expected columns: folio, document, stage, procedure, description, date,
// page, download_ref, download_params. The portal's Spanish headers are
// accepted too.
type CSVParser struct{}

// headerAliases maps portal column headers to canonical names.
var headerAliases = map[string]string{
	"doc.":          "document",
	"etapa":         "stage",
	"trámite":       "procedure",
	"desc. trámite": "description",
	"fec. trámite":  "date",
	"foja":          "page",
}

// Parse reads CSV from the reader and returns parsed rows.
func (p *CSVParser) Parse(r io.Reader) ([]entities.RawLogRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	colIndex, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	return p.readRecords(reader, colIndex)
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		if alias, ok := headerAliases[name]; ok {
			name = alias
		}
		colIndex[name] = i
	}

	requiredCols := []string{"folio", "procedure", "description", "date"}
	for _, col := range requiredCols {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	return colIndex, nil
}

// readRecords reads all data rows and converts them to RawLogRows.
func (p *CSVParser) readRecords(reader *csv.Reader, colIndex map[string]int) ([]entities.RawLogRow, error) {
	rows := []entities.RawLogRow{}
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		row, err := p.parseRecord(record, colIndex, lineNum)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// parseRecord converts a CSV record to a RawLogRow. Column values are
// kept as scraped; validation happens during reconciliation.
func (p *CSVParser) parseRecord(record []string, colIndex map[string]int, lineNum int) (entities.RawLogRow, error) {
	row := entities.RawLogRow{
		Folio:         getColumn(record, colIndex, "folio"),
		DocumentLabel: getColumn(record, colIndex, "document"),
		Stage:         getColumn(record, colIndex, "stage"),
		Procedure:     getColumn(record, colIndex, "procedure"),
		Description:   getColumn(record, colIndex, "description"),
		Date:          getColumn(record, colIndex, "date"),
		Page:          getColumn(record, colIndex, "page"),
	}

	ref := strings.TrimSpace(getColumn(record, colIndex, "download_ref"))
	if ref == "" {
		return row, nil
	}
	handle := &entities.DownloadHandle{Ref: ref}
	if raw := getColumn(record, colIndex, "download_params"); raw != "" {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return entities.RawLogRow{}, fmt.Errorf("line %d: invalid download_params %q: %w", lineNum, raw, err)
		}
		handle.Params = make(map[string]string, len(values))
		for k := range values {
			handle.Params[k] = values.Get(k)
		}
	}
	row.Download = handle

	return row, nil
}

// getColumn safely retrieves a column value from a record.
func getColumn(record []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(record) {
		return record[idx]
	}
	return ""
}
