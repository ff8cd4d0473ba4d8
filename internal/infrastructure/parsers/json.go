package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
)

// JSONParser parses log rows from JSON. The input is either an array of
// rows or an object with a "rows" array.
type JSONParser struct{}

type jsonDump struct {
	Rows []entities.RawLogRow `json:"rows"`
}

// Parse reads JSON from the reader and returns parsed rows.
func (p *JSONParser) Parse(r io.Reader) ([]entities.RawLogRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading JSON: %w", err)
	}
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '{' {
		var dump jsonDump
		if err := json.Unmarshal(data, &dump); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		if dump.Rows == nil {
			return nil, fmt.Errorf("parsing JSON: missing \"rows\"")
		}
		return dump.Rows, nil
	}

	var rows []entities.RawLogRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if rows == nil {
		rows = []entities.RawLogRow{}
	}
	return rows, nil
}
