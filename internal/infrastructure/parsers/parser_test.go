package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
)

func TestJSONParser_Parse_ValidInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []entities.RawLogRow
	}{
		{
			name:  "array of rows",
			input: `[{"folio": "2", "procedure": "Escrito", "description": "Opone excepciones", "date": "02/05/2023"}]`,
			expected: []entities.RawLogRow{
				{Folio: "2", Procedure: "Escrito", Description: "Opone excepciones", Date: "02/05/2023"},
			},
		},
		{
			name:  "object with rows",
			input: `{"case_id": "case-1", "rows": [{"folio": "1", "procedure": "Ingreso", "description": "Ingreso demanda", "date": "01/03/2023"}]}`,
			expected: []entities.RawLogRow{
				{Folio: "1", Procedure: "Ingreso", Description: "Ingreso demanda", Date: "01/03/2023"},
			},
		},
		{
			name:     "empty array",
			input:    "[]",
			expected: []entities.RawLogRow{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &JSONParser{}
			result, err := parser.Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestJSONParser_Parse_AllFields(t *testing.T) {
	input := `[{
		"folio": "6",
		"document": "1",
		"stage": "Excepciones",
		"procedure": "Escrito",
		"description": "Opone excepciones",
		"date": "02/05/2023",
		"page": "14",
		"download": {"ref": "civil/documentos/docuS.php", "params": {"dtaDoc": "abc"}}
	}]`

	parser := &JSONParser{}
	result, err := parser.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result, 1)

	row := result[0]
	assert.Equal(t, "6", row.Folio)
	assert.Equal(t, "1", row.DocumentLabel)
	assert.Equal(t, "Excepciones", row.Stage)
	assert.Equal(t, "14", row.Page)
	require.NotNil(t, row.Download)
	assert.Equal(t, "civil/documentos/docuS.php", row.Download.Ref)
	assert.Equal(t, "abc", row.Download.Params["dtaDoc"])
}

func TestJSONParser_Parse_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: "not json"},
		{name: "object without rows", input: `{"case_id": "case-1"}`},
		{name: "numeric folio", input: `[{"folio": 3}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &JSONParser{}
			_, err := parser.Parse(strings.NewReader(tt.input))
			require.Error(t, err)
		})
	}
}

func TestCSVParser_Parse_ValidInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []entities.RawLogRow
	}{
		{
			name:  "required columns only",
			input: "folio,procedure,description,date\n3,Escrito,Evacúa traslado,10/05/2023\n",
			expected: []entities.RawLogRow{
				{Folio: "3", Procedure: "Escrito", Description: "Evacúa traslado", Date: "10/05/2023"},
			},
		},
		{
			name:     "empty CSV (header only)",
			input:    "folio,procedure,description,date\n",
			expected: []entities.RawLogRow{},
		},
		{
			name:  "portal headers",
			input: "\ufeffFolio,Doc.,Etapa,Trámite,Desc. Trámite,Fec. Trámite,Foja\n1,,Discusión,Ingreso,Ingreso demanda,01/03/2023,1\n",
			expected: []entities.RawLogRow{
				{Folio: "1", Stage: "Discusión", Procedure: "Ingreso", Description: "Ingreso demanda", Date: "01/03/2023", Page: "1"},
			},
		},
		{
			name:  "download columns",
			input: "folio,procedure,description,date,download_ref,download_params\n2,Resolución,Ordena despachar mandamiento,05/03/2023,docu.php,dtaDoc=abc&tipo=1\n",
			expected: []entities.RawLogRow{
				{
					Folio: "2", Procedure: "Resolución", Description: "Ordena despachar mandamiento", Date: "05/03/2023",
					Download: &entities.DownloadHandle{Ref: "docu.php", Params: map[string]string{"dtaDoc": "abc", "tipo": "1"}},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &CSVParser{}
			result, err := parser.Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestCSVParser_Parse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		errMsg string
	}{
		{
			name:   "missing required column",
			input:  "folio,procedure,description\n1,Ingreso,Ingreso demanda\n",
			errMsg: "missing required column: date",
		},
		{
			name:   "invalid download params",
			input:  "folio,procedure,description,date,download_ref,download_params\n1,Ingreso,x,01/03/2023,docu.php,%zz\n",
			errMsg: "invalid download_params",
		},
		{
			name:   "empty input",
			input:  "",
			errMsg: "reading CSV header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &CSVParser{}
			_, err := parser.Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestForFormat(t *testing.T) {
	assert.IsType(t, &JSONParser{}, ForFormat("json"))
	assert.IsType(t, &CSVParser{}, ForFormat("CSV"))
	assert.Nil(t, ForFormat("unknown"))
}

func TestForFile(t *testing.T) {
	assert.IsType(t, &JSONParser{}, ForFile("case-1.json"))
	assert.IsType(t, &CSVParser{}, ForFile("dumps/case-2.CSV"))
	assert.Nil(t, ForFile("file.txt"))
	assert.Nil(t, ForFile("noextension"))
}

func TestCaseIDFromFile(t *testing.T) {
	assert.Equal(t, "case-1", CaseIDFromFile("/data/dumps/case-1.json"))
	assert.Equal(t, "C-1234-2023", CaseIDFromFile("C-1234-2023.csv"))
}
