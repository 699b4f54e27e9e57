package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePDF() *Record {
	return &Record{
		FilePath: "/tmp/a.pdf",
		Metadata: map[string]any{"title": "Plan", "tags": []any{"x"}},
		Content: &PDF{
			Pages: []Page{{
				PageNumber:  1,
				TextContent: "Anna Schmidt",
				Tables: []Table{{
					TableID:     1,
					Rows:        1,
					Columns:     1,
					Data:        []map[string]any{{"Name": "Anna"}},
					ColumnNames: []string{"Name"},
				}},
			}},
			Stats: PDFStats{PagesProcessed: 1, TablesFound: 1},
		},
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := samplePDF()
	cp := orig.Clone()

	pdf := cp.Content.(*PDF)
	pdf.Pages[0].TextContent = "changed"
	pdf.Pages[0].Tables[0].Data[0]["Name"] = "changed"
	pdf.Pages[0].AnonymizationMapping = Mapping{"PERSON_1": "Anna"}
	cp.Metadata["tags"].([]any)[0] = "y"

	src := orig.Content.(*PDF)
	assert.Equal(t, "Anna Schmidt", src.Pages[0].TextContent)
	assert.Equal(t, "Anna", src.Pages[0].Tables[0].Data[0]["Name"])
	assert.Nil(t, src.Pages[0].AnonymizationMapping)
	assert.Equal(t, "x", orig.Metadata["tags"].([]any)[0])
}

func TestJSONRoundTripKeepsVariant(t *testing.T) {
	rec := &Record{
		FilePath: "/tmp/b.xlsx",
		Metadata: map[string]any{"sheets_count": float64(1)},
		Content: &Excel{
			Sheets: []Sheet{{
				SheetName:    "Urlaub",
				Dimensions:   Dimensions{Rows: 2, Columns: 2},
				Content:      []Row{{RowIndex: 0, Cells: []string{"a", "b"}, RawText: "a | b"}},
				NonEmptyRows: 1,
			}},
			Stats: ExcelStats{SheetsProcessed: 1, RowsFound: 1},
		},
	}

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"file_type":"excel"`)
	assert.NotContains(t, string(b), `"pages"`)

	var back Record
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, KindExcel, back.Kind())
	assert.Equal(t, rec.Content, back.Content)
}

func TestUnmarshalRejectsUnknownKind(t *testing.T) {
	var r Record
	assert.Error(t, json.Unmarshal([]byte(`{"file_type":"docx"}`), &r))
}
