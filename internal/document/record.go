// Package document defines the structured record produced by extraction and
// carried through anonymization and restructuring.
package document

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Kind tags the Content variant of a Record.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindExcel Kind = "excel"
)

// Mapping is a label -> original text mapping attached to a structural node.
type Mapping map[string]string

// Content is the variant payload of a Record. It is implemented only by
// *PDF and *Excel.
type Content interface {
	Kind() Kind
	cloneContent() Content
}

// Record is one extracted document.
type Record struct {
	FilePath      string
	Metadata      map[string]any
	Content       Content
	Anonymization *AnonymizationMetadata
}

// AnonymizationMetadata summarizes the anonymization applied to a record.
type AnonymizationMetadata struct {
	Anonymized       bool     `json:"anonymized"`
	NERModel         string   `json:"ner_model,omitempty"`
	TotalMappings    int      `json:"total_mappings"`
	EntityTypesFound []string `json:"entity_types_found"`
}

// PDF holds pages in document order.
type PDF struct {
	Pages []Page
	Stats PDFStats
}

type Page struct {
	PageNumber           int      `json:"page_number"`
	TextContent          string   `json:"text_content"`
	Tables               []Table  `json:"tables"`
	Errors               []string `json:"errors"`
	AnonymizationMapping Mapping  `json:"anonymization_mapping,omitempty"`
}

// Table cells keep their extracted type; only string cells are anonymized.
type Table struct {
	TableID              int              `json:"table_id"`
	Rows                 int              `json:"rows"`
	Columns              int              `json:"columns"`
	Data                 []map[string]any `json:"data"`
	ColumnNames          []string         `json:"column_names"`
	AnonymizationMapping Mapping          `json:"anonymization_mapping,omitempty"`
}

type PDFStats struct {
	PagesProcessed int `json:"pages_processed"`
	TablesFound    int `json:"tables_found"`
	Errors         int `json:"errors"`
}

// Excel holds sheets in workbook order.
type Excel struct {
	Sheets []Sheet
	Stats  ExcelStats
}

type Sheet struct {
	SheetName            string     `json:"sheet_name"`
	Dimensions           Dimensions `json:"dimensions"`
	Content              []Row      `json:"content"`
	NonEmptyRows         int        `json:"non_empty_rows"`
	AnonymizationMapping Mapping    `json:"anonymization_mapping,omitempty"`
}

type Dimensions struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

type Row struct {
	RowIndex int      `json:"row_index"`
	Cells    []string `json:"cells"`
	RawText  string   `json:"raw_text"`
}

type ExcelStats struct {
	SheetsProcessed int `json:"sheets_processed"`
	RowsFound       int `json:"rows_found"`
	Errors          int `json:"errors"`
}

func (*PDF) Kind() Kind   { return KindPDF }
func (*Excel) Kind() Kind { return KindExcel }

// Kind returns the variant tag, or "" when Content is nil.
func (r *Record) Kind() Kind {
	if r == nil || r.Content == nil {
		return ""
	}
	return r.Content.Kind()
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{
		FilePath: r.FilePath,
		Metadata: cloneMap(r.Metadata),
	}
	if r.Content != nil {
		out.Content = r.Content.cloneContent()
	}
	if r.Anonymization != nil {
		a := *r.Anonymization
		a.EntityTypesFound = append([]string(nil), r.Anonymization.EntityTypesFound...)
		out.Anonymization = &a
	}
	return out
}

func (p *PDF) cloneContent() Content {
	out := &PDF{Stats: p.Stats, Pages: make([]Page, len(p.Pages))}
	for i, pg := range p.Pages {
		cp := pg
		cp.Errors = append([]string(nil), pg.Errors...)
		cp.AnonymizationMapping = maps.Clone(pg.AnonymizationMapping)
		cp.Tables = make([]Table, len(pg.Tables))
		for j, t := range pg.Tables {
			ct := t
			ct.ColumnNames = append([]string(nil), t.ColumnNames...)
			ct.AnonymizationMapping = maps.Clone(t.AnonymizationMapping)
			ct.Data = make([]map[string]any, len(t.Data))
			for k, row := range t.Data {
				ct.Data[k] = cloneMap(row)
			}
			cp.Tables[j] = ct
		}
		out.Pages[i] = cp
	}
	return out
}

func (e *Excel) cloneContent() Content {
	out := &Excel{Stats: e.Stats, Sheets: make([]Sheet, len(e.Sheets))}
	for i, sh := range e.Sheets {
		cs := sh
		cs.AnonymizationMapping = maps.Clone(sh.AnonymizationMapping)
		cs.Content = make([]Row, len(sh.Content))
		for j, row := range sh.Content {
			cr := row
			cr.Cells = append([]string(nil), row.Cells...)
			cs.Content[j] = cr
		}
		out.Sheets[i] = cs
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneValue(x)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

type recordJSON struct {
	FileType        Kind                   `json:"file_type"`
	FilePath        string                 `json:"file_path"`
	Pages           []Page                 `json:"pages,omitempty"`
	Sheets          []Sheet                `json:"sheets,omitempty"`
	Metadata        map[string]any         `json:"metadata"`
	ExtractionStats json.RawMessage        `json:"extraction_stats,omitempty"`
	Anonymization   *AnonymizationMetadata `json:"anonymization_metadata,omitempty"`
}

// MarshalJSON flattens the variant into a single object tagged by file_type.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		FileType:      r.Kind(),
		FilePath:      r.FilePath,
		Metadata:      r.Metadata,
		Anonymization: r.Anonymization,
	}
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}
	var stats any
	switch c := r.Content.(type) {
	case *PDF:
		out.Pages = c.Pages
		if out.Pages == nil {
			out.Pages = []Page{}
		}
		stats = c.Stats
	case *Excel:
		out.Sheets = c.Sheets
		if out.Sheets == nil {
			out.Sheets = []Sheet{}
		}
		stats = c.Stats
	}
	if stats != nil {
		b, err := json.Marshal(stats)
		if err != nil {
			return nil, err
		}
		out.ExtractionStats = b
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the variant from the file_type tag.
func (r *Record) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Record{FilePath: in.FilePath, Metadata: in.Metadata, Anonymization: in.Anonymization}
	switch in.FileType {
	case KindPDF:
		c := &PDF{Pages: in.Pages}
		if len(in.ExtractionStats) > 0 {
			if err := json.Unmarshal(in.ExtractionStats, &c.Stats); err != nil {
				return fmt.Errorf("decode pdf extraction_stats: %w", err)
			}
		}
		r.Content = c
	case KindExcel:
		c := &Excel{Sheets: in.Sheets}
		if len(in.ExtractionStats) > 0 {
			if err := json.Unmarshal(in.ExtractionStats, &c.Stats); err != nil {
				return fmt.Errorf("decode excel extraction_stats: %w", err)
			}
		}
		r.Content = c
	case "":
	default:
		return fmt.Errorf("unknown file_type %q", in.FileType)
	}
	return nil
}
