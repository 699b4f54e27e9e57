package llm

// AbsenceRecordsType is the document_type that triggers the stricter shape.
const AbsenceRecordsType = "absence_records"

// BuildRestructuredSchema returns the JSON-Schema every restructured record
// must satisfy: document_type and extraction_date always, and for absence
// records an employees array whose items each carry an absence_records array.
func BuildRestructuredSchema() map[string]any {
	employee := map[string]any{
		"type":     "object",
		"required": []string{"absence_records"},
		"properties": map[string]any{
			"absence_records": map[string]any{"type": "array"},
		},
	}
	return map[string]any{
		"$schema":  "https://json-schema.org/draft/2020-12/schema",
		"type":     "object",
		"required": []string{"document_type", "extraction_date"},
		"if": map[string]any{
			"required": []string{"document_type"},
			"properties": map[string]any{
				"document_type": map[string]any{"const": AbsenceRecordsType},
			},
		},
		"then": map[string]any{
			"required": []string{"employees"},
			"properties": map[string]any{
				"employees": map[string]any{"type": "array", "items": employee},
			},
		},
	}
}
