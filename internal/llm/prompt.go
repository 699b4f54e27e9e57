package llm

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/vacation-distri/internal/document"
)

// BuildUserPrompt selects the prompt for rec's variant and embeds rec as
// indented JSON.
func BuildUserPrompt(rec *document.Record, now time.Time) (string, error) {
	payload, err := marshalForPrompt(rec)
	if err != nil {
		return "", err
	}
	date := now.Format(time.RFC3339)

	var parts []string
	switch c := rec.Content.(type) {
	case *document.Excel:
		parts = excelPrompt(date)
	case *document.PDF:
		parts = pdfPrompt(date, len(c.Pages))
	default:
		parts = genericPrompt()
	}
	return strings.Join(parts, "\n") + "\n" + payload, nil
}

func excelPrompt(date string) []string {
	return []string{
		"Transform the following anonymized spreadsheet data into a structured JSON document of employee absence records.",
		"",
		"Use real values taken from the data, never type placeholders: numbers like 5 instead of \"number\", dates like \"2024-01-15\" instead of \"YYYY-MM-DD\", a concrete type like \"vacation\" instead of a list of options.",
		"",
		"Expected JSON structure:",
		`{`,
		`  "document_type": "absence_records",`,
		`  "extraction_date": "` + date + `",`,
		`  "data_period": {"start_date": "<earliest date>", "end_date": "<latest date>"},`,
		`  "employees": [`,
		`    {`,
		`      "employee_id": "<id or anonymized label>",`,
		`      "employee_name": "<anonymized label>",`,
		`      "department": "<department if present>",`,
		`      "absence_records": [`,
		`        {"absence_type": "vacation", "start_date": "2024-01-15", "end_date": "2024-01-19", "days": 5, "notes": ""}`,
		`      ],`,
		`      "summary": {"total_vacation_days": 5, "total_sick_days": 0, "total_other_days": 0}`,
		`    }`,
		`  ],`,
		`  "organization_summary": {"total_employees": 1, "total_vacation_days": 5, "total_sick_days": 0, "total_other_days": 0}`,
		`}`,
		"",
		"Rules:",
		"1. Extract every employee record in the data.",
		"2. Categorize absences as vacation, sick_leave or other.",
		"3. Compute the totals from the records.",
		"4. Keep anonymized labels such as PERSON_1 exactly as they appear.",
		"5. Write all dates as ISO-8601 (YYYY-MM-DD).",
		"6. Return ONLY valid JSON, no additional text.",
		"",
		"Data to process:",
	}
}

func pdfPrompt(date string, pages int) []string {
	return []string{
		"Transform the following anonymized PDF data into structured JSON.",
		"",
		"Use actual values from the data, never type placeholders.",
		"",
		"For absence or vacation records use this structure:",
		`{`,
		`  "document_type": "absence_records",`,
		`  "extraction_date": "` + date + `",`,
		`  "pages_processed": ` + strconv.Itoa(pages) + `,`,
		`  "employees": [`,
		`    {`,
		`      "employee_id": "<extracted or generated id>",`,
		`      "employee_name": "<anonymized label>",`,
		`      "absence_records": [`,
		`        {"absence_type": "vacation", "start_date": "2024-01-15", "end_date": "2024-01-19", "days": 5, "notes": ""}`,
		`      ]`,
		`    }`,
		`  ]`,
		`}`,
		"",
		`For any other content choose a fitting structure, but always include "document_type" and "extraction_date" (` + date + `).`,
		"",
		"Rules:",
		"1. Decide the document type from the content.",
		"2. Use both page text and tables.",
		"3. Keep anonymized labels exactly as they appear.",
		"4. Write all dates as ISO-8601 (YYYY-MM-DD).",
		"5. Return ONLY valid JSON.",
		"",
		"Data to process:",
	}
}

func genericPrompt() []string {
	return []string{
		"Analyze and restructure the following anonymized document data.",
		"",
		"- Use actual values from the data, not type placeholders.",
		"- Keep anonymized labels exactly as they appear.",
		`- Include "document_type" and "extraction_date" fields.`,
		"- Write all dates as ISO-8601 (YYYY-MM-DD).",
		"- Return ONLY valid JSON.",
		"",
		"Data to analyze:",
	}
}

func marshalForPrompt(rec *document.Record) (string, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return "", err
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// EstimateTokens approximates the token count as one token per four characters.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}
