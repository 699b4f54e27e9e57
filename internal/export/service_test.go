package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/document"
)

func absenceData() map[string]any {
	return map[string]any{
		"document_type":   "absence_records",
		"extraction_date": "2024-05-01",
		"employees": []any{
			map[string]any{
				"employee_id":   "E1",
				"employee_name": "PERSON_1",
				"department":    "ORG_1",
				"absence_records": []any{
					map[string]any{"absence_type": "vacation", "start_date": "2024-03-04", "end_date": "2024-03-08", "days": float64(5), "notes": ""},
					map[string]any{"absence_type": "sick_leave", "start_date": "2024-04-02", "end_date": "2024-04-03", "days": 2},
				},
			},
			map[string]any{"employee_name": "PERSON_2", "absence_records": []any{}},
		},
	}
}

func readSheet(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestAbsenceWorkbook(t *testing.T) {
	out, err := NewService(nil, nil).AbsenceWorkbook(absenceData())
	require.NoError(t, err)

	rows := readSheet(t, out, "Absences")
	require.Len(t, rows, 3)
	assert.Equal(t, absenceHeaders, rows[0])
	assert.Equal(t, []string{"E1", "PERSON_1", "ORG_1", "vacation", "2024-03-04", "2024-03-08", "5"}, rows[1])
	assert.Equal(t, "sick_leave", rows[2][3])
	assert.Equal(t, "2", rows[2][6])

	summary := readSheet(t, out, "Summary")
	assert.Equal(t, []string{"Document Type", "absence_records"}, summary[0])
	assert.Equal(t, []string{"Extraction Date", "2024-05-01"}, summary[1])
	assert.Equal(t, []string{"PERSON_1", "5", "2", "0", "7"}, summary[4])
	assert.Equal(t, []string{"PERSON_2", "0", "0", "0", "0"}, summary[5])
}

type mapReveal document.Mapping

func (m mapReveal) ReverseResolve(text string, _ document.Mapping) string {
	for label, original := range m {
		text = strings.ReplaceAll(text, label, original)
	}
	return text
}

func TestAbsenceWorkbookRevealsLabels(t *testing.T) {
	svc := NewService(mapReveal{"PERSON_1": "Anna Schmidt", "ORG_1": "Vertrieb"}, nil)
	out, err := svc.AbsenceWorkbook(absenceData())
	require.NoError(t, err)

	rows := readSheet(t, out, "Absences")
	assert.Equal(t, "Anna Schmidt", rows[1][1])
	assert.Equal(t, "Vertrieb", rows[1][2])
}

func TestAbsenceWorkbookRejectsOtherDocuments(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.AbsenceWorkbook(map[string]any{"document_type": "invoice", "extraction_date": "2024-05-01"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.AbsenceWorkbook(nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
