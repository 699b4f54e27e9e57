package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/vacation-distri/constants"
	"github.com/joseph-ayodele/vacation-distri/internal/anonymize"
	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/document"
	"github.com/joseph-ayodele/vacation-distri/internal/llm"
	"github.com/joseph-ayodele/vacation-distri/internal/ner"
)

type fakeExtractor struct {
	records map[string]*document.Record
}

func (f *fakeExtractor) SupportedFormats() []string { return []string{".pdf", ".xlsx"} }

func (f *fakeExtractor) Extract(_ context.Context, path, _ string) (*document.Record, error) {
	rec, ok := f.records[path]
	if !ok {
		return nil, fmt.Errorf("%w: cannot open %s", common.ErrExtraction, path)
	}
	return rec.Clone(), nil
}

type failingTagger struct{}

func (failingTagger) Available() bool { return true }
func (failingTagger) Name() string    { return "failing" }
func (failingTagger) Tag(context.Context, string) ([]ner.EntitySpan, error) {
	return nil, errors.New("model crashed")
}

type fakeRestructurer struct {
	available bool
	out       map[string]any
	err       error
	inputs    []*document.Record
}

func (f *fakeRestructurer) Available(context.Context) bool { return f.available }
func (f *fakeRestructurer) Model() string                  { return "fake-model" }
func (f *fakeRestructurer) Validate(data map[string]any) error {
	return llm.Validate(data)
}
func (f *fakeRestructurer) Restructure(_ context.Context, rec *document.Record, _ int) (map[string]any, error) {
	f.inputs = append(f.inputs, rec)
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func leaveLetter(path string) *document.Record {
	return &document.Record{
		FilePath: path,
		Metadata: map[string]any{"pages_count": 1},
		Content: &document.PDF{Pages: []document.Page{{
			PageNumber:  1,
			TextContent: "Urlaubsantrag von Anna Schmidt, genehmigt durch Max Müller.",
		}}},
	}
}

func validRestructured() map[string]any {
	return map[string]any{
		"document_type":   "absence_records",
		"extraction_date": "2024-05-01",
		"employees":       []any{map[string]any{"employee_name": "PERSON_1", "absence_records": []any{}}},
	}
}

func newAnonymizer(tagger ner.Tagger) *anonymize.Anonymizer {
	return anonymize.New(anonymize.NewMapper(tagger, nil), nil)
}

func namesTagger() ner.Tagger {
	return ner.NewPatternTagger(ner.PatternConfig{Model: "test", Names: []string{"Anna Schmidt", "Max Müller"}})
}

func newTestProcessor(anon Anonymizer, rest Restructurer, paths ...string) *Processor {
	ex := &fakeExtractor{records: map[string]*document.Record{}}
	for _, p := range paths {
		ex.records[p] = leaveLetter(p)
	}
	p := NewProcessor(nil, ex, anon, rest)
	p.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return p
}

func TestProcessDocumentRunsAllPhases(t *testing.T) {
	rest := &fakeRestructurer{available: true, out: validRestructured()}
	p := newTestProcessor(newAnonymizer(namesTagger()), rest, "/in/a.pdf")

	res, err := p.ProcessDocument(context.Background(), "/in/a.pdf", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, constants.PhaseOrder, res.PhasesCompleted)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, constants.ResultCompleted, res.Status())
	assert.Equal(t, validRestructured(), res.RestructuredData)

	page := res.Data.Content.(*document.PDF).Pages[0]
	assert.Equal(t, "Urlaubsantrag von PERSON_1, genehmigt durch PERSON_2.", page.TextContent)
	assert.Len(t, page.AnonymizationMapping, 2)

	// the restructurer only ever sees sanitized data
	require.Len(t, rest.inputs, 1)
	sent, err := json.Marshal(rest.inputs[0])
	require.NoError(t, err)
	assert.NotContains(t, string(sent), "anonymization_mapping")
	assert.NotContains(t, string(sent), "Anna Schmidt")
}

func TestProcessBatchContinuesPastExtractionFailure(t *testing.T) {
	rest := &fakeRestructurer{available: true, out: validRestructured()}
	p := newTestProcessor(newAnonymizer(namesTagger()), rest, "/in/1.pdf", "/in/3.pdf")

	results := p.ProcessBatch(context.Background(), []string{"/in/1.pdf", "/in/2.pdf", "/in/3.pdf"}, DefaultOptions())
	require.Len(t, results, 3)
	for i, want := range []string{"/in/1.pdf", "/in/2.pdf", "/in/3.pdf"} {
		assert.Equal(t, want, results[i].FilePath)
	}

	assert.Empty(t, results[1].PhasesCompleted)
	require.NotEmpty(t, results[1].Errors)
	assert.True(t, strings.HasPrefix(results[1].Errors[0], "Extraction failed: cannot open"), results[1].Errors[0])
	assert.Nil(t, results[1].Data)
	assert.Equal(t, constants.ResultFailed, results[1].Status())

	for _, i := range []int{0, 2} {
		assert.Equal(t, constants.PhaseOrder, results[i].PhasesCompleted)
		assert.Equal(t, constants.ResultCompleted, results[i].Status())
	}

	stats := p.Stats()
	assert.Equal(t, 3, stats.FilesProcessed)
	assert.Equal(t, 1, stats.ExtractionErrors)
	require.NotNil(t, stats.LastProcessed)
}

func TestProcessDocumentExtractionFailureIsFatal(t *testing.T) {
	rest := &fakeRestructurer{available: true, out: validRestructured()}
	p := newTestProcessor(newAnonymizer(namesTagger()), rest)

	res, err := p.ProcessDocument(context.Background(), "/in/missing.pdf", DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)
	require.NotNil(t, res)
	assert.Empty(t, res.PhasesCompleted)
	assert.Empty(t, rest.inputs)
}

func TestAnonymizationFailureFallsBackToExtractedData(t *testing.T) {
	rest := &fakeRestructurer{available: true, out: validRestructured()}
	p := newTestProcessor(newAnonymizer(failingTagger{}), rest, "/in/a.pdf")

	res, err := p.ProcessDocument(context.Background(), "/in/a.pdf", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []constants.Phase{constants.PhaseExtraction, constants.PhaseRestructuring}, res.PhasesCompleted)
	require.Len(t, res.Errors, 1)
	assert.True(t, strings.HasPrefix(res.Errors[0], "Anonymization failed: "), res.Errors[0])
	assert.Contains(t, res.Errors[0], "model crashed")
	assert.Equal(t, []string{"Continuing with non-anonymized data"}, res.Warnings)
	assert.Equal(t, constants.ResultCompletedWithErrors, res.Status())

	page := res.Data.Content.(*document.PDF).Pages[0]
	assert.Contains(t, page.TextContent, "Anna Schmidt")
	assert.Equal(t, 1, p.Stats().AnonymizationErrors)
}

func TestAnonymizerUnavailableIsOnlyAWarning(t *testing.T) {
	rest := &fakeRestructurer{available: true, out: validRestructured()}
	p := newTestProcessor(newAnonymizer(nil), rest, "/in/a.pdf")

	res, err := p.ProcessDocument(context.Background(), "/in/a.pdf", DefaultOptions())
	require.NoError(t, err)
	assert.NotContains(t, res.PhasesCompleted, constants.PhaseAnonymization)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Anonymization not available")
	assert.Equal(t, constants.ResultCompleted, res.Status())
}

func TestRestructuringFailureIsRecorded(t *testing.T) {
	rest := &fakeRestructurer{available: true, err: &llm.RestructureError{
		Kind: common.ErrServiceFailure, Attempts: 3, Cause: errors.New("connection refused"),
	}}
	p := newTestProcessor(newAnonymizer(namesTagger()), rest, "/in/a.pdf")

	res, err := p.ProcessDocument(context.Background(), "/in/a.pdf", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []constants.Phase{constants.PhaseExtraction, constants.PhaseAnonymization}, res.PhasesCompleted)
	require.Len(t, res.Errors, 1)
	assert.True(t, strings.HasPrefix(res.Errors[0], "LLM restructuring failed: "))
	assert.Equal(t, []string{"Continuing without restructured data"}, res.Warnings)
	assert.Nil(t, res.RestructuredData)
	assert.Equal(t, constants.ResultCompletedWithErrors, res.Status())
	assert.Equal(t, 1, p.Stats().RestructuringErrors)
}

func TestInvalidRestructuredDataIsOmitted(t *testing.T) {
	rest := &fakeRestructurer{available: true, out: map[string]any{"document_type": "absence_records"}}
	p := newTestProcessor(newAnonymizer(namesTagger()), rest, "/in/a.pdf")

	res, err := p.ProcessDocument(context.Background(), "/in/a.pdf", DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []string{"LLM restructuring produced invalid data structure"}, res.Warnings)
	assert.Nil(t, res.RestructuredData)
	assert.NotContains(t, res.PhasesCompleted, constants.PhaseRestructuring)
	assert.Equal(t, constants.ResultCompleted, res.Status())
}

func TestDisabledPhasesAreSkipped(t *testing.T) {
	rest := &fakeRestructurer{available: true, out: validRestructured()}
	p := newTestProcessor(newAnonymizer(namesTagger()), rest, "/in/a.pdf")

	res, err := p.ProcessDocument(context.Background(), "/in/a.pdf", Options{})
	require.NoError(t, err)
	assert.Equal(t, []constants.Phase{constants.PhaseExtraction}, res.PhasesCompleted)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, rest.inputs)
}

func TestPhasesFollowFixedOrder(t *testing.T) {
	taggers := []ner.Tagger{namesTagger(), failingTagger{}, nil}
	rests := []*fakeRestructurer{
		{available: true, out: validRestructured()},
		{available: true, out: map[string]any{}},
		{err: errors.New("down")},
	}
	for _, tg := range taggers {
		for _, r := range rests {
			p := newTestProcessor(newAnonymizer(tg), r, "/in/a.pdf")
			res, _ := p.ProcessDocument(context.Background(), "/in/a.pdf", DefaultOptions())
			last := -1
			for _, ph := range res.PhasesCompleted {
				idx := indexOf(constants.PhaseOrder, ph)
				require.Greater(t, idx, last, "phases %v", res.PhasesCompleted)
				last = idx
			}
			assert.Equal(t, constants.PhaseExtraction, res.PhasesCompleted[0])
		}
	}
}

func indexOf(phases []constants.Phase, p constants.Phase) int {
	for i, q := range phases {
		if q == p {
			return i
		}
	}
	return -1
}

func TestResetStatsStartsNewSession(t *testing.T) {
	anon := newAnonymizer(namesTagger())
	p := newTestProcessor(anon, &fakeRestructurer{available: true, out: validRestructured()}, "/in/a.pdf")

	_, err := p.ProcessDocument(context.Background(), "/in/a.pdf", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 2, anon.Stats().TotalMappings)

	p.ResetStats()
	assert.Equal(t, Stats{}, p.Stats())
	assert.Zero(t, anon.Stats().TotalMappings)
}

func TestServiceStatus(t *testing.T) {
	p := newTestProcessor(newAnonymizer(namesTagger()), &fakeRestructurer{available: false}, "/in/a.pdf")

	st := p.ServiceStatus(context.Background())
	assert.True(t, st.Extractor.Available)
	assert.Equal(t, []string{".pdf", ".xlsx"}, st.Extractor.SupportedFormats)
	assert.True(t, st.Anonymizer.Available)
	assert.Equal(t, "test", st.Anonymizer.Model)
	assert.False(t, st.Restructurer.Available)
	assert.Equal(t, "fake-model", st.Restructurer.Model)
}

func TestResultJSONAndSummary(t *testing.T) {
	res := &Result{FilePath: "/in/a.pdf"}
	b, err := json.Marshal(res)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, []any{}, m["phases_completed"])
	assert.Equal(t, []any{}, m["errors"])
	assert.Equal(t, []any{}, m["warnings"])
	assert.Nil(t, m["data"])
	assert.NotContains(t, m, "restructured_data")

	res.PhasesCompleted = []constants.Phase{constants.PhaseExtraction}
	res.Errors = []string{"Anonymization failed: x"}
	s := res.Summary()
	assert.Equal(t, constants.ResultCompletedWithErrors, s.Status)
	assert.Equal(t, "Completed with errors", s.Message)
	assert.Equal(t, 1, s.ErrorCount)

	res.Errors = nil
	res.Warnings = []string{"w"}
	s = res.Summary()
	assert.Equal(t, "Successfully completed", s.Message)
	assert.Equal(t, 1, s.WarningCount)
}
