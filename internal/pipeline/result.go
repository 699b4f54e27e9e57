package pipeline

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/joseph-ayodele/vacation-distri/constants"
	"github.com/joseph-ayodele/vacation-distri/internal/document"
)

// Result is the consolidated outcome of one document.
type Result struct {
	FilePath         string            `json:"file_path"`
	Timestamp        time.Time         `json:"processing_timestamp"`
	PhasesCompleted  []constants.Phase `json:"phases_completed"`
	Errors           []string          `json:"errors"`
	Warnings         []string          `json:"warnings"`
	Data             *document.Record  `json:"data"`
	RestructuredData map[string]any    `json:"restructured_data,omitempty"`
}

func newResult(path string, ts time.Time) *Result {
	return &Result{
		FilePath:        path,
		Timestamp:       ts,
		PhasesCompleted: []constants.Phase{},
		Errors:          []string{},
		Warnings:        []string{},
	}
}

// MarshalJSON keeps phases_completed, errors and warnings as arrays.
func (r *Result) MarshalJSON() ([]byte, error) {
	type plain Result
	out := plain(*r)
	if out.PhasesCompleted == nil {
		out.PhasesCompleted = []constants.Phase{}
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	return json.Marshal(out)
}

func (r *Result) complete(p constants.Phase) {
	r.PhasesCompleted = append(r.PhasesCompleted, p)
}

// Completed reports whether phase p is in PhasesCompleted.
func (r *Result) Completed(p constants.Phase) bool {
	return slices.Contains(r.PhasesCompleted, p)
}

// Status is failed without extraction, completed_with_errors when any error
// was recorded, completed otherwise. Warnings never affect it.
func (r *Result) Status() constants.ResultStatus {
	switch {
	case !r.Completed(constants.PhaseExtraction):
		return constants.ResultFailed
	case len(r.Errors) > 0:
		return constants.ResultCompletedWithErrors
	default:
		return constants.ResultCompleted
	}
}

// Summary is the compact, data-free view of a Result.
type Summary struct {
	FilePath        string                 `json:"file_path"`
	Timestamp       time.Time              `json:"timestamp"`
	PhasesCompleted []constants.Phase      `json:"phases_completed"`
	Status          constants.ResultStatus `json:"status"`
	Message         string                 `json:"message"`
	ErrorCount      int                    `json:"error_count"`
	WarningCount    int                    `json:"warning_count"`
	Errors          []string               `json:"errors"`
	Warnings        []string               `json:"warnings"`
}

func (r *Result) Summary() Summary {
	s := Summary{
		FilePath:        r.FilePath,
		Timestamp:       r.Timestamp,
		PhasesCompleted: append([]constants.Phase{}, r.PhasesCompleted...),
		Status:          r.Status(),
		ErrorCount:      len(r.Errors),
		WarningCount:    len(r.Warnings),
		Errors:          append([]string{}, r.Errors...),
		Warnings:        append([]string{}, r.Warnings...),
	}
	switch s.Status {
	case constants.ResultCompleted:
		s.Message = "Successfully completed"
	case constants.ResultCompletedWithErrors:
		s.Message = "Completed with errors"
	default:
		s.Message = "Processing failed"
	}
	return s
}
