package llm

import (
	"fmt"

	"github.com/joseph-ayodele/vacation-distri/internal/common"
)

// RestructureError reports a failed restructuring. Kind is one of
// common.ErrServiceUnavailable, common.ErrServiceFailure or
// common.ErrInvalidResponse; errors.Is matches both Kind and Cause.
type RestructureError struct {
	Kind     error
	Attempts int
	Cause    error
}

func (e *RestructureError) Error() string {
	msg := fmt.Sprint(e.Kind)
	if e.Attempts > 0 {
		msg = fmt.Sprintf("%s after %d attempt(s)", msg, e.Attempts)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RestructureError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func unavailable(cause error) *RestructureError {
	return &RestructureError{Kind: common.ErrServiceUnavailable, Cause: cause}
}
