package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/vacation-distri/internal/common"
)

func TestRestructureErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	tests := []struct {
		name string
		err  *RestructureError
		want string
	}{
		{"unavailable", unavailable(cause), "service unavailable: connection refused"},
		{"unavailable without cause", &RestructureError{Kind: common.ErrServiceUnavailable}, "service unavailable"},
		{"failure", &RestructureError{Kind: common.ErrServiceFailure, Attempts: 3, Cause: cause}, "service failure after 3 attempt(s): connection refused"},
		{"invalid", &RestructureError{Kind: common.ErrInvalidResponse, Attempts: 2}, "invalid response after 2 attempt(s)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.ErrorIs(t, tt.err, tt.err.Kind)
		})
	}
}
