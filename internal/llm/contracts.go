// Package llm turns document records into restructured JSON through a
// chat-completion service.
package llm

import "context"

// SystemPrompt is sent with every restructuring request.
const SystemPrompt = "You are a data structuring expert. Always return valid JSON only, no additional text."

// CompletionRequest is one chat completion: a system and a user message.
type CompletionRequest struct {
	System      string
	Prompt      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Completer is the completion-API collaborator. Complete returns the raw
// assistant text; transport failures and non-2xx responses are errors.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Healthy(ctx context.Context) bool
}
