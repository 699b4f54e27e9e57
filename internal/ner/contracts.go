// Package ner holds the entity tagger collaborators consumed by the anonymizer.
package ner

import "context"

// EntitySpan is a tagged range of one text field. Start and End are
// half-open rune offsets.
type EntitySpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Tagger finds entities in text. A tagger reporting Available() == false is
// never called.
type Tagger interface {
	Tag(ctx context.Context, text string) ([]EntitySpan, error)
	Available() bool
	Name() string
}
