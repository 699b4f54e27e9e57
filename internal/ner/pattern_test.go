package ner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternTaggerStructuredIdentifiers(t *testing.T) {
	tagger := NewPatternTagger(PatternConfig{})

	spans, err := tagger.Tag(context.Background(), "Mail anna.schmidt@example.de, Tel +49 30 1234567, vom 2024-01-15.")
	require.NoError(t, err)
	require.Len(t, spans, 2)

	assert.Equal(t, LabelEmail, spans[0].Label)
	assert.Equal(t, "anna.schmidt@example.de", spans[0].Text)
	assert.Equal(t, LabelPhone, spans[1].Label)
	assert.Equal(t, "+49 30 1234567", spans[1].Text)
}

func TestPatternTaggerLeavesDatesAlone(t *testing.T) {
	tagger := NewPatternTagger(PatternConfig{})

	spans, err := tagger.Tag(context.Background(), "Urlaub 01.02.2024 bis 2024-02-14")
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestPatternTaggerGazetteerUsesRuneOffsets(t *testing.T) {
	tagger := NewPatternTagger(PatternConfig{Names: []string{"Max", "Max Müller", "Anna Schmidt"}})

	text := "Anna Schmidt traf Max Müller. Maxime nicht."
	spans, err := tagger.Tag(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, spans, 2)

	assert.Equal(t, EntitySpan{Start: 0, End: 12, Text: "Anna Schmidt", Label: LabelPerson}, spans[0])
	assert.Equal(t, EntitySpan{Start: 18, End: 28, Text: "Max Müller", Label: LabelPerson}, spans[1])
	assert.Equal(t, "Max Müller", string([]rune(text)[spans[1].Start:spans[1].End]))
}

func TestPatternTaggerIsAlwaysAvailable(t *testing.T) {
	tagger := NewPatternTagger(PatternConfig{})
	assert.True(t, tagger.Available())
	assert.Equal(t, "pattern-v1", tagger.Name())
}
