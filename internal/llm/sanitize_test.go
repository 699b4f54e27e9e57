package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}\n```":     `{"a":1}`,
		"```json {\"a\":1}```":    `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"```{\"a\":1}```":         `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, StripCodeFences(in), in)
	}
}

func TestParseJSONObject(t *testing.T) {
	m, err := ParseJSONObject("```json\n{\"document_type\":\"x\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "x", m["document_type"])

	for _, bad := range []string{"", "```json\n```", "[1]", "null", "{", "text"} {
		_, err := ParseJSONObject(bad)
		assert.Error(t, err, bad)
	}
}
