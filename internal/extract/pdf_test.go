package extract

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/vacation-distri/internal/common"
)

type stubRunner struct {
	out  string
	err  error
	args []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.args = append([]string{name}, args...)
	return []byte(s.out), nil, s.err
}

func TestTextFromContentStream(t *testing.T) {
	stream := []byte(`BT
/F1 12 Tf
72 712 Td
(Urlaubsplan 2024) Tj
0 -14 Td
[(Anna ) -120 (Schmidt)] TJ
T*
(Gr\374\337e \(intern\)) Tj
ET`)

	assert.Equal(t, "Urlaubsplan 2024 Anna Schmidt\nGrüße (intern)", textFromContentStream(stream))
}

func TestTextFromContentStreamTokens(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{"single line", `BT /F1 12 Tf 72 712 Td (Anna Schmidt) Tj ET`, "Anna Schmidt"},
		{"balanced parentheses", `BT (Urlaub (genehmigt) bis Mai) Tj ET`, "Urlaub (genehmigt) bis Mai"},
		{"raw winansi bytes", "BT (Max M\xfcller) Tj ET", "Max Müller"},
		{"octal winansi", `BT (Max M\374ller) Tj ET`, "Max Müller"},
		{"winansi punctuation", "BT (\x84Urlaub\x93 \x96 \x80) Tj ET", "„Urlaub“ – €"},
		{"quote operator", `BT (Zeile 1) Tj (Zeile 2) ' ET`, "Zeile 1\nZeile 2"},
		{"utf16 hex string", `BT <FEFF004D00FC006C006C00650072> Tj ET`, "Müller"},
		{"glyph hex string skipped", `BT <00410042> Tj (sichtbar) Tj ET`, "sichtbar"},
		{"comments and dictionaries", "% header\nBT /Span <</MCID 0>> BDC (Team A) Tj EMC ET", "Team A"},
		{"inline image", "BT (vor) Tj ET BI /W 1 /H 1 ID \x00(Tj) EI BT (nach) Tj ET", "vor\nnach"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := textFromContentStream([]byte(tt.stream))
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestDecodePDFStringEscapes(t *testing.T) {
	assert.Equal(t, "a\nb\\c", decodePDFString([]byte(`a\nb\\c`)))
	assert.Equal(t, "ä", decodePDFString([]byte(`\344`)))
	assert.Equal(t, "x", decodePDFString([]byte(`\x`)))
}

func TestFallbackTextUsesRunner(t *testing.T) {
	runner := &stubRunner{out: "  Seite 2 Text \n"}
	e := NewPDFExtractor(nil, runner)

	got := e.fallbackText(context.Background(), "/tmp/a.pdf", "secret", 2)

	assert.Equal(t, "Seite 2 Text", got)
	assert.Equal(t, []string{"pdftotext", "-layout", "-enc", "UTF-8", "-f", "2", "-l", "2", "-upw", "secret", "/tmp/a.pdf", "-"}, runner.args)
}

func TestFallbackTextSwallowsRunnerError(t *testing.T) {
	e := NewPDFExtractor(nil, &stubRunner{err: errors.New("exit 1")})
	assert.Empty(t, e.fallbackText(context.Background(), "/tmp/a.pdf", "", 1))
}

func TestPDFExtractorRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, writeFile(path, "hello"))

	_, err := NewPDFExtractor(nil, &stubRunner{}).Extract(context.Background(), path, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)
}
