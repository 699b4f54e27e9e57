package ner

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Labels emitted by PatternTagger.
const (
	LabelEmail     = "EMAIL"
	LabelPhone     = "PHONE"
	LabelIBAN      = "IBAN"
	LabelIPAddress = "IP_ADDRESS"
	LabelPerson    = "PERSON"
	LabelOrg       = "ORG"
)

type pattern struct {
	re    *regexp.Regexp
	label string
	// group selects the submatch holding the entity; 0 is the whole match.
	group int
	// wordEnd rejects matches followed by a letter or digit.
	wordEnd bool
}

// PatternConfig configures PatternTagger. Names and Organizations are
// gazetteers matched as whole words.
type PatternConfig struct {
	Model         string
	Names         []string
	Organizations []string
}

// PatternTagger recognizes structured identifiers by regex plus optional
// name and organization gazetteers. It is always available.
type PatternTagger struct {
	model    string
	patterns []pattern
}

func NewPatternTagger(cfg PatternConfig) *PatternTagger {
	if cfg.Model == "" {
		cfg.Model = "pattern-v1"
	}
	t := &PatternTagger{model: cfg.Model}
	t.patterns = []pattern{
		{re: regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`), label: LabelEmail},
		{re: regexp.MustCompile(`\b[A-Z]{2}\d{2}(?:\s?[A-Z0-9]{4}){2,7}(?:\s?[A-Z0-9]{1,4})?\b`), label: LabelIBAN},
		{re: regexp.MustCompile(`(?:\+\d{1,3}[\s-]?|\b0)\d{1,4}[\s/-]?\d{3,}(?:[\s-]?\d{2,})*`), label: LabelPhone},
		{re: regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`), label: LabelIPAddress},
	}
	if re := gazetteer(cfg.Names); re != nil {
		t.patterns = append(t.patterns, pattern{re: re, label: LabelPerson, group: 1, wordEnd: true})
	}
	if re := gazetteer(cfg.Organizations); re != nil {
		t.patterns = append(t.patterns, pattern{re: re, label: LabelOrg, group: 1, wordEnd: true})
	}
	return t
}

// gazetteer builds a whole-word matcher that prefers the longest entry.
func gazetteer(entries []string) *regexp.Regexp {
	var alts []string
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			alts = append(alts, regexp.QuoteMeta(e))
		}
	}
	if len(alts) == 0 {
		return nil
	}
	slices.SortFunc(alts, func(a, b string) int { return len(b) - len(a) })
	return regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])(` + strings.Join(alts, "|") + `)`)
}

func (t *PatternTagger) Available() bool { return true }
func (t *PatternTagger) Name() string    { return t.model }

// Tag returns non-overlapping spans ordered by start. Where matches overlap,
// the earlier one wins, then the longer one.
func (t *PatternTagger) Tag(_ context.Context, text string) ([]EntitySpan, error) {
	type hit struct {
		start, end int
		label      string
	}
	var hits []hit
	for _, p := range t.patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			s, e := loc[2*p.group], loc[2*p.group+1]
			if s < 0 || s == e {
				continue
			}
			if p.wordEnd && e < len(text) {
				if r, _ := utf8.DecodeRuneInString(text[e:]); unicode.IsLetter(r) || unicode.IsDigit(r) {
					continue
				}
			}
			hits = append(hits, hit{start: s, end: e, label: p.label})
		}
	}
	slices.SortFunc(hits, func(a, b hit) int {
		if a.start != b.start {
			return a.start - b.start
		}
		return (b.end - b.start) - (a.end - a.start)
	})

	spans := make([]EntitySpan, 0, len(hits))
	lastEnd := -1
	for _, h := range hits {
		if h.start < lastEnd {
			continue
		}
		lastEnd = h.end
		spans = append(spans, EntitySpan{
			Start: utf8.RuneCountInString(text[:h.start]),
			End:   utf8.RuneCountInString(text[:h.end]),
			Text:  text[h.start:h.end],
			Label: h.label,
		})
	}
	return spans, nil
}
