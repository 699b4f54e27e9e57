// Package anonymize replaces tagged entities with stable labels and keeps the
// session mapping needed to reverse them.
package anonymize

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/joseph-ayodele/vacation-distri/internal/document"
	"github.com/joseph-ayodele/vacation-distri/internal/ner"
)

// Stats is an observational summary of one mapper session.
type Stats struct {
	TotalEntities  int            `json:"total_entities"`
	EntityTypes    map[string]int `json:"entity_types"`
	UniqueEntities int            `json:"unique_entities"`
	TotalMappings  int            `json:"total_mappings"`
	NERModel       string         `json:"ner_model"`
	Available      bool           `json:"available"`
}

// Mapper owns the session mapping between labels and original text. The
// mapping only grows until Reset. All methods are safe for concurrent use.
type Mapper struct {
	tagger ner.Tagger
	logger *slog.Logger

	mu       sync.Mutex
	labels   map[string]string // label -> original
	index    map[string]string // original -> label
	counters map[string]int    // NER label -> last ordinal minted
	total    int
	perType  map[string]int
	unique   int
}

// NewMapper builds a session over tagger. A nil tagger makes every Resolve
// an identity transform.
func NewMapper(tagger ner.Tagger, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mapper{tagger: tagger, logger: logger}
	m.resetLocked()
	return m
}

func (m *Mapper) resetLocked() {
	m.labels = map[string]string{}
	m.index = map[string]string{}
	m.counters = map[string]int{}
	m.perType = map[string]int{}
	m.total = 0
	m.unique = 0
}

// Available reports whether a tagger is configured and reachable.
func (m *Mapper) Available() bool {
	return m.tagger != nil && m.tagger.Available()
}

// Model names the tagger backing this session.
func (m *Mapper) Model() string {
	if m.tagger == nil {
		return ""
	}
	return m.tagger.Name()
}

// Resolve tags text and rewrites every entity to its session label.
// Blank text and an unavailable tagger return text unchanged with an empty
// mapping. A tagger failure is returned as an error.
func (m *Mapper) Resolve(ctx context.Context, text string) (string, document.Mapping, error) {
	if strings.TrimSpace(text) == "" || !m.Available() {
		return text, document.Mapping{}, nil
	}
	spans, err := m.tagger.Tag(ctx, text)
	if err != nil {
		return text, document.Mapping{}, fmt.Errorf("tag entities: %w", err)
	}
	out, local := m.ResolveSpans(text, spans)
	return out, local, nil
}

// ResolveSpans rewrites text given spans tagged over exactly that text.
//
// Spans are applied from the highest start offset down, so every replacement
// lands to the right of all spans still waiting and their offsets stay valid.
// Labels are minted in reading order. Spans that are out of range, empty or
// overlap a span further right are skipped.
func (m *Mapper) ResolveSpans(text string, spans []ner.EntitySpan) (string, document.Mapping) {
	local := document.Mapping{}
	if strings.TrimSpace(text) == "" || len(spans) == 0 {
		return text, local
	}

	ordered := slices.Clone(spans)
	slices.SortStableFunc(ordered, func(a, b ner.EntitySpan) int { return cmp.Compare(b.Start, a.Start) })

	runes := []rune(text)
	accepted := make([]ner.EntitySpan, 0, len(ordered))
	limit := len(runes)
	for _, sp := range ordered {
		if sp.Start < 0 || sp.Start >= sp.End || sp.End > limit {
			m.logger.Debug("anonymize.span.skipped", "start", sp.Start, "end", sp.End, "label", sp.Label)
			continue
		}
		if sp.Text == "" {
			sp.Text = string(runes[sp.Start:sp.End])
		}
		accepted = append(accepted, sp)
		limit = sp.Start
	}

	m.mu.Lock()
	labels := make([]string, len(accepted))
	for i := len(accepted) - 1; i >= 0; i-- {
		sp := accepted[i]
		labels[i] = m.labelForLocked(sp.Text, sp.Label)
		m.total++
		m.perType[sp.Label]++
		local[labels[i]] = sp.Text
	}
	m.mu.Unlock()

	for i, sp := range accepted {
		label := []rune(labels[i])
		next := make([]rune, 0, len(runes)-(sp.End-sp.Start)+len(label))
		next = append(next, runes[:sp.Start]...)
		next = append(next, label...)
		next = append(next, runes[sp.End:]...)
		runes = next
	}
	return string(runes), local
}

func (m *Mapper) labelForLocked(original, nerLabel string) string {
	if label, ok := m.index[original]; ok {
		return label
	}
	m.counters[nerLabel]++
	label := fmt.Sprintf("%s_%d", nerLabel, m.counters[nerLabel])
	m.labels[label] = original
	m.index[original] = label
	m.unique++
	return label
}

// ReverseResolve substitutes labels back to their original text, longest
// label first. A nil mapping uses the full session mapping.
//
// Ordering by length keeps PERSON_10 from being read as PERSON_1 followed by
// "0". It does not protect against an original text that happens to contain
// another label verbatim.
func (m *Mapper) ReverseResolve(text string, mapping document.Mapping) string {
	if mapping == nil {
		mapping = m.Snapshot()
	}
	labels := slices.Collect(maps.Keys(mapping))
	slices.SortFunc(labels, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	for _, label := range labels {
		text = strings.ReplaceAll(text, label, mapping[label])
	}
	return text
}

// Snapshot returns a copy of the session mapping, label -> original.
func (m *Mapper) Snapshot() document.Mapping {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(document.Mapping(m.labels))
}

// EntityTypes returns the sorted NER labels seen this session.
func (m *Mapper) EntityTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.counters))
}

func (m *Mapper) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		TotalEntities:  m.total,
		EntityTypes:    maps.Clone(m.perType),
		UniqueEntities: m.unique,
		TotalMappings:  len(m.labels),
		NERModel:       m.Model(),
		Available:      m.Available(),
	}
}

// Reset starts a new session: mappings, counters and stats are cleared.
func (m *Mapper) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	m.logger.Info("anonymize.session.reset")
}
