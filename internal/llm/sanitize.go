package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StripCodeFences removes a surrounding ```json / ``` block, if any.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		s = rest
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseJSONObject strips code fences and decodes a single JSON object.
func ParseJSONObject(content string) (map[string]any, error) {
	body := StripCodeFences(content)
	if body == "" {
		return nil, errors.New("empty response")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, fmt.Errorf("decode response json: %w", err)
	}
	if m == nil {
		return nil, errors.New("response is not a JSON object")
	}
	return m, nil
}
