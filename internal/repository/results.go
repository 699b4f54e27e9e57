package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/vacation-distri/constants"
	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/pipeline"
)

// DefaultOutputPath is <dir>/<base>_processed.json next to the input file.
func DefaultOutputPath(inputPath string) string {
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(inputPath), base+constants.ProcessedSuffix)
}

// SaveResult writes res as indented UTF-8 JSON and returns the path written.
// An empty path uses DefaultOutputPath(res.FilePath).
func SaveResult(res *pipeline.Result, path string) (string, error) {
	if res == nil {
		return "", common.InvalidInputf("nil result")
	}
	if path == "" {
		path = DefaultOutputPath(res.FilePath)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return path, nil
}
