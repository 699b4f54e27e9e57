package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
}

// CollectFiles expands paths into the supported documents they name. Files
// are kept in argument order; directories are walked recursively, sorted,
// skipping hidden entries. Unsupported files named explicitly are returned
// too, so the pipeline reports them instead of dropping them silently.
func CollectFiles(paths []string) ([]string, DirStats, error) {
	if len(paths) == 0 {
		return nil, DirStats{}, errors.New("no paths provided")
	}
	var out []string
	var stats DirStats
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			stats.Scanned++
			stats.Matched++
			out = append(out, p)
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if path != p && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			stats.Scanned++
			if !allowedPath(path) {
				stats.Skipped++
				return nil
			}
			stats.Matched++
			found = append(found, path)
			return nil
		})
		if err != nil {
			return out, stats, fmt.Errorf("walk %s: %w", p, err)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, stats, nil
}
