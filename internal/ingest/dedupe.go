package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sync"
)

// Deduper remembers the content hash last seen per path so repeated watch
// events for an unchanged file are processed once.
type Deduper struct {
	mu   sync.Mutex
	seen map[string]string
}

func NewDeduper() *Deduper {
	return &Deduper{seen: map[string]string{}}
}

// Changed reports whether path's content differs from the last call for the
// same path, and records the new hash.
func (d *Deduper) Changed(path string) (bool, string, error) {
	sum, err := FileHash(path)
	if err != nil {
		return false, "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[path] == sum {
		return false, sum, nil
	}
	d.seen[path] = sum
	return true, sum, nil
}

// FileHash returns the hex sha256 of the file at path.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
