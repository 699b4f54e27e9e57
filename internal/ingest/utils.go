package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/vacation-distri/constants"
)

// AllowedExt checks if a file extension is in the allowed set (pdf/xlsx/xls).
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
// Office lock files (~$book.xlsx) count as hidden.
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$")
}

func allowedPath(path string) bool {
	return !IsHidden(path) && AllowedExt(filepath.Ext(path))
}
