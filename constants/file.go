package constants

import (
	"path/filepath"
	"strings"
)

// FileFormat is the document family an extension maps to.
type FileFormat string

const (
	FileFormatPDF   FileFormat = "pdf"
	FileFormatExcel FileFormat = "excel"
)

// AllowedExtensions holds the file extensions accepted for processing.
var AllowedExtensions = map[string]FileFormat{
	"pdf":  FileFormatPDF,
	"xlsx": FileFormatExcel,
	"xls":  FileFormatExcel,
}

// ProcessedSuffix is appended to an input's base name for the default result path.
const ProcessedSuffix = "_processed.json"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// FormatForPath returns the format for path's extension, or false when unsupported.
func FormatForPath(path string) (FileFormat, bool) {
	f, ok := AllowedExtensions[NormalizeExt(filepath.Ext(path))]
	return f, ok
}

// SupportedExtensions returns the allowed extensions with a leading dot.
func SupportedExtensions() []string {
	return []string{".pdf", ".xlsx", ".xls"}
}
