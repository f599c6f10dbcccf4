package constants

import "strings"

// SourceType is the canonical kind of an input document.
type SourceType string

// Stable values (these exact strings appear in envelopes and history rows).
const (
	TEXT  SourceType = "TEXT"
	PDF   SourceType = "PDF"
	IMAGE SourceType = "IMAGE"
)

// AllowedExtensions holds the file extensions accepted for binary input.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (with or without dot) is accepted for binary input.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// MapExtToFormat maps a file extension to its source type.
// Returns "" for anything outside AllowedExtensions.
func MapExtToFormat(ext string) SourceType {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png":
		return IMAGE
	default:
		return ""
	}
}

// MIMEForExt returns the declared MIME type for an allowed extension.
// Used as a fallback when content sniffing is inconclusive.
func MIMEForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
