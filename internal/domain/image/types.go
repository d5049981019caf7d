package image

import "strings"

// ValidationResult captures the outcome of upload validation.
type ValidationResult struct {
	IsValid      bool
	Format       string
	MIME         string
	Width        int
	Height       int
	FileSize     int64
	Error        error
	SecurityRisk string
}

// formatMIMEs maps decoded image formats onto their canonical MIME types.
var formatMIMEs = map[string]string{
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
}

// FormatMIME returns the canonical MIME type for a decoded format name,
// or an empty string when the format is unknown.
func FormatMIME(format string) string {
	return formatMIMEs[strings.ToLower(format)]
}

// MIMEFromFilename infers a declared MIME type from the file extension.
func MIMEFromFilename(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	case strings.HasSuffix(lower, ".bmp"):
		return "image/bmp"
	default:
		return ""
	}
}

// NormalizeMIME strips parameters and lowercases a Content-Type value.
func NormalizeMIME(mime string) string {
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
