package server

import (
	"mime"
	"path"
	"strings"
)

// DefaultMediaType is served when no mapping knows the extension.
const DefaultMediaType = "text/html; charset=utf-8"

// builtinTypes covers common static-asset extensions the Go runtime's mime
// table may be missing (it only consults /etc/mime.types on some systems).
// Keys are extensions without the leading dot.
var builtinTypes = map[string]string{
	"txt":   "text/plain",
	"md":    "text/markdown",
	"csv":   "text/csv",
	"htm":   "text/html",
	"ico":   "image/x-icon",
	"mp3":   "audio/mpeg",
	"m4a":   "audio/mp4",
	"ogg":   "audio/ogg",
	"mp4":   "video/mp4",
	"webm":  "video/webm",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"map":   "application/json",
}

// MimeTable resolves a request path to a Content-Type. Configured overrides
// win over the builtin table, which wins over the runtime's extension
// lookup; unknown extensions fall back to DefaultMediaType. The configured
// default charset is attached to text types that do not carry one.
type MimeTable struct {
	overrides      map[string]string
	defaultCharset string
}

// NewMimeTable normalizes the override keys (lowercase, no leading dot) the
// way the config collaborator hands them over.
func NewMimeTable(overrides map[string]string, defaultCharset string) *MimeTable {
	normalized := make(map[string]string, len(overrides))
	for ext, mediaType := range overrides {
		normalized[strings.ToLower(strings.TrimPrefix(ext, "."))] = mediaType
	}
	return &MimeTable{overrides: normalized, defaultCharset: defaultCharset}
}

// ContentType resolves the Content-Type header value for requestPath.
func (t *MimeTable) ContentType(requestPath string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(requestPath), "."))

	var raw string
	if ext != "" {
		if v, ok := t.overrides[ext]; ok {
			raw = v
		} else if v, ok := builtinTypes[ext]; ok {
			raw = v
		} else {
			raw = mime.TypeByExtension("." + ext)
		}
	}
	if raw == "" {
		return DefaultMediaType
	}

	mediaType, params, err := mime.ParseMediaType(raw)
	if err != nil {
		return DefaultMediaType
	}
	if t.defaultCharset != "" && strings.HasPrefix(mediaType, "text/") && params["charset"] == "" {
		params["charset"] = t.defaultCharset
	}
	return mime.FormatMediaType(mediaType, params)
}

// wantsAcceptRanges reports whether the media type alone warrants an
// Accept-Ranges advertisement (streamable audio/video content).
func wantsAcceptRanges(contentType string) bool {
	return strings.HasPrefix(contentType, "audio/") || strings.HasPrefix(contentType, "video/")
}
