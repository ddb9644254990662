package px

import (
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
)

// defaultExt is used when neither the name nor the MIME type yields one.
const defaultExt = ".bin"

// extByMime maps content types to the extension used on disk.
var extByMime = map[string]string{
	"text/plain":               ".txt",
	"text/markdown":            ".md",
	"text/html":                ".html",
	"text/css":                 ".css",
	"text/csv":                 ".csv",
	"text/xml":                 ".xml",
	"application/json":         ".json",
	"application/xml":          ".xml",
	"application/javascript":   ".js",
	"application/x-yaml":       ".yaml",
	"application/pdf":          ".pdf",
	"application/zip":          ".zip",
	"application/octet-stream": ".bin",
	"image/png":                ".png",
	"image/jpeg":               ".jpg",
	"image/gif":                ".gif",
	"image/webp":               ".webp",
	"image/svg+xml":            ".svg",
	"audio/mpeg":               ".mp3",
	"audio/wav":                ".wav",
	"video/mp4":                ".mp4",
}

// mimeByExt is the reverse lookup used to type resources and CLI uploads.
// Entries not derivable from extByMime are listed explicitly.
var mimeByExt = map[string]string{
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".css":      "text/css",
	".csv":      "text/csv",
	".xml":      "application/xml",
	".json":     "application/json",
	".js":       "application/javascript",
	".ts":       "text/plain",
	".py":       "text/plain",
	".go":       "text/plain",
	".yaml":     "application/x-yaml",
	".yml":      "application/x-yaml",
	".pdf":      "application/pdf",
	".zip":      "application/zip",
	".png":      "image/png",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".gif":      "image/gif",
	".webp":     "image/webp",
	".svg":      "image/svg+xml",
	".mp3":      "audio/mpeg",
	".wav":      "audio/wav",
	".mp4":      "video/mp4",
}

// textExts are extensions treated as text regardless of MIME type.
var textExts = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".json": true,
	".js": true, ".ts": true, ".jsx": true, ".tsx": true, ".py": true,
	".go": true, ".java": true, ".c": true, ".cpp": true, ".h": true,
	".rs": true, ".rb": true, ".sh": true, ".html": true, ".css": true,
	".xml": true, ".yaml": true, ".yml": true, ".toml": true, ".csv": true,
	".log": true, ".sql": true, ".ini": true,
}

// textMimes are non-text/* MIME types that still carry text.
var textMimes = map[string]bool{
	"application/json":       true,
	"application/xml":        true,
	"application/javascript": true,
	"application/x-yaml":     true,
}

// ResolveExt picks the on-disk extension for an attachment: the extension in
// name if any, else the one mapped from mimeType, else ".bin".
func ResolveExt(name, mimeType string) string {
	if ext := filepath.Ext(name); ext != "" && ext != "." {
		return ext
	}
	if ext, ok := extByMime[baseMime(mimeType)]; ok {
		return ext
	}
	return defaultExt
}

// MimeTypeForName infers a content type from a filename's extension.
func MimeTypeForName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if mt, ok := mimeByExt[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return baseMime(mt)
	}
	return "application/octet-stream"
}

// isText reports whether content with this MIME type and extension should
// be returned as decoded text.
func isText(mimeType, ext string) bool {
	mt := baseMime(mimeType)
	return strings.HasPrefix(mt, "text/") || textMimes[mt] || textExts[strings.ToLower(ext)]
}

func isImage(mimeType string) bool {
	return strings.HasPrefix(baseMime(mimeType), "image/")
}

// baseMime strips parameters such as "; charset=utf-8".
func baseMime(mimeType string) string {
	mt, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatSize renders a byte count with binary prefixes and one decimal place.
// Plain byte counts are printed as integers.
func FormatSize(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	v := float64(n)
	unit := 0
	for v >= 1024 && unit < len(sizeUnits)-1 {
		v /= 1024
		unit++
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + " " + sizeUnits[unit]
}
