// Package coromime is the MIME-type lookup collaborator. spec.md treats
// the MIME database as an external dependency of the response framer;
// this is a minimal stand-in keyed by file extension.
package coromime

import "strings"

const Default = "application/octet-stream"

var byExtension = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "text/javascript",
	".json": "application/json",
	".txt":  "text/plain",
	".xml":  "application/xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".wasm": "application/wasm",
}

// ForPath returns the MIME type associated with a file path's extension,
// or Default if no mapping is known.
func ForPath(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return Default
	}
	if mime, ok := byExtension[strings.ToLower(path[i:])]; ok {
		return mime
	}
	return Default
}
