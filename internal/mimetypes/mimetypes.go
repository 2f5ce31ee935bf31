// Package mimetypes is the suffix -> content-type lookup table used by
// the response builder.
package mimetypes

import "strings"

var suffixType = map[string]string{
	".html":  "text/html",
	".xml":   "text/xml",
	".xhtml": "application/xhtml+xml",
	".txt":   "text/plain",
	".rtf":   "application/rtf",
	".pdf":   "application/pdf",
	".word":  "application/msword",
	".png":   "image/png",
	".gif":   "image/gif",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".css":   "text/css",
	".js":    "text/javascript",
}

// Lookup returns the content-type for path's suffix, defaulting to
// text/plain for unknown or absent suffixes.
func Lookup(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return "text/plain"
	}
	if t, ok := suffixType[path[idx:]]; ok {
		return t
	}
	return "text/plain"
}
