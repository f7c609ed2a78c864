// Package mediakind classifies uploaded filenames into the asset kinds the
// pipeline knows how to convert, and maps published files to the content
// types the web player expects.
package mediakind

import (
	"path/filepath"
	"strings"
)

// Kind is the asset classification driving transcoder selection.
type Kind string

const (
	Image Kind = "image"
	Video Kind = "video"
	Other Kind = "other"
)

// imageExtensions are the source formats converted to WebP.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
}

// videoExtensions are the source formats converted to HLS.
var videoExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".avi": true,
	".mkv": true,
}

// Classify maps a filename to its asset kind by extension, case-insensitively.
// Unknown or missing extensions classify as Other.
func Classify(filename string) Kind {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case imageExtensions[ext]:
		return Image
	case videoExtensions[ext]:
		return Video
	default:
		return Other
	}
}

// IsImage reports whether the filename is a convertible image.
func IsImage(filename string) bool { return Classify(filename) == Image }

// IsVideo reports whether the filename is a convertible video.
func IsVideo(filename string) bool { return Classify(filename) == Video }

// contentTypes maps published file extensions to upload content types.
// Everything not listed is served as a generic binary.
var contentTypes = map[string]string{
	".m3u8": "application/x-mpegURL",
	".ts":   "video/MP2T",
	".webp": "image/webp",
}

// DefaultContentType is the fallback for unrecognized published files.
const DefaultContentType = "application/octet-stream"

// ContentTypeFor returns the content type to tag a published file with.
func ContentTypeFor(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return DefaultContentType
}
