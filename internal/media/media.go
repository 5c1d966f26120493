// Package media defines the media types the engine classifies and the
// extension-based detection used to route files to per-type models.
package media

import (
	"path/filepath"
	"strings"
)

// Type identifies the broad media family of a file.
type Type string

const (
	Text    Type = "text"
	Image   Type = "image"
	Audio   Type = "audio"
	Video   Type = "video"
	Unknown Type = "unknown"
)

// AllTypes returns the classifiable media types, excluding Unknown.
func AllTypes() []Type {
	return []Type{Text, Image, Audio, Video}
}

var extensionTypes = map[string]Type{
	".txt":  Text,
	".md":   Text,
	".rtf":  Text,
	".pdf":  Text,
	".doc":  Text,
	".docx": Text,
	".odt":  Text,
	".csv":  Text,
	".tsv":  Text,
	".json": Text,
	".xml":  Text,
	".html": Text,
	".log":  Text,

	".jpg":  Image,
	".jpeg": Image,
	".png":  Image,
	".gif":  Image,
	".webp": Image,
	".bmp":  Image,
	".tiff": Image,
	".svg":  Image,
	".heic": Image,

	".mp3":  Audio,
	".wav":  Audio,
	".flac": Audio,
	".m4a":  Audio,
	".aac":  Audio,
	".ogg":  Audio,
	".wma":  Audio,

	".mp4":  Video,
	".mkv":  Video,
	".mov":  Video,
	".avi":  Video,
	".webm": Video,
	".m4v":  Video,
	".wmv":  Video,
}

// Detect maps a file path to its media type by extension. Files with no
// recognized extension are Unknown and fall through to the fallback policy.
func Detect(path string) Type {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return Unknown
}

// ParseType converts a string into a known Type.
func ParseType(value string) (Type, bool) {
	normalized := Type(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case Text, Image, Audio, Video, Unknown:
		return normalized, true
	default:
		return "", false
	}
}
