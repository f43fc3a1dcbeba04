// Package filehandler converts user-selected image files into the encodings
// the rest of the program passes around: raw bytes, standard base64 payloads,
// and data URLs usable directly as an image source.
//
// It also inspects images for display-only details (pixel dimensions and
// EXIF date/camera) using golang.org/x/image and evanoberholster/imagemeta.
package filehandler

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// ImageContentTypePrefix is the content-type category every accepted upload
// must declare.
const ImageContentTypePrefix = "image/"

// DefaultImageMIMEType is used when a result carries no usable MIME type.
const DefaultImageMIMEType = "image/png"

// SupportedImageExtensions maps file extensions to the MIME type declared for them.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// preferredExtensions picks one extension per MIME type for downloads.
var preferredExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/heif": ".heif",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
}

// IsImageContentType reports whether a declared content type belongs to the
// image category. Parameters such as "; charset=..." are ignored.
func IsImageContentType(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	return strings.HasPrefix(mediaType, ImageContentTypePrefix)
}

// DetectContentType returns the MIME type for a file: its extension when
// known, otherwise a sniff of the first bytes of content.
func DetectContentType(path string, head []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mimeType, ok := SupportedImageExtensions[ext]; ok {
		return mimeType
	}
	if len(head) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(head)
}

// ExtensionForMIME returns the file extension used when saving an image of
// the given MIME type, falling back to ".png".
func ExtensionForMIME(mimeType string) string {
	if ext, ok := preferredExtensions[strings.ToLower(mimeType)]; ok {
		return ext
	}
	return ".png"
}
