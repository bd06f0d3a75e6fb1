// Package media prepares uploaded images for the vision models.
//
// Uploads arrive as raw bytes in whatever format the user had on disk.
// Prepare sniffs the format, decodes it (JPEG, PNG, GIF, and through
// golang.org/x/image also WebP, BMP and TIFF), downscales oversized images
// and re-encodes them as JPEG. Formats Go cannot decode, such as HEIC, are
// passed through untouched with their sniffed MIME type.
//
// MetadataContext reads EXIF through evanoberholster/imagemeta and renders
// the hints the visual analyst is given alongside the image.
package media

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

// SupportedImageExtensions maps the file extensions accepted by the CLI and
// MCP surfaces to their MIME types.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
}

// MIMEForPath returns the MIME type for an image path, by extension.
func MIMEForPath(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if mimeType, ok := SupportedImageExtensions[ext]; ok {
		return mimeType, nil
	}
	return "", fmt.Errorf("unsupported image extension: %q", ext)
}

// IsImage reports whether path has a supported image extension.
func IsImage(path string) bool {
	_, err := MIMEForPath(path)
	return err == nil
}

// DetectMIME sniffs the MIME type of image data. It knows the ISO-BMFF
// brands used by HEIC/HEIF, which http.DetectContentType does not.
func DetectMIME(data []byte) string {
	if len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")) {
		switch string(data[8:12]) {
		case "heic", "heix", "hevc", "hevx", "heim", "heis":
			return "image/heic"
		case "mif1", "msf1":
			return "image/heif"
		}
	}
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}
