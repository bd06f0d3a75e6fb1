package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxDimension bounds the longest edge sent to the vision model.
	DefaultMaxDimension = 2048

	jpegQuality = 85
)

// ErrEmptyImage is returned when Prepare is handed no bytes.
var ErrEmptyImage = errors.New("empty image")

// Prepared is an image ready to be attached to a model request.
type Prepared struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// Prepare normalizes data for inference, bounding its longest edge to
// maxDimension (DefaultMaxDimension when <= 0). JPEGs that are already small
// enough are returned as-is.
func Prepare(data []byte, maxDimension int) (*Prepared, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}

	mimeType := DetectMIME(data)
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debug().Err(err).Str("mime_type", mimeType).Msg("Image not decodable, passing through")
		return &Prepared{Data: data, MIMEType: mimeType}, nil
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	newWidth, newHeight := ScaledDimensions(width, height, maxDimension)

	if format == "jpeg" && newWidth == width && newHeight == height {
		return &Prepared{Data: data, MIMEType: "image/jpeg", Width: width, Height: height}, nil
	}

	out := img
	if newWidth != width || newHeight != height {
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image as JPEG: %w", err)
	}

	log.Debug().
		Str("format", format).
		Int("orig_width", width).
		Int("orig_height", height).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("input_size", len(data)).
		Int("output_size", buf.Len()).
		Msg("Image prepared for inference")

	return &Prepared{Data: buf.Bytes(), MIMEType: "image/jpeg", Width: newWidth, Height: newHeight}, nil
}

// ScaledDimensions fits width x height inside a maxDimension square,
// preserving aspect ratio. Images that already fit are not enlarged.
func ScaledDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}
	if width > height {
		return maxDimension, max(1, int(float64(height)*float64(maxDimension)/float64(width)))
	}
	return max(1, int(float64(width)*float64(maxDimension)/float64(height))), maxDimension
}
