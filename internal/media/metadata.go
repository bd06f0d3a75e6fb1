package media

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// Metadata is the EXIF subset the visual analyst is told about.
type Metadata struct {
	Latitude  float64
	Longitude float64
	HasGPS    bool

	DateTaken time.Time
	HasDate   bool

	CameraMake  string
	CameraModel string
}

// Empty reports whether no useful field was found.
func (m *Metadata) Empty() bool {
	return !m.HasGPS && !m.HasDate && m.CameraMake == "" && m.CameraModel == ""
}

// ExtractMetadata decodes EXIF from image data.
func ExtractMetadata(data []byte) (m *Metadata, err error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	// imagemeta panics on some truncated containers.
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("failed to decode EXIF metadata: %v", r)
		}
	}()

	exif, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	m = &Metadata{
		CameraMake:  strings.TrimSpace(exif.Make),
		CameraModel: strings.TrimSpace(exif.Model),
	}
	if lat, lon := exif.GPS.Latitude(), exif.GPS.Longitude(); lat != 0 || lon != 0 {
		m.Latitude, m.Longitude, m.HasGPS = lat, lon, true
	}
	for _, t := range []time.Time{exif.DateTimeOriginal(), exif.CreateDate(), exif.ModifyDate()} {
		if !t.IsZero() {
			m.DateTaken, m.HasDate = t, true
			break
		}
	}
	return m, nil
}

// Format renders the metadata as a prompt section. Missing fields are left
// out rather than reported as unavailable.
func (m *Metadata) Format() string {
	var sb strings.Builder
	if camera := strings.TrimSpace(m.CameraMake + " " + m.CameraModel); camera != "" {
		fmt.Fprintf(&sb, "**Camera:** %s\n", camera)
	}
	if m.HasDate {
		fmt.Fprintf(&sb, "**Taken:** %s at %s\n", m.DateTaken.Format("Monday, January 2, 2006"), m.DateTaken.Format("3:04 PM"))
	}
	if m.HasGPS {
		fmt.Fprintf(&sb, "**Location:** %.6f, %.6f\n", m.Latitude, m.Longitude)
	}
	return sb.String()
}

// MetadataContext returns the formatted EXIF hints for data, or "" when the
// image carries none. Failures are logged and otherwise ignored.
func MetadataContext(data []byte) string {
	m, err := ExtractMetadata(data)
	if err != nil {
		log.Debug().Err(err).Msg("No EXIF metadata available")
		return ""
	}
	if m.Empty() {
		return ""
	}
	return m.Format()
}
