package media

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
	"time"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestScaledDimensions(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"fits", 800, 600, 1024, 800, 600},
		{"exact", 1024, 1024, 1024, 1024, 1024},
		{"landscape", 4000, 3000, 2048, 2048, 1536},
		{"portrait", 3000, 4000, 2048, 1536, 2048},
		{"extreme panorama", 10000, 2, 1000, 1000, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := ScaledDimensions(tt.w, tt.h, tt.max)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("ScaledDimensions(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestDetectMIME(t *testing.T) {
	heic := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", encodePNG(t, 4, 4), "image/png"},
		{"jpeg", encodeJPEG(t, 4, 4), "image/jpeg"},
		{"heic", heic, "image/heic"},
		{"text", []byte("hello world"), "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMIME(tt.data); got != tt.want {
				t.Errorf("DetectMIME() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMIMEForPath(t *testing.T) {
	if got, err := MIMEForPath("/tmp/Photo.JPG"); err != nil || got != "image/jpeg" {
		t.Errorf("MIMEForPath(.JPG) = %q, %v", got, err)
	}
	if _, err := MIMEForPath("clip.mp4"); err == nil {
		t.Error("expected error for video extension")
	}
	if IsImage("notes.txt") {
		t.Error("IsImage(notes.txt) = true")
	}
}

func TestPrepare(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if _, err := Prepare(nil, 0); !errors.Is(err, ErrEmptyImage) {
			t.Errorf("err = %v, want ErrEmptyImage", err)
		}
	})

	t.Run("small jpeg passes through", func(t *testing.T) {
		data := encodeJPEG(t, 64, 32)
		p, err := Prepare(data, 128)
		if err != nil {
			t.Fatalf("Prepare() error: %v", err)
		}
		if !bytes.Equal(p.Data, data) || p.MIMEType != "image/jpeg" {
			t.Errorf("expected original JPEG bytes, got %d bytes of %s", len(p.Data), p.MIMEType)
		}
	})

	t.Run("large png is downscaled to jpeg", func(t *testing.T) {
		p, err := Prepare(encodePNG(t, 400, 200), 100)
		if err != nil {
			t.Fatalf("Prepare() error: %v", err)
		}
		if p.MIMEType != "image/jpeg" || p.Width != 100 || p.Height != 50 {
			t.Errorf("got %s %dx%d, want image/jpeg 100x50", p.MIMEType, p.Width, p.Height)
		}
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(p.Data))
		if err != nil {
			t.Fatalf("output is not a JPEG: %v", err)
		}
		if cfg.Width != 100 || cfg.Height != 50 {
			t.Errorf("encoded size = %dx%d", cfg.Width, cfg.Height)
		}
	})

	t.Run("undecodable passes through", func(t *testing.T) {
		data := []byte("definitely not an image")
		p, err := Prepare(data, 0)
		if err != nil {
			t.Fatalf("Prepare() error: %v", err)
		}
		if !bytes.Equal(p.Data, data) {
			t.Error("expected original bytes")
		}
	})
}

func TestMetadataFormat(t *testing.T) {
	m := &Metadata{
		Latitude:    40.7128,
		Longitude:   -74.0060,
		HasGPS:      true,
		DateTaken:   time.Date(2024, 12, 31, 10, 30, 0, 0, time.UTC),
		HasDate:     true,
		CameraMake:  "Apple",
		CameraModel: "iPhone 15 Pro",
	}
	out := m.Format()
	for _, want := range []string{"Apple iPhone 15 Pro", "Tuesday, December 31, 2024", "10:30 AM", "40.712800, -74.006000"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}

	if !(&Metadata{}).Empty() {
		t.Error("zero Metadata should be empty")
	}
	if got := (&Metadata{CameraModel: "X100V"}).Format(); got != "**Camera:** X100V\n" {
		t.Errorf("Format() = %q", got)
	}
}

func TestMetadataContextWithoutExif(t *testing.T) {
	if got := MetadataContext(encodePNG(t, 8, 8)); got != "" {
		t.Errorf("MetadataContext() = %q, want empty", got)
	}
	if got := MetadataContext([]byte("garbage")); got != "" {
		t.Errorf("MetadataContext() = %q, want empty", got)
	}
}
