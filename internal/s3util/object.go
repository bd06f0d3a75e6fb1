// Package s3util reads uploaded images from S3 and presigns browser uploads
// for the GenPrompt Lambda deployment.
//
// Large images bypass the API Gateway payload limit: the browser PUTs them
// straight to the media bucket with a presigned URL, then passes the object
// key to the graph endpoints instead of the bytes.
package s3util

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// ErrTooLarge is returned when an object exceeds the read limit.
var ErrTooLarge = errors.New("object exceeds size limit")

var (
	uuidRegex         = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	safeFilenameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._ ()-]{0,254}$`)
)

// objectAPI is the subset of *s3.Client used here.
type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Bucket reads and presigns objects in one S3 bucket.
type Bucket struct {
	objects   objectAPI
	presigner presigner
	name      string
	maxBytes  int64
	expires   time.Duration
}

// NewBucket returns a Bucket backed by client. Reads larger than maxBytes fail
// with ErrTooLarge.
func NewBucket(client *s3.Client, name string, maxBytes int64) *Bucket {
	return &Bucket{
		objects:   client,
		presigner: sdkPresigner{s3.NewPresignClient(client)},
		name:      name,
		maxBytes:  maxBytes,
		expires:   15 * time.Minute,
	}
}

// Name returns the bucket name.
func (b *Bucket) Name() string { return b.name }

// ReadObject returns the bytes stored under key.
func (b *Bucket) ReadObject(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := b.objects.GetObject(ctx, &s3.GetObjectInput{Bucket: &b.name, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("S3 GetObject: %w", err)
	}
	defer out.Body.Close()

	if out.ContentLength != nil && b.maxBytes > 0 && *out.ContentLength > b.maxBytes {
		return nil, fmt.Errorf("%s: %w", key, ErrTooLarge)
	}

	r := io.Reader(out.Body)
	if b.maxBytes > 0 {
		r = io.LimitReader(out.Body, b.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if b.maxBytes > 0 && int64(len(data)) > b.maxBytes {
		return nil, fmt.Errorf("%s: %w", key, ErrTooLarge)
	}

	log.Debug().
		Str("bucket", b.name).
		Str("key", key).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("Object downloaded from S3")
	return data, nil
}

// ValidateKey checks that key has the <uuid>/<filename> shape the upload
// endpoint hands out.
func ValidateKey(key string) error {
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid key")
	}
	sessionID, filename, ok := strings.Cut(key, "/")
	if !ok || !uuidRegex.MatchString(sessionID) || filename == "" {
		return fmt.Errorf("invalid key format: expected <uuid>/<filename>")
	}
	return ValidateFilename(filename)
}

// ValidateSessionID checks that id is a lowercase UUID.
func ValidateSessionID(id string) error {
	if !uuidRegex.MatchString(id) {
		return fmt.Errorf("invalid sessionId: must be a UUID (e.g., a1b2c3d4-e5f6-7890-abcd-ef1234567890)")
	}
	return nil
}

// ValidateFilename rejects path separators and characters outside a safe set.
func ValidateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("filename is required")
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("filename contains invalid characters")
	}
	if !safeFilenameRegex.MatchString(name) {
		return fmt.Errorf("filename contains invalid characters; only alphanumeric, dots, hyphens, underscores, spaces, and parentheses allowed")
	}
	return nil
}
