package s3util

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// AllowedContentTypes lists the image types a browser may upload.
var AllowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
	"image/tiff": true,
	"image/bmp":  true,
}

// presigner produces presigned PUT URLs.
type presigner interface {
	presignPut(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error)
}

type sdkPresigner struct {
	client *s3.PresignClient
}

func (p sdkPresigner) presignPut(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error) {
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// ErrInvalidUpload wraps every PresignUpload validation failure. Its message
// is safe to show to the client.
var ErrInvalidUpload = errors.New("invalid upload request")

// Upload is a presigned browser upload.
type Upload struct {
	URL string `json:"uploadUrl"`
	Key string `json:"key"`
}

// PresignUpload validates the request and returns a presigned PUT URL for
// <sessionID>/<filename>. Content-Type is part of the signature.
func (b *Bucket) PresignUpload(ctx context.Context, sessionID, filename, contentType string) (*Upload, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUpload, err)
	}
	filename = filepath.Base(filename)
	if err := ValidateFilename(filename); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUpload, err)
	}
	if !AllowedContentTypes[contentType] {
		return nil, fmt.Errorf("%w: unsupported content type: %s", ErrInvalidUpload, contentType)
	}

	key := sessionID + "/" + filename
	url, err := b.presigner.presignPut(ctx, b.name, key, contentType, b.expires)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to generate presigned URL")
		return nil, fmt.Errorf("presign %s: %w", key, err)
	}

	log.Debug().Str("key", key).Dur("expires", b.expires).Msg("Presigned upload URL generated")
	return &Upload{URL: url, Key: key}, nil
}
