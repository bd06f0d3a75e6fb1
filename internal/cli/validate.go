package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fpang/genprompt/internal/auth"
	"github.com/fpang/genprompt/internal/media"
	"github.com/rs/zerolog/log"
)

// MaxImageBytes caps images read from disk.
const MaxImageBytes = 20 << 20

// ReadImage checks that path is a regular file with a supported image
// extension and returns its contents.
func ReadImage(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image not found: %s", path)
		}
		return nil, fmt.Errorf("access %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if !media.IsImage(path) {
		return nil, fmt.Errorf("%s: unsupported image type %q", path, filepath.Ext(path))
	}
	if info.Size() > MaxImageBytes {
		return nil, fmt.Errorf("%s is %d bytes, over the %d byte limit", path, info.Size(), MaxImageBytes)
	}
	return os.ReadFile(path)
}

// HandleValidationError logs a key or validation failure with advice and exits.
func HandleValidationError(err error) {
	if errors.Is(err, auth.ErrNoAPIKey) {
		log.Fatal().Msg("No API key configured. Set GEMINI_API_KEY or run scripts/setup-gpg-credentials.sh")
	}

	var validationErr *auth.ValidationError
	if errors.As(err, &validationErr) {
		switch validationErr.Type {
		case auth.ErrTypeNoKey:
			log.Fatal().Msg("No API key configured. Set GEMINI_API_KEY or run scripts/setup-gpg-credentials.sh")
		case auth.ErrTypeInvalidKey:
			log.Fatal().Err(err).Msg("Invalid API key. Please check your API key and try again")
		case auth.ErrTypeNetworkError:
			log.Fatal().Err(err).Msg("Network error. Please check your internet connection")
		case auth.ErrTypeQuotaExceeded:
			log.Fatal().Err(err).Msg("API quota exceeded. Please try again later or check your usage limits")
		default:
			log.Fatal().Err(err).Msg("API key validation failed")
		}
	}
	log.Fatal().Err(err).Msg("Failed to initialize Gemini")
	os.Exit(1)
}
