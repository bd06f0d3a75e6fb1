package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fpang/genprompt/internal/metrics"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ValidationError represents a specific type of API key validation failure.
type ValidationError struct {
	Type    ValidationErrorType
	Message string
	Err     error
}

// ValidationErrorType categorizes validation failures.
type ValidationErrorType int

const (
	ErrTypeNoKey ValidationErrorType = iota
	ErrTypeInvalidKey
	ErrTypeNetworkError
	ErrTypeQuotaExceeded
	ErrTypeUnknown
)

// String returns the metric label for t.
func (t ValidationErrorType) String() string {
	switch t {
	case ErrTypeNoKey:
		return "no_key"
	case ErrTypeInvalidKey:
		return "invalid"
	case ErrTypeNetworkError:
		return "network_error"
	case ErrTypeQuotaExceeded:
		return "quota"
	default:
		return "unknown"
	}
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateAPIKey makes a minimal request against model to prove the key
// works. It returns nil or a *ValidationError.
func ValidateAPIKey(ctx context.Context, client *genai.Client, model string) error {
	log.Debug().Str("model", model).Msg("Validating API key with Gemini API")

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text("hi"), nil)
	elapsed := time.Since(start)

	var valErr *ValidationError
	switch {
	case err != nil:
		valErr = classifyError(err)
	case resp == nil || len(resp.Candidates) == 0:
		log.Warn().Msg("API key validation returned empty response")
		valErr = &ValidationError{Type: ErrTypeUnknown, Message: "API returned empty response"}
	}

	result := "success"
	if valErr != nil {
		result = valErr.Type.String()
	}
	metrics.New(metrics.Namespace).
		Dimension("Result", result).
		Duration("ApiKeyValidationMs", elapsed).
		Count("ApiKeyValidationResult").
		Flush()

	if valErr != nil {
		return valErr
	}
	log.Info().Dur("duration", elapsed).Msg("API key validated successfully")
	return nil
}

// messageRules classify errors that do not carry an API status code.
var messageRules = []struct {
	typ      ValidationErrorType
	message  string
	patterns []string
}{
	{ErrTypeInvalidKey, "API key is invalid or has been revoked",
		[]string{"api key not valid", "invalid api key", "api_key_invalid", "permission denied"}},
	{ErrTypeQuotaExceeded, "API quota exceeded or rate limited",
		[]string{"quota", "resource exhausted", "rate limit"}},
	{ErrTypeNetworkError, "Network error - check your internet connection",
		[]string{"connection", "network", "timeout", "dial", "no such host", "unreachable"}},
}

func classifyError(err error) *ValidationError {
	if err == nil {
		return nil
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr)
	}

	lower := strings.ToLower(err.Error())
	for _, rule := range messageRules {
		for _, p := range rule.patterns {
			if strings.Contains(lower, p) {
				log.Error().Err(err).Str("type", rule.typ.String()).Msg("API key validation failed")
				return &ValidationError{Type: rule.typ, Message: rule.message, Err: err}
			}
		}
	}

	log.Error().Err(err).Msg("Unknown error during API validation")
	return &ValidationError{Type: ErrTypeUnknown, Message: "Failed to validate API key", Err: err}
}

func classifyAPIError(err *genai.APIError) *ValidationError {
	v := &ValidationError{Type: ErrTypeUnknown, Message: err.Message, Err: err}
	switch err.Code {
	case 400:
		v.Type, v.Message = ErrTypeInvalidKey, "Bad request - API key may be malformed"
	case 401, 403:
		v.Type, v.Message = ErrTypeInvalidKey, "API key is invalid, expired, or lacks permissions"
	case 429:
		v.Type, v.Message = ErrTypeQuotaExceeded, "API rate limit exceeded - try again later"
	case 500, 502, 503, 504:
		v.Type, v.Message = ErrTypeNetworkError, "Gemini API server error - try again later"
	}
	log.Error().Int("code", err.Code).Str("type", v.Type.String()).Msg("Gemini API error during validation")
	return v
}
