package chat

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/genai"
)

// IsRetryable reports whether err is a transient Gemini failure: rate
// limiting, a server error, or a network problem. Malformed responses,
// client errors and cancellation are not retried.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return retryableCode(apiErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection reset", "connection refused", "unexpected eof", "no such host", "resource exhausted"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func retryableCode(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
