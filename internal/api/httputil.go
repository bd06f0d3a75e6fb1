package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("Failed to encode JSON response")
	}
}

// httpError sends {"error": clientMsg}. cause is logged against the request
// but never sent to the client.
func httpError(w http.ResponseWriter, r *http.Request, status int, clientMsg string, cause error) {
	evt := zerolog.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		evt = zerolog.Ctx(r.Context()).Error()
	}
	evt.Err(cause).
		Int("status", status).
		Str("clientMsg", clientMsg).
		Msg("Request failed")
	respondJSON(w, status, map[string]string{"error": clientMsg})
}
