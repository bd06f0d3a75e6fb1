package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fpang/genprompt/internal/s3util"
	"github.com/fpang/genprompt/internal/session"
	"github.com/rs/zerolog"
)

// Client-facing error messages.
const (
	msgInternal        = "Internal server error."
	msgRefineInternal  = "An internal server error during refinement."
	msgVideoInternal   = "An internal server error occurred."
	msgInvalidBrief    = "Invalid JSON format for creative_brief."
	msgBriefRequired   = "creative_brief_json is required."
	msgImageRequired   = "image_bytes or image_key is required."
	msgExpectMultipart = "Expected a multipart/form-data body."
	msgTooLarge        = "Image exceeds the upload size limit."
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

var (
	errImageKeyDisabled = errors.New("image_key given but no image source is configured")
	errTooLarge         = errors.New("request body too large")
)

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": HealthStatus})
}

// POST /api/invoke-graph
//
// Stage 1: analyze an uploaded image and write Prompt A. A request without
// an image reaches the graph and fails there, as a 500.
func (h *Handler) handleInvokeGraph(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		h.multipartError(w, r, err)
		return
	}

	image, err := h.readImage(r)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			httpError(w, r, http.StatusRequestEntityTooLarge, msgTooLarge, err)
			return
		}
		httpError(w, r, http.StatusInternalServerError, msgInternal, err)
		return
	}

	historyJSON := r.FormValue("prompt_history_json")
	if strings.TrimSpace(historyJSON) == "" {
		historyJSON = "[]"
	}
	var history []string
	if err := json.Unmarshal([]byte(historyJSON), &history); err != nil {
		httpError(w, r, http.StatusInternalServerError, msgInternal, fmt.Errorf("prompt_history_json: %w", err))
		return
	}

	h.invoke(w, r, session.State{OriginalImage: image, PromptHistory: history}, msgInternal)
}

// refineRequest is the body of POST /api/refine-prompt.
type refineRequest struct {
	ActivePromptType session.PromptTarget `json:"active_prompt_type"`
	PromptToRefine   string               `json:"prompt_to_refine"`
	UserFeedback     string               `json:"user_feedback"`
	PromptHistory    []string             `json:"prompt_history,omitempty"`
}

func (req *refineRequest) validate() error {
	switch {
	case req.ActivePromptType == session.TargetNone:
		return errors.New("active_prompt_type must be \"image\" or \"video\"")
	case strings.TrimSpace(req.PromptToRefine) == "":
		return errors.New("prompt_to_refine is required")
	case strings.TrimSpace(req.UserFeedback) == "":
		return errors.New("user_feedback is required")
	}
	return nil
}

// state builds the refinement state: the prompt under revision in its
// target field plus the pending feedback.
func (req *refineRequest) state() session.State {
	st := session.State{
		UserFeedback:              req.UserFeedback,
		ActivePromptForRefinement: req.ActivePromptType,
		PromptHistory:             req.PromptHistory,
	}
	switch req.ActivePromptType {
	case session.TargetImage:
		st.ImagePrompt = session.NewImagePrompt(req.PromptToRefine)
	case session.TargetVideo:
		st.VideoPrompt = req.PromptToRefine
	}
	return st
}

// POST /api/refine-prompt
func (h *Handler) handleRefinePrompt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req refineRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		httpError(w, r, http.StatusBadRequest, "Invalid refinement request: "+clientSafe(err), err)
		return
	}
	if err := req.validate(); err != nil {
		httpError(w, r, http.StatusBadRequest, "Invalid refinement request: "+err.Error(), err)
		return
	}

	h.invoke(w, r, req.state(), msgRefineInternal)
}

// POST /api/generate-video-prompt
//
// Stage 2: direct a video for a generated image, guided by a creative brief.
func (h *Handler) handleGenerateVideoPrompt(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		h.multipartError(w, r, err)
		return
	}

	briefJSON := r.FormValue("creative_brief_json")
	if strings.TrimSpace(briefJSON) == "" {
		httpError(w, r, http.StatusBadRequest, msgBriefRequired, errors.New("missing creative_brief_json"))
		return
	}
	var brief session.VideoCreativeBrief
	if err := json.Unmarshal([]byte(briefJSON), &brief); err != nil {
		httpError(w, r, http.StatusBadRequest, msgInvalidBrief, err)
		return
	}

	image, err := h.readImage(r)
	switch {
	case errors.Is(err, errTooLarge):
		httpError(w, r, http.StatusRequestEntityTooLarge, msgTooLarge, err)
		return
	case err != nil:
		httpError(w, r, http.StatusInternalServerError, msgVideoInternal, err)
		return
	case len(image) == 0:
		httpError(w, r, http.StatusBadRequest, msgImageRequired, errors.New("no generated image"))
		return
	}

	h.invoke(w, r, session.State{GeneratedImage: image, VideoCreativeBrief: &brief}, msgVideoInternal)
}

// GET /api/upload-url?sessionId=...&filename=...&contentType=...
func (h *Handler) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID, filename, contentType := q.Get("sessionId"), q.Get("filename"), q.Get("contentType")
	if sessionID == "" || filename == "" || contentType == "" {
		httpError(w, r, http.StatusBadRequest, "sessionId, filename, and contentType are required", nil)
		return
	}

	upload, err := h.uploads.PresignUpload(r.Context(), sessionID, filename, contentType)
	if err != nil {
		if errors.Is(err, s3util.ErrInvalidUpload) {
			httpError(w, r, http.StatusBadRequest, err.Error(), err)
			return
		}
		httpError(w, r, http.StatusInternalServerError, "failed to generate upload URL", err)
		return
	}
	respondJSON(w, http.StatusOK, upload)
}

// invoke validates st, runs one traversal and writes the result.
func (h *Handler) invoke(w http.ResponseWriter, r *http.Request, st session.State, internalMsg string) {
	if err := st.Validate(); err != nil {
		httpError(w, r, http.StatusBadRequest, "Invalid session state: "+err.Error(), err)
		return
	}

	result, trace, err := h.runner.Invoke(r.Context(), st)
	logger := zerolog.Ctx(r.Context())
	if err != nil {
		logger.Error().Err(err).Str("run_id", trace.RunID).Msg("Graph invocation failed")
		httpError(w, r, http.StatusInternalServerError, internalMsg, err)
		return
	}

	logger.Info().
		Str("run_id", trace.RunID).
		Str("entry", trace.Entry.String()).
		Int("steps", len(trace.Steps)).
		Int("history_length", len(result.PromptHistory)).
		Msg("Graph invocation complete")
	respondJSON(w, http.StatusOK, result)
}

// parseMultipart enforces the upload limit and parses the form.
func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: %w", errTooLarge, err)
		}
		return err
	}
	return nil
}

func (h *Handler) multipartError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errTooLarge) {
		httpError(w, r, http.StatusRequestEntityTooLarge, msgTooLarge, err)
		return
	}
	httpError(w, r, http.StatusBadRequest, msgExpectMultipart, err)
}

// readImage returns the uploaded image_bytes file, or the object named by
// image_key. It returns nil, nil when neither is present.
func (h *Handler) readImage(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("image_bytes")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
		if err != nil {
			return nil, fmt.Errorf("read image_bytes: %w", err)
		}
		if int64(len(data)) > h.maxUpload {
			return nil, errTooLarge
		}
		return data, nil
	case !errors.Is(err, http.ErrMissingFile):
		return nil, fmt.Errorf("image_bytes: %w", err)
	}

	key := strings.TrimSpace(r.FormValue("image_key"))
	if key == "" {
		return nil, nil
	}
	if h.images == nil {
		return nil, errImageKeyDisabled
	}
	data, err := h.images.ReadObject(r.Context(), key)
	if err != nil {
		return nil, fmt.Errorf("image_key %q: %w", key, err)
	}
	return data, nil
}

// clientSafe trims a JSON decode error to something fit for a client.
func clientSafe(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return "malformed JSON"
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %s has the wrong type", typeErr.Field)
	default:
		return err.Error()
	}
}
