package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nomis52/gymsync/status"
)

// Error bodies of the status API. Clients match on these strings.
const (
	msgInvalidPayload    = "Invalid payload"
	msgDiscordIDRequired = "discord_id is required"
	msgStatusNotFound    = "Status not found"
	msgAlreadyPaused     = "Already paused"
	msgNothingToResume   = "Nothing to resume"
	msgNotFound          = "Not found"
	msgInternal          = "Internal server error"
)

// JSON values are decoded as any so that a non-string discord_id or
// activity is rejected instead of coerced.
type startRequest struct {
	DiscordID any `json:"discord_id"`
	Status    *struct {
		Activity any `json:"activity"`
	} `json:"status"`
}

type identityRequest struct {
	DiscordID any `json:"discord_id"`
}

// decodeIdentity reads {discord_id} and writes the 400 response when it is
// missing. The id must be a non-empty JSON string; a number is rejected since
// it could never be read back through GET /api/v1/status/{id}.
func decodeIdentity(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req identityRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgDiscordIDRequired)
		return "", false
	}
	id, ok := requiredString(req.DiscordID)
	if !ok {
		writeError(w, http.StatusBadRequest, msgDiscordIDRequired)
		return "", false
	}
	return id, true
}

// StartHandler handles POST /api/v1/status. discord_id and status.activity
// must both be non-empty JSON strings.
type StartHandler struct {
	logger *slog.Logger
	store  StatusStore
}

// NewStartHandler creates a new StartHandler.
func NewStartHandler(logger *slog.Logger, store StatusStore) *StartHandler {
	return &StartHandler{logger: logger, store: store}
}

// ServeHTTP implements http.Handler.
func (h *StartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	id, ok := requiredString(req.DiscordID)
	if !ok || req.Status == nil {
		writeError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	activity, ok := req.Status.Activity.(string)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	if err := h.store.Start(id, activity); err != nil {
		if errors.Is(err, status.ErrInvalidActivity) {
			writeError(w, http.StatusBadRequest, msgInvalidPayload)
			return
		}
		h.logger.Error("failed to start activity", "discord_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	h.logger.Info("activity started", "discord_id", id, "activity", activity)
	writeOK(w)
}

// PauseHandler handles POST /api/v1/status/pause.
type PauseHandler struct {
	logger *slog.Logger
	store  StatusStore
}

// NewPauseHandler creates a new PauseHandler.
func NewPauseHandler(logger *slog.Logger, store StatusStore) *PauseHandler {
	return &PauseHandler{logger: logger, store: store}
}

// ServeHTTP implements http.Handler.
func (h *PauseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeIdentity(w, r)
	if !ok {
		return
	}

	err := h.store.Pause(id)
	switch {
	case errors.Is(err, status.ErrAlreadyPaused):
		writeError(w, http.StatusBadRequest, msgAlreadyPaused)
	case errors.Is(err, status.ErrNotFound):
		writeError(w, http.StatusNotFound, msgStatusNotFound)
	case err != nil:
		h.logger.Error("failed to pause activity", "discord_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	default:
		h.logger.Info("activity paused", "discord_id", id)
		writeOK(w)
	}
}

// ResumeHandler handles POST /api/v1/status/resume.
type ResumeHandler struct {
	logger *slog.Logger
	store  StatusStore
}

// NewResumeHandler creates a new ResumeHandler.
func NewResumeHandler(logger *slog.Logger, store StatusStore) *ResumeHandler {
	return &ResumeHandler{logger: logger, store: store}
}

// ServeHTTP implements http.Handler.
func (h *ResumeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeIdentity(w, r)
	if !ok {
		return
	}

	err := h.store.Resume(id)
	switch {
	case errors.Is(err, status.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNothingToResume)
	case err != nil:
		h.logger.Error("failed to resume activity", "discord_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	default:
		h.logger.Info("activity resumed", "discord_id", id)
		writeOK(w)
	}
}

// StopHandler handles POST /api/v1/status/stop.
type StopHandler struct {
	logger *slog.Logger
	store  StatusStore
}

// NewStopHandler creates a new StopHandler.
func NewStopHandler(logger *slog.Logger, store StatusStore) *StopHandler {
	return &StopHandler{logger: logger, store: store}
}

// ServeHTTP implements http.Handler.
func (h *StopHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeIdentity(w, r)
	if !ok {
		return
	}
	h.store.Stop(id)
	h.logger.Info("activity stopped", "discord_id", id)
	writeOK(w)
}

// QueryHandler handles GET /api/v1/status/{id}.
type QueryHandler struct {
	store StatusStore
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(store StatusStore) *QueryHandler {
	return &QueryHandler{store: store}
}

// ServeHTTP implements http.Handler.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Query(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
