package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/zatekoja/placesearch/internal/application/services"
	"github.com/zatekoja/placesearch/internal/domain/entities"
	"github.com/zatekoja/placesearch/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/placesearch/pkg/errors"
)

// SessionHandler drives search sessions over HTTP and streams their events
// with Server-Sent Events
type SessionHandler struct {
	sessions  *services.SessionService
	heartbeat time.Duration
	logger    zerolog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		heartbeat: 30 * time.Second,
		logger:    observability.ComponentLogger("session_handler"),
	}
}

type createSessionRequest struct {
	Lat         *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng         *float64 `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	Radius      *float64 `json:"radius" validate:"omitempty,gt=0,lte=50000"`
	Placeholder string   `json:"placeholder" validate:"max=120"`
}

type setQueryRequest struct {
	Text string `json:"text" validate:"max=256"`
}

type selectRequest struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

type sessionResponse struct {
	ID          string              `json:"id"`
	Placeholder string              `json:"placeholder"`
	Text        string              `json:"text"`
	State       services.FlowState  `json:"state"`
	Active      bool                `json:"active"`
	Origin      entities.Coordinate `json:"origin"`
}

func newSessionResponse(session *services.Session) sessionResponse {
	return sessionResponse{
		ID:          session.ID,
		Placeholder: session.Placeholder,
		Text:        session.Text(),
		State:       session.State(),
		Active:      session.Active(),
		Origin:      session.Origin,
	}
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if (req.Lat == nil) != (req.Lng == nil) {
		respondWithAppError(w, r, apperrors.NewValidationError("lat and lng must be given together"))
		return
	}

	input := services.CreateSessionInput{Placeholder: req.Placeholder}
	if req.Lat != nil && req.Lng != nil {
		input.Origin = entities.NewCoordinate(*req.Lat, *req.Lng)
	}
	if req.Radius != nil {
		input.Radius = *req.Radius
	}

	session := h.sessions.Create(input)
	respondWithJSON(w, http.StatusCreated, newSessionResponse(session))
}

// GetSession handles GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newSessionResponse(session))
}

// SetQuery handles PUT /api/sessions/{id}/query
func (h *SessionHandler) SetQuery(w http.ResponseWriter, r *http.Request) {
	var req setQueryRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	id := r.PathValue("id")
	if err := h.sessions.SetQuery(id, req.Text); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	session, err := h.sessions.Get(id)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, newSessionResponse(session))
}

// GetResults handles GET /api/sessions/{id}/results
func (h *SessionHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	rows := session.Rows()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": session.ID,
		"query":      session.Text(),
		"state":      session.State(),
		"rows":       rows,
		"count":      len(rows),
	})
}

// Select handles POST /api/sessions/{id}/select
func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	event, err := h.sessions.Select(r.PathValue("id"), *req.Index)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, event)
}

// GetSelection handles GET /api/sessions/{id}/selection
func (h *SessionHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	event, err := h.sessions.LastSelection(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, event)
}

// DeleteSession handles DELETE /api/sessions/{id}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stream handles GET /api/sessions/{id}/stream
func (h *SessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, unsubscribe, err := h.sessions.Subscribe(sessionID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.sendEvent(w, "connected", map[string]interface{}{
		"session_id": sessionID,
		"timestamp":  time.Now().UTC(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug().Str("session_id", sessionID).Msg("client disconnected from session stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now().UTC(),
			})
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				h.sendEvent(w, "closed", map[string]interface{}{
					"session_id": sessionID,
				})
				flusher.Flush()
				return
			}
			h.sendEvent(w, string(event.Type), event)
			flusher.Flush()
		}
	}
}

// sendEvent writes a single SSE frame
func (h *SessionHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error().Err(err).Str("event", eventType).Msg("failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}
