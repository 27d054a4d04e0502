package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gokatarajesh/trivia-quiz/internal/quiz"
	"github.com/gokatarajesh/trivia-quiz/internal/session"
	httperrors "github.com/gokatarajesh/trivia-quiz/pkg/http/errors"
)

type sessionResponse struct {
	SessionID    string            `json:"session_id"`
	Session      session.View      `json:"session"`
	Categories   []quiz.Category   `json:"categories"`
	Difficulties []quiz.Difficulty `json:"difficulties"`
}

func newSessionResponse(id string, v session.View) sessionResponse {
	return sessionResponse{
		SessionID:    id,
		Session:      v,
		Categories:   quiz.Categories,
		Difficulties: quiz.Difficulties,
	}
}

// GetSession handles GET /v1/session, creating a session when needed.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ctrl, err := h.lookup(w, r, true)
	if err != nil {
		h.logger.Error().Err(err).Msg("create session failed")
		httperrors.RespondInternalError(w, "could not create session")
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, newSessionResponse(id.String(), ctrl.View()))
}

// DeleteSession handles DELETE /v1/session. The next request starts over
// with a new token and an empty intake form.
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, _, err := h.lookup(w, r, false)
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "no active session")
		return
	}
	h.sessions.Remove(id)
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// PostAction handles POST /v1/session/{action}.
func (h *Handlers) PostAction(w http.ResponseWriter, r *http.Request) {
	id, ctrl, err := h.lookup(w, r, false)
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "no active session")
		return
	}

	var in ActionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	action := r.PathValue("action")
	if err := dispatch(context.WithoutCancel(r.Context()), ctrl, action, in); err != nil {
		status, code, field := classify(err)
		if status >= http.StatusInternalServerError {
			h.logger.Warn().Err(err).Str("action", action).Msg("action failed")
		}
		switch status {
		case http.StatusUnprocessableEntity:
			httperrors.RespondValidationError(w, err.Error(), field)
		case http.StatusConflict:
			httperrors.RespondConflict(w, code, err.Error())
		default:
			httperrors.RespondError(w, status, code, err.Error())
		}
		return
	}

	httperrors.WriteJSON(w, http.StatusOK, newSessionResponse(id.String(), ctrl.View()))
}
