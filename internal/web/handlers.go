package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-quiz/internal/quiz"
	"github.com/gokatarajesh/trivia-quiz/internal/session"
	httperrors "github.com/gokatarajesh/trivia-quiz/pkg/http/errors"
	ws "github.com/gokatarajesh/trivia-quiz/pkg/http/ws"
)

// Action names shared by the HTML forms, the JSON API and the WebSocket.
const (
	ActionStart      = "start"
	ActionSelect     = "select"
	ActionSubmit     = "submit"
	ActionNext       = "next"
	ActionPlayAgain  = "play-again"
	ActionRetry      = "retry"
	ActionRetryToken = "retry-token"
)

var errUnknownAction = errors.New("unknown action")

// ActionInput carries the fields any action may need.
type ActionInput struct {
	FirstName  string `json:"first_name"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Answer     string `json:"answer"`
}

// Handlers serves the quiz over HTML, JSON and WebSocket.
type Handlers struct {
	sessions *session.Manager
	signer   *session.CookieSigner
	hub      *ws.Hub
	policy   *bluemonday.Policy
	pages    *template.Template
	secure   bool
	logger   zerolog.Logger
}

// Options for NewHandlers.
type Options struct {
	// SecureCookies marks the session cookie Secure (production).
	SecureCookies bool
}

func NewHandlers(sessions *session.Manager, signer *session.CookieSigner, hub *ws.Hub, opts Options, logger zerolog.Logger) *Handlers {
	return &Handlers{
		sessions: sessions,
		signer:   signer,
		hub:      hub,
		policy:   newPolicy(),
		pages:    parsePages(),
		secure:   opts.SecureCookies,
		logger:   logger.With().Str("component", "web").Logger(),
	}
}

// Register mounts every route on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Page)
	mux.HandleFunc("POST /actions/{action}", h.PageAction)
	mux.HandleFunc("GET /v1/session", h.GetSession)
	mux.HandleFunc("DELETE /v1/session", h.DeleteSession)
	mux.HandleFunc("POST /v1/session/{action}", h.PostAction)
	mux.HandleFunc("GET /ws", h.WebSocket)
}

// lookup resolves the session cookie. With create set, a missing, invalid
// or expired session is replaced by a fresh one and the cookie reissued.
func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request, create bool) (uuid.UUID, *session.Controller, error) {
	if c, err := r.Cookie(session.CookieName); err == nil {
		if id, err := h.signer.Parse(c.Value); err == nil {
			if ctrl, err := h.sessions.Get(id); err == nil {
				return id, ctrl, nil
			}
		}
	}
	if !create {
		return uuid.Nil, nil, session.ErrNotFound
	}

	id, ctrl := h.sessions.Create()
	value, err := h.signer.Sign(id)
	if err != nil {
		h.sessions.Remove(id)
		return uuid.Nil, nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.signer.TTL()),
	})
	return id, ctrl, nil
}

// dispatch runs one action against a session.
func dispatch(ctx context.Context, ctrl *session.Controller, action string, in ActionInput) error {
	switch action {
	case ActionStart:
		_, err := ctrl.Submit(session.Form{
			FirstName:  in.FirstName,
			Category:   in.Category,
			Difficulty: in.Difficulty,
		})
		return err
	case ActionSelect:
		return ctrl.Select(in.Answer)
	case ActionSubmit:
		if in.Answer != "" {
			if err := ctrl.Select(in.Answer); err != nil {
				return err
			}
		}
		return ctrl.SubmitAnswer()
	case ActionNext:
		return ctrl.Next()
	case ActionPlayAgain:
		return ctrl.PlayAgain()
	case ActionRetry:
		return ctrl.Retry()
	case ActionRetryToken:
		return ctrl.RetryToken(ctx)
	default:
		return errUnknownAction
	}
}

// classify maps an action error to an HTTP status, error code and field.
func classify(err error) (int, string, string) {
	var vErr *quiz.ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity, httperrors.ErrCodeValidationFailed, vErr.Field
	case errors.Is(err, errUnknownAction):
		return http.StatusNotFound, httperrors.ErrCodeUnknownAction, ""
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, httperrors.ErrCodeSessionNotFound, ""
	case errors.Is(err, quiz.ErrWrongPhase), errors.Is(err, quiz.ErrClosed):
		return http.StatusConflict, httperrors.ErrCodeInvalidPhase, ""
	case errors.Is(err, session.ErrAlreadyStarted):
		return http.StatusConflict, httperrors.ErrCodeAlreadyStarted, ""
	case errors.Is(err, session.ErrNotStarted):
		return http.StatusConflict, httperrors.ErrCodeNotStarted, ""
	case errors.Is(err, session.ErrTokenUnavailable), errors.Is(err, session.ErrTokenNotRetryable):
		return http.StatusConflict, httperrors.ErrCodeTokenUnavailable, ""
	default:
		return http.StatusBadGateway, httperrors.ErrCodeUpstreamError, ""
	}
}
