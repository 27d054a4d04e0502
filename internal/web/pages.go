package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gokatarajesh/trivia-quiz/internal/quiz"
	"github.com/gokatarajesh/trivia-quiz/internal/session"
	httperrors "github.com/gokatarajesh/trivia-quiz/pkg/http/errors"
)

// Page handles GET /, drawing whatever screen the session is on.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	_, ctrl, err := h.lookup(w, r, true)
	if err != nil {
		h.logger.Error().Err(err).Msg("create session failed")
		http.Error(w, "could not create session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.pages.ExecuteTemplate(w, "page", h.buildPage(ctrl.View())); err != nil {
		h.logger.Error().Err(err).Msg("render page failed")
	}
}

// PageAction handles the HTML form posts and redirects back to the page.
// Validation messages are part of the session view, so they show up after
// the redirect.
func (h *Handlers) PageAction(w http.ResponseWriter, r *http.Request) {
	_, ctrl, err := h.lookup(w, r, false)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid form")
		return
	}

	in := ActionInput{
		FirstName:  r.PostFormValue("first_name"),
		Category:   r.PostFormValue("category"),
		Difficulty: r.PostFormValue("difficulty"),
		Answer:     r.PostFormValue("answer"),
	}
	action := r.PathValue("action")
	if err := dispatch(context.WithoutCancel(r.Context()), ctrl, action, in); err != nil {
		if errors.Is(err, errUnknownAction) {
			http.NotFound(w, r)
			return
		}
		if !expectedPageError(err) {
			h.logger.Warn().Err(err).Str("action", action).Msg("action failed")
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// expectedPageError reports errors a form post can cause in normal use,
// such as a double submit or an empty answer.
func expectedPageError(err error) bool {
	var vErr *quiz.ValidationError
	return errors.As(err, &vErr) ||
		errors.Is(err, quiz.ErrWrongPhase) ||
		errors.Is(err, session.ErrAlreadyStarted) ||
		errors.Is(err, session.ErrNotStarted) ||
		errors.Is(err, session.ErrTokenUnavailable) ||
		errors.Is(err, session.ErrTokenNotRetryable)
}
