package quiz

import (
	"errors"
	"fmt"

	"github.com/gokatarajesh/trivia-quiz/internal/opentdb"
)

// User-facing messages.
const (
	MsgAllFieldsRequired = "All fields are required!"
	MsgSelectAnswer      = "Select an answer!"
	MsgRateLimited       = "Too many requests, please wait..."
)

var (
	ErrWrongPhase = errors.New("action not available in current phase")
	ErrClosed     = errors.New("quiz closed")
)

// ValidationError is shown inline and never changes the phase.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// FetchErrorMessage turns a question fetch failure into the text shown next
// to the Retry control.
func FetchErrorMessage(err error) string {
	var statusErr *opentdb.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.RateLimited() {
			return MsgRateLimited
		}
		return fmt.Sprintf("HTTP error: %d", statusErr.StatusCode)
	}
	var codeErr *opentdb.ResponseCodeError
	if errors.As(err, &codeErr) {
		return fmt.Sprintf("No questions: %d", codeErr.Code)
	}
	return err.Error()
}

func fetchOutcome(err error) string {
	var statusErr *opentdb.StatusError
	var codeErr *opentdb.ResponseCodeError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &statusErr) && statusErr.RateLimited():
		return "rate_limited"
	case errors.As(err, &statusErr):
		return "http_error"
	case errors.As(err, &codeErr):
		return "no_questions"
	default:
		return "failed"
	}
}

func wrongPhase(action string, phase Phase) error {
	return fmt.Errorf("%w: %s during %s", ErrWrongPhase, action, phase)
}
