package opentdb

import (
	"fmt"
	"net/http"
)

// StatusError is returned for any non-200 HTTP response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("opentdb http status %d", e.StatusCode)
}

// RateLimited reports whether the service answered 429.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// ResponseCodeError carries a non-zero response_code from a 200 response.
// An empty result list is reported the same way with the code as received.
type ResponseCodeError struct {
	Code int
}

func (e *ResponseCodeError) Error() string {
	return fmt.Sprintf("opentdb response code %d", e.Code)
}
