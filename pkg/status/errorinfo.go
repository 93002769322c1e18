package status

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrorInfo is an error returned by the admin API. The message MUST only
// contain user visible state, never internal details.
type ErrorInfo struct {
	// StatusCode contains the HTTP status code.
	StatusCode int `json:"-"`

	// Message contains the error message to return to the user.
	Message string `json:"error"`
}

// ErrorFromResponse reads the error from a failed admin API response. If the
// body doesn't contain an error message, only the status code is kept.
func ErrorFromResponse(resp *http.Response) *ErrorInfo {
	e := &ErrorInfo{
		StatusCode: resp.StatusCode,
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return e
	}
	// Ignore invalid bodies, such as errors from proxies.
	_ = json.Unmarshal(b, e)
	e.StatusCode = resp.StatusCode
	return e
}

func (e *ErrorInfo) Error() string {
	if e.Message == "" {
		return fmt.Sprintf(
			"%s (%d)",
			strings.ToLower(http.StatusText(e.StatusCode)),
			e.StatusCode,
		)
	}
	return fmt.Sprintf(
		"%s (%d): %s",
		strings.ToLower(http.StatusText(e.StatusCode)),
		e.StatusCode,
		e.Message,
	)
}
