package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RequestError is returned for non-2xx responses.
type RequestError struct {
	Code int
	Body []byte
	// Errors holds the per-field messages of an unprocessable-entity
	// response, decoded from {"errors": {field: [messages]}}.
	Errors map[string][]string
}

func (e *RequestError) Error() string {
	msg := strings.TrimSpace(string(e.Body))
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return fmt.Sprintf("apiclient: request failed with status %d: %s", e.Code, msg)
}

// StatusCode returns the HTTP status of the response.
func (e *RequestError) StatusCode() int {
	return e.Code
}

// Unprocessable reports whether the response was a 422.
func (e *RequestError) Unprocessable() bool {
	return e.Code == http.StatusUnprocessableEntity
}

// AsRequestError unwraps err into a *RequestError.
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr != nil {
		return reqErr, true
	}
	return nil, false
}

// IsUnprocessable reports whether err carries a 422 response.
func IsUnprocessable(err error) bool {
	reqErr, ok := AsRequestError(err)
	return ok && reqErr.Unprocessable()
}

type errorPayload struct {
	Errors map[string][]string `json:"errors"`
}

func newRequestError(resp *http.Response) *RequestError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	reqErr := &RequestError{Code: resp.StatusCode, Body: body}
	if resp.StatusCode == http.StatusUnprocessableEntity && len(body) > 0 {
		var payload errorPayload
		if err := json.Unmarshal(body, &payload); err == nil {
			reqErr.Errors = payload.Errors
		}
	}
	return reqErr
}
