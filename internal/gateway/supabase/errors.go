package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"racevault/internal/gateway"
)

// APIError is a failed response from the REST or storage API.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
	Hint    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "supabase: status %d", e.Status)
	if e.Code != "" {
		fmt.Fprintf(&b, " code %s", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Details != "" {
		b.WriteString(" (" + e.Details + ")")
	}
	return b.String()
}

// Unwrap maps the response onto the gateway sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound, e.Code == "PGRST116", e.Code == "not_found":
		return gateway.ErrNotFound
	case e.Status == http.StatusConflict, strings.HasPrefix(e.Code, "23"):
		return gateway.ErrConflict
	case e.Status >= 500:
		return gateway.ErrUnavailable
	}
	return nil
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}

	var payload struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
		Details string          `json:"details"`
		Hint    string          `json:"hint"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}
	if code := string(payload.Code); code != "null" {
		apiErr.Code = strings.Trim(code, `"`)
	}
	apiErr.Message = payload.Message
	apiErr.Details = payload.Details
	apiErr.Hint = payload.Hint
	if apiErr.Code == "" {
		apiErr.Code = payload.Error
	}
	return apiErr
}

// IsAPIError reports whether err carries an *APIError.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
