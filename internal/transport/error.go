package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"farmwatch/internal/errs"
)

// Error is the uniform classification of an expected request failure.
// Status 0 means the request never got a response (connectivity, timeout).
// Message holds the server-provided human message when the error body
// had a known shape, empty otherwise.
type Error struct {
	Status  int
	Body    []byte
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		if e.Message != "" {
			return e.Message
		}
		return "connection failed"
	}
	if e.Message == "" {
		return fmt.Sprintf("request failed (status %d)", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Unwrap maps 401 onto the shared sentinel so callers can errors.Is it.
func (e *Error) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return errs.ErrUnauthorized
	}
	return nil
}

// IsNetwork reports whether the failure happened before any response.
func (e *Error) IsNetwork() bool { return e.Status == 0 }

// serverMessage extracts a human message from the known error-body
// shapes: a "detail" string, an "error" string, or the first element of
// a field-specific string array (keys walked in sorted order so the
// pick is deterministic). Returns "" when no shape matches.
func serverMessage(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}

	for _, key := range []string{"detail", "error"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var arr []string
		if json.Unmarshal(fields[k], &arr) == nil && len(arr) > 0 && arr[0] != "" {
			return arr[0]
		}
	}
	return ""
}
