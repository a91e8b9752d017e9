package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrMalformedResponse indicates the remote service answered with a body the
// client could not interpret.
var ErrMalformedResponse = errors.New("malformed response")

// TransportError wraps a failure to reach a remote service at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-success HTTP status from a remote service.
type StatusError struct {
	Op      string
	Status  int
	Message string
	// Fields holds per-field validation messages, keyed by the remote field name.
	Fields map[string][]string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Status)
}

// FieldMessages flattens Fields into "field: message" strings in a stable order.
func (e *StatusError) FieldMessages() []string {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []string
	for _, key := range keys {
		out = append(out, fmt.Sprintf("%s: %s", key, strings.Join(e.Fields[key], " ")))
	}
	return out
}

// IsUnauthenticated reports whether err means the remote service rejected the session.
func IsUnauthenticated(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.Status == http.StatusUnauthorized || statusErr.Status == http.StatusForbidden
}

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
