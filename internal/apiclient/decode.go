package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const envelopeSuccess = "success"

// envelope is the wrapper the remote services put around most payloads.
type envelope struct {
	Status  *string         `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Decode normalises a response body into v. The services answer either with
// {"status": "success", "data": <payload>} or with the bare payload; both are
// accepted here so call sites never guess. A non-success envelope, an empty
// payload or invalid JSON yield ErrMalformedResponse.
func Decode(body []byte, v any) error {
	payload, err := unwrap(body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func unwrap(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	if trimmed[0] != '{' {
		return trimmed, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Status == nil && env.Data == nil {
		return trimmed, nil
	}
	if env.Status != nil && *env.Status != envelopeSuccess {
		return nil, fmt.Errorf("%w: status %q", ErrMalformedResponse, *env.Status)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("%w: envelope without data", ErrMalformedResponse)
	}
	return data, nil
}

// statusError builds a StatusError from an error response body, pulling the
// human message from "message"/"detail" and field errors from either the top
// level (serializer errors) or an "errors" object.
func statusError(op string, status int, body []byte) *StatusError {
	out := &StatusError{Op: op, Status: status}

	trimmed := bytes.TrimSpace(body)
	var fields map[string]json.RawMessage
	if len(trimmed) == 0 || trimmed[0] != '{' || json.Unmarshal(trimmed, &fields) != nil {
		out.Message = truncate(string(trimmed), 100)
		return out
	}

	for key, raw := range fields {
		switch key {
		case "status":
		case "message", "detail":
			var text string
			if json.Unmarshal(raw, &text) == nil && out.Message == "" {
				out.Message = text
			}
		case "errors":
			var nested map[string]json.RawMessage
			if json.Unmarshal(raw, &nested) == nil {
				for name, value := range nested {
					out.addField(name, value)
				}
			}
		case "non_field_errors":
			var texts []string
			if json.Unmarshal(raw, &texts) == nil && out.Message == "" {
				out.Message = strings.Join(texts, " ")
			}
		default:
			out.addField(key, raw)
		}
	}
	return out
}

func (e *StatusError) addField(name string, raw json.RawMessage) {
	var texts []string
	if err := json.Unmarshal(raw, &texts); err != nil {
		var text string
		if json.Unmarshal(raw, &text) != nil || text == "" {
			return
		}
		texts = []string{text}
	}
	if len(texts) == 0 {
		return
	}
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[name] = append(e.Fields[name], texts...)
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
