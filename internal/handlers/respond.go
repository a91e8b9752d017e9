package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/collegeportal/web/internal/apiclient"
	"github.com/collegeportal/web/internal/logging"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// upstreamMessage turns a remote call failure into text a visitor can act on.
func upstreamMessage(err error) string {
	var statusErr *apiclient.StatusError
	switch {
	case apiclient.IsTransport(err):
		return "Could not connect to the server. Please try again later."
	case errors.Is(err, apiclient.ErrMalformedResponse):
		return "The server sent an unexpected response. Please try again later."
	case errors.As(err, &statusErr):
		if statusErr.Message != "" {
			return fmt.Sprintf("Server error %d: %s", statusErr.Status, statusErr.Message)
		}
		return fmt.Sprintf("Server error %d.", statusErr.Status)
	default:
		return "Something went wrong. Please try again later."
	}
}

// upstreamStatus picks the response status for a failed remote call.
func upstreamStatus(err error) int {
	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) && statusErr.Status >= 400 && statusErr.Status < 500 {
		return statusErr.Status
	}
	return http.StatusBadGateway
}
