package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Lllllllleong/scanshare/internal/models"
)

// BearerToken extracts the ID token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// WriteJSON encodes v as the response body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// WriteError answers with the status matching err and an ErrorResponse body.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, StatusFor(err), models.ErrorResponse{Error: err.Error()})
}

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	var (
		validationErr *models.ValidationError
		serviceErr    *models.ServiceError
		networkErr    *models.NetworkError
	)
	switch {
	case errors.Is(err, models.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &serviceErr):
		// Client errors from the identity service (wrong password, unknown user) are the caller's.
		if serviceErr.StatusCode >= 400 && serviceErr.StatusCode < 500 {
			return serviceErr.StatusCode
		}
		return http.StatusBadGateway
	case errors.As(err, &networkErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
