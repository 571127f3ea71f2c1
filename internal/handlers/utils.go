package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/storefront/apiserver/internal/services"
)

type contextKey string

const contextClaimsKey contextKey = "claims"

// MessageResponse is the body of every error and of plain acknowledgements.
type MessageResponse struct {
	Msg string `json:"msg"`
}

func claimsFromContext(ctx context.Context) (services.Claims, bool) {
	claims, ok := ctx.Value(contextClaimsKey).(services.Claims)
	return claims, ok
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Msg: message})
}

// writeServiceError maps a service error kind to its status code. Storage
// and unexpected errors are logged and surfaced as 500.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidCredentials):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	}

	if status != http.StatusInternalServerError {
		writeError(w, status, services.Message(err))
		return
	}

	log.Error().Err(err).Msg("request failed")
	writeError(w, status, err.Error())
}
