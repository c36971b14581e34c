package api

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// errorBody is the JSON error envelope: {"error": {"code": ..., "message": ...}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, logger zerolog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func respondError(w http.ResponseWriter, logger zerolog.Logger, status int, code, message string) {
	respondJSON(w, logger, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}
