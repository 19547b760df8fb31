// Package respond writes the JSON responses of the API. Error bodies are
// always {"message": string}; the status comes from the apperr taxonomy.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/campus-life-events/server/internal/apperr"
	"github.com/rs/zerolog"
)

type errorBody struct {
	Message string `json:"message"`
}

// JSON writes a payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// NoContent writes an empty 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error maps err through the apperr taxonomy and writes the JSON error body.
// Server errors log at error level with the internal cause; client errors at
// warn. The client only ever sees apperr.Message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	logger := zerolog.Ctx(r.Context())
	event := logger.Warn()
	if status >= 500 {
		event = logger.Error()
	}
	event.
		Err(err).
		Int("status", status).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")

	JSON(w, status, errorBody{Message: apperr.Message(err)})
}
