package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/adi-253/burnroom/internal/models"
	"github.com/adi-253/burnroom/internal/services"
)

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

// WriteError maps err to its code and status. Storage failures are logged
// and their cause is never echoed to the caller.
func WriteError(w http.ResponseWriter, err error) {
	code := services.CodeOf(err)
	message := services.MessageOf(err)
	if code == services.CodeStorageUnavailable {
		log.Error().Err(err).Msg("request failed")
		message = services.ErrStorageUnavailable.Message
	}
	WriteJSON(w, code.HTTPStatus(), models.ErrorResponse{Error: message, Code: string(code)})
}

// decodeJSON reads a single JSON object. Unknown fields, trailing data and
// oversized bodies are validation errors.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &services.Error{Code: services.CodeValidation, Message: "request body too large", Err: err}
		}
		return &services.Error{Code: services.CodeValidation, Message: "invalid request body", Err: err}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &services.Error{Code: services.CodeValidation, Message: "request body must be a single JSON object"}
	}
	return nil
}
