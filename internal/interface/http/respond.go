package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/voicementor/voicementor/internal/domain/shared"
	"github.com/voicementor/voicementor/pkg/logger"
)

// Envelope is the shape of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// writeList always includes count, even when it is zero.
func writeList[T any](w http.ResponseWriter, items []T) {
	n := len(items)
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: items, Count: &n})
}

func writeMessage(w http.ResponseWriter, status int, success bool, message string) {
	writeJSON(w, status, Envelope{Success: success, Message: message})
}

// writeError maps domain error kinds to status codes. Anything unrecognized
// is a 500 carrying the error text.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsValidation(err):
		writeMessage(w, http.StatusBadRequest, false, shared.Message(err))
	case shared.IsUnauthorized(err):
		writeMessage(w, http.StatusUnauthorized, false, shared.Message(err))
	case shared.IsNotFound(err):
		writeMessage(w, http.StatusNotFound, false, shared.Message(err))
	case shared.IsAlreadyExists(err):
		writeMessage(w, http.StatusConflict, false, shared.Message(err))
	default:
		logger.FromContext(r.Context()).Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Err(err),
		)
		writeJSON(w, http.StatusInternalServerError, Envelope{
			Success: false,
			Message: "Internal server error",
			Error:   err.Error(),
		})
	}
}

// decode reads a JSON body. A malformed body is a validation error.
func decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return shared.NewError("http.Decode", shared.ErrInvalidInput, "Invalid request body").Because(err)
	}
	return nil
}
