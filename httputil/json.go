// httputil/json.go
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrorResponse is the JSON error envelope used by the /api routes.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

var jsonLogger atomic.Pointer[zap.Logger]

// SetJSONLogger sets the logger that reports encode failures. Call once at
// startup.
func SetJSONLogger(logger *zap.Logger) {
	jsonLogger.Store(logger)
}

// WriteJSON writes v with the given status. Status codes outside 100..599
// become 500. An encode failure after the header is sent can only be logged.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		if l := jsonLogger.Load(); l != nil {
			l.Error("json encoding failed after headers sent",
				zap.String("type", typeName(v)), zap.Error(err))
		}
	}
}

// JSONError writes an ErrorResponse.
func JSONError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{Error: code, Message: message})
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
