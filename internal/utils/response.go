package utils

import (
	"encoding/json"
	"net/http"

	"eventhub/internal/errs"
)

// APIResponse is the envelope every endpoint returns.
type APIResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	WriteJSON(w, statusCode, APIResponse{Status: true, Message: message, Data: data})
}

// WriteError maps the error's kind to an HTTP status. Unexpected errors
// collapse to a generic 500 message; internals never reach the caller.
func WriteError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	WriteJSON(w, errs.HTTPStatus(kind), APIResponse{Status: false, Message: errs.MessageOf(err)})
}

func WriteErrorMessage(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, APIResponse{Status: false, Message: message})
}
