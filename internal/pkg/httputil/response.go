package httputil

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/pagination"
)

// Envelope is the standard response body for all API endpoints.
type Envelope struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message,omitempty"`
	Data       any              `json:"data,omitempty"`
	Pagination *pagination.Meta `json:"pagination,omitempty"`
	Errors     []string         `json:"errors,omitempty"`
}

// JSON writes a JSON response with the given status code. The data is
// serialized and Content-Type is set automatically.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[httputil] JSON encode error: %v", err)
	}
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// Page writes a 200 list envelope with its pagination block.
func Page[T any](w http.ResponseWriter, message string, res pagination.Result[T]) {
	meta := res.Pagination
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: res.Data, Pagination: &meta})
}

// NoContent writes a 204 response with no body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes a failure envelope. Use for client errors (4xx).
func Error(w http.ResponseWriter, status int, message string, errs ...string) {
	JSON(w, status, Envelope{Success: false, Message: message, Errors: errs})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, message string, errs ...string) {
	Error(w, http.StatusBadRequest, message, errs...)
}

// NotFound writes a 404 error.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// Forbidden writes a 403 error.
func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, message)
}

// Conflict writes a 409 error.
func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, message)
}

// InternalError writes a 500 error. Logs the real error but returns a
// generic message to the client (never leak internals).
func InternalError(w http.ResponseWriter, err error) {
	log.Printf("[httputil] internal error: %v", err)
	Error(w, http.StatusInternalServerError, "Internal server error")
}

// Decode reads JSON from the request body into dst.
// Returns false and writes a 400 response if parsing fails.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "Invalid JSON body", err.Error())
		return false
	}
	return true
}
