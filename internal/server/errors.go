package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/recruiter-agent/internal/db"
	"github.com/jonathan/recruiter-agent/internal/intake"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var verr *intake.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorBody builds the response body for err.
func errorBody(err error) ErrorResponse {
	var verr *intake.ValidationError
	if errors.As(err, &verr) {
		return ErrorResponse{Error: "invalid_request", Message: "request failed validation", Fields: verr.Fields}
	}
	if errors.Is(err, db.ErrNotFound) {
		return ErrorResponse{Error: "not_found", Message: err.Error()}
	}
	return ErrorResponse{Error: "internal_error"}
}
