package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/recruiter-agent/internal/db"
	"github.com/jonathan/recruiter-agent/internal/intake"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: &intake.ValidationError{Fields: map[string]string{"recruiter_email": "required"}}, want: http.StatusBadRequest},
		{name: "wrapped validation", err: fmt.Errorf("decode: %w", &intake.ValidationError{}), want: http.StatusBadRequest},
		{name: "not found", err: db.ErrNotFound, want: http.StatusNotFound},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrorBody(t *testing.T) {
	body := errorBody(&intake.ValidationError{Fields: map[string]string{"recruiter_website": "must be a URL"}})
	assert.Equal(t, "invalid_request", body.Error)
	assert.Equal(t, "must be a URL", body.Fields["recruiter_website"])

	body = errorBody(errors.New("database password is hunter2"))
	assert.Equal(t, "internal_error", body.Error)
	assert.Empty(t, body.Message)
}
