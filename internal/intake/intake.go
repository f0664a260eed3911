// Package intake turns raw inbound requests into validated ones. Nothing is
// created or charged for a request that fails here.
package intake

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/recruiter-agent/internal/types"
)

// ValidationError lists every field that failed, keyed by its JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// Limits bounds max_items.
type Limits struct {
	DefaultMaxItems int
	MaxItemsCeiling int
}

// Validator normalizes and validates process requests. Safe for concurrent use.
type Validator struct {
	limits   Limits
	validate *validator.Validate
}

// New creates a Validator.
func New(limits Limits) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{limits: limits, validate: v}
}

// Decode reads a JSON request body and validates it.
func (v *Validator) Decode(r io.Reader) (types.ProcessRequest, error) {
	var req types.ProcessRequest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&req); err != nil {
		return types.ProcessRequest{}, &ValidationError{Fields: map[string]string{"body": "malformed JSON: " + err.Error()}}
	}
	return v.Validate(req)
}

// Validate normalizes req and checks it. The returned request is what a Run is created from.
func (v *Validator) Validate(req types.ProcessRequest) (types.ProcessRequest, error) {
	req = normalize(req)
	problems := make(map[string]string)

	if err := v.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return types.ProcessRequest{}, fmt.Errorf("failed to validate request: %w", err)
		}
		for _, fe := range verrs {
			problems[fe.Field()] = message(fe)
		}
	}

	switch {
	case req.MaxItems == 0:
		req.MaxItems = v.limits.DefaultMaxItems
	case req.MaxItems < 0:
		problems["max_items"] = "must be positive"
	case v.limits.MaxItemsCeiling > 0 && req.MaxItems > v.limits.MaxItemsCeiling:
		problems["max_items"] = fmt.Sprintf("must not exceed %d", v.limits.MaxItemsCeiling)
	}

	if len(problems) > 0 {
		return types.ProcessRequest{}, &ValidationError{Fields: problems}
	}
	return req, nil
}

func normalize(req types.ProcessRequest) types.ProcessRequest {
	req.RecruiterName = strings.TrimSpace(req.RecruiterName)
	req.RecruiterEmail = strings.TrimSpace(req.RecruiterEmail)
	req.RecruiterWebsite = NormalizeURL(req.RecruiterWebsite)
	req.DeliveryTarget = strings.TrimSpace(req.DeliveryTarget)
	req.SenderName = strings.TrimSpace(req.SenderName)
	req.SenderEmail = strings.TrimSpace(req.SenderEmail)
	req.EmailSubject = strings.TrimSpace(req.EmailSubject)
	req.Timezone = strings.TrimSpace(req.Timezone)
	return req
}

// NormalizeURL trims raw and adds https:// when no scheme is present.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Host = strings.ToLower(u.Host)
	return u.String()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "http_url", "url":
		return "must be a valid http(s) URL"
	case "min":
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
