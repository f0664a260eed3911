package intake

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruiter-agent/internal/types"
)

func newValidator() *Validator {
	return New(Limits{DefaultMaxItems: 100, MaxItemsCeiling: 400})
}

func validRequest() types.ProcessRequest {
	return types.ProcessRequest{
		RecruiterName:    "Jane Doe",
		RecruiterEmail:   "jane@example.com",
		RecruiterWebsite: "https://janedoe.example.com",
	}
}

func TestValidate_Valid(t *testing.T) {
	req, err := newValidator().Validate(validRequest())
	require.NoError(t, err)
	assert.Equal(t, 100, req.MaxItems, "default applied")
}

func TestValidate_MissingWebsite(t *testing.T) {
	req := validRequest()
	req.RecruiterWebsite = ""

	_, err := newValidator().Validate(req)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "is required", verr.Fields["recruiter_website"])
	assert.Len(t, verr.Fields, 1)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	_, err := newValidator().Validate(types.ProcessRequest{
		RecruiterEmail:   "not-an-email",
		RecruiterWebsite: "acme.com",
		MaxItems:         1000,
		DeliveryTarget:   "::nope",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "recruiter_name")
	assert.Contains(t, verr.Fields, "recruiter_email")
	assert.Contains(t, verr.Fields, "delivery_target")
	assert.Equal(t, "must not exceed 400", verr.Fields["max_items"])
	assert.NotContains(t, verr.Fields, "recruiter_website", "bare domains are normalized")
	assert.True(t, strings.HasPrefix(err.Error(), "invalid request: "))
}

func TestValidate_MaxItems(t *testing.T) {
	tests := []struct {
		in      int
		want    int
		wantErr bool
	}{
		{0, 100, false},
		{1, 1, false},
		{400, 400, false},
		{401, 0, true},
		{-5, 0, true},
	}

	for _, tt := range tests {
		req := validRequest()
		req.MaxItems = tt.in
		got, err := newValidator().Validate(req)
		if tt.wantErr {
			assert.Error(t, err, "max_items=%d", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.MaxItems)
	}
}

func TestValidate_Normalizes(t *testing.T) {
	req := validRequest()
	req.RecruiterName = "  Jane Doe "
	req.RecruiterWebsite = "  JaneDoe.Example.com/about "

	got, err := newValidator().Validate(req)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.RecruiterName)
	assert.Equal(t, "https://janedoe.example.com/about", got.RecruiterWebsite)
}

func TestDecode(t *testing.T) {
	body := `{"recruiter_name":"Jane","recruiter_email":"jane@example.com","recruiter_website":"example.com","use_alternate_source_only":true,"max_items":150}`

	req, err := newValidator().Decode(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", req.RecruiterWebsite)
	assert.True(t, req.UseAlternateSourceOnly)
	assert.Equal(t, 150, req.MaxItems)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := newValidator().Decode(strings.NewReader(`{"recruiter_name":`))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields["body"], "malformed JSON")
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "", NormalizeURL("   "))
	assert.Equal(t, "https://example.com", NormalizeURL("example.com"))
	assert.Equal(t, "http://example.com", NormalizeURL("http://example.com"))
	assert.Equal(t, "https://example.com/Path", NormalizeURL("https://EXAMPLE.com/Path"))
}
