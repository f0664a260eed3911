package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruiter-agent/internal/retry"
)

func TestFetcher_Text(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><nav>Menu</nav><main><h1>Acme Talent</h1><p>We place product managers at digital agencies.</p></main></body></html>`))
	}))
	defer server.Close()

	f := NewFetcher()
	text, err := f.Text(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "We place product managers")
	assert.NotContains(t, text, "Menu")
}

func TestFetcher_TextRendersThinPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="root">Loading</div></body></html>`))
	}))
	defer server.Close()

	rendered := "<html><body><main>" + strings.Repeat("Rendered content. ", 10) + "</main></body></html>"
	calls := 0
	f := NewFetcher(
		WithMinContentLength(50),
		WithRenderer(func(_ context.Context, url string) (string, error) {
			calls++
			assert.Equal(t, server.URL, url)
			return rendered, nil
		}),
	)

	text, err := f.Text(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, text, "Rendered content.")
}

func TestFetcher_TextKeepsStaticTextWhenRenderFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>Short page</p></body></html>`))
	}))
	defer server.Close()

	f := NewFetcher(WithRenderer(func(context.Context, string) (string, error) {
		return "", errors.New("no chrome")
	}))

	text, err := f.Text(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Short page", text)
}

func TestFetcher_TextEmptyPageIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body></body></html>`))
	}))
	defer server.Close()

	_, err := NewFetcher().Text(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, retry.ClassPermanent, retry.ClassOf(err))
}

func TestFetcher_CompanyTextPrefersAboutPage(t *testing.T) {
	about := strings.Repeat("Acme builds payroll software for agencies. ", 10)
	mux := http.NewServeMux()
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body><main>" + about + "</main></body></html>"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body><main>Home</main></body></html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	text, err := NewFetcher().CompanyText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "payroll software")
}

func TestFetcher_CompanyTextFallsBackToHomepage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/about-us", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body><main>Small homepage</main></body></html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	text, err := NewFetcher().CompanyText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Small homepage", text)
}

func TestFetcher_CompanyTextAllFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewFetcher().CompanyText(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, retry.IsRetryable(err))
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser("short", 0))
	assert.False(t, ShouldUseBrowser(strings.Repeat("x", MinContentLength), 0))
	assert.False(t, ShouldUseBrowser("0123456789", 10))
	assert.True(t, ShouldUseBrowser("  012345678  ", 10))
}
