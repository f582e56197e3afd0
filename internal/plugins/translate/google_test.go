package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smakam/globtranslate-claude/internal/config"
)

func clientFor(srv *httptest.Server) *GoogleClient {
	return NewGoogleClient(config.TranslatorConfig{
		APIKey:   "test-key",
		Endpoint: srv.URL,
		Timeout:  2 * time.Second,
	})
}

func TestTranslateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req translateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "Hello", req.Q)
		require.Equal(t, "en", req.Source)
		require.Equal(t, "es", req.Target)
		require.Equal(t, "text", req.Format)

		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"Hola"}]}}`))
	}))
	defer srv.Close()

	got, err := clientFor(srv).Translate(context.Background(), "Hello", "en", "es")
	require.NoError(t, err)
	require.Equal(t, "Hola", got)
}

func TestTranslateDecodesEntities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"Tom &amp; Jerry&#39;s"}]}}`))
	}))
	defer srv.Close()

	got, err := clientFor(srv).Translate(context.Background(), "Tom & Jerry's", "en", "es")
	require.NoError(t, err)
	require.Equal(t, "Tom & Jerry's", got)
}

func TestTranslateRemoteRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := clientFor(srv).Translate(context.Background(), "Hello", "en", "es")
	require.ErrorContains(t, err, "remote rate limit exceeded")
}

func TestTranslateBadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := clientFor(srv).Translate(context.Background(), "Hello", "en", "es")
	require.ErrorContains(t, err, "access denied")
}

func TestTranslateNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"translations":[]}}`))
	}))
	defer srv.Close()

	_, err := clientFor(srv).Translate(context.Background(), "Hello", "en", "es")
	require.ErrorContains(t, err, "no candidates")
}

func TestTranslateMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":`))
	}))
	defer srv.Close()

	_, err := clientFor(srv).Translate(context.Background(), "Hello", "en", "es")
	require.ErrorContains(t, err, "malformed")
}

func TestTranslateNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := clientFor(srv).Translate(context.Background(), "Hello", "en", "es")
	require.ErrorContains(t, err, "request failed")
}
