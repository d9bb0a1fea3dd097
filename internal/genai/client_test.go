package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func respondWith(t *testing.T, output []map[string]string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"output": output}))
	}
}

func TestGenerateDecodesImage(t *testing.T) {
	img := []byte("fake png bytes")

	var captured struct {
		auth string
		path string
		body generateRequest
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.auth = r.Header.Get("Authorization")
		captured.path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured.body))

		respondWith(t, []map[string]string{
			{"type": "reasoning", "result": ""},
			{"type": "image_generation_call", "result": base64.StdEncoding.EncodeToString(img)},
		})(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", "gpt-4.1")
	got, err := c.Generate(context.Background(), Request{Description: "red hoodie"})
	require.NoError(t, err)
	require.Equal(t, img, got)

	require.Equal(t, "Bearer sk-test", captured.auth)
	require.Equal(t, "/v1/responses", captured.path)
	require.Equal(t, "gpt-4.1", captured.body.Model)
	require.Len(t, captured.body.Input, 2)
	require.Equal(t, "system", captured.body.Input[0].Role)
	require.Equal(t, []tool{{Type: "image_generation"}}, captured.body.Tools)
}

func TestGenerateNoImageOutput(t *testing.T) {
	srv := httptest.NewServer(respondWith(t, []map[string]string{
		{"type": "message", "result": ""},
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", "gpt-4.1")
	_, err := c.Generate(context.Background(), Request{Description: "anything"})
	require.ErrorIs(t, err, ErrNoImage)
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", "gpt-4.1")
	_, err := c.Generate(context.Background(), Request{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestGenerateBadImagePayload(t *testing.T) {
	srv := httptest.NewServer(respondWith(t, []map[string]string{
		{"type": "image_generation_call", "result": "not base64!!"},
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", "gpt-4.1")
	_, err := c.Generate(context.Background(), Request{})
	require.Error(t, err)
}
