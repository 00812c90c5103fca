package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeminiClient(t *testing.T) {
	_, err := NewGeminiClient(GeminiConfig{})
	require.ErrorIs(t, err, ErrDisabled)

	client, err := NewGeminiClient(GeminiConfig{APIKey: "g-test"})
	require.NoError(t, err)
	assert.True(t, client.Enabled())
	assert.Equal(t, "gemini-2.0-flash", client.cfg.Model)
}

func TestGeminiComplete(t *testing.T) {
	var captured geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-test", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{
					{"text": `{"exec_summary":`},
					{"text": `"ok"}`},
				}}},
			},
		})
	}))
	defer server.Close()

	client, err := NewGeminiClient(GeminiConfig{APIKey: "g-test", BaseURL: server.URL})
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "system text", "user text")
	require.NoError(t, err)
	assert.Equal(t, `{"exec_summary":"ok"}`, text)

	require.NotNil(t, captured.SystemInstruction)
	require.Len(t, captured.SystemInstruction.Parts, 1)
	assert.Equal(t, "system text", captured.SystemInstruction.Parts[0].Text)
	require.Len(t, captured.Contents, 1)
	assert.Equal(t, "user", captured.Contents[0].Role)
	assert.Equal(t, "application/json", captured.GenerationConfig["responseMimeType"])
}

func TestGeminiCompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantMsg string
	}{
		{
			"api error status",
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "key revoked"}})
			},
			"key revoked",
		},
		{
			"no candidates",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
			},
			"no candidates",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			client, err := NewGeminiClient(GeminiConfig{APIKey: "g-test", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), "sys", "user")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}
