package announcer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/sonicbox/internal/domain/track"
)

var testTrack = track.Track{ID: "1", Title: "Midnight City", Artist: "M83", Album: "Hurry Up, We're Dreaming"}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		settings map[string]any
		wantNil  bool
		wantErr  bool
	}{
		{name: "disabled", typ: "", wantNil: true},
		{name: "unknown type", typ: "espeak", wantErr: true},
		{name: "gemini", typ: "gemini", settings: map[string]any{"api_key": "k"}},
		{name: "http", typ: "http", settings: map[string]any{"url": "http://localhost:5002/tts", "timeout_sec": 5}},
		{name: "http missing url", typ: "http", settings: map[string]any{}, wantErr: true},
		{name: "http wrong field type", typ: "http", settings: map[string]any{"url": "http://x", "timeout_sec": "soon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.typ, tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, a)
			} else {
				assert.NotNil(t, a)
			}
		})
	}
}

func TestNew_GeminiKeyFromEnvironment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := New("gemini", map[string]any{})
	assert.Error(t, err)

	t.Setenv("GEMINI_API_KEY", "from-env")
	a, err := New("gemini", map[string]any{})
	require.NoError(t, err)

	g, ok := a.(*Gemini)
	require.True(t, ok)
	assert.Equal(t, "from-env", g.config.APIKey)
	assert.Equal(t, "Fenrir", g.config.Voice)
	assert.Equal(t, DefaultPrompt, g.config.Prompt)
}

func TestRenderPrompt(t *testing.T) {
	assert.Equal(t, "Now: Midnight City / M83 / Hurry Up, We're Dreaming",
		renderPrompt("Now: {title} / {artist} / {album}", testTrack))
	assert.Equal(t, "this track by an unknown artist",
		renderPrompt("{title} by {artist}", track.Track{ID: "x"}))
}

func TestGemini_Announce(t *testing.T) {
	audio := []byte{0x01, 0x02, 0x03, 0x04}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/tts-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "Play Midnight City by M83", req.Contents[0].Parts[0].Text)
		assert.Equal(t, []string{"AUDIO"}, req.GenerationConfig.ResponseModalities)
		assert.Equal(t, "Kore", req.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)

		fmt.Fprintf(w, `{"candidates": [{"content": {"parts": [{"inlineData": {"mimeType": "audio/L16;codec=pcm;rate=24000", "data": %q}}]}}]}`,
			base64.StdEncoding.EncodeToString(audio))
	}))
	defer server.Close()

	g := NewGemini(GeminiConfig{
		APIKey:     "secret",
		Model:      "tts-model",
		Voice:      "Kore",
		Prompt:     "Play {title} by {artist}",
		BaseURL:    server.URL + "/",
		TimeoutSec: 5,
	})

	clip, err := g.Announce(context.Background(), testTrack)
	require.NoError(t, err)
	assert.Equal(t, audio, clip.Data)
	assert.Equal(t, "audio/L16;codec=pcm;rate=24000", clip.MimeType)
	assert.Equal(t, "Play Midnight City by M83", clip.Text)
}

func TestGemini_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "api error", status: http.StatusForbidden, body: `{"error": {"code": 403, "message": "API key not valid"}}`},
		{name: "no audio", status: http.StatusOK, body: `{"candidates": [{"content": {"parts": [{"text": "hello"}]}}]}`, wantErr: ErrNoAudio},
		{name: "not json", status: http.StatusBadGateway, body: `<html>bad gateway</html>`},
		{name: "bad base64", status: http.StatusOK, body: `{"candidates": [{"content": {"parts": [{"inlineData": {"mimeType": "audio/L16", "data": "%%%"}}]}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			g := NewGemini(GeminiConfig{APIKey: "k", Model: "m", BaseURL: server.URL, TimeoutSec: 5})
			_, err := g.Announce(context.Background(), testTrack)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			}
		})
	}
}

func TestHTTP_Announce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]string
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "Now playing Midnight City by M83.", req["text"])
		assert.Equal(t, "en-US", req["voice"])

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake"))
	}))
	defer server.Close()

	h := NewHTTP(HTTPConfig{
		URL:        server.URL,
		Voice:      "en-US",
		Headers:    map[string]string{"Authorization": "Bearer token"},
		TimeoutSec: 5,
	})

	clip, err := h.Announce(context.Background(), testTrack)
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", clip.MimeType)
	assert.Equal(t, []byte("ID3fake"), clip.Data)
}

func TestHTTP_Failures(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := NewHTTP(HTTPConfig{URL: server.URL, TimeoutSec: 5}).Announce(context.Background(), testTrack)
		assert.Error(t, err)
	})

	t.Run("empty body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()

		_, err := NewHTTP(HTTPConfig{URL: server.URL, TimeoutSec: 5}).Announce(context.Background(), testTrack)
		assert.True(t, errors.Is(err, ErrNoAudio))
	})
}
