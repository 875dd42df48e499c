package announcer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sonicbox/internal/app/playback"
	"github.com/osa030/sonicbox/internal/domain/track"
)

// GeminiConfig represents Gemini text-to-speech settings.
type GeminiConfig struct {
	APIKey     string `yaml:"api_key" mapstructure:"api_key" validate:"required"`
	Model      string `yaml:"model" mapstructure:"model" default:"gemini-2.5-flash-preview-tts" validate:"required"`
	Voice      string `yaml:"voice" mapstructure:"voice" default:"Fenrir"`
	Prompt     string `yaml:"prompt" mapstructure:"prompt"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url" default:"https://generativelanguage.googleapis.com" validate:"url"`
	TimeoutSec int    `yaml:"timeout_sec" mapstructure:"timeout_sec" default:"30" validate:"gte=1"`
}

// Gemini speaks announcements through the Gemini generateContent API.
type Gemini struct {
	config     GeminiConfig
	httpClient *http.Client
}

// NewGemini creates a new Gemini announcer.
func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	return &Gemini{
		config:     cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
	}
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string           `json:"responseModalities"`
	SpeechConfig       geminiSpeechConfig `json:"speechConfig"`
}

type geminiSpeechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Announce implements playback.Announcer.
func (g *Gemini) Announce(ctx context.Context, t track.Track) (playback.Clip, error) {
	text := renderPrompt(g.config.Prompt, t)

	var body geminiRequest
	body.Contents = []geminiContent{{Parts: []geminiPart{{Text: text}}}}
	body.GenerationConfig.ResponseModalities = []string{"AUDIO"}
	body.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = g.config.Voice

	payload, err := json.Marshal(body)
	if err != nil {
		return playback.Clip{}, errors.Wrap(err, "failed to encode request")
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(g.config.BaseURL, "/"), g.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return playback.Clip{}, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.config.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return playback.Clip{}, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return playback.Clip{}, errors.Wrap(err, "failed to read response body")
	}

	var result geminiResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return playback.Clip{}, errors.Wrapf(err, "failed to parse response (HTTP %d)", resp.StatusCode)
	}
	if result.Error != nil {
		return playback.Clip{}, errors.Newf("gemini error %d: %s", result.Error.Code, result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return playback.Clip{}, errors.Newf("gemini returned HTTP %d", resp.StatusCode)
	}

	for _, c := range result.Candidates {
		for _, part := range c.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			audio, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return playback.Clip{}, errors.Wrap(err, "failed to decode audio data")
			}
			zlog.Debug().Msgf("announcer: gemini clip ready: mime=%s bytes=%d", part.InlineData.MimeType, len(audio))
			return playback.Clip{Text: text, MimeType: part.InlineData.MimeType, Data: audio}, nil
		}
	}
	return playback.Clip{}, ErrNoAudio
}
