package transcript

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

// WhisperClient transcribes recordings through an OpenAI-compatible
// audio transcription endpoint (Groq whisper-large-v3 by default).
type WhisperClient struct {
	Provider string
	Model    string
	Language string

	client     openai.Client
	configured bool
}

func NewWhisperClient(provider, apiKey, model, language, baseURL string, httpClient *http.Client) *WhisperClient {
	if model == "" {
		model = "whisper-large-v3"
	}
	if language == "" {
		language = "ar"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &WhisperClient{
		Provider:   provider,
		Model:      model,
		Language:   language,
		client:     openai.NewClient(opts...),
		configured: apiKey != "",
	}
}

func (w *WhisperClient) Info() Info {
	return Info{Provider: w.Provider, Model: w.Model, Language: w.Language, Configured: w.configured}
}

func (w *WhisperClient) Transcribe(ctx context.Context, audio Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", nil
	}
	if !w.configured {
		return "", ErrNotConfigured
	}
	name := audio.Filename
	if name == "" {
		name = "audio.webm"
	}
	tr, err := w.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     openai.File(bytes.NewReader(audio.Data), name, ContentType(audio.ContentType, name)),
		Model:    openai.AudioModel(w.Model),
		Language: param.NewOpt(w.Language),
	})
	if err != nil {
		return "", fmt.Errorf("%s whisper error: %w", w.Provider, err)
	}
	return tr.Text, nil
}
