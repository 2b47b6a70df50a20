package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io"

// ElevenLabsClient streams speech from the ElevenLabs HTTP streaming endpoint.
type ElevenLabsClient struct {
	HTTPClient   *http.Client
	BaseURL      string
	APIKey       string
	VoiceID      string
	ModelID      string
	OutputFormat string
	Logger       *slog.Logger
}

func NewElevenLabsClient(apiKey, voiceID, modelID, outputFormat string) *ElevenLabsClient {
	if modelID == "" {
		modelID = "eleven_multilingual_v2"
	}
	if outputFormat == "" {
		outputFormat = "mp3_44100_128"
	}
	return &ElevenLabsClient{
		// no client timeout: a long reply streams for as long as it takes,
		// bounded by the caller's context
		HTTPClient:   &http.Client{},
		BaseURL:      elevenLabsBaseURL,
		APIKey:       apiKey,
		VoiceID:      voiceID,
		ModelID:      modelID,
		OutputFormat: outputFormat,
	}
}

func (e *ElevenLabsClient) Info() Info { return Info{Provider: "elevenlabs", Configured: e.APIKey != ""} }

// Format reports mp3 unless a pcm_* output format was configured.
func (e *ElevenLabsClient) Format() Format {
	if strings.HasPrefix(e.OutputFormat, "pcm_") {
		return FormatPCM16
	}
	return FormatMP3
}

// SampleRate parses the rate out of a pcm_* output format.
func (e *ElevenLabsClient) SampleRate() int {
	if rate, err := strconv.Atoi(strings.TrimPrefix(e.OutputFormat, "pcm_")); err == nil {
		return rate
	}
	return defaultSampleRate
}

func (e *ElevenLabsClient) Stream(ctx context.Context, text string, opts Options) (<-chan []byte, <-chan error) {
	out := make(chan []byte, chunkBuffer)
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		defer close(out)
		voice := opts.VoiceID
		if voice == "" {
			voice = e.VoiceID
		}
		if e.APIKey == "" {
			errc <- ErrNotConfigured
			return
		}
		if voice == "" {
			errc <- fmt.Errorf("elevenlabs: voice id missing")
			return
		}
		if err := e.httpStream(ctx, voice, text, out); err != nil {
			errc <- err
		}
	}()
	return out, errc
}

func (e *ElevenLabsClient) httpStream(ctx context.Context, voice, text string, out chan<- []byte) error {
	u, err := url.Parse(strings.TrimRight(e.BaseURL, "/") + "/v1/text-to-speech/" + url.PathEscape(voice) + "/stream")
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("output_format", e.OutputFormat)
	u.RawQuery = q.Encode()

	body := map[string]any{
		"model_id": e.ModelID,
		"text":     text,
		"voice_settings": map[string]any{
			"stability":         0.4,
			"similarity_boost":  0.7,
			"style":             0.0,
			"use_speaker_boost": true,
		},
	}
	buf, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", e.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs http stream error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return fmt.Errorf("elevenlabs http status=%d body=%s", resp.StatusCode, string(b))
	}

	chunk := make([]byte, 4096)
	first := true
	for {
		n, rerr := resp.Body.Read(chunk)
		if n > 0 {
			if first {
				e.logger().DebugContext(ctx, "elevenlabs: receiving audio stream", "first_chunk_bytes", n)
				first = false
			}
			b := make([]byte, n)
			copy(b, chunk[:n])
			if err := emit(ctx, out, b); err != nil {
				return err
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return nil
			}
			return fmt.Errorf("elevenlabs http read error: %w", rerr)
		}
	}
}

func (e *ElevenLabsClient) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
