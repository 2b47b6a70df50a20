package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotConfigured is returned when the service has no credential.
var ErrNotConfigured = errors.New("transcript: api key not configured")

const deepgramListenURL = "https://api.deepgram.com/v1/listen"

// DeepgramClient transcribes recordings with Deepgram's pre-recorded API.
type DeepgramClient struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
	Language   string
	Endpoint   string
}

func NewDeepgramClient(apiKey, model, language string) *DeepgramClient {
	if model == "" {
		model = "nova-2"
	}
	if language == "" {
		language = "ar"
	}
	return &DeepgramClient{
		HTTPClient: &http.Client{Timeout: 90 * time.Second},
		APIKey:     apiKey,
		Model:      model,
		Language:   language,
		Endpoint:   deepgramListenURL,
	}
}

func (d *DeepgramClient) Info() Info {
	return Info{Provider: "deepgram", Model: d.Model, Language: d.Language, Configured: d.APIKey != ""}
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (d *DeepgramClient) Transcribe(ctx context.Context, audio Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", nil
	}
	if d.APIKey == "" {
		return "", ErrNotConfigured
	}
	u, err := url.Parse(d.Endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("model", d.Model)
	q.Set("language", d.Language)
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(audio.Data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Token "+d.APIKey)
	req.Header.Set("Content-Type", ContentType(audio.ContentType, audio.Filename))

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return "", fmt.Errorf("deepgram error: status=%d body=%s", resp.StatusCode, string(b))
	}
	var dr deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return "", fmt.Errorf("deepgram decode: %w", err)
	}
	if len(dr.Results.Channels) == 0 || len(dr.Results.Channels[0].Alternatives) == 0 {
		return "", fmt.Errorf("deepgram: unexpected payload shape")
	}
	return dr.Results.Channels[0].Alternatives[0].Transcript, nil
}
