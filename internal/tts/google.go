package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	googleTTSURL = "https://translate.google.com/translate_tts"
	// googleMaxChars is the longest text the endpoint accepts per request.
	googleMaxChars = 100
)

// GoogleClient speaks through the keyless Google Translate TTS endpoint.
// Long text is split into pieces and requested sequentially; the mp3
// responses are concatenated in order.
type GoogleClient struct {
	HTTPClient *http.Client
	Endpoint   string
	Language   string
}

func NewGoogleClient(language string) *GoogleClient {
	if language == "" {
		language = "ar"
	}
	return &GoogleClient{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Endpoint:   googleTTSURL,
		Language:   language,
	}
}

func (g *GoogleClient) Info() Info { return Info{Provider: "gtts", Configured: true} }

func (g *GoogleClient) Format() Format { return FormatMP3 }

func (g *GoogleClient) Stream(ctx context.Context, text string, opts Options) (<-chan []byte, <-chan error) {
	out := make(chan []byte, chunkBuffer)
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		defer close(out)
		lang := opts.Language
		if lang == "" {
			lang = g.Language
		}
		parts := splitText(text, googleMaxChars)
		for i, p := range parts {
			b, err := g.fetch(ctx, p, lang, i, len(parts))
			if err != nil {
				errc <- err
				return
			}
			if err := emit(ctx, out, b); err != nil {
				errc <- err
				return
			}
		}
	}()
	return out, errc
}

func (g *GoogleClient) fetch(ctx context.Context, text, lang string, idx, total int) ([]byte, error) {
	u, err := url.Parse(g.Endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", text)
	q.Set("idx", strconv.Itoa(idx))
	q.Set("total", strconv.Itoa(total))
	q.Set("textlen", strconv.Itoa(len([]rune(text))))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "https://translate.google.com/")

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gtts request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return nil, fmt.Errorf("gtts error: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gtts read: %w", err)
	}
	return b, nil
}
