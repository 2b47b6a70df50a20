package tts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"
)

// DeepgramClient streams Aura speech over Deepgram's speak websocket.
type DeepgramClient struct {
	apiKey     string
	model      string
	sampleRate int
	encoding   string
	// maxWait bounds one utterance when the server never reports a flush.
	maxWait time.Duration
	logger  *slog.Logger
}

func NewDeepgramClient(apiKey, model string, logger *slog.Logger) *DeepgramClient {
	if model == "" {
		model = "aura-2-thalia-en"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DeepgramClient{apiKey: apiKey, model: model, sampleRate: 24000, encoding: "linear16", maxWait: 30 * time.Second, logger: logger}
}

func (d *DeepgramClient) Info() Info { return Info{Provider: "deepgram", Configured: d.apiKey != ""} }

func (d *DeepgramClient) Format() Format { return FormatPCM16 }

// SampleRate of the emitted PCM.
func (d *DeepgramClient) SampleRate() int { return d.sampleRate }

func (d *DeepgramClient) Stream(ctx context.Context, text string, _ Options) (<-chan []byte, <-chan error) {
	out := make(chan []byte, chunkBuffer)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(out)

		if d.apiKey == "" {
			errc <- ErrNotConfigured
			return
		}
		if text == "" {
			return
		}
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		cb := newSpeakCallback(func(data []byte) error {
			if len(data) == 0 {
				return nil
			}
			b := make([]byte, len(data))
			copy(b, data)
			return emit(ctx, out, b)
		})

		options := &clientinterfaces.WSSpeakOptions{
			Model:      d.model,
			Encoding:   d.encoding,
			SampleRate: d.sampleRate,
		}
		dg, err := speak.NewWSUsingCallback(ctx, d.apiKey, &clientinterfaces.ClientOptions{}, options, cb)
		if err != nil {
			errc <- fmt.Errorf("deepgram: create ws client: %w", err)
			return
		}
		defer dg.Stop()

		if ok := dg.Connect(); !ok {
			errc <- fmt.Errorf("deepgram: connect failed")
			return
		}
		if err := dg.SpeakWithText(text); err != nil {
			errc <- fmt.Errorf("deepgram: speak text: %w", err)
			return
		}
		if err := dg.Flush(); err != nil {
			errc <- fmt.Errorf("deepgram: flush: %w", err)
			return
		}

		timer := time.NewTimer(d.maxWait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-cb.flushed:
		case err := <-cb.failed:
			errc <- err
		case <-timer.C:
			d.logger.Warn("deepgram: no flush confirmation, ending utterance", "wait", d.maxWait)
		}
	}()

	return out, errc
}

// speakCallback receives websocket events from the SDK.
type speakCallback struct {
	onBinary func([]byte) error

	once    sync.Once
	flushed chan struct{}
	failed  chan error
}

func newSpeakCallback(onBinary func([]byte) error) *speakCallback {
	return &speakCallback{onBinary: onBinary, flushed: make(chan struct{}), failed: make(chan error, 1)}
}

func (s *speakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (s *speakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (s *speakCallback) Flush(*msginterfaces.FlushedResponse) error {
	s.once.Do(func() { close(s.flushed) })
	return nil
}
func (s *speakCallback) Clear(*msginterfaces.ClearedResponse) error   { return nil }
func (s *speakCallback) Close(*msginterfaces.CloseResponse) error     { return nil }
func (s *speakCallback) Warning(*msginterfaces.WarningResponse) error { return nil }
func (s *speakCallback) Error(er *msginterfaces.ErrorResponse) error {
	err := fmt.Errorf("deepgram: server error")
	if er != nil {
		err = fmt.Errorf("deepgram: %s: %s", er.ErrCode, er.ErrMsg)
	}
	select {
	case s.failed <- err:
	default:
	}
	return nil
}
func (s *speakCallback) UnhandledEvent([]byte) error { return nil }
func (s *speakCallback) Binary(byMsg []byte) error {
	if s.onBinary != nil {
		return s.onBinary(byMsg)
	}
	return nil
}
