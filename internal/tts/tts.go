package tts

import (
	"bytes"
	"context"
	"errors"
	"strings"
)

// ErrNotConfigured is reported by a provider without a credential.
var ErrNotConfigured = errors.New("tts: api key not configured")

// chunkBuffer bounds how far synthesis may run ahead of delivery.
const chunkBuffer = 32

// Format is the container of the bytes a provider emits.
type Format string

const (
	FormatMP3 Format = "mp3"
	// FormatPCM16 is raw little-endian 16-bit mono PCM.
	FormatPCM16 Format = "pcm16"
)

// Options tune one synthesis call. Empty fields use provider defaults.
type Options struct {
	VoiceID  string
	Language string
}

// Streamer synthesizes text into ordered audio chunks. The chunk channel is
// closed when synthesis ends; a failure is then readable from the error
// channel, which is closed afterwards. Cancelling ctx abandons synthesis.
type Streamer interface {
	Stream(ctx context.Context, text string, opts Options) (<-chan []byte, <-chan error)
	Format() Format
}

// Info describes a configured provider for health reporting.
type Info struct {
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
}

// Collect drains a full synthesis into memory.
func Collect(ctx context.Context, s Streamer, text string, opts Options) ([]byte, error) {
	chunks, errc := s.Stream(ctx, text, opts)
	var buf bytes.Buffer
	for c := range chunks {
		buf.Write(c)
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Pump relays one synthesis to send in generation order. It returns once
// the stream is fully drained, send fails, or ctx is cancelled; on early
// return the synthesis is abandoned.
func Pump(ctx context.Context, s Streamer, text string, opts Options, send func([]byte) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	chunks, errc := s.Stream(ctx, text, opts)
	for c := range chunks {
		if err := send(c); err != nil {
			cancel()
			for range chunks {
			}
			return err
		}
	}
	if err := <-errc; err != nil {
		return err
	}
	return ctx.Err()
}

func emit(ctx context.Context, out chan<- []byte, b []byte) error {
	select {
	case out <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// splitText cuts text into pieces of at most max runes, preferring sentence
// boundaries, then word boundaries. Arabic punctuation counts as a boundary.
func splitText(text string, max int) []string {
	var sentences []string
	var b strings.Builder
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}
	for _, r := range strings.TrimSpace(text) {
		switch r {
		case '.', '!', '?', '؟', '،', '؛', ',', ';', ':':
			b.WriteRune(r)
			flush()
		case '\n', '\r':
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()

	var out []string
	for _, s := range sentences {
		out = append(out, splitWords(s, max)...)
	}
	return out
}

func splitWords(s string, max int) []string {
	if len([]rune(s)) <= max {
		return []string{s}
	}
	var out []string
	var cur []rune
	for _, w := range strings.Fields(s) {
		wr := []rune(w)
		for len(wr) > max {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			out = append(out, string(wr[:max]))
			wr = wr[max:]
		}
		if len(wr) == 0 {
			continue
		}
		switch {
		case len(cur) == 0:
			cur = append(cur, wr...)
		case len(cur)+1+len(wr) <= max:
			cur = append(cur, ' ')
			cur = append(cur, wr...)
		default:
			out = append(out, string(cur))
			cur = append([]rune(nil), wr...)
		}
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}
