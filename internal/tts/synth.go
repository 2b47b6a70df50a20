package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilofrakh/mostaqlproj1/internal/storage"
)

// ErrEmptyText is returned by Render when there is nothing to speak.
var ErrEmptyText = errors.New("tts: empty text")

const defaultSampleRate = 24000

type sampleRater interface{ SampleRate() int }

// Synthesizer renders complete replies into stored artifacts.
type Synthesizer struct {
	Streamer  Streamer
	Artifacts storage.Artifacts
	Defaults  Options
}

// Render synthesizes text fully and persists it under a fresh name. PCM
// output is stored as WAV.
func (s *Synthesizer) Render(ctx context.Context, text string, opts Options) (storage.Artifact, error) {
	if text == "" {
		return storage.Artifact{}, ErrEmptyText
	}
	if opts.VoiceID == "" {
		opts.VoiceID = s.Defaults.VoiceID
	}
	if opts.Language == "" {
		opts.Language = s.Defaults.Language
	}
	audio, err := Collect(ctx, s.Streamer, text, opts)
	if err != nil {
		return storage.Artifact{}, err
	}
	if len(audio) == 0 {
		return storage.Artifact{}, fmt.Errorf("tts: provider returned no audio")
	}
	ext := "mp3"
	if s.Streamer.Format() == FormatPCM16 {
		rate := defaultSampleRate
		if sr, ok := s.Streamer.(sampleRater); ok {
			rate = sr.SampleRate()
		}
		audio = WAV(audio, rate)
		ext = "wav"
	}
	art, err := s.Artifacts.Save(ctx, audio, ext)
	if err != nil {
		return storage.Artifact{}, fmt.Errorf("tts: store artifact: %w", err)
	}
	return art, nil
}
