package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/kilofrakh/mostaqlproj1/internal/app"
	"github.com/kilofrakh/mostaqlproj1/internal/ttsstream"
)

// New constructs the HTTP server with every route wired to a.
func New(a *app.App) *echo.Echo {
	e := NewRouter(a.Logger, DefaultBodyLimit)
	Handlers{
		Turns:     a.Orchestrator,
		Artifacts: a.Artifacts,
		Voices:    a.Voices,
		Health: func() Health {
			return Health{
				OK:        true,
				Reasoning: a.Reasoning.Info(),
				STT:       a.STT.Info(),
				TTS:       a.Streaming.Info(),
				BatchTTS:  a.Batch.Info(),
			}
		},
		Speech: &ttsstream.Handler{
			Streamer:      a.Streaming,
			Provider:      a.Streaming.Info().Provider,
			Configured:    func() bool { return a.Streaming.Info().Configured },
			NotConfigured: notConfigured(a.Streaming.Info().Provider),
			Language:      a.Config.TTS.Language,
			Timeout:       a.Config.Timeout,
			Logger:        a.Logger.With("component", "ttsstream"),
		},
		Logger: a.Logger.With("component", "http"),
	}.Register(e)
	return e
}

func notConfigured(provider string) string {
	switch provider {
	case "deepgram":
		return "DEEPGRAM_API_KEY not set"
	default:
		return "ELEVENLABS_API_KEY not set"
	}
}
