// Package app assembles providers, storage and the turn pipeline from
// configuration. Both the HTTP server and the CLI start from New.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kilofrakh/mostaqlproj1/internal/config"
	"github.com/kilofrakh/mostaqlproj1/internal/llm"
	"github.com/kilofrakh/mostaqlproj1/internal/reply"
	"github.com/kilofrakh/mostaqlproj1/internal/session"
	"github.com/kilofrakh/mostaqlproj1/internal/storage"
	"github.com/kilofrakh/mostaqlproj1/internal/transcript"
	"github.com/kilofrakh/mostaqlproj1/internal/tts"
	"github.com/kilofrakh/mostaqlproj1/internal/turn"
	"github.com/kilofrakh/mostaqlproj1/internal/tutor"
)

// ReasoningModel is a reasoning client that can describe itself.
type ReasoningModel interface {
	llm.LLM
	Info() llm.Info
}

// SpeechModel is a transcriber that can describe itself.
type SpeechModel interface {
	transcript.Transcriber
	Info() transcript.Info
}

// Voice is a synthesis provider that can describe itself.
type Voice interface {
	tts.Streamer
	Info() tts.Info
}

// App holds the wired components of one process.
type App struct {
	Config config.Config
	Voices []config.Voice
	Logger *slog.Logger

	Reasoning ReasoningModel
	STT       SpeechModel
	// Streaming serves the duplex /tts channel; Batch renders stored replies.
	Streaming Voice
	Batch     Voice

	Store        storage.Store
	Artifacts    storage.Artifacts
	Sessions     *session.Registry
	Responder    *tutor.Responder
	Orchestrator *turn.Orchestrator
}

// New wires every component. Missing credentials do not fail New; the
// affected provider reports itself unconfigured and degrades per request.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	voices, err := config.LoadVoices(cfg.VoicesFile)
	if err != nil {
		return nil, err
	}
	reasoning, err := NewReasoning(ctx, cfg.Reasoning)
	if err != nil {
		return nil, err
	}
	stt := NewSTT(cfg)
	streaming, err := NewVoice(cfg.TTS, cfg.TTS.Provider, logger)
	if err != nil {
		return nil, err
	}
	batch, err := NewVoice(cfg.TTS, cfg.TTS.BatchProvider, logger)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(cfg.AudioStore)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Voices:    voices,
		Logger:    logger,
		Reasoning: reasoning,
		STT:       stt,
		Streaming: streaming,
		Batch:     batch,
		Store:     store,
		Artifacts: storage.Artifacts{Store: store, URLPrefix: storage.DefaultURLPrefix},
		Sessions:  session.NewRegistry(cfg.HistoryMax, cfg.SessionTTL),
	}
	a.Responder = tutor.NewResponder(reasoning, tutor.Config{
		DefaultName:       cfg.TutorName,
		MissingKeyMessage: tutor.MissingKeyMessageFor(cfg.Reasoning.KeyEnv()),
		Conversation:      overrideParams(tutor.Params{Temperature: 0.7, TopP: 0.9, MaxTokens: 320}, cfg),
		Correction:        overrideParams(tutor.Params{Temperature: 0.4, MaxTokens: 1024}, cfg),
		Timeout:           cfg.Timeout,
		Parser:            reply.Parser{Repair: cfg.ReplyRepair},
		UseSchema:         cfg.ReplySchema,
	}, logger.With("component", "tutor"))
	a.Orchestrator = &turn.Orchestrator{
		Transcriber: transcript.Adapter{T: stt, Logger: logger.With("component", "stt")},
		Responder:   a.Responder,
		Synth: &tts.Synthesizer{
			Streamer:  batch,
			Artifacts: a.Artifacts,
			Defaults:  tts.Options{VoiceID: cfg.TTS.ElevenLabsVoiceID, Language: cfg.TTS.Language},
		},
		Sessions:   a.Sessions,
		HistoryMax: cfg.HistoryMax,
		Timeout:    cfg.Timeout,
		Logger:     logger.With("component", "turn"),
	}

	logger.Info("pipeline ready",
		"reasoning", reasoning.Info().Provider, "model", reasoning.Info().Model,
		"stt", stt.Info().Provider, "tts", streaming.Info().Provider, "batch_tts", batch.Info().Provider,
		"audio_store", cfg.AudioStore.Backend, "voices", len(voices))
	return a, nil
}

func overrideParams(p tutor.Params, cfg config.Config) tutor.Params {
	if cfg.Temperature > 0 {
		p.Temperature = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		p.MaxTokens = cfg.MaxTokens
	}
	return p
}

// NewReasoning selects the reasoning client named by cfg.Provider.
func NewReasoning(ctx context.Context, cfg config.ReasoningConfig) (ReasoningModel, error) {
	switch cfg.Provider {
	case "", "groq":
		return llm.NewOpenAIClient("groq", cfg.GroqKey, cfg.GroqModel, llm.GroqBaseURL, nil), nil
	case "openai":
		base := cfg.OpenAIBaseURL
		if base == "" {
			base = llm.OpenAIBaseURL
		}
		return llm.NewOpenAIClient("openai", cfg.OpenAIKey, cfg.OpenAIModel, base, nil), nil
	case "cerebras":
		return llm.NewOpenAIClient("cerebras", cfg.CerebrasKey, cfg.CerebrasModel, llm.CerebrasBaseURL, nil), nil
	case "gemini":
		g, err := llm.NewGeminiClient(ctx, cfg.GeminiKey, cfg.GeminiModel, "", nil)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("app: unknown REASONING_PROVIDER %q", cfg.Provider)
}

// NewSTT selects Deepgram unless STT_PROVIDER is groq.
func NewSTT(cfg config.Config) SpeechModel {
	if cfg.STT.Provider == "groq" {
		return transcript.NewWhisperClient("groq", cfg.Reasoning.GroqKey, cfg.STT.GroqSTTModel, cfg.STT.DeepgramLanguage, llm.GroqBaseURL, nil)
	}
	return transcript.NewDeepgramClient(cfg.STT.DeepgramKey, cfg.STT.DeepgramModel, cfg.STT.DeepgramLanguage)
}

// NewVoice builds the synthesis provider named by provider.
func NewVoice(cfg config.TTSConfig, provider string, logger *slog.Logger) (Voice, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch provider {
	case "", "elevenlabs":
		e := tts.NewElevenLabsClient(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID, cfg.ElevenModelID, cfg.ElevenFormat)
		e.Logger = logger.With("component", "elevenlabs")
		return e, nil
	case "deepgram":
		return tts.NewDeepgramClient(cfg.DeepgramKey, cfg.DeepgramModel, logger.With("component", "deepgram")), nil
	case "gtts", "google":
		return tts.NewGoogleClient(cfg.Language), nil
	}
	return nil, fmt.Errorf("app: unknown speech provider %q", provider)
}

// NewStore opens the artifact backend named by cfg.Backend.
func NewStore(cfg config.AudioStoreConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "", "local":
		l, err := storage.NewLocal(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return l, nil
	case "s3":
		s, err := storage.NewS3FromConfig(storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "supabase":
		sb, err := storage.NewSupabaseFromConfig(storage.SupabaseConfig{
			URL:            cfg.SupabaseURL,
			ServiceRoleKey: cfg.SupabaseKey,
			Bucket:         cfg.SupabaseBucket,
		})
		if err != nil {
			return nil, err
		}
		return sb, nil
	}
	return nil, fmt.Errorf("app: unknown AUDIO_STORE %q", cfg.Backend)
}
