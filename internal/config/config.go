package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string
	LogLevel    string
	LogFormat   string

	Reasoning   ReasoningConfig
	STT         STTConfig
	TTS         TTSConfig
	AudioStore  AudioStoreConfig
	TutorName   string
	// Temperature and MaxTokens override both personas when positive.
	Temperature float64
	MaxTokens   int
	HistoryMax  int
	Timeout     time.Duration
	SessionTTL  time.Duration
	ReplyRepair bool
	ReplySchema bool
	VoicesFile  string
}

// ReasoningConfig selects and authenticates the reasoning provider.
type ReasoningConfig struct {
	Provider      string // groq, openai, cerebras, gemini
	GroqKey       string
	GroqModel     string
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	CerebrasKey   string
	CerebrasModel string
	GeminiKey     string
	GeminiModel   string
}

// APIKey returns the key of the selected provider.
func (r ReasoningConfig) APIKey() string {
	switch r.Provider {
	case "openai":
		return r.OpenAIKey
	case "cerebras":
		return r.CerebrasKey
	case "gemini":
		return r.GeminiKey
	default:
		return r.GroqKey
	}
}

// KeyEnv names the environment variable holding the selected provider's key.
func (r ReasoningConfig) KeyEnv() string {
	switch r.Provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "cerebras":
		return "CEREBRAS_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return "GROQ_API_KEY"
	}
}

type STTConfig struct {
	Provider         string // deepgram, groq
	DeepgramKey      string
	DeepgramModel    string
	DeepgramLanguage string
	GroqSTTModel     string
}

type TTSConfig struct {
	Provider          string // streaming: elevenlabs, deepgram
	BatchProvider     string // gtts, elevenlabs, deepgram
	ElevenLabsKey     string
	ElevenModelID     string
	ElevenFormat      string
	ElevenLabsVoiceID string
	DeepgramKey       string
	DeepgramModel     string
	Language          string
}

type AudioStoreConfig struct {
	Backend string // local, s3, supabase
	Dir     string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3Prefix    string
	S3AccessKey string
	S3SecretKey string

	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("config: invalid integer, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getFloat(key string) float64 {
	v := getEnv(key, "")
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		slog.Warn("config: invalid number, ignoring", "key", key, "value", v)
		return 0
	}
	return f
}

func getBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config: invalid boolean, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config: invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

// Load reads environment variables (after an optional .env file) and
// returns Config with sane defaults. Missing credentials are only warned
// about; the affected feature degrades at request time.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("config: error loading .env file", "error", err)
	}

	addr := getEnv("HTTP_ADDRESS", "")
	if addr == "" {
		addr = ":" + getEnv("PORT", "8080")
	}

	cfg := Config{
		HTTPAddress: addr,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		Reasoning: ReasoningConfig{
			Provider:      strings.ToLower(getEnv("REASONING_PROVIDER", "groq")),
			GroqKey:       getEnv("GROQ_API_KEY", ""),
			GroqModel:     getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			CerebrasKey:   getEnv("CEREBRAS_API_KEY", ""),
			CerebrasModel: getEnv("CEREBRAS_MODEL_ID", "gpt-oss-120b"),
			GeminiKey:     getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		STT: STTConfig{
			Provider:         strings.ToLower(getEnv("STT_PROVIDER", "deepgram")),
			DeepgramKey:      getEnv("DEEPGRAM_API_KEY", ""),
			DeepgramModel:    getEnv("DEEPGRAM_MODEL", "nova-2"),
			DeepgramLanguage: getEnv("DEEPGRAM_LANGUAGE", "ar"),
			GroqSTTModel:     getEnv("GROQ_STT_MODEL", "whisper-large-v3"),
		},
		TTS: TTSConfig{
			Provider:          strings.ToLower(getEnv("TTS_PROVIDER", "elevenlabs")),
			BatchProvider:     strings.ToLower(getEnv("BATCH_TTS_PROVIDER", "gtts")),
			ElevenLabsKey:     getEnv("ELEVENLABS_API_KEY", ""),
			ElevenModelID:     getEnv("ELEVEN_MODEL_ID", "eleven_multilingual_v2"),
			ElevenFormat:      getEnv("ELEVEN_OUTPUT_FORMAT", "mp3_44100_128"),
			ElevenLabsVoiceID: getEnv("ELEVENLABS_VOICE_ID", DefaultVoices[0].VoiceID),
			DeepgramKey:       getEnv("DEEPGRAM_API_KEY", ""),
			DeepgramModel:     getEnv("DEEPGRAM_TTS_MODEL", "aura-2-thalia-en"),
			Language:          getEnv("TTS_LANGUAGE", "ar"),
		},
		AudioStore: AudioStoreConfig{
			Backend:        strings.ToLower(getEnv("AUDIO_STORE", "local")),
			Dir:            getEnv("AUDIO_DIR", "static/audio"),
			S3Bucket:       getEnv("S3_BUCKET", ""),
			S3Region:       getEnv("S3_REGION", "us-east-1"),
			S3Endpoint:     getEnv("S3_ENDPOINT", ""),
			S3Prefix:       getEnv("S3_PREFIX", "audio"),
			S3AccessKey:    getEnv("AWS_ACCESS_KEY_ID", ""),
			S3SecretKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
			SupabaseURL:    getEnv("SUPABASE_URL", ""),
			SupabaseKey:    getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
			SupabaseBucket: getEnv("SUPABASE_BUCKET", "tutor-audio"),
		},
		TutorName:   getEnv("TUTOR_NAME", "نور"),
		Temperature: getFloat("REASONING_TEMPERATURE"),
		MaxTokens:   getInt("REASONING_MAX_TOKENS", 0),
		HistoryMax:  getInt("HISTORY_MAX", 20),
		Timeout:     getDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		SessionTTL:  getDuration("SESSION_IDLE_TTL", 30*time.Minute),
		ReplyRepair: getBool("REPLY_JSON_REPAIR", false),
		ReplySchema: getBool("REPLY_JSON_SCHEMA", false),
		VoicesFile:  getEnv("VOICES_FILE", ""),
	}

	if cfg.Reasoning.APIKey() == "" {
		slog.Warn("config: " + cfg.Reasoning.KeyEnv() + " not set - tutor replies will not work")
	}
	if cfg.STT.Provider == "groq" && cfg.Reasoning.GroqKey == "" {
		slog.Warn("config: GROQ_API_KEY not set - transcription will not work")
	}
	if cfg.STT.Provider != "groq" && cfg.STT.DeepgramKey == "" {
		slog.Warn("config: DEEPGRAM_API_KEY not set - transcription will not work")
	}
	if cfg.TTS.ElevenLabsKey == "" {
		slog.Warn("config: ELEVENLABS_API_KEY not set - streaming speech will not work")
	}

	slog.Info("config loaded", "http_address", cfg.HTTPAddress, "reasoning", cfg.Reasoning.Provider, "stt", cfg.STT.Provider, "tts", cfg.TTS.Provider, "batch_tts", cfg.TTS.BatchProvider, "audio_store", cfg.AudioStore.Backend)
	return cfg
}
