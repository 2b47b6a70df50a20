package transcript

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
)

// Transcriber converts one recorded utterance to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
}

// Audio is one uploaded recording.
type Audio struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Info describes a configured transcriber for health reporting.
type Info struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Language   string `json:"language"`
	Configured bool   `json:"configured"`
}

var extContentTypes = map[string]string{
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
}

// ContentType returns declared when set, otherwise a type inferred from the
// filename extension. Unknown extensions map to application/octet-stream.
func ContentType(declared, filename string) string {
	if ct := strings.TrimSpace(declared); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct, ok := extContentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Adapter enforces the transcription contract on top of a Transcriber:
// empty input never reaches the service, and every failure collapses to ""
// after being logged.
type Adapter struct {
	T      Transcriber
	Logger *slog.Logger
}

// Transcribe returns the trimmed transcript, or "" on silence or failure.
func (a Adapter) Transcribe(ctx context.Context, audio Audio) string {
	if len(audio.Data) == 0 || a.T == nil {
		return ""
	}
	audio.ContentType = ContentType(audio.ContentType, audio.Filename)
	text, err := a.T.Transcribe(ctx, audio)
	if err != nil {
		a.logger().WarnContext(ctx, "transcription failed", "error", err, "bytes", len(audio.Data), "content_type", audio.ContentType)
		return ""
	}
	return strings.TrimSpace(text)
}

func (a Adapter) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
