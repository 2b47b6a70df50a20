package httpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kilofrakh/mostaqlproj1/internal/config"
	"github.com/kilofrakh/mostaqlproj1/internal/history"
	"github.com/kilofrakh/mostaqlproj1/internal/llm"
	"github.com/kilofrakh/mostaqlproj1/internal/storage"
	"github.com/kilofrakh/mostaqlproj1/internal/transcript"
	"github.com/kilofrakh/mostaqlproj1/internal/tts"
	"github.com/kilofrakh/mostaqlproj1/internal/turn"
)

const (
	headerSessionID = "X-Session-ID"
	msgBadRequest   = "طلب غير صالح."
)

// Health is the body of GET /health.
type Health struct {
	OK        bool            `json:"ok"`
	Reasoning llm.Info        `json:"reasoning"`
	STT       transcript.Info `json:"stt"`
	TTS       tts.Info        `json:"tts"`
	BatchTTS  tts.Info        `json:"batch_tts"`
}

// Handlers serves the tutor's HTTP surface.
type Handlers struct {
	Turns     *turn.Orchestrator
	Artifacts storage.Artifacts
	Voices    []config.Voice
	Health    func() Health
	// Speech serves the duplex /tts channel.
	Speech http.Handler
	Logger *slog.Logger
}

func (h Handlers) Register(e *echo.Echo) {
	e.GET("/health", h.health)
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/voices", h.voices)
	e.POST("/api/process", h.process)
	e.POST("/stt", h.stt)
	e.POST("/chat", h.chat)
	e.GET(storage.DefaultURLPrefix+"/:name", h.artifact)
	if h.Speech != nil {
		e.GET("/tts", echo.WrapHandler(h.Speech))
	}
}

func (h Handlers) health(c echo.Context) error {
	body := Health{OK: true}
	if h.Health != nil {
		body = h.Health()
	}
	return c.JSON(http.StatusOK, body)
}

func (h Handlers) voices(c echo.Context) error {
	v := h.Voices
	if v == nil {
		v = config.DefaultVoices
	}
	return c.JSON(http.StatusOK, v)
}

func (h Handlers) process(c echo.Context) error {
	audio, ok, err := readAudio(c)
	if err != nil {
		return err
	}
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody{Error: turn.MsgNoAudio})
	}
	sessionID := c.FormValue("session_id")
	if sessionID == "" {
		sessionID = c.Request().Header.Get(headerSessionID)
	}
	res, err := h.Turns.ProcessAudio(c.Request().Context(), turn.AudioTurn{
		SessionID: strings.TrimSpace(sessionID),
		TutorName: strings.TrimSpace(c.FormValue("tutor_name")),
		Audio:     audio,
	})
	if err != nil {
		return h.fail(c, err)
	}
	if res.SessionID != "" {
		c.Response().Header().Set(headerSessionID, res.SessionID)
	}
	return c.JSON(http.StatusOK, res)
}

// stt never fails the request: a missing or unintelligible recording is "".
func (h Handlers) stt(c echo.Context) error {
	audio, ok, err := readAudio(c)
	if err != nil || !ok {
		if err != nil {
			h.logger().Warn("stt: read upload", "error", err)
		}
		return c.JSON(http.StatusOK, map[string]string{"text": ""})
	}
	text := h.Turns.Transcribe(c.Request().Context(), audio)
	return c.JSON(http.StatusOK, map[string]string{"text": text})
}

type chatRequest struct {
	History   []history.Turn `json:"history"`
	UserText  string         `json:"user_text"`
	TutorName string         `json:"tutor_name"`
	SessionID string         `json:"session_id"`
}

func (h Handlers) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: msgBadRequest})
	}
	if req.SessionID == "" {
		req.SessionID = c.Request().Header.Get(headerSessionID)
	}
	res, err := h.Turns.Chat(c.Request().Context(), turn.ChatTurn{
		SessionID: strings.TrimSpace(req.SessionID),
		History:   req.History,
		UserText:  req.UserText,
		TutorName: strings.TrimSpace(req.TutorName),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h Handlers) artifact(c echo.Context) error {
	name := c.Param("name")
	rc, err := h.Artifacts.Open(c.Request().Context(), name)
	if errors.Is(err, os.ErrNotExist) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=86400")
	return c.Stream(http.StatusOK, storage.ContentTypeFor(name), rc)
}

// fail renders a turn failure with the status of its kind.
func (h Handlers) fail(c echo.Context, err error) error {
	kind := turn.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
		h.logger().Error("turn failed", "path", c.Path(), "kind", kind.String(), "error", err)
	}
	return c.JSON(status, errorBody{Error: turn.Message(err)})
}

// readAudio loads the "audio" multipart field. ok is false when the field
// is absent.
func readAudio(c echo.Context) (transcript.Audio, bool, error) {
	fh, err := c.FormFile("audio")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return transcript.Audio{}, false, nil
	}
	if err != nil {
		return transcript.Audio{}, false, err
	}
	data, err := readFileHeader(fh)
	if err != nil {
		return transcript.Audio{}, false, err
	}
	return transcript.Audio{
		Data:        data,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Filename:    fh.Filename,
	}, true, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

func (h Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
