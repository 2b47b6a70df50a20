// Package ttsstream serves the duplex speech channel: clients send
// {text, voice_id} text frames and receive the synthesized audio as binary
// frames, each utterance terminated by {"event":"end"} or {"error": ...}.
package ttsstream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kilofrakh/mostaqlproj1/internal/tts"
)

const (
	defaultQueue = 8
	writeWait    = 10 * time.Second
	maxMessage   = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 65536,
	CheckOrigin: func(r *http.Request) bool {
		// The browser client is served from any origin in development.
		return true
	},
}

// Request is one inbound utterance.
type Request struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

// Event is a control frame sent to the peer.
type Event struct {
	Event string `json:"event,omitempty"`
	Error string `json:"error,omitempty"`
}

// Handler upgrades GET /tts and relays synthesis per request.
type Handler struct {
	Streamer tts.Streamer
	// Provider prefixes synthesis failures, e.g. "elevenlabs: ...".
	Provider string
	// Configured reports whether the streamer has a credential. Nil means yes.
	Configured func() bool
	// NotConfigured is sent once before closing when Configured is false.
	NotConfigured string
	Language      string
	// Timeout bounds a single utterance. Zero means no bound beyond the peer.
	Timeout time.Duration
	Queue   int
	Logger  *slog.Logger
}

type inbound struct {
	req Request
	bad bool
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger().Warn("tts ws upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	log := h.logger().With("remote", r.RemoteAddr)
	if h.Configured != nil && !h.Configured() {
		_ = writeJSON(conn, Event{Error: h.NotConfigured})
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		return
	}
	conn.SetReadLimit(maxMessage)

	// ctx ends when the peer goes away; in-flight synthesis is abandoned.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	size := h.Queue
	if size <= 0 {
		size = defaultQueue
	}
	queue := make(chan inbound, size)
	go func() {
		defer cancel()
		defer close(queue)
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
					log.Debug("tts ws read ended", "error", err)
				}
				return
			}
			in := inbound{}
			if mt != websocket.TextMessage || json.Unmarshal(data, &in.req) != nil {
				in.bad = true
			}
			select {
			case queue <- in:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Utterances are served one at a time so their chunks never interleave.
	for in := range queue {
		if ctx.Err() != nil {
			return
		}
		if err := h.serve(ctx, conn, in, log); err != nil {
			log.Debug("tts ws write failed", "error", err)
			return
		}
	}
}

// serve handles one inbound message. A returned error means the peer can no
// longer be written to.
func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, in inbound, log *slog.Logger) error {
	if in.bad {
		return writeJSON(conn, Event{Error: "invalid message"})
	}
	text := strings.TrimSpace(in.req.Text)
	voice := strings.TrimSpace(in.req.VoiceID)
	if text == "" || voice == "" {
		return writeJSON(conn, Event{Error: "missing text/voice_id"})
	}

	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	start := time.Now()
	var chunks, bytes int
	var writeErr error
	err := tts.Pump(ctx, h.Streamer, text, tts.Options{VoiceID: voice, Language: h.Language}, func(b []byte) error {
		if writeErr = writeBinary(conn, b); writeErr != nil {
			return writeErr
		}
		chunks++
		bytes += len(b)
		return nil
	})
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		log.Warn("tts ws synthesis failed", "voice_id", voice, "error", err)
		return writeJSON(conn, Event{Error: h.Provider + ": " + err.Error()})
	}
	log.Info("tts ws utterance delivered", "voice_id", voice, "chunks", chunks, "bytes", bytes, "elapsed", time.Since(start))
	return writeJSON(conn, Event{Event: "end"})
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

func writeBinary(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.BinaryMessage, b)
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
