package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kilofrakh/mostaqlproj1/internal/history"
	"github.com/kilofrakh/mostaqlproj1/internal/llm"
	"github.com/kilofrakh/mostaqlproj1/internal/reply"
)

// MissingKeyMessage is returned as the reply when the reasoning service has
// no credential and no provider-specific message was configured.
const MissingKeyMessage = "⚠️ لم يتم ضبط GROQ_API_KEY على الخادم."

// MissingKeyMessageFor names the environment variable holding the key of
// the selected reasoning provider.
func MissingKeyMessageFor(keyEnv string) string {
	return "⚠️ لم يتم ضبط " + keyEnv + " على الخادم."
}

var (
	// ErrEmptyUtterance rejects a blank learner turn before any work.
	ErrEmptyUtterance = errors.New("tutor: empty utterance")
	// ErrEmptyReply is reported when the reasoning service answers with no text.
	ErrEmptyReply = errors.New("tutor: empty reply from reasoning service")
)

// UpstreamError wraps a failed reasoning call.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return "tutor: reasoning service: " + e.Err.Error() }
func (e *UpstreamError) Unwrap() error { return e.Err }

// Params are the sampling settings of one mode.
type Params struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Config tunes a Responder. Zero values take the defaults below.
type Config struct {
	DefaultName       string
	MissingKeyMessage string
	Conversation      Params
	Correction        Params
	Timeout           time.Duration
	Parser            reply.Parser
	// UseSchema sends the CorrectionResult schema as the response format in
	// correction mode.
	UseSchema bool
}

func (c Config) withDefaults() Config {
	if c.DefaultName == "" {
		c.DefaultName = DefaultName
	}
	if c.MissingKeyMessage == "" {
		c.MissingKeyMessage = MissingKeyMessage
	}
	if c.Conversation == (Params{}) {
		c.Conversation = Params{Temperature: 0.7, TopP: 0.9, MaxTokens: 320}
	}
	if c.Correction == (Params{}) {
		c.Correction = Params{Temperature: 0.4, MaxTokens: 1024}
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// Result is the outcome of one Respond call.
type Result struct {
	// Text is what the assistant says: the free reply, or the follow-up
	// (else corrected sentence) of a correction.
	Text       string
	Correction *reply.CorrectionResult
	// Degraded marks the fixed missing-credential message; the history was
	// left untouched.
	Degraded bool
}

// Responder produces the tutor's reply to one learner utterance and keeps
// the session history in step.
type Responder struct {
	LLM    llm.LLM
	Logger *slog.Logger
	cfg    Config
}

func NewResponder(model llm.LLM, cfg Config, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{LLM: model, Logger: logger, cfg: cfg.withDefaults()}
}

type infoer interface{ Info() llm.Info }

// Configured reports whether the reasoning service has a credential.
func (r *Responder) Configured() bool {
	if r.LLM == nil {
		return false
	}
	if i, ok := r.LLM.(infoer); ok {
		return i.Info().Configured
	}
	return true
}

// Respond appends the utterance to h, makes one reasoning call and appends
// the assistant text. When the call fails the user turn stays recorded.
func (r *Responder) Respond(ctx context.Context, h *history.Store, utterance, name string, mode Mode) (Result, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return Result{}, ErrEmptyUtterance
	}
	if strings.TrimSpace(name) == "" {
		name = r.cfg.DefaultName
	}
	if !r.Configured() {
		return Result{Text: r.cfg.MissingKeyMessage, Degraded: true}, nil
	}

	// The prompt sees the bounded history as it will be once the user turn
	// is recorded; the turn itself is recorded only once a call was made.
	user := history.Turn{Role: history.RoleUser, Content: utterance}
	turns := append(h.Snapshot(), user)
	if limit := h.Max(); limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	req := r.request(turns, name, mode)

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	start := time.Now()
	raw, err := r.LLM.Generate(callCtx, req)
	cancel()
	if errors.Is(err, llm.ErrNotConfigured) {
		return Result{Text: r.cfg.MissingKeyMessage, Degraded: true}, nil
	}
	h.Append(user)
	if err != nil {
		return Result{}, &UpstreamError{Err: err}
	}
	r.Logger.DebugContext(ctx, "reasoning call done", "mode", mode.String(), "elapsed", time.Since(start), "turns", len(req.Messages))

	var res Result
	switch mode {
	case ModeCorrection:
		cr, err := r.cfg.Parser.Parse(raw)
		if err != nil {
			return Result{}, fmt.Errorf("tutor: %w", err)
		}
		res = Result{Text: cr.ReplyText(), Correction: &cr}
	default:
		text := strings.TrimSpace(raw)
		if text == "" {
			return Result{}, &UpstreamError{Err: ErrEmptyReply}
		}
		res = Result{Text: text}
	}
	if res.Text != "" {
		h.Append(history.Turn{Role: history.RoleAssistant, Content: res.Text})
	}
	return res, nil
}

func (r *Responder) request(turns []history.Turn, name string, mode Mode) llm.Request {
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := llm.RoleUser
		if t.Role == history.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Content})
	}
	p := r.cfg.Conversation
	req := llm.Request{System: SystemPrompt(mode, name), Messages: msgs}
	if mode == ModeCorrection {
		p = r.cfg.Correction
		req.JSON = true
		if r.cfg.UseSchema {
			if s, err := reply.Schema(); err == nil {
				req.Schema = s
			} else {
				r.Logger.Warn("correction schema unavailable", "error", err)
			}
		}
	}
	req.Temperature, req.TopP, req.MaxTokens = p.Temperature, p.TopP, p.MaxTokens
	return req
}
