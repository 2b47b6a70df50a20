// Package turn runs one learner turn end to end: transcription, the tutor's
// reply, speech synthesis, and delivery of the result.
package turn

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kilofrakh/mostaqlproj1/internal/history"
	"github.com/kilofrakh/mostaqlproj1/internal/session"
	"github.com/kilofrakh/mostaqlproj1/internal/transcript"
	"github.com/kilofrakh/mostaqlproj1/internal/tts"
	"github.com/kilofrakh/mostaqlproj1/internal/tutor"
)

// Stage is a state of the per-turn state machine.
type Stage string

const (
	StageReceived    Stage = "received"
	StageTranscribed Stage = "transcribed"
	StageReplied     Stage = "replied"
	StageSynthesized Stage = "synthesized"
	StageDelivered   Stage = "delivered"
	StageErrored     Stage = "errored"
)

// Orchestrator composes the pipeline stages. Sessions may be nil, in which
// case every turn runs on a throwaway session.
type Orchestrator struct {
	Transcriber transcript.Adapter
	Responder   *tutor.Responder
	Synth       *tts.Synthesizer
	Sessions    *session.Registry
	HistoryMax  int
	// Timeout bounds the transcription and synthesis calls.
	Timeout time.Duration
	Logger  *slog.Logger
}

// AudioTurn is one recorded utterance submitted for correction.
type AudioTurn struct {
	SessionID string
	TutorName string
	Audio     transcript.Audio
}

// CorrectionReply is the delivered result of an AudioTurn.
type CorrectionReply struct {
	Original    string `json:"original"`
	Corrected   string `json:"corrected"`
	HasErrors   bool   `json:"has_errors"`
	Explanation string `json:"explanation"`
	Improved    string `json:"improved"`
	Followup    string `json:"followup"`
	AudioURL    string `json:"audio_url"`
	SessionID   string `json:"session_id,omitempty"`
}

// ChatTurn is one typed (or already transcribed) utterance in free
// conversation. Without SessionID, History seeds a throwaway session.
type ChatTurn struct {
	SessionID string
	History   []history.Turn
	UserText  string
	TutorName string
}

type ChatReply struct {
	Reply     string         `json:"reply"`
	History   []history.Turn `json:"history"`
	SessionID string         `json:"session_id,omitempty"`
}

// tracker walks one turn through the stage machine and logs transitions.
type tracker struct {
	log   *slog.Logger
	ctx   context.Context
	stage Stage
	start time.Time
}

func (o *Orchestrator) track(ctx context.Context, kind, sessionID string) *tracker {
	l := o.logger().With("turn", uuid.NewString(), "kind", kind, "session", sessionID)
	t := &tracker{log: l, ctx: ctx, stage: StageReceived, start: time.Now()}
	l.DebugContext(ctx, "turn received")
	return t
}

func (t *tracker) advance(s Stage) {
	t.stage = s
	t.log.DebugContext(t.ctx, "turn advanced", "stage", s, "elapsed", time.Since(t.start))
}

func (t *tracker) fail(err *Error) error {
	err.Stage = t.stage
	t.log.WarnContext(t.ctx, "turn errored", "stage", t.stage, "kind", err.Kind.String(), "error", err.Err)
	t.stage = StageErrored
	return err
}

func (t *tracker) done() {
	t.stage = StageDelivered
	t.log.InfoContext(t.ctx, "turn delivered", "elapsed", time.Since(t.start))
}

// ProcessAudio runs the correction pipeline on one recording.
func (o *Orchestrator) ProcessAudio(ctx context.Context, in AudioTurn) (CorrectionReply, error) {
	if len(in.Audio.Data) == 0 {
		t := o.track(ctx, "audio", in.SessionID)
		return CorrectionReply{}, t.fail(&Error{Kind: KindValidation, Msg: MsgEmptyAudio, Err: errors.New("empty audio")})
	}
	s := o.session(in.SessionID, nil, true)
	t := o.track(ctx, "audio", s.ID)
	end := s.BeginTurn()
	defer end()
	// A session created for this turn is only handed out on success.
	delivered := false
	if in.SessionID == "" && o.Sessions != nil {
		defer func() {
			if !delivered {
				o.Sessions.Remove(s.ID)
			}
		}()
	}

	text := o.transcribe(ctx, in.Audio)
	if text == "" {
		return CorrectionReply{}, t.fail(&Error{Kind: KindNoSpeech, Msg: MsgNoSpeech})
	}
	t.advance(StageTranscribed)

	res, err := o.Responder.Respond(ctx, s.History, text, in.TutorName, tutor.ModeCorrection)
	if err != nil {
		return CorrectionReply{}, t.fail(replyError(err))
	}
	if res.Degraded {
		return CorrectionReply{}, t.fail(&Error{Kind: KindConfiguration, Msg: res.Text, Err: errors.New("reasoning service not configured")})
	}
	t.advance(StageReplied)

	c := res.Correction
	out := CorrectionReply{
		Original:    orDefault(c.Original, text),
		Corrected:   orDefault(c.Corrected, text),
		HasErrors:   c.HasErrors,
		Explanation: c.Explanation,
		Improved:    c.Improved,
		Followup:    c.Followup,
	}
	if o.Sessions != nil {
		out.SessionID = s.ID
	}

	if res.Text != "" && o.Synth != nil {
		sctx, cancel := o.withTimeout(ctx)
		art, err := o.Synth.Render(sctx, res.Text, tts.Options{})
		cancel()
		if err != nil {
			if errors.Is(err, tts.ErrNotConfigured) {
				return CorrectionReply{}, t.fail(&Error{Kind: KindConfiguration, Msg: MsgSpeechSetup, Err: err})
			}
			return CorrectionReply{}, t.fail(&Error{Kind: KindUpstream, Msg: MsgSpeech, Err: err})
		}
		out.AudioURL = art.URL
		t.advance(StageSynthesized)
	}
	t.done()
	delivered = true
	return out, nil
}

// Transcribe runs only the transcription stage. It never fails: silence
// and service errors both yield "".
func (o *Orchestrator) Transcribe(ctx context.Context, audio transcript.Audio) string {
	return o.transcribe(ctx, audio)
}

// Chat runs the free-conversation pipeline on text. An empty utterance
// gets a fixed prompt to repeat and leaves the history untouched; a missing
// reasoning credential yields the fixed degraded reply.
func (o *Orchestrator) Chat(ctx context.Context, in ChatTurn) (ChatReply, error) {
	userText := strings.TrimSpace(in.UserText)
	if userText == "" {
		h := in.History
		if h == nil {
			h = []history.Turn{}
		}
		return ChatReply{Reply: MsgDidNotHear, History: h, SessionID: in.SessionID}, nil
	}

	s := o.session(in.SessionID, in.History, false)
	t := o.track(ctx, "chat", s.ID)
	end := s.BeginTurn()
	defer end()

	res, err := o.Responder.Respond(ctx, s.History, userText, in.TutorName, tutor.ModeConversation)
	if err != nil {
		return ChatReply{}, t.fail(replyError(err))
	}
	t.advance(StageReplied)
	t.done()

	out := ChatReply{Reply: res.Text, History: s.History.Snapshot()}
	if o.Sessions != nil && in.SessionID != "" {
		out.SessionID = s.ID
	}
	return out, nil
}

// session returns the registry session for id; keep creates one under a
// fresh key when id is empty. Otherwise the turn runs on a throwaway session
// seeded from seed.
func (o *Orchestrator) session(id string, seed []history.Turn, keep bool) *session.Session {
	if o.Sessions != nil && (id != "" || keep) {
		return o.Sessions.Get(id)
	}
	return session.Ephemeral(o.HistoryMax, seed)
}

func (o *Orchestrator) transcribe(ctx context.Context, audio transcript.Audio) string {
	tctx, cancel := o.withTimeout(ctx)
	defer cancel()
	return o.Transcriber.Transcribe(tctx, audio)
}

func (o *Orchestrator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.Timeout)
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
