package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/kilofrakh/mostaqlproj1/internal/history"
	"github.com/kilofrakh/mostaqlproj1/internal/llm"
	"github.com/kilofrakh/mostaqlproj1/internal/reply"
)

type fakeLLM struct {
	mu         sync.Mutex
	replies    []string
	err        error
	configured bool
	requests   []llm.Request
}

func (f *fakeLLM) Info() llm.Info { return llm.Info{Provider: "fake", Configured: f.configured} }

func (f *fakeLLM) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func TestRespond_Conversation(t *testing.T) {
	f := &fakeLLM{configured: true, replies: []string{"  أهلاً بك! ما اسمك؟ "}}
	r := NewResponder(f, Config{}, nil)
	h := history.New(20)
	res, err := r.Respond(context.Background(), h, "  مرحبا  ", "سارة", ModeConversation)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if res.Text != "أهلاً بك! ما اسمك؟" || res.Correction != nil || res.Degraded {
		t.Fatalf("unexpected result %+v", res)
	}
	turns := h.Snapshot()
	if len(turns) != 2 || turns[0] != (history.Turn{Role: history.RoleUser, Content: "مرحبا"}) || turns[1].Role != history.RoleAssistant {
		t.Fatalf("unexpected history %+v", turns)
	}
	req := f.requests[0]
	if !strings.Contains(req.System, `"سارة"`) {
		t.Fatalf("persona name missing from system prompt")
	}
	if req.Temperature != 0.7 || req.TopP != 0.9 || req.MaxTokens != 320 || req.JSON {
		t.Fatalf("unexpected conversation params %+v", req)
	}
}

func TestRespond_DefaultName(t *testing.T) {
	f := &fakeLLM{configured: true, replies: []string{"ok"}}
	r := NewResponder(f, Config{}, nil)
	if _, err := r.Respond(context.Background(), history.New(20), "x", "  ", ModeConversation); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.requests[0].System, `"نور"`) {
		t.Fatalf("expected default persona name")
	}
}

func TestRespond_CorrectionCorrectSentence(t *testing.T) {
	raw := `{"original":"هذا كتاب جميل جدا","corrected":"هذا كتاب جميل جدا","has_errors":false,"explanation":"أحسنت!","improved":"هذا كتابٌ رائعٌ حقاً","followup":"ما عنوان هذا الكتاب؟"}`
	f := &fakeLLM{configured: true, replies: []string{raw}}
	r := NewResponder(f, Config{}, nil)
	h := history.New(20)
	res, err := r.Respond(context.Background(), h, "هذا كتاب جميل جدا", "", ModeCorrection)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	c := res.Correction
	if c == nil || c.HasErrors || c.Corrected != c.Original || c.Followup == "" {
		t.Fatalf("unexpected correction %+v", c)
	}
	if res.Text != "ما عنوان هذا الكتاب؟" {
		t.Fatalf("assistant text should be the follow-up, got %q", res.Text)
	}
	if got := h.Snapshot(); len(got) != 2 || got[1].Content != res.Text {
		t.Fatalf("unexpected history %+v", got)
	}
	req := f.requests[0]
	if !req.JSON || req.Temperature != 0.4 || req.MaxTokens != 1024 {
		t.Fatalf("unexpected correction params %+v", req)
	}
}

func TestRespond_CorrectionWrappedInProse(t *testing.T) {
	f := &fakeLLM{configured: true, replies: []string{`Sure! {"original":"x","corrected":"x"}`}}
	r := NewResponder(f, Config{}, nil)
	res, err := r.Respond(context.Background(), history.New(20), "x", "", ModeCorrection)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	want := reply.CorrectionResult{Original: "x", Corrected: "x"}
	if *res.Correction != want {
		t.Fatalf("got %+v want %+v", *res.Correction, want)
	}
	if res.Text != "x" {
		t.Fatalf("assistant text should fall back to corrected, got %q", res.Text)
	}
}

func TestRespond_ParseErrorKeepsUserTurn(t *testing.T) {
	f := &fakeLLM{configured: true, replies: []string{"no json here"}}
	r := NewResponder(f, Config{}, nil)
	h := history.New(20)
	_, err := r.Respond(context.Background(), h, "جملة", "", ModeCorrection)
	if !errors.Is(err, reply.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if got := h.Snapshot(); len(got) != 1 || got[0].Role != history.RoleUser {
		t.Fatalf("expected only the user turn, got %+v", got)
	}
}

func TestRespond_UpstreamFailureKeepsUserTurn(t *testing.T) {
	f := &fakeLLM{configured: true, err: errors.New("503 from provider")}
	r := NewResponder(f, Config{}, nil)
	h := history.New(20)
	_, err := r.Respond(context.Background(), h, "مرحبا", "", ModeConversation)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if h.Len() != 1 {
		t.Fatalf("user turn should stay recorded, len=%d", h.Len())
	}
	if len(f.requests) != 1 {
		t.Fatalf("expected exactly one call, got %d", len(f.requests))
	}
}

func TestRespond_EmptyReplyIsUpstream(t *testing.T) {
	f := &fakeLLM{configured: true, replies: []string{"   "}}
	r := NewResponder(f, Config{}, nil)
	_, err := r.Respond(context.Background(), history.New(20), "x", "", ModeConversation)
	if !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("expected ErrEmptyReply, got %v", err)
	}
}

func TestRespond_NotConfiguredDegrades(t *testing.T) {
	f := &fakeLLM{configured: false}
	r := NewResponder(f, Config{}, nil)
	h := history.New(20)
	res, err := r.Respond(context.Background(), h, "مرحبا", "", ModeConversation)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !res.Degraded || res.Text != MissingKeyMessage {
		t.Fatalf("unexpected result %+v", res)
	}
	if h.Len() != 0 || len(f.requests) != 0 {
		t.Fatalf("expected no history change and no call")
	}
}

// bareLLM has no Info, so configuration is only discovered by calling it.
type bareLLM struct{ calls int }

func (b *bareLLM) Generate(context.Context, llm.Request) (string, error) {
	b.calls++
	return "", fmt.Errorf("openai: %w", llm.ErrNotConfigured)
}

func TestRespond_NotConfiguredOnCallLeavesHistory(t *testing.T) {
	b := &bareLLM{}
	r := NewResponder(b, Config{MissingKeyMessage: MissingKeyMessageFor("OPENAI_API_KEY")}, nil)
	h := history.Seed(20, []history.Turn{{Role: history.RoleUser, Content: "مرحبا"}, {Role: history.RoleAssistant, Content: "أهلاً"}})
	res, err := r.Respond(context.Background(), h, "كيف حالك؟", "", ModeConversation)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !res.Degraded || !strings.Contains(res.Text, "OPENAI_API_KEY") {
		t.Fatalf("unexpected result %+v", res)
	}
	if b.calls != 1 || h.Len() != 2 {
		t.Fatalf("expected one call and unchanged history, got calls=%d len=%d", b.calls, h.Len())
	}
}

func TestRespond_PromptIncludesPendingTurnAtCapacity(t *testing.T) {
	f := &fakeLLM{configured: true, replies: []string{"حسناً"}}
	r := NewResponder(f, Config{}, nil)
	h := history.New(2)
	h.Append(history.Turn{Role: history.RoleUser, Content: "أ"})
	h.Append(history.Turn{Role: history.RoleAssistant, Content: "ب"})
	if _, err := r.Respond(context.Background(), h, "ج", "", ModeConversation); err != nil {
		t.Fatalf("respond: %v", err)
	}
	msgs := f.requests[0].Messages
	if len(msgs) != 2 || msgs[0].Content != "ب" || msgs[1].Content != "ج" {
		t.Fatalf("expected bounded prompt ending in the new turn, got %+v", msgs)
	}
	got := h.Snapshot()
	if len(got) != 2 || got[0].Content != "ج" || got[1].Content != "حسناً" {
		t.Fatalf("unexpected history %+v", got)
	}
}

func TestMissingKeyMessageFor(t *testing.T) {
	if got := MissingKeyMessageFor("GROQ_API_KEY"); got != MissingKeyMessage {
		t.Fatalf("expected default message, got %q", got)
	}
	if !strings.Contains(MissingKeyMessageFor("GEMINI_API_KEY"), "GEMINI_API_KEY") {
		t.Fatalf("provider key not named")
	}
}

func TestRespond_EmptyUtterance(t *testing.T) {
	r := NewResponder(&fakeLLM{configured: true}, Config{}, nil)
	if _, err := r.Respond(context.Background(), history.New(20), " \n ", "", ModeConversation); !errors.Is(err, ErrEmptyUtterance) {
		t.Fatalf("expected ErrEmptyUtterance, got %v", err)
	}
}

func TestRespond_PromptCarriesBoundedHistory(t *testing.T) {
	const max = 20
	f := &fakeLLM{configured: true}
	for i := 0; i < 20; i++ {
		f.replies = append(f.replies, fmt.Sprintf("a%d", i))
	}
	r := NewResponder(f, Config{}, nil)
	h := history.New(max)
	for i := 0; i < 13; i++ {
		if _, err := r.Respond(context.Background(), h, fmt.Sprintf("u%d", i), "", ModeConversation); err != nil {
			t.Fatal(err)
		}
		if h.Len() > max {
			t.Fatalf("history exceeded bound: %d", h.Len())
		}
	}
	last := f.requests[len(f.requests)-1]
	if len(last.Messages) != max {
		t.Fatalf("prompt carried %d turns, want %d", len(last.Messages), max)
	}
	if m := last.Messages[max-1]; m.Role != llm.RoleUser || m.Content != "u12" {
		t.Fatalf("last prompt turn should be the new utterance, got %+v", m)
	}
	// 12 earlier exchanges = 24 turns; the most recent 19 survive, starting
	// with the assistant reply a2.
	if m := last.Messages[0]; m.Role != llm.RoleAssistant || m.Content != "a2" {
		t.Fatalf("oldest prompt turn = %+v, want assistant a2", m)
	}
}

func TestRespond_SchemaOption(t *testing.T) {
	f := &fakeLLM{configured: true, replies: []string{`{"original":"x"}`}}
	r := NewResponder(f, Config{UseSchema: true}, nil)
	if _, err := r.Respond(context.Background(), history.New(20), "x", "", ModeCorrection); err != nil {
		t.Fatal(err)
	}
	if f.requests[0].Schema == nil {
		t.Fatalf("expected schema on correction request")
	}
}
