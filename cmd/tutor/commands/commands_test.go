package commands

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kilofrakh/mostaqlproj1/internal/tutor"
	"github.com/kilofrakh/mostaqlproj1/internal/turn"
)

func TestChatLoop(t *testing.T) {
	in := strings.NewReader("مرحبا\n\n  كيف حالك  \nfail\n/quit\nignored\n")
	var out bytes.Buffer
	var seen []string
	err := chatLoop(in, &out, func(line string) (string, error) {
		seen = append(seen, line)
		if line == "fail" {
			return "", &tutor.UpstreamError{Err: errors.New("timeout")}
		}
		return "رد: " + line, nil
	})
	if err != nil {
		t.Fatalf("loop: %v", err)
	}
	if len(seen) != 3 || seen[1] != "كيف حالك" {
		t.Fatalf("unexpected turns %q", seen)
	}
	got := out.String()
	if !strings.Contains(got, "رد: مرحبا") || !strings.Contains(got, turn.MsgUpstream) {
		t.Fatalf("unexpected output %q", got)
	}
	if strings.Contains(got, "ignored") {
		t.Fatalf("lines after /quit must not be read")
	}
}

func TestChatLoop_EOF(t *testing.T) {
	var out bytes.Buffer
	calls := 0
	if err := chatLoop(strings.NewReader("سؤال"), &out, func(string) (string, error) {
		calls++
		return "", nil
	}); err != nil {
		t.Fatalf("loop: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one turn, got %d", calls)
	}
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := withTimeout(context.Background(), 0)
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatalf("zero timeout must not set a deadline")
	}
	ctx2, cancel2 := withTimeout(context.Background(), time.Second)
	defer cancel2()
	if _, ok := ctx2.Deadline(); !ok {
		t.Fatalf("expected deadline")
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)
	if err := Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "tutor dev") {
		t.Fatalf("unexpected version output %q", out.String())
	}
}
