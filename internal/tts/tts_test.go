package tts

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/kilofrakh/mostaqlproj1/internal/storage"
)

func TestElevenLabs_StreamsChunksInOrder(t *testing.T) {
	var gotKey, gotPath, gotFormat string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("xi-api-key")
		gotPath = r.URL.Path
		gotFormat = r.URL.Query().Get("output_format")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		fl := w.(http.Flusher)
		for i := 0; i < 5; i++ {
			_, _ = w.Write([]byte{byte('a' + i)})
			fl.Flush()
		}
	}))
	defer srv.Close()

	e := NewElevenLabsClient("key", "default-voice", "", "")
	e.BaseURL = srv.URL
	audio, err := Collect(context.Background(), e, "مرحبا", Options{VoiceID: "v1"})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if string(audio) != "abcde" {
		t.Fatalf("unexpected audio %q", audio)
	}
	if gotKey != "key" || gotPath != "/v1/text-to-speech/v1/stream" || gotFormat != "mp3_44100_128" {
		t.Fatalf("unexpected request key=%q path=%q format=%q", gotKey, gotPath, gotFormat)
	}
	if gotBody["model_id"] != "eleven_multilingual_v2" || gotBody["text"] != "مرحبا" {
		t.Fatalf("unexpected body %v", gotBody)
	}
	if e.Format() != FormatMP3 {
		t.Fatalf("expected mp3 format")
	}
}

func TestElevenLabs_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("invalid key"))
	}))
	defer srv.Close()

	e := NewElevenLabsClient("key", "v", "", "")
	e.BaseURL = srv.URL
	if _, err := Collect(context.Background(), e, "x", Options{}); err == nil || !strings.Contains(err.Error(), "status=401") {
		t.Fatalf("expected status error, got %v", err)
	}
	if _, err := Collect(context.Background(), NewElevenLabsClient("", "v", "", ""), "x", Options{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := Collect(context.Background(), NewElevenLabsClient("key", "", "", ""), "x", Options{}); err == nil {
		t.Fatalf("expected missing voice error")
	}
}

func TestElevenLabs_PCMFormat(t *testing.T) {
	e := NewElevenLabsClient("k", "v", "", "pcm_16000")
	if e.Format() != FormatPCM16 || e.SampleRate() != 16000 {
		t.Fatalf("unexpected pcm settings: %s %d", e.Format(), e.SampleRate())
	}
}

func TestGoogle_SplitsLongText(t *testing.T) {
	var calls int32
	var maxLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		q := r.URL.Query()
		if n := utf8.RuneCountInString(q.Get("q")); n > maxLen {
			maxLen = n
		}
		if q.Get("tl") != "ar" || q.Get("client") != "tw-ob" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("[" + q.Get("idx") + "]"))
	}))
	defer srv.Close()

	g := NewGoogleClient("")
	g.Endpoint = srv.URL
	text := strings.Repeat("هذا كتاب جميل جدا. ", 12)
	audio, err := Collect(context.Background(), g, text, Options{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if calls < 2 {
		t.Fatalf("expected several requests, got %d", calls)
	}
	if maxLen > googleMaxChars {
		t.Fatalf("piece of %d chars exceeds limit", maxLen)
	}
	if !strings.HasPrefix(string(audio), "[0][1]") {
		t.Fatalf("pieces out of order: %q", audio)
	}
}

func TestSplitText(t *testing.T) {
	got := splitText("مرحبا! كيف حالك؟ أنا بخير", 100)
	want := []string{"مرحبا!", "كيف حالك؟", "أنا بخير"}
	if len(got) != len(want) {
		t.Fatalf("got %q want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %q want %q", got, want)
		}
	}
	long := strings.Repeat("كلمة ", 50)
	for _, p := range splitText(long, 20) {
		if utf8.RuneCountInString(p) > 20 {
			t.Fatalf("piece too long: %q", p)
		}
	}
	for _, p := range splitText(strings.Repeat("ب", 45), 20) {
		if utf8.RuneCountInString(p) > 20 {
			t.Fatalf("piece too long: %q", p)
		}
	}
	if splitText("   ", 10) != nil {
		t.Fatalf("expected nil for blank text")
	}
}

func TestWAV_Header(t *testing.T) {
	pcm := []byte{1, 0, 2, 0}
	w := WAV(pcm, 24000)
	if len(w) != 48 || string(w[0:4]) != "RIFF" || string(w[8:12]) != "WAVE" || string(w[36:40]) != "data" {
		t.Fatalf("bad header: %v", w[:44])
	}
	if binary.LittleEndian.Uint32(w[24:28]) != 24000 {
		t.Fatalf("bad sample rate")
	}
	if binary.LittleEndian.Uint32(w[40:44]) != 4 {
		t.Fatalf("bad data size")
	}
}

type fakeStreamer struct {
	chunks [][]byte
	err    error
	format Format
	delay  time.Duration
}

func (f *fakeStreamer) Format() Format { return f.format }

func (f *fakeStreamer) Stream(ctx context.Context, text string, opts Options) (<-chan []byte, <-chan error) {
	out := make(chan []byte, chunkBuffer)
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		defer close(out)
		for _, c := range f.chunks {
			time.Sleep(f.delay)
			if err := emit(ctx, out, c); err != nil {
				errc <- err
				return
			}
		}
		if f.err != nil {
			errc <- f.err
		}
	}()
	return out, errc
}

func TestSynthesizer_Render(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := &Synthesizer{Streamer: &fakeStreamer{chunks: [][]byte{[]byte("ab"), []byte("cd")}, format: FormatMP3}, Artifacts: storage.Artifacts{Store: store}}
	art, err := s.Render(context.Background(), "ما اسمك؟", Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasSuffix(art.Name, ".mp3") || !strings.HasPrefix(art.URL, "/static/audio/") {
		t.Fatalf("unexpected artifact %+v", art)
	}
	r, err := store.Open(context.Background(), art.Name)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	b, _ := io.ReadAll(r)
	if string(b) != "abcd" {
		t.Fatalf("stored %q", b)
	}

	pcm := &Synthesizer{Streamer: &fakeStreamer{chunks: [][]byte{{1, 0}}, format: FormatPCM16}, Artifacts: storage.Artifacts{Store: store}}
	art, err = pcm.Render(context.Background(), "x", Options{})
	if err != nil || !strings.HasSuffix(art.Name, ".wav") {
		t.Fatalf("expected wav artifact, got %+v err=%v", art, err)
	}

	if _, err := s.Render(context.Background(), "", Options{}); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	failing := &Synthesizer{Streamer: &fakeStreamer{err: errors.New("boom")}, Artifacts: storage.Artifacts{Store: store}}
	if _, err := failing.Render(context.Background(), "x", Options{}); err == nil {
		t.Fatalf("expected provider error")
	}
}

func TestCollect_CancelStopsProducer(t *testing.T) {
	f := &fakeStreamer{chunks: make([][]byte, 200), delay: time.Millisecond, format: FormatMP3}
	for i := range f.chunks {
		f.chunks[i] = []byte{byte(i)}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := Collect(ctx, f, "x", Options{}); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestPump_OrderAndSendFailure(t *testing.T) {
	f := &fakeStreamer{chunks: [][]byte{[]byte("1"), []byte("2"), []byte("3")}}
	var got []string
	if err := Pump(context.Background(), f, "x", Options{}, func(b []byte) error {
		got = append(got, string(b))
		return nil
	}); err != nil {
		t.Fatalf("pump: %v", err)
	}
	if strings.Join(got, "") != "123" {
		t.Fatalf("unexpected order %v", got)
	}

	sendErr := errors.New("peer gone")
	n := 0
	err := Pump(context.Background(), f, "x", Options{}, func(b []byte) error {
		n++
		return sendErr
	})
	if !errors.Is(err, sendErr) || n != 1 {
		t.Fatalf("expected send error after one chunk, got %v n=%d", err, n)
	}

	upstream := errors.New("boom")
	err = Pump(context.Background(), &fakeStreamer{chunks: [][]byte{[]byte("a")}, err: upstream}, "x", Options{}, func([]byte) error { return nil })
	if !errors.Is(err, upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
