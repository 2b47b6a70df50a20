package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLocal_PutOpen(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	if err := s.Put(ctx, "a.mp3", "audio/mpeg", []byte("ID3")); err != nil {
		t.Fatal(err)
	}
	r, err := s.Open(ctx, "a.mp3")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, _ := io.ReadAll(r)
	if string(got) != "ID3" {
		t.Fatalf("got %q", got)
	}
	if _, err := s.Open(ctx, "missing.mp3"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}

func TestLocal_KeyCannotEscapeDir(t *testing.T) {
	s := newTestLocal(t)
	if got := s.path("../../etc/passwd"); !strings.HasPrefix(got, s.dir) {
		t.Fatalf("path escaped store dir: %s", got)
	}
}

func TestArtifacts_SaveAndOpen(t *testing.T) {
	a := Artifacts{Store: newTestLocal(t)}
	ctx := context.Background()
	art, err := a.Save(ctx, []byte("mp3-bytes"), "mp3")
	if err != nil {
		t.Fatal(err)
	}
	if !ValidName(art.Name) {
		t.Fatalf("generated name %q is not valid", art.Name)
	}
	if art.URL != "/static/audio/"+art.Name {
		t.Fatalf("unexpected url %q", art.URL)
	}
	r, err := a.Open(ctx, art.Name)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, _ := io.ReadAll(r)
	if string(got) != "mp3-bytes" {
		t.Fatalf("got %q", got)
	}
}

func TestArtifacts_NamesAreUnique(t *testing.T) {
	a := Artifacts{Store: newTestLocal(t), URLPrefix: "/files/"}
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		art, err := a.Save(context.Background(), []byte{byte(i)}, "wav")
		if err != nil {
			t.Fatal(err)
		}
		if seen[art.Name] {
			t.Fatalf("duplicate name %s", art.Name)
		}
		seen[art.Name] = true
		if !strings.HasPrefix(art.URL, "/files/") || strings.Contains(art.URL, "//"+art.Name) {
			t.Fatalf("unexpected url %q", art.URL)
		}
	}
}

func TestArtifacts_RejectsBadNamesAndFormats(t *testing.T) {
	a := Artifacts{Store: newTestLocal(t)}
	for _, name := range []string{"../secret", "abc.mp3", strings.Repeat("A", 32) + ".mp3", strings.Repeat("a", 32) + ".exe"} {
		if _, err := a.Open(context.Background(), name); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected not-exist for %q, got %v", name, err)
		}
	}
	if _, err := a.Save(context.Background(), nil, "flac"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestContentTypeFor(t *testing.T) {
	if ContentTypeFor("x.mp3") != "audio/mpeg" || ContentTypeFor("x.wav") != "audio/wav" || ContentTypeFor("x") != "application/octet-stream" {
		t.Fatalf("unexpected content types")
	}
}

type apiError struct{ code string }

func (e apiError) Error() string                 { return e.code }
func (e apiError) ErrorCode() string             { return e.code }
func (e apiError) ErrorMessage() string          { return e.code }
func (e apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = b
	if in.ContentType != nil {
		m.types[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[*in.Key]
	if !ok {
		return nil, apiError{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func TestS3_PutOpen(t *testing.T) {
	m := &mockS3{objects: map[string][]byte{}, types: map[string]string{}}
	s := NewS3(m, "bucket", "audio")
	ctx := context.Background()
	if err := s.Put(ctx, "x.mp3", "audio/mpeg", []byte("data")); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.objects["audio/x.mp3"]; !ok {
		t.Fatalf("expected prefixed key, got %v", m.objects)
	}
	if m.types["audio/x.mp3"] != "audio/mpeg" {
		t.Fatalf("content type not forwarded")
	}
	r, err := s.Open(ctx, "x.mp3")
	if err != nil {
		t.Fatal(err)
	}
	got, _ := io.ReadAll(r)
	if string(got) != "data" {
		t.Fatalf("got %q", got)
	}
	if _, err := s.Open(ctx, "missing.mp3"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}

type fakeBucket struct{ files map[string][]byte }

func (f *fakeBucket) Upload(key string, data []byte) error { f.files[key] = data; return nil }
func (f *fakeBucket) Download(key string) ([]byte, error) {
	b, ok := f.files[key]
	if !ok {
		return nil, errors.New("Object not found")
	}
	return b, nil
}

func TestSupabase_PutOpen(t *testing.T) {
	s := NewSupabase(&fakeBucket{files: map[string][]byte{}})
	ctx := context.Background()
	if err := s.Put(ctx, "k.mp3", "audio/mpeg", []byte("v")); err != nil {
		t.Fatal(err)
	}
	r, err := s.Open(ctx, "k.mp3")
	if err != nil {
		t.Fatal(err)
	}
	got, _ := io.ReadAll(r)
	if string(got) != "v" {
		t.Fatalf("got %q", got)
	}
	if _, err := s.Open(ctx, "nope"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}

func TestNewS3FromConfig_RequiresBucket(t *testing.T) {
	if _, err := NewS3FromConfig(S3Config{}); err == nil {
		t.Fatalf("expected error without bucket")
	}
	if _, err := NewS3FromConfig(S3Config{Bucket: "b", Endpoint: "http://localhost:9000", AccessKeyID: "a", SecretAccessKey: "s"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
