package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultURLPrefix is where the HTTP server mounts stored artifacts.
const DefaultURLPrefix = "/static/audio"

var artifactName = regexp.MustCompile(`^[0-9a-f]{32}\.(mp3|wav)$`)

var contentTypes = map[string]string{
	"mp3": "audio/mpeg",
	"wav": "audio/wav",
}

// Artifacts names, stores, and reopens synthesized reply audio. Artifacts
// are never deleted automatically.
type Artifacts struct {
	Store     Store
	URLPrefix string
}

// Artifact is one stored synthesis result.
type Artifact struct {
	Name string
	URL  string
}

// ValidName reports whether name has the form produced by Save.
func ValidName(name string) bool { return artifactName.MatchString(name) }

// ContentTypeFor returns the media type for an artifact name.
func ContentTypeFor(name string) string {
	ext := name[strings.LastIndexByte(name, '.')+1:]
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Save stores data under a fresh random 128-bit hex name with extension ext
// ("mp3" or "wav") and returns its retrievable reference.
func (a Artifacts) Save(ctx context.Context, data []byte, ext string) (Artifact, error) {
	ct, ok := contentTypes[ext]
	if !ok {
		return Artifact{}, fmt.Errorf("storage: unsupported artifact format %q", ext)
	}
	id := uuid.New()
	name := hex.EncodeToString(id[:]) + "." + ext
	if err := a.Store.Put(ctx, name, ct, data); err != nil {
		return Artifact{}, err
	}
	prefix := a.URLPrefix
	if prefix == "" {
		prefix = DefaultURLPrefix
	}
	return Artifact{Name: name, URL: strings.TrimRight(prefix, "/") + "/" + name}, nil
}

// Open returns the artifact body. Invalid names report os.ErrNotExist
// without touching the store.
func (a Artifacts) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("storage: invalid artifact name %q: %w", name, os.ErrNotExist)
	}
	return a.Store.Open(ctx, name)
}
