package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/supabase-community/supabase-go"
)

type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
	Bucket         string
}

// SupabaseBucket is the subset of the Supabase storage client used here.
type SupabaseBucket interface {
	Upload(key string, data []byte) error
	Download(key string) ([]byte, error)
}

// Supabase stores blobs in a Supabase storage bucket.
type Supabase struct {
	bucket SupabaseBucket
}

func NewSupabase(b SupabaseBucket) *Supabase { return &Supabase{bucket: b} }

// NewSupabaseFromConfig connects with the service role key.
func NewSupabaseFromConfig(cfg SupabaseConfig) (*Supabase, error) {
	if cfg.URL == "" || cfg.ServiceRoleKey == "" {
		return nil, errors.New("storage: SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required")
	}
	client, err := supabase.NewClient(cfg.URL, cfg.ServiceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}
	return NewSupabase(&supabaseBucket{client: client, name: cfg.Bucket}), nil
}

func (s *Supabase) Put(_ context.Context, key, _ string, data []byte) error {
	if err := s.bucket.Upload(key, data); err != nil {
		return fmt.Errorf("failed to upload to Supabase: %w", err)
	}
	return nil
}

func (s *Supabase) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, err := s.bucket.Download(key)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, fmt.Errorf("storage: supabase open %s: %w", key, os.ErrNotExist)
		}
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type supabaseBucket struct {
	client *supabase.Client
	name   string
}

func (b *supabaseBucket) Upload(key string, data []byte) error {
	_, err := b.client.Storage.UploadFile(b.name, key, bytes.NewReader(data))
	return err
}

func (b *supabaseBucket) Download(key string) ([]byte, error) {
	return b.client.Storage.DownloadFile(b.name, key)
}

var _ Store = (*Supabase)(nil)
