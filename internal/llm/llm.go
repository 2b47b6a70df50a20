package llm

import (
	"context"
	"errors"

	"github.com/google/jsonschema-go/jsonschema"
)

// ErrNotConfigured is returned without any network call when the provider
// has no credential.
var ErrNotConfigured = errors.New("llm: api key not configured")

// Role values accepted in Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Request is one reasoning call: a system instruction followed by the
// ordered conversation.
type Request struct {
	System   string
	Messages []Message

	Temperature float64
	TopP        float64
	MaxTokens   int

	// JSON asks the provider for a single JSON object. When Schema is also
	// set and the provider supports it, the schema is sent as the response
	// format.
	JSON   bool
	Schema *jsonschema.Schema
}

// LLM generates one completion for a request.
type LLM interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Info describes a configured provider for health reporting.
type Info struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Configured bool   `json:"configured"`
}
