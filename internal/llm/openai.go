package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

// Base URLs of OpenAI-compatible chat completion endpoints.
const (
	GroqBaseURL     = "https://api.groq.com/openai/v1"
	CerebrasBaseURL = "https://api.cerebras.ai/v1"
	OpenAIBaseURL   = "https://api.openai.com/v1"
)

// OpenAIClient talks to any OpenAI-compatible chat completions API
// (Groq, Cerebras, OpenAI).
type OpenAIClient struct {
	Provider string
	Model    string

	client     openai.Client
	configured bool
}

// NewOpenAIClient builds a client for provider at baseURL. httpClient may be
// nil. Automatic retries are disabled; a failed call is reported once.
func NewOpenAIClient(provider, apiKey, model, baseURL string, httpClient *http.Client) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAIClient{
		Provider:   provider,
		Model:      model,
		client:     openai.NewClient(opts...),
		configured: apiKey != "",
	}
}

func (c *OpenAIClient) Info() Info {
	return Info{Provider: c.Provider, Model: c.Model, Configured: c.configured}
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	if !c.configured {
		return "", ErrNotConfigured
	}
	params := openai.ChatCompletionNewParams{
		Model:    c.Model,
		Messages: chatMessages(req),
	}
	if req.Temperature > 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}
	if req.TopP > 0 {
		params.TopP = param.NewOpt(req.TopP)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	switch {
	case req.JSON && req.Schema != nil:
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "correction_result",
					Schema: req.Schema,
				},
			},
		}
	case req.JSON:
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s error: %w", c.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices", c.Provider)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func chatMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	return msgs
}
