// Package openai implements llm.Provider against the OpenAI chat completions
// API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/paperkg/paperkg/internal/apperr"
	"github.com/paperkg/paperkg/internal/llm"
)

// Provider implements llm.Provider using the OpenAI chat completions API.
type Provider struct {
	client openai.Client
	model  string
}

// New constructs a Provider. baseURL is optional and points the client at a
// proxy or self-hosted OpenAI-compatible endpoint.
func New(apiKey, model, baseURL string) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Provider{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		if m.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}
	if req.Temperature != 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSONSchema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, apperr.Classify("openai complete", err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperr.Wrap("openai complete", apperr.KindUnknown, fmt.Errorf("empty choices in response"))
	}

	return &llm.Response{Text: resp.Choices[0].Message.Content}, nil
}
