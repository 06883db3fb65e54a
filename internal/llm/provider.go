// Package llm defines the Provider abstraction used by the extraction
// pipeline: a uniform interface over chat-completion backends (Anthropic,
// OpenAI) so the extractor, definer, and agentic controller never couple to
// a specific SDK. JSON-structured calls and free-text chat calls are both
// modeled as one method, distinguished by whether a schema is supplied.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paperkg/paperkg/internal/apperr"
)

// Message is one turn of a chat exchange.
type Message struct {
	Role    string // "system", "user", or "assistant"
	Content string
}

// Request carries everything a single completion call needs.
type Request struct {
	SystemPrompt string
	Messages     []Message
	Temperature  float64
	MaxTokens    int
	// JSONSchema, when non-nil, marks the call as structured: the OpenAI
	// adapter then requests its JSON-object response format (the schema
	// itself is not sent), and the Anthropic adapter ignores the field. In
	// every case Response.Text carries the reply.
	JSONSchema map[string]interface{}
}

// Response is the normalized result of a completion call.
type Response struct {
	Text string
}

// Provider is the abstraction over any chat-completion backend.
type Provider interface {
	// Complete sends req and returns the raw response. Callers that passed a
	// JSONSchema should parse Response.Text with ParseJSON.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ParseJSON strips markdown code-fence markers from raw and unmarshals it
// into out. It tolerates the field aliases prompt drift commonly produces
// ("entities"/"nodes", "relationships"/"edges") by remapping them before
// unmarshaling.
func ParseJSON(raw string, out interface{}) error {
	cleaned := stripCodeFences(raw)

	var generic map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &generic); err != nil {
		return apperr.Wrap("parse llm json response", apperr.KindValidation, fmt.Errorf("%w: %s", err, cleaned))
	}

	if v, ok := generic["nodes"]; ok {
		if _, hasEntities := generic["entities"]; !hasEntities {
			generic["entities"] = v
		}
	}
	if v, ok := generic["edges"]; ok {
		if _, hasRelationships := generic["relationships"]; !hasRelationships {
			generic["relationships"] = v
		}
	}

	remapped, err := json.Marshal(generic)
	if err != nil {
		return apperr.Wrap("remarshal llm json response", apperr.KindValidation, err)
	}

	if err := json.Unmarshal(remapped, out); err != nil {
		return apperr.Wrap("decode llm json response", apperr.KindValidation, err)
	}
	return nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = strings.TrimSpace(after)
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = strings.TrimSpace(before)
	}
	return s
}
