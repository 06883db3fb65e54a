package pipeline

import (
	"context"
	"log/slog"

	"github.com/paperkg/paperkg/internal/llm"
	"github.com/paperkg/paperkg/model"
)

const preparserSystemPrompt = `Extract structured metadata from the paper text below.

Respond with ONLY a JSON object of the form:
{"title": "...", "authors": [{"name": "...", "affiliation": "...", "email": "..."}], "abstract": "...", "keywords": ["..."], "mainFindings": ["..."], "methodology": "...", "results": "...", "discussion": "...", "references": ["..."], "publication": {"venue": "...", "year": 0, "doi": "..."}}

Leave a field empty or omit it if it cannot be recovered from the text. Never invent information not present in the text.`

// PreParser recovers a PreparsedPaperContext from raw paper text ahead of
// the main extraction pass, via the LLM.
type PreParser struct {
	provider llm.Provider
	logger   *slog.Logger
}

// NewPreParser builds a PreParser. A nil logger falls back to slog.Default.
func NewPreParser(provider llm.Provider, logger *slog.Logger) *PreParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreParser{provider: provider, logger: logger}
}

// Parse returns a populated PreparsedPaperContext, or a zero-value context
// (never an error) if the call fails — pre-parsing is a quality
// enhancement, not a requirement; the EDC workflow proceeds in degraded mode
// when it fails.
func (p *PreParser) Parse(ctx context.Context, text string) *model.PreparsedPaperContext {
	resp, err := p.provider.Complete(ctx, llm.Request{
		SystemPrompt: preparserSystemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: text}},
		Temperature:  0,
	})
	if err != nil {
		p.logger.Warn("pre-parse failed, proceeding without pre-parsed context", slog.String("error", err.Error()))
		return &model.PreparsedPaperContext{}
	}

	var out model.PreparsedPaperContext
	if err := llm.ParseJSON(resp.Text, &out); err != nil {
		p.logger.Warn("pre-parse response unparseable, proceeding without pre-parsed context", slog.String("error", err.Error()))
		return &model.PreparsedPaperContext{}
	}

	return &out
}
