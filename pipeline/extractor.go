package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/paperkg/paperkg/internal/llm"
	"github.com/paperkg/paperkg/model"
)

const paragraphChunkBudget = 12000 // characters, conservative proxy for a model context budget

var entityTypeList = strings.Join(model.StandardEntityTypes, ", ")

const entitySystemPromptTemplate = `Extract every notable entity mentioned in the paper text below.

Entities must be one of these types: %s.

Respond with ONLY a JSON object of the form:
{"entities": [{"id": "<lowercase_snake_case_id>", "name": "<display name>", "type": "<one of the types above>", "description": "<one sentence>", "aliases": ["<alternate names>"]}]}`

const relationshipSystemPromptTemplate = `Given the paper text and the list of entities already extracted from it, identify directed relationships between entities.

Known entities:
%s

Allowed relationship types: %s.

Respond with ONLY a JSON object of the form:
{"relationships": [{"sourceId": "<id>", "targetId": "<id>", "type": "<one of the allowed types>", "description": "<one sentence>"}]}`

type extractedEntity struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases"`
}

type extractedRelationship struct {
	SourceID    string `json:"sourceId"`
	TargetID    string `json:"targetId"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Extractor runs the two-stage LLM entity-then-relationship extraction.
type Extractor struct {
	provider llm.Provider
	logger   *slog.Logger
	chunking bool
}

// NewExtractor builds an Extractor. chunkingEnabled toggles paragraph-
// boundary chunking for text that exceeds the model context budget. A nil
// logger falls back to slog.Default.
func NewExtractor(provider llm.Provider, chunkingEnabled bool, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{provider: provider, chunking: chunkingEnabled, logger: logger}
}

// Extract runs stage A (entities) then stage B (relationships) over text,
// optionally folding in pre-parsed context. The result carries no
// referencedEntityIds; it is a self-contained single-document fragment.
func (x *Extractor) Extract(ctx context.Context, text string, preparsed *model.PreparsedPaperContext) (*model.GraphData, error) {
	if !x.chunking || len(text) <= paragraphChunkBudget {
		return x.extractOne(ctx, text, preparsed)
	}

	chunks := chunkByParagraph(text, paragraphChunkBudget)
	merged := &model.GraphData{}
	for _, chunk := range chunks {
		fragment, err := x.extractOne(ctx, chunk, preparsed)
		if err != nil {
			return nil, err
		}
		merged = unionFragments(merged, fragment)
	}
	return merged, nil
}

func (x *Extractor) extractOne(ctx context.Context, text string, preparsed *model.PreparsedPaperContext) (*model.GraphData, error) {
	entities, err := x.extractEntities(ctx, text, preparsed)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return &model.GraphData{}, nil
	}

	relationships, err := x.extractRelationships(ctx, text, entities)
	if err != nil {
		return nil, err
	}

	return &model.GraphData{Entities: entities, Relationships: relationships}, nil
}

func (x *Extractor) extractEntities(ctx context.Context, text string, preparsed *model.PreparsedPaperContext) ([]*model.Entity, error) {
	sysPrompt := fmt.Sprintf(entitySystemPromptTemplate, entityTypeList)

	userMsg := text
	if preparsed != nil && !preparsed.IsZero() {
		userMsg = fmt.Sprintf(
			"Title: %s\nAbstract: %s\nKeywords: %s\nMain findings: %s\nMethodology: %s\n\nFull text:\n%s",
			preparsed.Title, preparsed.Abstract, strings.Join(preparsed.Keywords, ", "),
			strings.Join(preparsed.MainFindings, "; "), preparsed.Methodology, text,
		)
	}

	resp, err := x.provider.Complete(ctx, llm.Request{
		SystemPrompt: sysPrompt,
		Messages:     []llm.Message{{Role: "user", Content: userMsg}},
		Temperature:  0,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Entities []extractedEntity `json:"entities"`
	}
	if err := llm.ParseJSON(resp.Text, &parsed); err != nil {
		x.logger.Warn("extractor: malformed entity extraction response, returning empty fragment", slog.String("error", err.Error()))
		return nil, nil
	}

	entities := make([]*model.Entity, 0, len(parsed.Entities))
	for _, e := range parsed.Entities {
		if e.ID == "" || e.Name == "" {
			continue
		}
		entities = append(entities, &model.Entity{
			ID:          strings.ToLower(e.ID),
			Name:        e.Name,
			Type:        e.Type,
			Description: e.Description,
			Aliases:     e.Aliases,
		})
	}
	return entities, nil
}

func (x *Extractor) extractRelationships(ctx context.Context, text string, entities []*model.Entity) ([]model.Relationship, error) {
	var listing strings.Builder
	known := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		fmt.Fprintf(&listing, "- %s: %s (%s)\n", e.ID, e.Name, e.Type)
		known[e.ID] = struct{}{}
	}

	sysPrompt := fmt.Sprintf(relationshipSystemPromptTemplate, listing.String(), strings.Join(relationshipTypeStrings(), ", "))

	resp, err := x.provider.Complete(ctx, llm.Request{
		SystemPrompt: sysPrompt,
		Messages:     []llm.Message{{Role: "user", Content: text}},
		Temperature:  0,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Relationships []extractedRelationship `json:"relationships"`
	}
	if err := llm.ParseJSON(resp.Text, &parsed); err != nil {
		x.logger.Warn("extractor: malformed relationship extraction response, dropping relationships", slog.String("error", err.Error()))
		return nil, nil
	}

	relationships := make([]model.Relationship, 0, len(parsed.Relationships))
	for _, r := range parsed.Relationships {
		if r.SourceID == r.TargetID {
			continue
		}
		if _, ok := known[r.SourceID]; !ok {
			continue
		}
		if _, ok := known[r.TargetID]; !ok {
			continue
		}

		relType := model.RelationshipType(r.Type)
		if !model.IsValidRelationshipType(string(relType)) {
			relType = model.RelationRelatedTo
		}

		relationships = append(relationships, model.Relationship{
			SourceID:    r.SourceID,
			TargetID:    r.TargetID,
			Type:        relType,
			Description: r.Description,
		})
	}
	return relationships, nil
}

func relationshipTypeStrings() []string {
	out := make([]string, len(model.RelationshipTypes))
	for i, t := range model.RelationshipTypes {
		out[i] = string(t)
	}
	return out
}

// chunkByParagraph splits text into chunks no larger than budget characters,
// breaking only at paragraph boundaries (blank lines).
func chunkByParagraph(text string, budget int) []string {
	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var current strings.Builder
	for _, p := range paragraphs {
		if current.Len()+len(p) > budget && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// unionFragments merges two fragments: entities are merged by id (first
// occurrence wins for type/description, aliases are unioned); relationships
// are deduplicated on the (source, target, type) triple.
func unionFragments(a, b *model.GraphData) *model.GraphData {
	byID := make(map[string]*model.Entity, len(a.Entities))
	order := make([]string, 0, len(a.Entities)+len(b.Entities))

	add := func(e *model.Entity) {
		if existing, ok := byID[e.ID]; ok {
			existing.Aliases = unionStrings(existing.Aliases, e.Aliases)
			return
		}
		clone := e.Clone()
		byID[e.ID] = clone
		order = append(order, e.ID)
	}
	for _, e := range a.Entities {
		add(e)
	}
	for _, e := range b.Entities {
		add(e)
	}

	entities := make([]*model.Entity, 0, len(order))
	for _, id := range order {
		entities = append(entities, byID[id])
	}

	seen := make(map[string]struct{})
	relationships := make([]model.Relationship, 0, len(a.Relationships)+len(b.Relationships))
	addRel := func(r model.Relationship) {
		key := string(r.SourceID) + "|" + string(r.TargetID) + "|" + string(r.Type)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		relationships = append(relationships, r)
	}
	for _, r := range a.Relationships {
		addRel(r)
	}
	for _, r := range b.Relationships {
		addRel(r)
	}

	return &model.GraphData{Entities: entities, Relationships: relationships}
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
