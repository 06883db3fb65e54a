package model

import (
	"fmt"
	"strings"
)

// Entity is a node in the knowledge graph: a method, metric, task, dataset,
// concept, author or conference mentioned by one or more papers. Ids are
// application-assigned and stable, not database-generated.
type Entity struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Aliases     []string  `json:"aliases,omitempty"`
	Metadata    Metadata  `json:"metadata,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`
	Version     int       `json:"version"`
}

// Standardized entity types the Definer normalizes towards.
const (
	EntityTypeMethod     = "Method"
	EntityTypeMetric     = "Metric"
	EntityTypeTask       = "Task"
	EntityTypeDataset    = "Dataset"
	EntityTypeConcept    = "Concept"
	EntityTypeAuthor     = "Author"
	EntityTypeConference = "Conference"
)

// StandardEntityTypes is the controlled vocabulary the Definer prompts with.
var StandardEntityTypes = []string{
	EntityTypeMethod,
	EntityTypeMetric,
	EntityTypeTask,
	EntityTypeDataset,
	EntityTypeConcept,
	EntityTypeAuthor,
	EntityTypeConference,
}

// Render produces the canonical text an embedding is computed from:
// "{name} ({type}): {description}", trimmed. Entities with the same render
// produce the same embedding, which is what fetchSimilarEntities relies on.
func (e *Entity) Render() string {
	return strings.TrimSpace(fmt.Sprintf("%s (%s): %s", e.Name, e.Type, e.Description))
}

// NormalizedName is the lowercased, trimmed name the Canonicalizer dedups on.
func (e *Entity) NormalizedName() string {
	return strings.ToLower(strings.TrimSpace(e.Name))
}

// Clone returns a deep-enough copy for pipeline stages that must not mutate
// their input.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Aliases != nil {
		clone.Aliases = append([]string(nil), e.Aliases...)
	}
	if e.Metadata != nil {
		clone.Metadata = make(Metadata, len(e.Metadata))
		for k, v := range e.Metadata {
			clone.Metadata[k] = v
		}
	}
	if e.Embedding != nil {
		clone.Embedding = append([]float32(nil), e.Embedding...)
	}
	return &clone
}
