// Package pipeline implements the per-document graph-fragment stages that
// sit between raw text and a store-ready GraphData: extraction, type
// definition, and canonicalization.
package pipeline

import (
	"strings"

	"github.com/paperkg/paperkg/model"
)

// Canonicalize deduplicates entities by lowercased, trimmed name within a
// single document's fragment and rewrites relationship endpoints to match.
// It is purely deterministic: no LLM call is made.
func Canonicalize(graph *model.GraphData) *model.GraphData {
	uniqueByName := make(map[string]*model.Entity)
	order := make([]string, 0, len(graph.Entities))
	idRemap := make(map[string]string)

	for _, e := range graph.Entities {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if existing, ok := uniqueByName[key]; ok {
			idRemap[e.ID] = existing.ID
			continue
		}
		uniqueByName[key] = e
		order = append(order, key)
	}

	resolved := make([]*model.Entity, 0, len(order))
	for _, key := range order {
		resolved = append(resolved, uniqueByName[key])
	}

	resolvedRelationships := make([]model.Relationship, 0, len(graph.Relationships))
	for _, r := range graph.Relationships {
		r.SourceID = remapID(idRemap, r.SourceID)
		r.TargetID = remapID(idRemap, r.TargetID)
		if r.IsSelfLoop() {
			continue
		}
		resolvedRelationships = append(resolvedRelationships, r)
	}

	return &model.GraphData{
		Entities:      resolved,
		Relationships: resolvedRelationships,
	}
}

func remapID(idRemap map[string]string, id string) string {
	if remapped, ok := idRemap[id]; ok {
		return remapped
	}
	return id
}
