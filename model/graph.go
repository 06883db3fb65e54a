package model

// GraphData is a self-contained fragment of the knowledge graph, produced by
// one pipeline run (Extractor, Definer, Canonicalizer) or by the Integration
// workflow's resolution step.
type GraphData struct {
	Entities      []*Entity      `json:"entities"`
	Relationships []Relationship `json:"relationships"`

	// ReferencedEntityIds holds entity ids that Relationships point at but
	// that are not present in Entities — typically pre-existing store ids a
	// relationship was rewritten to after an Integration merge. The store
	// trusts these ids instead of treating the relationships as orphans.
	ReferencedEntityIds []string `json:"referencedEntityIds,omitempty"`
}

// EntityIDSet returns the set of ids covered by Entities and
// ReferencedEntityIds combined — the universe of ids the store considers
// valid relationship endpoints for this fragment.
func (g *GraphData) EntityIDSet() map[string]struct{} {
	set := make(map[string]struct{}, len(g.Entities)+len(g.ReferencedEntityIds))
	for _, e := range g.Entities {
		set[e.ID] = struct{}{}
	}
	for _, id := range g.ReferencedEntityIds {
		set[id] = struct{}{}
	}
	return set
}

// EntityByID returns the entity with the given id, or nil.
func (g *GraphData) EntityByID(id string) *Entity {
	for _, e := range g.Entities {
		if e.ID == id {
			return e
		}
	}
	return nil
}
