package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperkg/paperkg/model"
)

func TestCanonicalize_DedupesByLowercasedName(t *testing.T) {
	graph := &model.GraphData{
		Entities: []*model.Entity{
			{ID: "e1", Name: "NeRF", Type: model.EntityTypeMethod},
			{ID: "e2", Name: "nerf", Type: model.EntityTypeMethod},
			{ID: "e3", Name: "PSNR", Type: model.EntityTypeMetric},
		},
		Relationships: []model.Relationship{
			{SourceID: "e2", TargetID: "e3", Type: model.RelationAchieves},
		},
	}

	out := Canonicalize(graph)

	require.Len(t, out.Entities, 2)
	assert.Equal(t, "e1", out.Entities[0].ID)
	require.Len(t, out.Relationships, 1)
	assert.Equal(t, "e1", out.Relationships[0].SourceID, "relationship endpoint should be rewritten through the id remap")
	assert.Equal(t, "e3", out.Relationships[0].TargetID)
}

func TestCanonicalize_SkipsEmptyNames(t *testing.T) {
	graph := &model.GraphData{
		Entities: []*model.Entity{
			{ID: "e1", Name: "  ", Type: model.EntityTypeConcept},
			{ID: "e2", Name: "Real Entity", Type: model.EntityTypeConcept},
		},
	}

	out := Canonicalize(graph)
	require.Len(t, out.Entities, 1)
	assert.Equal(t, "e2", out.Entities[0].ID)
}

func TestCanonicalize_DropsSelfLoopsCreatedByRemap(t *testing.T) {
	graph := &model.GraphData{
		Entities: []*model.Entity{
			{ID: "e1", Name: "Gaussian Splatting", Type: model.EntityTypeMethod},
			{ID: "e2", Name: "gaussian splatting", Type: model.EntityTypeMethod},
		},
		Relationships: []model.Relationship{
			{SourceID: "e1", TargetID: "e2", Type: model.RelationRelatedTo},
		},
	}

	out := Canonicalize(graph)
	assert.Empty(t, out.Relationships, "relationship between two names that collapse to the same entity becomes a self-loop and is dropped")
}

func TestCanonicalize_HasNoReferencedEntityIds(t *testing.T) {
	graph := &model.GraphData{
		Entities: []*model.Entity{{ID: "e1", Name: "A", Type: model.EntityTypeConcept}},
	}
	out := Canonicalize(graph)
	assert.Empty(t, out.ReferencedEntityIds)
}
