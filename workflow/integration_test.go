package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperkg/paperkg/internal/llm"
	"github.com/paperkg/paperkg/model"
)

func TestIntegration_MergesAgainstExistingEntity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertGraph(ctx, &model.GraphData{
		Entities: []*model.Entity{{ID: "3d_gaussian_splatting", Name: "3D Gaussian Splatting", Type: model.EntityTypeMethod}},
	}))

	resolver := &scriptedProvider{responses: []string{
		`{"action":"MERGE","targetId":"3d_gaussian_splatting","confidence":0.95,"rationale":"same method"}`,
	}}

	integration := NewIntegration(IntegrationConfig{
		Store:    s,
		Resolver: resolver,
		DebugDir: t.TempDir(),
	})

	newGraph := &model.GraphData{
		Entities: []*model.Entity{{ID: "3dgs", Name: "3DGS", Type: model.EntityTypeMethod}},
		Relationships: []model.Relationship{
			{SourceID: "3dgs", TargetID: "psnr", Type: model.RelationAchieves},
		},
	}

	require.NoError(t, s.UpsertGraph(ctx, &model.GraphData{
		Entities: []*model.Entity{{ID: "psnr", Name: "PSNR", Type: model.EntityTypeMetric}},
	}))

	event := integration.Run(ctx, newGraph, "paper.pdf")
	require.True(t, event.Success, event.Error)
	assert.Equal(t, model.EventIntegrationComplete, event.Type)
	assert.Equal(t, 1, event.EntitiesMerged)
	assert.Equal(t, 0, event.EntitiesCreated)
	assert.Empty(t, event.ResolvedGraph.Entities, "a pure MERGE outcome creates no new entity")
	require.Len(t, event.ResolvedGraph.Relationships, 1)
	assert.Equal(t, "3d_gaussian_splatting", event.ResolvedGraph.Relationships[0].SourceID)
	assert.Contains(t, event.ResolvedGraph.ReferencedEntityIds, "3d_gaussian_splatting")

	summary, err := s.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalEntities, "no new entity row should be created")
	assert.Equal(t, int64(1), summary.TotalRelationships)
}

func TestIntegration_CreatesWhenNoCandidates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	integration := NewIntegration(IntegrationConfig{
		Store:    s,
		Resolver: &scriptedProvider{},
		DebugDir: t.TempDir(),
	})

	newGraph := &model.GraphData{
		Entities: []*model.Entity{{ID: "novel_method", Name: "Totally Novel Method", Type: model.EntityTypeMethod}},
	}

	event := integration.Run(ctx, newGraph, "paper.pdf")
	require.True(t, event.Success, event.Error)
	assert.Equal(t, 0, event.EntitiesMerged)
	assert.Equal(t, 1, event.EntitiesCreated)
	require.Len(t, event.ResolvedGraph.Entities, 1)
	assert.Equal(t, "novel_method", event.ResolvedGraph.Entities[0].ID)
}

func TestResolveOne_DefaultsToCreateOnUnparseableResponse(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"not json at all"}}
	entity := &model.Entity{ID: "x", Name: "X", Type: model.EntityTypeConcept}
	candidates := []*model.Entity{{ID: "y", Name: "Y", Type: model.EntityTypeConcept}}

	decision := resolveOne(context.Background(), provider, entity, candidates)
	assert.Equal(t, model.MergeActionCreate, decision.Action)
	assert.Equal(t, float64(0), decision.Confidence)
}

var _ llm.Provider = (*scriptedProvider)(nil)
