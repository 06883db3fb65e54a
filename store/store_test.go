package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperkg/paperkg/model"
)

// fakeEmbedder returns a deterministic vector derived from text length, so
// assertions about similarity ordering are reproducible without a real
// embedding provider.
type fakeEmbedder struct{ dim int }

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = float32((len(text)+i)%100) / 100.0
	}
	return vec, nil
}

func newTestStore(t *testing.T) *GraphStore {
	t.Helper()
	cfg := testDatabaseConfiguration(t)
	s, err := New(cfg, 16, fakeEmbedder{dim: 16}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.db.ExecContext(context.Background(), `TRUNCATE relationships, entities, documents;`)
	require.NoError(t, err)

	return s
}

func TestUpsertGraph_CreatesNewEntities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	graph := &model.GraphData{
		Entities: []*model.Entity{
			{ID: "nerf", Name: "NeRF", Type: model.EntityTypeMethod},
			{ID: "psnr", Name: "PSNR", Type: model.EntityTypeMetric},
		},
		Relationships: []model.Relationship{
			{SourceID: "nerf", TargetID: "psnr", Type: model.RelationAchieves},
		},
	}

	err := s.UpsertGraph(ctx, graph)
	require.NoError(t, err)

	for _, e := range graph.Entities {
		assert.Equal(t, 1, e.Version, "new entity should start at version 1")
	}

	summary, err := s.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalEntities)
	assert.Equal(t, int64(1), summary.TotalRelationships)
}

func TestUpsertGraph_IsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	graph := func() *model.GraphData {
		return &model.GraphData{
			Entities: []*model.Entity{{ID: "3dgs", Name: "3D Gaussian Splatting", Type: model.EntityTypeMethod}},
		}
	}

	require.NoError(t, s.UpsertGraph(ctx, graph()))
	g2 := graph()
	require.NoError(t, s.UpsertGraph(ctx, g2))

	assert.Equal(t, 2, g2.Entities[0].Version, "second upsert of the same entity should increment version")

	summary, err := s.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalEntities, "idempotent upsert should not create a duplicate row")
}

func TestUpsertGraph_DropsOrphanRelationships(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	graph := &model.GraphData{
		Entities: []*model.Entity{{ID: "a", Name: "A", Type: model.EntityTypeConcept}},
		Relationships: []model.Relationship{
			{SourceID: "a", TargetID: "b", Type: model.RelationUses},
		},
	}

	err := s.UpsertGraph(ctx, graph)
	require.NoError(t, err)

	summary, err := s.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalEntities)
	assert.Equal(t, int64(0), summary.TotalRelationships, "relationship referencing an unknown entity should be dropped")
}

func TestUpsertGraph_DropsSelfLoops(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	graph := &model.GraphData{
		Entities: []*model.Entity{{ID: "a", Name: "A", Type: model.EntityTypeConcept}},
		Relationships: []model.Relationship{
			{SourceID: "a", TargetID: "a", Type: model.RelationRelatedTo},
		},
	}

	require.NoError(t, s.UpsertGraph(ctx, graph))

	summary, err := s.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalRelationships)
}

func TestUpsertGraph_HonorsReferencedEntityIds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertGraph(ctx, &model.GraphData{
		Entities: []*model.Entity{{ID: "3d_gaussian_splatting", Name: "3D Gaussian Splatting", Type: model.EntityTypeMethod}},
	}))

	resolved := &model.GraphData{
		Relationships: []model.Relationship{
			{SourceID: "3d_gaussian_splatting", TargetID: "psnr", Type: model.RelationAchieves},
		},
	}
	require.NoError(t, s.UpsertGraph(ctx, &model.GraphData{
		Entities: []*model.Entity{{ID: "psnr", Name: "PSNR", Type: model.EntityTypeMetric}},
	}))
	resolved.ReferencedEntityIds = []string{"3d_gaussian_splatting", "psnr"}

	require.NoError(t, s.UpsertGraph(ctx, resolved))

	summary, err := s.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalRelationships)
}

func TestFetchSimilarEntities_ExcludesSelf(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	graph := &model.GraphData{
		Entities: []*model.Entity{
			{ID: "a", Name: "Alpha Method", Type: model.EntityTypeMethod},
			{ID: "b", Name: "Beta Method", Type: model.EntityTypeMethod},
		},
	}
	require.NoError(t, s.UpsertGraph(ctx, graph))

	results, err := s.FetchSimilarEntities(ctx, graph.Entities[0], 5)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 5)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ID)
	}
}

func TestFetchSimilarEntitiesBatch_OmitsEmptyResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	query := []*model.Entity{{ID: "nonexistent", Name: "Nothing Like This", Type: model.EntityTypeConcept}}

	results, err := s.FetchSimilarEntitiesBatch(ctx, query, 5, 2)
	require.NoError(t, err)
	assert.NotContains(t, results, "nonexistent")
}
