package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperkg/paperkg/internal/llm"
)

type scriptedProvider struct {
	responses []string
	calls     int
}

func (s *scriptedProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	resp := s.responses[s.calls]
	s.calls++
	return &llm.Response{Text: resp}, nil
}

func TestExtractor_TwoStagePipeline(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"entities": [{"id": "nerf", "name": "NeRF", "type": "Method", "description": "a rendering method"}, {"id": "psnr", "name": "PSNR", "type": "Metric", "description": "a quality metric"}]}`,
		`{"relationships": [{"sourceId": "nerf", "targetId": "psnr", "type": "achieves", "description": "NeRF achieves high PSNR"}]}`,
	}}

	x := NewExtractor(provider, false, nil)
	graph, err := x.Extract(context.Background(), "some paper text", nil)
	require.NoError(t, err)

	require.Len(t, graph.Entities, 2)
	require.Len(t, graph.Relationships, 1)
	assert.Equal(t, "nerf", graph.Relationships[0].SourceID)
	assert.Equal(t, 2, provider.calls, "stage B should only run once entities exist")
}

func TestExtractor_SkipsStageBWhenNoEntities(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`{"entities": []}`}}

	x := NewExtractor(provider, false, nil)
	graph, err := x.Extract(context.Background(), "empty text", nil)
	require.NoError(t, err)

	assert.Empty(t, graph.Entities)
	assert.Equal(t, 1, provider.calls)
}

func TestExtractor_FiltersOrphanAndSelfLoopRelationships(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"entities": [{"id": "a", "name": "A", "type": "Concept"}]}`,
		`{"relationships": [{"sourceId": "a", "targetId": "a", "type": "related_to"}, {"sourceId": "a", "targetId": "unknown", "type": "uses"}]}`,
	}}

	x := NewExtractor(provider, false, nil)
	graph, err := x.Extract(context.Background(), "text", nil)
	require.NoError(t, err)
	assert.Empty(t, graph.Relationships)
}

func TestExtractor_MalformedEntityResponseYieldsEmptyFragment(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`not json at all`}}

	x := NewExtractor(provider, false, nil)
	graph, err := x.Extract(context.Background(), "some paper text", nil)
	require.NoError(t, err)

	assert.Empty(t, graph.Entities)
	assert.Empty(t, graph.Relationships)
	assert.Equal(t, 1, provider.calls, "stage B should not run when stage A is unparseable")
}

func TestExtractor_MalformedRelationshipResponseKeepsEntities(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"entities": [{"id": "a", "name": "A", "type": "Concept"}]}`,
		`not json at all`,
	}}

	x := NewExtractor(provider, false, nil)
	graph, err := x.Extract(context.Background(), "text", nil)
	require.NoError(t, err)

	require.Len(t, graph.Entities, 1)
	assert.Empty(t, graph.Relationships)
}

func TestExtractor_CoercesUnknownRelationshipTypes(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"entities": [{"id": "a", "name": "A", "type": "Concept"}, {"id": "b", "name": "B", "type": "Concept"}]}`,
		`{"relationships": [{"sourceId": "a", "targetId": "b", "type": "invents"}]}`,
	}}

	x := NewExtractor(provider, false, nil)
	graph, err := x.Extract(context.Background(), "text", nil)
	require.NoError(t, err)
	require.Len(t, graph.Relationships, 1)
	assert.Equal(t, "related_to", string(graph.Relationships[0].Type))
}
