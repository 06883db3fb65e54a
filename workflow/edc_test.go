package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperkg/paperkg/internal/llm"
	"github.com/paperkg/paperkg/model"
	"github.com/paperkg/paperkg/pipeline"
)

type stubParser struct{ text string }

func (p stubParser) Parse(ctx context.Context, path string) (string, error) { return p.text, nil }

// scriptedProvider returns its responses in order, one per Complete call.
type scriptedProvider struct {
	responses []string
	calls     int
}

func (p *scriptedProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	resp := p.responses[p.calls]
	p.calls++
	return &llm.Response{Text: resp}, nil
}

func TestEDC_RunPersistsCanonicalGraph(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	extractProvider := &scriptedProvider{responses: []string{
		`{"entities":[{"id":"e1","name":"NeRF","type":"Method"},{"id":"e2","name":"nerf","type":"Method"}]}`,
		`{"relationships":[{"sourceId":"e1","targetId":"e2","type":"related_to"}]}`,
	}}
	defineProvider := &scriptedProvider{responses: []string{
		`{"entities":[{"id":"e1","name":"NeRF","type":"Method"},{"id":"e2","name":"NeRF","type":"Method"}]}`,
	}}

	edc := NewEDC(Config{
		Parser:          stubParser{text: "some paper text"},
		Extractor:       pipeline.NewExtractor(extractProvider, false, nil),
		Definer:         pipeline.NewDefiner(defineProvider, nil),
		Store:           s,
		PreParseEnabled: false,
		DebugDir:        t.TempDir(),
	})

	event := edc.Run(ctx, "paper.pdf")
	require.True(t, event.Success, event.Error)
	assert.Equal(t, model.EventComplete, event.Type)
	assert.Equal(t, 1, event.EntitiesCount, "e1 and e2 share a lowercased name and should canonicalize to one entity")

	summary, err := s.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalEntities)
}

func TestEDC_ReportsFailureAsUnsuccessfulComplete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	edc := NewEDC(Config{
		Parser:          stubParser{text: "x"},
		Extractor:       pipeline.NewExtractor(&erroringCompleter{}, false, nil),
		Definer:         pipeline.NewDefiner(&erroringCompleter{}, nil),
		Store:           s,
		PreParseEnabled: false,
		DebugDir:        t.TempDir(),
	})

	event := edc.Run(ctx, "paper.pdf")
	assert.False(t, event.Success)
	assert.Equal(t, "extract", event.Stage)
	assert.NotEmpty(t, event.Error)
}

type erroringCompleter struct{}

func (erroringCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return nil, assert.AnError
}
