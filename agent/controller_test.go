package agent

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

func (p *scriptedProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	resp := p.responses[p.calls]
	p.calls++
	return &llm.Response{Text: resp}, nil
}

func TestController_FinishesImmediately(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"finish": "nothing to do"}`,
	}}

	c := NewController(provider, &Tools{}, nil, 0)
	answer, err := c.Run(context.Background(), "do nothing")
	require.NoError(t, err)
	assert.Equal(t, "nothing to do", answer)
}

func TestController_CallsToolThenFinishes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	provider := &scriptedProvider{responses: []string{
		`{"tool": "summarizeKnowledgeGraph", "args": {}}`,
		`{"finish": "graph is empty"}`,
	}}

	c := NewController(provider, &Tools{Store: s}, nil, 5)
	answer, err := c.Run(ctx, "summarize the graph")
	require.NoError(t, err)
	assert.Equal(t, "graph is empty", answer)
	assert.Equal(t, 2, provider.calls)
}

func TestController_StopsAtMaxStepsWithoutFinish(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"tool": "unknownTool", "args": {}}`,
		`{"tool": "unknownTool", "args": {}}`,
	}}

	c := NewController(provider, &Tools{}, nil, 2)
	answer, err := c.Run(context.Background(), "loop forever")
	require.NoError(t, err)
	assert.Contains(t, answer, "error")
}
