package breaker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperkg/paperkg/internal/llm"
)

type fakeProvider struct {
	calls int
	err   error
	resp  *llm.Response
}

func (f *fakeProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestProvider_PassesThroughOnSuccess(t *testing.T) {
	fake := &fakeProvider{resp: &llm.Response{Text: "hello"}}
	p := New("test", fake)

	resp, err := p.Complete(context.Background(), llm.Request{})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, 1, fake.calls)
}

func TestProvider_TripsAfterConsecutiveFailures(t *testing.T) {
	fake := &fakeProvider{err: errors.New("backend down")}
	p := New("test", fake)

	for i := 0; i < 5; i++ {
		_, err := p.Complete(context.Background(), llm.Request{})
		assert.Error(t, err)
	}

	callsBeforeTrip := fake.calls
	_, err := p.Complete(context.Background(), llm.Request{})
	assert.Error(t, err)
	assert.Equal(t, callsBeforeTrip, fake.calls, "open breaker should short-circuit without calling the inner provider")
}
