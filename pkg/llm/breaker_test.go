package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/graphweave/graphweave/pkg/types"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	err   error
	calls int
}

func (s *stubClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &types.Response{Content: "ok"}, nil
}

func (s *stubClient) Close() error { return nil }

func TestCircuitBreakerPassesThrough(t *testing.T) {
	stub := &stubClient{}
	client := NewCircuitBreakerClient(stub, DefaultBreakerConfig(), nil)

	resp, err := client.Chat(context.Background(), []types.Message{{Role: types.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 1, stub.calls)
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	stub := &stubClient{err: errors.New("provider down")}
	client := NewCircuitBreakerClient(stub, DefaultBreakerConfig(), nil)

	messages := []types.Message{{Role: types.RoleUser, Content: "hi"}}
	for i := 0; i < 5; i++ {
		_, err := client.Chat(context.Background(), messages)
		require.Error(t, err)
	}

	// Once open, calls fail fast without reaching the provider.
	callsBefore := stub.calls
	_, err := client.Chat(context.Background(), messages)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, callsBefore, stub.calls)
}
