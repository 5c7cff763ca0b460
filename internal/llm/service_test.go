package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainzmonster/os/internal/api"
	"github.com/brainzmonster/os/internal/retry"
)

type fakeQueryClient struct {
	mu    sync.Mutex
	calls []api.QueryRequest

	queryFn func(req api.QueryRequest) (api.QueryResponse, error)
}

func (f *fakeQueryClient) Query(ctx context.Context, req api.QueryRequest) (api.QueryResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.queryFn != nil {
		return f.queryFn(req)
	}
	return api.QueryResponse{SessionID: "s-1", Response: "answer"}, nil
}

func (f *fakeQueryClient) QueryStream(ctx context.Context, req api.QueryRequest) (*api.Stream, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return nil, &api.TransportError{Op: "query-stream", Detail: "streaming unavailable"}
}

func (f *fakeQueryClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestQuery_EmptyPromptRejectedBeforeNetwork(t *testing.T) {
	client := &fakeQueryClient{}
	s := NewService(client, Options{})

	_, err := s.Query(context.Background(), Prompt{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Zero(t, client.callCount())
	assert.Empty(t, s.History())
}

func TestQuery_AppliesDefaults(t *testing.T) {
	client := &fakeQueryClient{}
	s := NewService(client, Options{})

	_, err := s.Query(context.Background(), Prompt{Text: " what is brainz? "})
	require.NoError(t, err)

	require.Len(t, client.calls, 1)
	sent := client.calls[0]
	assert.Equal(t, "what is brainz?", sent.Input)
	assert.Equal(t, DefaultMaxTokens, sent.MaxTokens)
	assert.InDelta(t, DefaultTemperature, sent.Temperature, 1e-9)
}

func TestQuery_PromptOverridesDefaults(t *testing.T) {
	client := &fakeQueryClient{}
	s := NewService(client, Options{MaxTokens: 50, Temperature: 0.2})

	_, err := s.Query(context.Background(), Prompt{Text: "hi", MaxTokens: 256, Temperature: 1.1})
	require.NoError(t, err)

	sent := client.calls[0]
	assert.Equal(t, 256, sent.MaxTokens)
	assert.InDelta(t, 1.1, sent.Temperature, 1e-9)
}

func TestQuery_PromptRememberedEvenWhenUpstreamFails(t *testing.T) {
	client := &fakeQueryClient{queryFn: func(req api.QueryRequest) (api.QueryResponse, error) {
		return api.QueryResponse{}, &api.TransportError{Op: "query", StatusCode: 502, Detail: "down"}
	}}
	s := NewService(client, Options{})

	_, err := s.Query(context.Background(), Prompt{Text: "remember me"})
	require.Error(t, err)

	records := s.History()
	require.Len(t, records, 1)
	assert.Equal(t, "remember me", records[0].Prompt)
}

func TestQuery_RetriesThenWraps(t *testing.T) {
	cause := &api.TransportError{Op: "query", StatusCode: 503, Detail: "busy"}
	client := &fakeQueryClient{queryFn: func(req api.QueryRequest) (api.QueryResponse, error) {
		return api.QueryResponse{}, cause
	}}
	s := NewService(client, Options{Retries: 2, BaseDelay: time.Millisecond})

	_, err := s.Query(context.Background(), Prompt{Text: "hi"})

	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, client.callCount())
}

func TestQueryStream_ValidatesBeforeOpening(t *testing.T) {
	client := &fakeQueryClient{}
	s := NewService(client, Options{})

	_, err := s.QueryStream(context.Background(), Prompt{Text: ""})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Zero(t, client.callCount())
}

func TestHistory_NewestFirstAndBounded(t *testing.T) {
	client := &fakeQueryClient{}
	s := NewService(client, Options{HistoryLimit: 2})

	for _, text := range []string{"one", "two", "three"} {
		_, err := s.Query(context.Background(), Prompt{Text: text})
		require.NoError(t, err)
	}

	records := s.History()
	require.Len(t, records, 2)
	assert.Equal(t, "three", records[0].Prompt)
	assert.Equal(t, "two", records[1].Prompt)
}
