package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{BaseURL: srv.URL, APIKey: "test-key"})
	require.NoError(t, err)
	return client, srv
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	client, err := New(Config{BaseURL: "http://localhost:8000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", client.BaseURL())
}

func TestProbe_Success(t *testing.T) {
	var gotKey, gotAgent string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotAgent = r.Header.Get("User-Agent")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "brainz OS is running."})
	}))

	res, err := client.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "brainz OS is running.", res.Message)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, userAgent, gotAgent)
}

func TestProbe_MissingMessageIsError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))

	_, err := client.Probe(context.Background())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "probe", terr.Op)
}

func TestDoJSON_Non2xxCarriesUpstreamDetail(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail":"model not loaded"}`))
	}))

	_, err := client.Probe(context.Background())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusServiceUnavailable, terr.StatusCode)
	assert.Equal(t, `{"detail":"model not loaded"}`, terr.Detail)
}

func TestQuery_InBandErrorBecomesTransportError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"session_id": "abc",
			"error":      "generation exploded",
		})
	}))

	_, err := client.Query(context.Background(), QueryRequest{Input: "hi", MaxTokens: 10, Temperature: 0.7})
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "query", terr.Op)
	assert.Equal(t, "generation exploded", terr.Detail)
}

func TestQuery_DecodesMeta(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what is a wallet?", req.Input)
		assert.Equal(t, 64, req.MaxTokens)

		_ = json.NewEncoder(w).Encode(QueryResponse{
			SessionID: "s-1",
			Response:  "a wallet holds keys",
			Meta:      &QueryMeta{TotalTokens: 42, Model: "brainz-7b"},
		})
	}))

	res, err := client.Query(context.Background(), QueryRequest{Input: "what is a wallet?", MaxTokens: 64, Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "a wallet holds keys", res.Response)
	require.NotNil(t, res.Meta)
	assert.Equal(t, 42, res.Meta.TotalTokens)
	assert.Equal(t, "brainz-7b", res.Meta.Model)
}

func TestTrain_RoundTrip(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/llm/train", r.URL.Path)
		var req TrainRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.DryRun)
		assert.Equal(t, []string{"a b c", "d e f"}, req.Texts)

		_ = json.NewEncoder(w).Encode(TrainResponse{
			Status:          "simulated",
			TrainedSamples:  2,
			EstimatedTokens: 12,
			DryRun:          true,
			Meta:            &TrainMeta{SessionID: "sess-9"},
		})
	}))

	res, err := client.Train(context.Background(), TrainRequest{
		Texts:  []string{"a b c", "d e f"},
		DryRun: true,
		Source: "console",
	})
	require.NoError(t, err)
	assert.Equal(t, "simulated", res.Status)
	assert.Equal(t, 2, res.TrainedSamples)
	assert.Equal(t, "sess-9", res.SessionID())
}

func TestTrainStatus_SendsSessionIDAsQueryParam(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/llm/train/status", r.URL.Path)
		assert.Equal(t, "sess-9", r.URL.Query().Get("session_id"))
		_ = json.NewEncoder(w).Encode(TrainStatusResponse{Status: "running", Progress: 0.4})
	}))

	res, err := client.TrainStatus(context.Background(), "sess-9")
	require.NoError(t, err)
	assert.Equal(t, "running", res.Status)
	assert.InDelta(t, 0.4, res.Progress, 1e-9)
}

func TestTrainStatus_EmptySessionID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty session id")
	}))

	_, err := client.TrainStatus(context.Background(), "  ")
	assert.Error(t, err)
}

func TestDoJSON_NetworkFailureWrapsCause(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := client.Probe(context.Background())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Zero(t, terr.StatusCode)
	assert.NotNil(t, errors.Unwrap(terr))
}

func TestDoJSON_MalformedBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))

	_, err := client.Health(context.Background())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "malformed response body", terr.Detail)
}
