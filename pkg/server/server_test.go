package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphweave/graphweave"
	"github.com/graphweave/graphweave/pkg/config"
	"github.com/graphweave/graphweave/pkg/server/dto"
	"github.com/graphweave/graphweave/pkg/store"
)

type testServer struct {
	srv        *Server
	store      *store.MemoryStore
	dispatcher *graphweave.Dispatcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := graphweave.NewClient(s, nil, nil, nil, logger)
	require.NoError(t, err)

	dispatcher := graphweave.NewDispatcher(1, 8, logger)

	cfg := &config.Config{}
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 0
	cfg.Server.Mode = ginTestMode

	srv := New(cfg, engine, dispatcher, logger)
	srv.Setup()

	return &testServer{srv: srv, store: s, dispatcher: dispatcher}
}

const ginTestMode = "test"

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)
	defer ts.dispatcher.Close()

	rec := ts.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "graphweave", body["service"])
}

func TestReadinessCheck(t *testing.T) {
	ts := newTestServer(t)
	defer ts.dispatcher.Close()

	rec := ts.do(t, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExtractSync(t *testing.T) {
	ts := newTestServer(t)
	defer ts.dispatcher.Close()

	rec := ts.do(t, http.MethodPost, "/api/v1/extract/sync", dto.ExtractRequest{Text: "Paris is a city."}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result dto.ExtractResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "Paris", result.Triples[0].Subject)
	assert.Equal(t, "is a", result.Triples[0].Predicate)
	assert.Equal(t, "city", result.Triples[0].Object)
	assert.InDelta(t, 0.7, result.Triples[0].Confidence, 1e-9)
}

func TestExtractSyncConversation(t *testing.T) {
	ts := newTestServer(t)
	defer ts.dispatcher.Close()

	req := dto.ExtractRequest{
		Messages: []dto.Message{
			{Role: "user", Content: "Alice knows Bob"},
		},
	}
	rec := ts.do(t, http.MethodPost, "/api/v1/extract/sync", req, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result dto.ExtractResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "knows", result.Triples[0].Predicate)
}

func TestExtractAsync(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/extract", dto.ExtractRequest{Text: "Paris is a city."}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted dto.ExtractAccepted
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	assert.True(t, accepted.Success)
	assert.NotEmpty(t, accepted.ProcessID)

	// Close drains the queue, so the extraction has run by now.
	ts.dispatcher.Close()

	triples, err := ts.store.FilterTriples(context.Background(), store.TripleFilter{Tenant: "default"})
	require.NoError(t, err)
	assert.Len(t, triples, 1)
}

func TestExtractValidation(t *testing.T) {
	ts := newTestServer(t)
	defer ts.dispatcher.Close()

	rec := ts.do(t, http.MethodPost, "/api/v1/extract/sync", dto.ExtractRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	both := dto.ExtractRequest{
		Text:     "some text",
		Messages: []dto.Message{{Role: "user", Content: "hi"}},
	}
	rec = ts.do(t, http.MethodPost, "/api/v1/extract/sync", both, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTenantIsolation(t *testing.T) {
	ts := newTestServer(t)
	defer ts.dispatcher.Close()

	rec := ts.do(t, http.MethodPost, "/api/v1/extract/sync", dto.ExtractRequest{Text: "Alice knows Bob"}, map[string]string{"X-API-Key": "tenant-a"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/triples", nil, map[string]string{"X-API-Key": "tenant-a"})
	require.Equal(t, http.StatusOK, rec.Code)
	var listA dto.TriplesResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listA))
	assert.Equal(t, 1, listA.Count)

	rec = ts.do(t, http.MethodGet, "/api/v1/triples", nil, map[string]string{"X-API-Key": "tenant-b"})
	require.Equal(t, http.StatusOK, rec.Code)
	var listB dto.TriplesResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listB))
	assert.Equal(t, 0, listB.Count)
}

func TestIntegrateEndpoint(t *testing.T) {
	ts := newTestServer(t)
	defer ts.dispatcher.Close()

	ctx := context.Background()
	_, _, err := ts.store.GetOrCreateEntity(ctx, "Alice", "person", "", "default")
	require.NoError(t, err)
	_, _, err = ts.store.GetOrCreateEntity(ctx, "Bob", "person", "", "default")
	require.NoError(t, err)

	rec := ts.do(t, http.MethodPost, "/api/v1/integrate", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result dto.IntegrateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Created)
}

func TestListEntities(t *testing.T) {
	ts := newTestServer(t)
	defer ts.dispatcher.Close()

	ctx := context.Background()
	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		_, _, err := ts.store.GetOrCreateEntity(ctx, name, "", "", "default")
		require.NoError(t, err)
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/entities?limit=2", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}
