package voyage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundbench/soundbench/internal/core/domain"
	"github.com/soundbench/soundbench/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *EmbeddingService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewEmbeddingService(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)
	return svc
}

func TestNewEmbeddingServiceRequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	require.Error(t, err)
}

func TestDefaultDimensions(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, 1024, svc.Dimensions())
	assert.Equal(t, DefaultModel, svc.ModelName())

	svc, err = NewEmbeddingService(Config{APIKey: "k", Model: "voyage-3-lite"})
	require.NoError(t, err)
	assert.Equal(t, 512, svc.Dimensions())
}

func TestEmbedBatchSendsInputType(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "document", req.InputType)
		assert.Equal(t, []string{"one", "two"}, req.Input)

		fmt.Fprint(w, `{"data":[
			{"index":1,"embedding":[0.3,0.4]},
			{"index":0,"embedding":[0.1,0.2]}
		]}`)
	})

	out, err := svc.EmbedBatch(context.Background(), []string{"one", "two"}, driven.InputDocument)
	require.NoError(t, err)
	require.Len(t, out, 2)
	// Responses arrive out of order; index field restores input order.
	assert.Equal(t, []float32{0.1, 0.2}, out[0])
	assert.Equal(t, []float32{0.3, 0.4}, out[1])
}

func TestEmbedQueryInputType(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "query", req.InputType)
		fmt.Fprint(w, `{"data":[{"index":0,"embedding":[1]}]}`)
	})

	vec, err := svc.Embed(context.Background(), "what is the delay time", driven.InputQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty input")
	})

	out, err := svc.EmbedBatch(context.Background(), nil, driven.InputDocument)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestEmbedBatchRateLimited(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"detail":"rate limit exceeded"}`)
	})

	_, err := svc.EmbedBatch(context.Background(), []string{"x"}, driven.InputDocument)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestEmbedBatchAPIError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"detail":"invalid api key"}`)
	})

	_, err := svc.EmbedBatch(context.Background(), []string{"x"}, driven.InputDocument)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}
