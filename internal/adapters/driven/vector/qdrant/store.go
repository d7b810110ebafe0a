// Package qdrant provides a vector store adapter backed by the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/soundbench/soundbench/internal/core/domain"
	"github.com/soundbench/soundbench/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultURL        = "http://localhost:6333"
	DefaultCollection = "studio_manuals"
	DefaultTimeout    = 30 * time.Second

	// facetLimit bounds the distinct values returned per payload key.
	facetLimit = 1000
)

// Config holds configuration for the Qdrant vector store.
type Config struct {
	// URL is the Qdrant REST endpoint (default: http://localhost:6333).
	URL string

	// APIKey authenticates requests when the instance requires it.
	APIKey string

	// Collection is the collection name (default: studio_manuals).
	Collection string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Store is a REST client to a single Qdrant collection. Points are keyed by
// chunk ID, so re-upserting the same chunks replaces rather than duplicates.
type Store struct {
	client     *http.Client
	url        string
	apiKey     string
	collection string
}

// point is the Qdrant point format for upserts.
type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// fieldCondition matches a payload key against any of the given values.
type fieldCondition struct {
	Key   string `json:"key"`
	Match struct {
		Any []string `json:"any"`
	} `json:"match"`
}

// searchRequest is the Qdrant points/search request format.
type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
	Filter      *struct {
		Should []fieldCondition `json:"should"`
	} `json:"filter,omitempty"`
}

// searchResponse is the Qdrant points/search response format.
type searchResponse struct {
	Result []struct {
		ID      string         `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// facetResponse is the Qdrant points/facet response format.
type facetResponse struct {
	Result struct {
		Hits []struct {
			Value string `json:"value"`
			Count int    `json:"count"`
		} `json:"hits"`
	} `json:"result"`
}

// NewStore creates a new Qdrant vector store client.
func NewStore(cfg Config) *Store {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Store{
		client:     &http.Client{Timeout: cfg.Timeout},
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
	}
}

// EnsureCollection creates the collection if it does not exist. Qdrant treats
// a repeated create with the same schema as success.
func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("qdrant: %w: dimension must be positive", domain.ErrInvalidInput)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	path := fmt.Sprintf("/collections/%s", s.collection)
	if err := s.do(ctx, http.MethodPut, path, body, nil); err != nil {
		// An existing collection with matching schema returns a conflict on
		// some versions. Verify before giving up.
		if getErr := s.do(ctx, http.MethodGet, path, nil, nil); getErr == nil {
			return nil
		}
		return err
	}
	return nil
}

// Upsert inserts or replaces points for the given embedding records. The
// chunk ID doubles as the point ID, which makes re-indexing idempotent.
func (s *Store) Upsert(ctx context.Context, manual domain.ManualInfo, records []domain.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]point, len(records))
	for i, rec := range records {
		points[i] = point{
			ID:     rec.ID,
			Vector: rec.Vector,
			Payload: map[string]any{
				"document":     rec.Document,
				"heading_path": rec.HeadingPath,
				"text":         rec.Text,
				"context":      rec.Context,
				"brand":        manual.Brand,
				"model":        manual.Model,
				"product_type": manual.ProductType,
				"keywords":     manual.Keywords,
			},
		}
	}

	body := map[string]any{"points": points}
	path := fmt.Sprintf("/collections/%s/points?wait=true", s.collection)
	return s.do(ctx, http.MethodPut, path, body, nil)
}

// Search finds the k nearest chunks to the query vector. A non-empty filter
// restricts results to manuals matching any of the given brands or models.
func (s *Store) Search(ctx context.Context, vector []float32, k int, filter domain.QueryEntities) ([]domain.VectorHit, error) {
	if k <= 0 {
		k = 5
	}

	req := searchRequest{
		Vector:      vector,
		Limit:       k,
		WithPayload: true,
	}
	if !filter.Empty() {
		var conditions []fieldCondition
		if len(filter.Brands) > 0 {
			c := fieldCondition{Key: "brand"}
			c.Match.Any = filter.Brands
			conditions = append(conditions, c)
		}
		if len(filter.Models) > 0 {
			c := fieldCondition{Key: "model"}
			c.Match.Any = filter.Models
			conditions = append(conditions, c)
		}
		req.Filter = &struct {
			Should []fieldCondition `json:"should"`
		}{Should: conditions}
	}

	var resp searchResponse
	path := fmt.Sprintf("/collections/%s/points/search", s.collection)
	if err := s.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}

	hits := make([]domain.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := domain.VectorHit{
			ChunkID: r.ID,
			Score:   r.Score,
		}
		if v, ok := r.Payload["document"].(string); ok {
			hit.Document = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			hit.Text = v
		}
		if path, ok := r.Payload["heading_path"].([]any); ok {
			for _, p := range path {
				if str, ok := p.(string); ok {
					hit.HeadingPath = append(hit.HeadingPath, str)
				}
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// KnownEntities returns the distinct brands and models stored in the
// collection, via the payload facet API.
func (s *Store) KnownEntities(ctx context.Context) (domain.KnownEntities, error) {
	brands, err := s.facet(ctx, "brand")
	if err != nil {
		return domain.KnownEntities{}, err
	}
	models, err := s.facet(ctx, "model")
	if err != nil {
		return domain.KnownEntities{}, err
	}
	return domain.KnownEntities{Brands: brands, Models: models}, nil
}

// facet returns the distinct values of one payload key.
func (s *Store) facet(ctx context.Context, key string) ([]string, error) {
	body := map[string]any{
		"key":   key,
		"limit": facetLimit,
	}
	var resp facetResponse
	path := fmt.Sprintf("/collections/%s/facet", s.collection)
	if err := s.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}

	values := make([]string, 0, len(resp.Result.Hits))
	for _, hit := range resp.Result.Hits {
		if hit.Value != "" {
			values = append(values, hit.Value)
		}
	}
	return values, nil
}

// Ping validates the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, http.MethodGet, "/collections", nil, nil); err != nil {
		return fmt.Errorf("qdrant: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// do performs one JSON request against the Qdrant API.
func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant: %w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant %s %s failed (status %d): %s", method, path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
