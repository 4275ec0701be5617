package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/your-org/facetrack/internal/config"
)

// Client is a minimal Qdrant HTTP client covering the operations the match
// engine and enrollment flow need. Responses are decoded into typed
// contracts rather than generic maps.
type Client struct {
	baseURL    string
	collection string
	http       *http.Client
}

func NewClient(cfg config.QdrantConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL(),
		collection: cfg.Collection,
		http:       &http.Client{Timeout: cfg.Timeout},
	}
}

// Hit is one scored point returned by a similarity search.
type Hit struct {
	ID      uuid.UUID
	Score   float64
	Payload map[string]string
}

type apiStatus struct {
	Status json.RawMessage `json:"status"`
}

type collectionInfoResponse struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

type searchResponse struct {
	Result []struct {
		ID      string            `json:"id"`
		Score   float64           `json:"score"`
		Payload map[string]string `json:"payload"`
	} `json:"result"`
}

type countResponse struct {
	Result struct {
		Count int `json:"count"`
	} `json:"result"`
}

type existsResponse struct {
	Result struct {
		Exists bool `json:"exists"`
	} `json:"result"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read qdrant response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s: status %d: %s", method, path, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode qdrant response: %w", err)
		}
	}
	return nil
}

// Ping verifies the Qdrant instance is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/collections", nil, &apiStatus{})
}

// CollectionExists reports whether the configured collection exists.
func (c *Client) CollectionExists(ctx context.Context) (bool, error) {
	var resp existsResponse
	if err := c.do(ctx, http.MethodGet, "/collections/"+c.collection+"/exists", nil, &resp); err != nil {
		return false, err
	}
	return resp.Result.Exists, nil
}

// EnsureCollection creates the collection when missing. When it exists with
// a different vector size and recreate is set, it is dropped and recreated;
// otherwise the mismatch is an error.
func (c *Client) EnsureCollection(ctx context.Context, vectorSize int, recreate bool) error {
	exists, err := c.CollectionExists(ctx)
	if err != nil {
		return err
	}

	if exists {
		var info collectionInfoResponse
		if err := c.do(ctx, http.MethodGet, "/collections/"+c.collection, nil, &info); err != nil {
			return err
		}
		size := info.Result.Config.Params.Vectors.Size
		if size == vectorSize {
			return nil
		}
		if !recreate {
			return fmt.Errorf("collection %s has vector size %d, want %d", c.collection, size, vectorSize)
		}
		if err := c.do(ctx, http.MethodDelete, "/collections/"+c.collection, nil, nil); err != nil {
			return err
		}
	}

	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	return c.do(ctx, http.MethodPut, "/collections/"+c.collection, body, nil)
}

// UpsertPoint stores or replaces one identity vector.
func (c *Client) UpsertPoint(ctx context.Context, id uuid.UUID, vector []float32, payload map[string]string) error {
	body := map[string]interface{}{
		"points": []map[string]interface{}{
			{
				"id":      id.String(),
				"vector":  vector,
				"payload": payload,
			},
		},
	}
	return c.do(ctx, http.MethodPut, "/collections/"+c.collection+"/points?wait=true", body, nil)
}

// DeletePoint removes one identity vector.
func (c *Client) DeletePoint(ctx context.Context, id uuid.UUID) error {
	body := map[string]interface{}{
		"points": []string{id.String()},
	}
	return c.do(ctx, http.MethodPost, "/collections/"+c.collection+"/points/delete?wait=true", body, nil)
}

// Search returns up to limit hits scoring at least minScore, best first.
func (c *Client) Search(ctx context.Context, vector []float32, limit int, minScore float64) ([]Hit, error) {
	body := map[string]interface{}{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": minScore,
		"with_payload":    true,
	}
	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, "/collections/"+c.collection+"/points/search", body, &resp); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("parse hit id %q: %w", r.ID, err)
		}
		hits = append(hits, Hit{ID: id, Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

// Count returns the exact number of stored points.
func (c *Client) Count(ctx context.Context) (int, error) {
	body := map[string]interface{}{"exact": true}
	var resp countResponse
	if err := c.do(ctx, http.MethodPost, "/collections/"+c.collection+"/points/count", body, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}
