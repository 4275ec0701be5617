package match

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/facetrack/internal/config"
	"github.com/your-org/facetrack/internal/index"
	"github.com/your-org/facetrack/internal/observability"
	"github.com/your-org/facetrack/internal/storage"
	"github.com/your-org/facetrack/internal/vision"
)

// VectorIndex is the similarity search the engine prefers. The Qdrant
// client satisfies it.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, limit int, minScore float64) ([]index.Hit, error)
}

// IdentitySearcher runs a similarity search in the relational store. The
// Postgres store satisfies it via pgvector.
type IdentitySearcher interface {
	SearchIdentities(ctx context.Context, embedding []float32, threshold float64, limit int) ([]storage.SearchMatch, error)
}

// Result is one accepted identity match. Fallback marks hits that cleared
// only the lower threshold.
type Result struct {
	PersonID uuid.UUID
	Name     string
	Score    float64
	Fallback bool
}

// Engine matches face embeddings against enrolled identities. The vector
// index is the primary path; when it is unreachable the engine degrades to
// a pgvector search in Postgres, then to a brute-force cosine scan over
// the cached identity vectors.
type Engine struct {
	idx   VectorIndex
	store IdentitySearcher
	cache *Cache
	cfg   config.PipelineConfig
}

func NewEngine(idx VectorIndex, store IdentitySearcher, cache *Cache, cfg config.PipelineConfig) *Engine {
	return &Engine{idx: idx, store: store, cache: cache, cfg: cfg}
}

// Match returns the best identity for the embedding, or (nil, nil) when
// nothing clears the thresholds. override replaces the primary threshold
// for this call only. An error means every match path failed.
func (e *Engine) Match(ctx context.Context, embedding []float32, override *float64) (*Result, error) {
	if len(embedding) != e.cfg.VectorSize {
		embedding = vision.ResizeVector(embedding, e.cfg.VectorSize)
	}

	primary := e.cfg.PrimaryThreshold
	if override != nil {
		primary = *override
	}

	start := time.Now()
	hits, err := e.idx.Search(ctx, embedding, e.cfg.TopK, e.cfg.FallbackThreshold)
	observability.MatchDuration.WithLabelValues("index").Observe(time.Since(start).Seconds())
	if err == nil {
		return e.accept(bestHit(hits), primary), nil
	}

	slog.Warn("vector index search failed, falling back to postgres", "error", err)

	if e.store != nil {
		start = time.Now()
		matches, serr := e.store.SearchIdentities(ctx, embedding, e.cfg.FallbackThreshold, e.cfg.TopK)
		observability.MatchDuration.WithLabelValues("store").Observe(time.Since(start).Seconds())
		if serr == nil {
			return e.accept(bestStoreHit(matches), primary), nil
		}
		slog.Warn("postgres vector search failed, falling back to cached vectors", "error", serr)
	}

	start = time.Now()
	result, err := e.bruteForce(ctx, embedding, primary)
	observability.MatchDuration.WithLabelValues("fallback").Observe(time.Since(start).Seconds())
	return result, err
}

// bestStoreHit converts the top pgvector row, already ordered by distance.
func bestStoreHit(matches []storage.SearchMatch) *index.Hit {
	if len(matches) == 0 {
		return nil
	}
	m := matches[0]
	return &index.Hit{ID: m.PersonID, Score: m.Score, Payload: map[string]string{"name": m.Name}}
}

func bestHit(hits []index.Hit) *index.Hit {
	var best *index.Hit
	for i := range hits {
		if best == nil || hits[i].Score > best.Score {
			best = &hits[i]
		}
	}
	return best
}

// accept applies the two-tier threshold rule to the best candidate.
func (e *Engine) accept(hit *index.Hit, primary float64) *Result {
	if hit == nil {
		observability.FacesMatched.WithLabelValues("none").Inc()
		return nil
	}
	switch {
	case hit.Score >= primary:
		observability.FacesMatched.WithLabelValues("primary").Inc()
		return &Result{PersonID: hit.ID, Name: hit.Payload["name"], Score: hit.Score}
	case hit.Score >= e.cfg.FallbackThreshold:
		observability.FacesMatched.WithLabelValues("fallback").Inc()
		return &Result{PersonID: hit.ID, Name: hit.Payload["name"], Score: hit.Score, Fallback: true}
	default:
		observability.FacesMatched.WithLabelValues("none").Inc()
		return nil
	}
}

func (e *Engine) bruteForce(ctx context.Context, embedding []float32, primary float64) (*Result, error) {
	vectors, err := e.cache.Vectors(ctx)
	if err != nil {
		return nil, err
	}

	best := index.Hit{Score: -1}
	found := false
	for _, iv := range vectors {
		candidate := iv.Embedding
		if len(candidate) != len(embedding) {
			candidate = vision.ResizeVector(candidate, len(embedding))
		}
		score := vision.CosineSimilarity(embedding, candidate)
		if score > best.Score {
			best = index.Hit{ID: iv.ID, Score: score, Payload: map[string]string{"name": iv.Name}}
			found = true
		}
	}
	if !found {
		observability.FacesMatched.WithLabelValues("none").Inc()
		return nil, nil
	}
	return e.accept(&best, primary), nil
}
