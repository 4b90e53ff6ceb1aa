package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/wyrmwatch/sentinel/model"
)

// DefaultCorrelationThreshold is findPatterns' default minimum cosine
// similarity for pairing a present event with a future one.
const DefaultCorrelationThreshold = 0.3

// VectorRecord is a memory Record plus its embedding.
type VectorRecord struct {
	Record
	Embedding []float64
}

// VectorStore extends Store with embedding-backed semantic search.
type VectorStore struct {
	*Store
	embedder  model.EmbedderClient
	vectors   map[string][]float64
}

// NewVectorStore wraps a Store with an embedder used to vectorize every
// stored value's text representation.
func NewVectorStore(base *Store, embedder model.EmbedderClient) *VectorStore {
	return &VectorStore{Store: base, embedder: embedder, vectors: make(map[string][]float64)}
}

// SetText stores text under key (tagged timeline) and embeds it for later
// semantic search.
func (v *VectorStore) SetText(ctx context.Context, key, text, timeline string) error {
	if err := v.Store.Set(ctx, key, text, timeline); err != nil {
		return err
	}
	vec, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("memory: embed %q: %w", key, err)
	}
	v.mu.Lock()
	v.vectors[key] = vec
	v.mu.Unlock()
	return nil
}

// ScoredRecord pairs a record with its cosine similarity to a query.
type ScoredRecord struct {
	Record Record
	Score  float64
}

// SemanticSearch returns the nResults records with highest cosine
// similarity to query, ordered descending.
func (v *VectorStore) SemanticSearch(ctx context.Context, query string, nResults int) ([]ScoredRecord, error) {
	qvec, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}

	v.mu.RLock()
	scored := make([]ScoredRecord, 0, len(v.vectors))
	for key, vec := range v.vectors {
		rec, ok := v.byKey[key]
		if !ok {
			continue
		}
		scored = append(scored, ScoredRecord{Record: *rec, Score: cosineSimilarity(qvec, vec)})
	}
	v.mu.RUnlock()

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if nResults >= 0 && nResults < len(scored) {
		scored = scored[:nResults]
	}
	return scored, nil
}

// TimelineCorrelation is one findPatterns("timeline_correlation") result: a
// present event paired with a future event whose embeddings are similar
// above threshold.
type TimelineCorrelation struct {
	PresentEvent Record
	FutureEvent  Record
	Confidence   float64
}

// FindTimelineCorrelations pairs every present-tagged record with every
// future-tagged record whose cosine similarity exceeds threshold. Pass a
// negative threshold to use DefaultCorrelationThreshold.
func (v *VectorStore) FindTimelineCorrelations(threshold float64) []TimelineCorrelation {
	if threshold < 0 {
		threshold = DefaultCorrelationThreshold
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	var present, future []*Record
	for _, rec := range v.byKey {
		switch rec.Timeline {
		case "present":
			present = append(present, rec)
		case "future":
			future = append(future, rec)
		}
	}

	var out []TimelineCorrelation
	for _, p := range present {
		pvec, ok := v.vectors[p.Key]
		if !ok {
			continue
		}
		for _, f := range future {
			fvec, ok := v.vectors[f.Key]
			if !ok {
				continue
			}
			score := cosineSimilarity(pvec, fvec)
			if score > threshold {
				out = append(out, TimelineCorrelation{PresentEvent: *p, FutureEvent: *f, Confidence: score})
			}
		}
	}
	return out
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
