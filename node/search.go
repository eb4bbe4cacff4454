package node

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"
)

const defaultSearchSize = 10

// SearchRequest describes a search.
type SearchRequest struct {
	// Query selects documents. Nil matches everything.
	Query Query
	// From skips the first hits.
	From int
	// Size caps the number of hits returned. Default: 10.
	Size int
	// Aggregations are computed over every matching document.
	Aggregations []*TermsAggregation
}

// SearchHit is a single matching document.
type SearchHit struct {
	Index  string         `json:"_index"`
	Type   string         `json:"_type,omitempty"`
	ID     string         `json:"_id"`
	Score  float64        `json:"_score"`
	Source map[string]any `json:"_source,omitempty"`
}

// SearchHits holds the matching documents.
type SearchHits struct {
	Total    uint64      `json:"total"`
	MaxScore float64     `json:"max_score"`
	Hits     []SearchHit `json:"hits"`
}

// IDs returns the identifiers of the hits.
func (h SearchHits) IDs() []string {
	ids := make([]string, len(h.Hits))
	for i, hit := range h.Hits {
		ids[i] = hit.ID
	}
	return ids
}

// FilterByMinScore returns hits with score >= minScore.
func (h SearchHits) FilterByMinScore(minScore float64) []SearchHit {
	var filtered []SearchHit
	for _, hit := range h.Hits {
		if hit.Score >= minScore {
			filtered = append(filtered, hit)
		}
	}
	return filtered
}

// SearchResponse is the raw result of a search.
type SearchResponse struct {
	Took         time.Duration `json:"-"`
	TookInMillis int64         `json:"took"`
	TimedOut     bool          `json:"timed_out"`
	Hits         SearchHits    `json:"hits"`
	Aggregations Aggregations  `json:"aggregations,omitempty"`
}

// String renders the response as indented JSON.
func (r *SearchResponse) String() string {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}

// Search runs req against the index named by nameOrAlias.
func (n *Node) Search(ctx context.Context, nameOrAlias string, req SearchRequest) (*SearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q, err := buildOrMatchAll(req.Query)
	if err != nil {
		return nil, err
	}
	size := req.Size
	if size <= 0 {
		size = defaultSearchSize
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	h, err := n.resolve(nameOrAlias)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	sr := bleve.NewSearchRequestOptions(q, size, max(req.From, 0), false)
	sr.Fields = []string{"*"}
	res, err := h.idx.SearchInContext(ctx, sr)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", h.name, err)
	}

	resp := &SearchResponse{
		Hits: SearchHits{
			Total:    res.Total,
			MaxScore: finite(res.MaxScore),
			Hits:     make([]SearchHit, 0, len(res.Hits)),
		},
	}
	for _, dm := range res.Hits {
		resp.Hits.Hits = append(resp.Hits.Hits, SearchHit{
			Index:  h.name,
			Type:   h.meta.DefaultType,
			ID:     dm.ID,
			Score:  finite(dm.Score),
			Source: dm.Fields,
		})
	}

	if len(req.Aggregations) > 0 {
		aggs, err := n.aggregate(ctx, h, q, res.Total, req.Aggregations)
		if err != nil {
			return nil, err
		}
		resp.Aggregations = aggs
	}

	resp.Took = time.Since(start)
	resp.TookInMillis = resp.Took.Milliseconds()

	n.logger.Debug("Search executed",
		zap.String("index", h.name),
		zap.Uint64("total", res.Total),
		zap.Duration("took", resp.Took))
	return resp, nil
}

// aggregate loads the stored fields of every match and buckets them.
// Callers hold n.mu.
func (n *Node) aggregate(ctx context.Context, h *indexHandle, q query.Query, total uint64, aggs []*TermsAggregation) (Aggregations, error) {
	var docs []map[string]any
	if total > 0 {
		var fields []string
		for _, a := range aggs {
			fields = a.fields(fields)
		}
		sr := bleve.NewSearchRequestOptions(q, int(total), 0, false)
		sr.Fields = fields
		res, err := h.idx.SearchInContext(ctx, sr)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", h.name, err)
		}
		docs = make([]map[string]any, 0, len(res.Hits))
		for _, dm := range res.Hits {
			docs = append(docs, dm.Fields)
		}
	}

	out := make(Aggregations, len(aggs))
	for _, a := range aggs {
		out[a.name] = a.compute(docs)
	}
	return out, nil
}

// finite maps NaN and infinities to zero so responses stay valid JSON.
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
