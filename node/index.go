package node

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IndexRequest indexes one document.
type IndexRequest struct {
	// Index is the target index name or alias.
	Index string
	// Type is the document type. Optional.
	Type string
	// ID is the document identifier. Generated when empty.
	ID string
	// Source holds the document fields.
	Source map[string]any
}

// IndexResponse reports where a document was stored.
type IndexResponse struct {
	Index string `json:"_index"`
	Type  string `json:"_type,omitempty"`
	ID    string `json:"_id"`
	// Created is false when an existing document was replaced.
	Created bool `json:"created"`
}

// prepare resolves defaults and returns the source handed to the engine.
func (r *IndexRequest) prepare(h *indexHandle) map[string]any {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Type == "" {
		r.Type = h.meta.DefaultType
	}
	src := maps.Clone(r.Source)
	if src == nil {
		src = map[string]any{}
	}
	if r.Type != "" {
		src[typeField] = r.Type
	}
	return src
}

// Index stores a single document.
func (n *Node) Index(ctx context.Context, req IndexRequest) (IndexResponse, error) {
	if err := ctx.Err(); err != nil {
		return IndexResponse{}, err
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	h, err := n.resolve(req.Index)
	if err != nil {
		return IndexResponse{}, err
	}

	src := req.prepare(h)
	existing, err := h.idx.Document(req.ID)
	if err != nil {
		return IndexResponse{}, fmt.Errorf("lookup document %s in %s: %w", req.ID, h.name, err)
	}
	if err := h.idx.Index(req.ID, src); err != nil {
		return IndexResponse{}, fmt.Errorf("index document %s into %s: %w", req.ID, h.name, err)
	}
	return IndexResponse{Index: h.name, Type: req.Type, ID: req.ID, Created: existing == nil}, nil
}

// Count returns the number of documents in the index named by nameOrAlias.
func (n *Node) Count(ctx context.Context, nameOrAlias string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	h, err := n.resolve(nameOrAlias)
	if err != nil {
		return 0, err
	}
	count, err := h.idx.DocCount()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", h.name, err)
	}
	return count, nil
}

// BulkRequest batches many index operations into one submission.
type BulkRequest struct {
	node  *Node
	items []IndexRequest
}

// PrepareBulk starts a bulk submission.
func (n *Node) PrepareBulk() *BulkRequest {
	return &BulkRequest{node: n}
}

// Add queues index operations.
func (b *BulkRequest) Add(reqs ...IndexRequest) *BulkRequest {
	b.items = append(b.items, reqs...)
	return b
}

// Len returns the number of queued operations.
func (b *BulkRequest) Len() int {
	return len(b.items)
}

// BulkItemResponse is the outcome of one bulk operation.
type BulkItemResponse struct {
	Index string `json:"_index"`
	Type  string `json:"_type,omitempty"`
	ID    string `json:"_id"`
	Error string `json:"error,omitempty"`
}

// Failed reports whether the operation failed.
func (i BulkItemResponse) Failed() bool {
	return i.Error != ""
}

// BulkResponse reports the outcome of a bulk submission. Items keep the
// order in which operations were added.
type BulkResponse struct {
	Took   time.Duration      `json:"-"`
	Errors bool               `json:"errors"`
	Items  []BulkItemResponse `json:"items"`
}

// HasFailures reports whether any operation failed.
func (r *BulkResponse) HasFailures() bool {
	return r.Errors
}

// TookInMillis returns the submission duration in milliseconds.
func (r *BulkResponse) TookInMillis() int64 {
	return r.Took.Milliseconds()
}

type pendingBatch struct {
	handle *indexHandle
	batch  *bleve.Batch
	items  []int
}

// Do submits the queued operations. Operations are grouped into one engine
// batch per target index; a failing index only fails its own operations.
func (b *BulkRequest) Do(ctx context.Context) (*BulkResponse, error) {
	if len(b.items) == 0 {
		return nil, ErrEmptyBulk
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := b.node
	start := time.Now()

	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return nil, ErrNodeClosed
	}

	resp := &BulkResponse{Items: make([]BulkItemResponse, len(b.items))}
	batches := make(map[string]*pendingBatch)
	var order []string

	for i := range b.items {
		req := b.items[i]
		item := &resp.Items[i]
		item.Index, item.Type, item.ID = req.Index, req.Type, req.ID

		h, err := n.resolve(req.Index)
		if err != nil {
			item.Error = err.Error()
			continue
		}

		pb, ok := batches[h.name]
		if !ok {
			pb = &pendingBatch{handle: h, batch: h.idx.NewBatch()}
			batches[h.name] = pb
			order = append(order, h.name)
		}

		src := req.prepare(h)
		item.Index, item.Type, item.ID = h.name, req.Type, req.ID
		if err := pb.batch.Index(req.ID, src); err != nil {
			item.Error = err.Error()
			continue
		}
		pb.items = append(pb.items, i)
	}

	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pb := batches[name]
		if len(pb.items) == 0 {
			continue
		}
		if err := pb.handle.idx.Batch(pb.batch); err != nil {
			n.logger.Warn("Bulk batch failed", zap.String("index", name), zap.Error(err))
			for _, i := range pb.items {
				resp.Items[i].Error = err.Error()
			}
		}
	}

	for _, item := range resp.Items {
		if item.Failed() {
			resp.Errors = true
			break
		}
	}
	resp.Took = time.Since(start)

	n.logger.Debug("Bulk executed",
		zap.Int("items", len(resp.Items)),
		zap.Bool("errors", resp.Errors),
		zap.Duration("took", resp.Took))
	return resp, nil
}
