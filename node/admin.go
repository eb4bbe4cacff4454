package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"go.uber.org/zap"
)

// AllIndices targets every index in DeleteIndex.
const AllIndices = "_all"

const maxIndexNameBytes = 255

// CreateIndexRequest describes a new index.
type CreateIndexRequest struct {
	// Settings is a raw JSON settings payload. Optional.
	Settings string
	// Mappings maps a document type to its raw JSON mapping payload. Optional.
	Mappings map[string]string
	// Aliases are alternative names for the index.
	Aliases []string
}

// CreateIndexResponse acknowledges index creation.
type CreateIndexResponse struct {
	Acknowledged bool   `json:"acknowledged"`
	Index        string `json:"index"`
}

// DeleteIndexResponse acknowledges index deletion.
type DeleteIndexResponse struct {
	Acknowledged bool     `json:"acknowledged"`
	Deleted      []string `json:"deleted,omitempty"`
}

// IndexInfo describes an open index.
type IndexInfo struct {
	Name        string    `json:"name"`
	Aliases     []string  `json:"aliases,omitempty"`
	Types       []string  `json:"types,omitempty"`
	DocCount    uint64    `json:"doc_count"`
	Shards      int       `json:"number_of_shards"`
	Replicas    int       `json:"number_of_replicas"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ValidateIndexName reports whether name is usable as an index or alias name.
func ValidateIndexName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidIndexName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidIndexName, name)
	case len(name) > maxIndexNameBytes:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidIndexName, maxIndexNameBytes)
	case strings.ContainsAny(name[:1], "_-+"):
		return fmt.Errorf("%w: %q must not start with '_', '-' or '+'", ErrInvalidIndexName, name)
	case strings.ToLower(name) != name:
		return fmt.Errorf("%w: %q must be lowercase", ErrInvalidIndexName, name)
	case strings.ContainsAny(name, " \t\r\n\\/*?\"<>|,#:"):
		return fmt.Errorf("%w: %q contains a forbidden character", ErrInvalidIndexName, name)
	}
	return nil
}

// CreateIndex creates an index with optional settings, mappings and aliases.
func (n *Node) CreateIndex(ctx context.Context, name string, req CreateIndexRequest) (CreateIndexResponse, error) {
	if err := ctx.Err(); err != nil {
		return CreateIndexResponse{}, err
	}
	if err := ValidateIndexName(name); err != nil {
		return CreateIndexResponse{}, err
	}
	for _, alias := range req.Aliases {
		if err := ValidateIndexName(alias); err != nil {
			return CreateIndexResponse{}, fmt.Errorf("alias: %w", err)
		}
		if alias == name {
			return CreateIndexResponse{}, fmt.Errorf("%w: alias %s equals the index name", ErrAliasConflict, alias)
		}
	}

	im, settings, err := buildIndexMapping(req.Settings, req.Mappings)
	if err != nil {
		return CreateIndexResponse{}, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return CreateIndexResponse{}, ErrNodeClosed
	}
	if err := n.checkNameFree(name, req.Aliases); err != nil {
		return CreateIndexResponse{}, err
	}

	h := &indexHandle{
		name: name,
		meta: indexMeta{
			Aliases:     slices.Compact(slices.Sorted(slices.Values(req.Aliases))),
			Shards:      settings.shards,
			Replicas:    settings.replicas,
			Types:       sortedTypes(req.Mappings),
			DefaultType: defaultTypeOf(req.Mappings),
			Fingerprint: computeFingerprint(req.Settings, req.Mappings),
			CreatedAt:   time.Now().UTC(),
		},
	}

	if n.cfg.Local {
		h.idx, err = bleve.NewMemOnly(im)
	} else {
		h.path = filepath.Join(n.clusterDir(), name)
		h.idx, err = bleve.New(h.path, im)
	}
	if err != nil {
		return CreateIndexResponse{}, fmt.Errorf("create index %s: %w", name, err)
	}

	raw, err := json.Marshal(h.meta)
	if err == nil {
		err = h.idx.SetInternal(metaKey, raw)
	}
	if err != nil {
		_ = h.idx.Close()
		if h.path != "" {
			_ = os.RemoveAll(h.path)
		}
		return CreateIndexResponse{}, fmt.Errorf("store metadata of %s: %w", name, err)
	}

	n.indices[name] = h
	n.logger.Info("Index created",
		zap.String("index", name),
		zap.Strings("aliases", h.meta.Aliases),
		zap.Strings("types", h.meta.Types))

	return CreateIndexResponse{Acknowledged: true, Index: name}, nil
}

// checkNameFree rejects names already used by an index or alias. Callers hold n.mu.
func (n *Node) checkNameFree(name string, aliases []string) error {
	wanted := append([]string{name}, aliases...)
	for _, h := range n.indices {
		for i, w := range wanted {
			taken := w == h.name || slices.Contains(h.meta.Aliases, w)
			if !taken {
				continue
			}
			if i == 0 {
				return fmt.Errorf("%w: %s", ErrIndexAlreadyExists, name)
			}
			return fmt.Errorf("%w: %s is already used", ErrAliasConflict, w)
		}
	}
	return nil
}

// DeleteIndex deletes the index named by nameOrAlias, or every index when
// given AllIndices or "*". Deleting all indices of an empty node succeeds.
func (n *Node) DeleteIndex(ctx context.Context, nameOrAlias string) (DeleteIndexResponse, error) {
	if err := ctx.Err(); err != nil {
		return DeleteIndexResponse{}, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return DeleteIndexResponse{}, ErrNodeClosed
	}

	resp := DeleteIndexResponse{Acknowledged: true}
	var errs []error

	var targets []*indexHandle
	if nameOrAlias == AllIndices || nameOrAlias == "*" {
		targets = n.sortedHandles()
		for _, name := range slices.Clone(n.failed) {
			errs = append(errs, n.removeFailed(name, &resp))
		}
	} else if slices.Contains(n.failed, nameOrAlias) {
		errs = append(errs, n.removeFailed(nameOrAlias, &resp))
	} else {
		h, err := n.resolve(nameOrAlias)
		if err != nil {
			return DeleteIndexResponse{}, err
		}
		targets = []*indexHandle{h}
	}

	for _, h := range targets {
		delete(n.indices, h.name)
		if err := h.idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close index %s: %w", h.name, err))
		}
		if h.path != "" {
			if err := os.RemoveAll(h.path); err != nil {
				errs = append(errs, fmt.Errorf("remove index %s: %w", h.name, err))
			}
		}
		resp.Deleted = append(resp.Deleted, h.name)
		n.logger.Info("Index deleted", zap.String("index", h.name))
	}

	if err := errors.Join(errs...); err != nil {
		resp.Acknowledged = false
		return resp, err
	}
	return resp, nil
}

// removeFailed removes the directory of an index that could not be
// reopened. Callers hold n.mu.
func (n *Node) removeFailed(name string, resp *DeleteIndexResponse) error {
	if err := os.RemoveAll(filepath.Join(n.clusterDir(), name)); err != nil {
		return fmt.Errorf("remove index %s: %w", name, err)
	}
	n.failed = slices.DeleteFunc(n.failed, func(f string) bool { return f == name })
	resp.Deleted = append(resp.Deleted, name)
	n.logger.Info("Unreadable index removed", zap.String("index", name))
	return nil
}

// GetIndices lists open indices ordered by name.
func (n *Node) GetIndices(ctx context.Context) ([]IndexInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return nil, ErrNodeClosed
	}

	handles := n.sortedHandles()
	out := make([]IndexInfo, 0, len(handles))
	for _, h := range handles {
		count, err := h.idx.DocCount()
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", h.name, err)
		}
		out = append(out, IndexInfo{
			Name:        h.name,
			Aliases:     slices.Clone(h.meta.Aliases),
			Types:       slices.Clone(h.meta.Types),
			DocCount:    count,
			Shards:      h.meta.Shards,
			Replicas:    h.meta.Replicas,
			Fingerprint: h.meta.Fingerprint,
			CreatedAt:   h.meta.CreatedAt,
		})
	}
	return out, nil
}
