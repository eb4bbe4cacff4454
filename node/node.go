package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"go.uber.org/zap"
)

// Config configures a Node.
type Config struct {
	// ClusterName names the cluster. Persistent indices live under
	// DataDir/ClusterName.
	ClusterName string

	// DataDir is the root directory of persistent indices.
	// Required unless Local is set.
	DataDir string

	// Local keeps every index in memory. Nothing survives Close.
	Local bool

	// Logger receives node events. Default: zap.NewNop().
	Logger *zap.Logger
}

// Node is an embedded single-node search cluster.
//
// Node is safe for concurrent use.
type Node struct {
	cfg    Config
	logger *zap.Logger

	mu      sync.RWMutex
	indices map[string]*indexHandle
	// failed holds directories that could not be reopened at start.
	failed []string
	closed bool
}

type indexHandle struct {
	name string
	path string // empty for in-memory indices
	idx  bleve.Index
	meta indexMeta
}

// indexMeta is persisted in the index internal store.
type indexMeta struct {
	Aliases     []string  `json:"aliases,omitempty"`
	Shards      int       `json:"number_of_shards"`
	Replicas    int       `json:"number_of_replicas"`
	Types       []string  `json:"types,omitempty"`
	DefaultType string    `json:"default_type,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

var metaKey = []byte("_node_meta")

// Start creates a node and, for persistent nodes, reopens every index
// found under DataDir/ClusterName.
func Start(cfg Config) (*Node, error) {
	if strings.TrimSpace(cfg.ClusterName) == "" {
		return nil, fmt.Errorf("%w: cluster name is required", ErrInvalidConfig)
	}
	if !cfg.Local && strings.TrimSpace(cfg.DataDir) == "" {
		return nil, fmt.Errorf("%w: data dir is required for persistent nodes", ErrInvalidConfig)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	n := &Node{
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("cluster", cfg.ClusterName)),
		indices: make(map[string]*indexHandle),
	}

	if !cfg.Local {
		if err := n.reopen(); err != nil {
			_ = n.Close()
			return nil, err
		}
	}

	n.logger.Info("Node started",
		zap.Bool("local", cfg.Local),
		zap.Int("indices", len(n.indices)))
	return n, nil
}

func (n *Node) clusterDir() string {
	return filepath.Join(n.cfg.DataDir, n.cfg.ClusterName)
}

func (n *Node) reopen() error {
	dir := n.clusterDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cluster dir: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read cluster dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		idx, err := bleve.Open(path)
		if err != nil {
			n.logger.Warn("Could not reopen index", zap.String("path", path), zap.Error(err))
			n.failed = append(n.failed, entry.Name())
			continue
		}

		h := &indexHandle{name: entry.Name(), path: path, idx: idx}
		if raw, err := idx.GetInternal(metaKey); err == nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, &h.meta); err != nil {
				n.logger.Warn("Ignoring unreadable index metadata", zap.String("index", h.name), zap.Error(err))
			}
		}
		n.indices[h.name] = h
		n.logger.Debug("Index reopened", zap.String("index", h.name))
	}
	return nil
}

// ClusterName returns the configured cluster name.
func (n *Node) ClusterName() string {
	return n.cfg.ClusterName
}

// Close closes every open index. Close is idempotent.
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true

	var errs []error
	for name, h := range n.indices {
		if err := h.idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close index %s: %w", name, err))
		}
	}
	n.indices = nil
	n.logger.Info("Node closed")
	return errors.Join(errs...)
}

// resolve returns the index named by nameOrAlias. Callers hold n.mu.
func (n *Node) resolve(nameOrAlias string) (*indexHandle, error) {
	if n.closed {
		return nil, ErrNodeClosed
	}
	if h, ok := n.indices[nameOrAlias]; ok {
		return h, nil
	}
	for _, h := range n.indices {
		for _, alias := range h.meta.Aliases {
			if alias == nameOrAlias {
				return h, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, nameOrAlias)
}

// sortedHandles returns the open indices ordered by name. Callers hold n.mu.
func (n *Node) sortedHandles() []*indexHandle {
	out := make([]*indexHandle, 0, len(n.indices))
	for _, h := range n.indices {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

