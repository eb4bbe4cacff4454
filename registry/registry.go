package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jonwraymond/toolfoundation/model"
	"go.uber.org/zap"
)

// Config configures a Registry.
type Config struct {
	ServerInfo ServerInfo
	// Logger receives tool call events. Default: zap.NewNop().
	Logger *zap.Logger
}

// ServerInfo describes this MCP server for initialize response.
type ServerInfo struct {
	Name    string
	Version string
}

type localTool struct {
	tool    model.Tool
	handler ToolHandler
}

// Registry holds locally executed MCP tools.
type Registry struct {
	mu     sync.RWMutex
	config Config
	logger *zap.Logger
	tools  map[string]localTool
}

// New creates a new Registry with the given config.
func New(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		config: cfg,
		logger: logger,
		tools:  make(map[string]localTool),
	}
}

// RegisterLocal registers a tool with a local execution handler.
func (r *Registry) RegisterLocal(tool model.Tool, handler ToolHandler) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if handler == nil {
		return fmt.Errorf("%w: tool %s has no handler", ErrInvalidRequest, tool.ToolID())
	}

	id := tool.ToolID()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[id]; exists {
		return fmt.Errorf("%w: %s", ErrToolExists, id)
	}
	r.tools[id] = localTool{tool: tool, handler: handler}
	return nil
}

// RegisterLocalFunc is a convenience for inline tool definition.
func (r *Registry) RegisterLocalFunc(
	name, description string,
	inputSchema map[string]any,
	handler ToolHandler,
	opts ...LocalToolOption,
) error {
	cfg := applyLocalToolOptions(opts)
	tool := buildLocalTool(name, description, inputSchema, cfg)
	return r.RegisterLocal(tool, handler)
}

// ListAll returns all registered tools ordered by ID.
func (r *Registry) ListAll(ctx context.Context) ([]model.Tool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	tools := make([]model.Tool, 0, len(r.tools))
	for _, lt := range r.tools {
		tools = append(tools, lt.tool)
	}
	r.mu.RUnlock()

	sort.Slice(tools, func(i, j int) bool {
		return tools[i].ToolID() < tools[j].ToolID()
	})
	return tools, nil
}

// ListNamespaces returns the distinct non-empty tool namespaces.
func (r *Registry) ListNamespaces(ctx context.Context) ([]string, error) {
	tools, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var namespaces []string
	for _, tool := range tools {
		if tool.Namespace == "" || seen[tool.Namespace] {
			continue
		}
		seen[tool.Namespace] = true
		namespaces = append(namespaces, tool.Namespace)
	}
	sort.Strings(namespaces)
	return namespaces, nil
}

// GetTool returns a tool by ID, or by bare name when it is unambiguous.
func (r *Registry) GetTool(ctx context.Context, id string) (model.Tool, error) {
	lt, err := r.lookup(id)
	if err != nil {
		return model.Tool{}, err
	}
	return lt.tool, nil
}

func (r *Registry) lookup(id string) (localTool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if lt, ok := r.tools[id]; ok {
		return lt, nil
	}
	var found []localTool
	for _, lt := range r.tools {
		if lt.tool.Name == id {
			found = append(found, lt)
		}
	}
	if len(found) == 1 {
		return found[0], nil
	}
	return localTool{}, fmt.Errorf("%w: %s", ErrToolNotFound, id)
}

// Execute runs a tool by ID or name with the given arguments.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	lt, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}

	result, err := lt.handler(ctx, args)
	if err != nil {
		r.logger.Debug("Tool call failed", zap.String("tool", lt.tool.ToolID()), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrExecutionFailed, lt.tool.ToolID(), err)
	}
	r.logger.Debug("Tool called", zap.String("tool", lt.tool.ToolID()))
	return result, nil
}

// RegistryStats returns registry statistics.
type RegistryStats struct {
	TotalTools int
	Namespaces int
}

// Stats returns registry statistics.
func (r *Registry) Stats() RegistryStats {
	namespaces, _ := r.ListNamespaces(context.Background())

	r.mu.RLock()
	defer r.mu.RUnlock()
	return RegistryStats{
		TotalTools: len(r.tools),
		Namespaces: len(namespaces),
	}
}
