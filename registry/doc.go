// Package registry provides the MCP tool registry the serve command uses
// to expose a node's search operations.
//
// Registry pairs toolfoundation/model tool definitions with local handlers
// and answers the MCP JSON-RPC methods initialize, tools/list and
// tools/call over stdio, plain HTTP POST or a one-shot SSE stream.
//
// Example usage:
//
//	reg := registry.New(registry.Config{
//	    ServerInfo: registry.ServerInfo{
//	        Name:    "esexamples",
//	        Version: "1.0.0",
//	    },
//	})
//
//	reg.RegisterLocalFunc(
//	    "count",
//	    "Counts the documents of an index",
//	    map[string]any{
//	        "type": "object",
//	        "properties": map[string]any{
//	            "index": map[string]any{"type": "string"},
//	        },
//	    },
//	    func(ctx context.Context, args map[string]any) (any, error) {
//	        return n.Count(ctx, args["index"].(string))
//	    },
//	)
//
//	registry.ServeStdio(ctx, reg, os.Stdin, os.Stdout)
//
// Tool results are returned as MCP call results: strings as text content,
// everything else as JSON text plus structured content.
package registry
