package registry

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const maxRequestLine = 1 << 20

// ServeStdio runs the registry as an MCP server reading one JSON-RPC
// request per line from in and writing one response per line to out.
// Blocks until in is exhausted or context is cancelled.
func ServeStdio(ctx context.Context, r *Registry, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRequestLine)
	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			resp := MCPResponse{
				JSONRPC: "2.0",
				Error:   &MCPError{Code: ErrCodeParseError, Message: err.Error()},
			}
			if err := encoder.Encode(resp); err != nil {
				return fmt.Errorf("failed to encode error response: %w", err)
			}
			continue
		}

		resp := r.HandleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("failed to encode response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// ServeHTTP returns an http.Handler for streamable HTTP transport.
// Handles POST requests with JSON-RPC bodies, returns JSON responses.
func ServeHTTP(r *Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp, ok := r.decodeAndHandle(w, req)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			r.logger.Warn("Could not write response", zap.String("method", req.Method), zap.Error(err))
		}
	})
}

// ServeSSE returns an http.Handler answering each POSTed request with a
// single Server-Sent Event. Successful calls are sent as "message" events
// and failed ones as "error" events; the event id echoes the request id.
func ServeSSE(r *Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}
		resp, ok := r.decodeAndHandle(w, req)
		if !ok {
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		event := "message"
		if resp.Error != nil {
			event = "error"
		}
		if err := writeSSEEvent(w, event, resp); err != nil {
			r.logger.Warn("Could not write event", zap.String("event", event), zap.Error(err))
			return
		}
		flusher.Flush()
	})
}

// decodeAndHandle reads one JSON-RPC request from a POST body and runs it.
// Parse failures are answered as JSON-RPC parse errors. It reports false
// when the response has already been written.
func (r *Registry) decodeAndHandle(w http.ResponseWriter, req *http.Request) (MCPResponse, bool) {
	if req.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return MCPResponse{}, false
	}

	var mcpReq MCPRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRequestLine)).Decode(&mcpReq); err != nil {
		return MCPResponse{
			JSONRPC: "2.0",
			Error:   &MCPError{Code: ErrCodeParseError, Message: err.Error()},
		}, true
	}
	return r.HandleRequest(req.Context(), mcpReq), true
}

func writeSSEEvent(w io.Writer, event string, resp MCPResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if resp.ID != nil {
		if _, err := fmt.Fprintf(w, "id: %v\n", resp.ID); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
