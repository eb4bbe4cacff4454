package registry

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/jonwraymond/toolfoundation/model"
)

var objectSchema = map[string]any{"type": "object"}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := New(Config{
		ServerInfo: ServerInfo{Name: "test-server", Version: "1.0.0"},
	})
	err := reg.RegisterLocalFunc(
		"count",
		"Counts documents",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"index": map[string]any{"type": "string"},
			},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			index, err := StringArg(args, "index", "mon_index")
			if err != nil {
				return nil, err
			}
			return map[string]any{"index": index, "count": 42}, nil
		},
		WithNamespace("node"),
		WithTags("Search", "count"),
	)
	if err != nil {
		t.Fatalf("RegisterLocalFunc failed: %v", err)
	}
	if err := reg.RegisterLocalFunc("ping", "Answers pong", objectSchema, func(ctx context.Context, args map[string]any) (any, error) {
		return "pong", nil
	}); err != nil {
		t.Fatalf("RegisterLocalFunc failed: %v", err)
	}
	return reg
}

func TestNew(t *testing.T) {
	reg := New(Config{ServerInfo: ServerInfo{Name: "test-server", Version: "1.0.0"}})

	if reg == nil {
		t.Fatal("expected non-nil registry")
	}
	if reg.config.ServerInfo.Name != "test-server" {
		t.Errorf("expected server name 'test-server', got %s", reg.config.ServerInfo.Name)
	}
	if reg.logger == nil {
		t.Error("expected a default logger")
	}
}

func TestExecute(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	for _, name := range []string{"node:count", "count"} {
		result, err := reg.Execute(ctx, name, map[string]any{"index": "docs"})
		if err != nil {
			t.Fatalf("Execute(%s) failed: %v", name, err)
		}
		resultMap, ok := result.(map[string]any)
		if !ok {
			t.Fatalf("expected map result, got %T", result)
		}
		if resultMap["index"] != "docs" {
			t.Errorf("expected index='docs', got %v", resultMap["index"])
		}
	}

	result, err := reg.Execute(ctx, "node:count", nil)
	if err != nil {
		t.Fatalf("Execute with nil args failed: %v", err)
	}
	if result.(map[string]any)["index"] != "mon_index" {
		t.Errorf("expected default index, got %v", result)
	}
}

func TestExecute_Errors(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	if _, err := reg.Execute(ctx, "missing", nil); !errors.Is(err, ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}

	_, err := reg.Execute(ctx, "count", map[string]any{"index": 3})
	if !errors.Is(err, ErrExecutionFailed) || !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrExecutionFailed wrapping ErrInvalidRequest, got %v", err)
	}
}

func TestRegisterLocal_Errors(t *testing.T) {
	reg := newTestRegistry(t)
	handler := func(ctx context.Context, args map[string]any) (any, error) { return nil, nil }

	err := reg.RegisterLocalFunc("ping", "again", objectSchema, handler)
	if !errors.Is(err, ErrToolExists) {
		t.Errorf("expected ErrToolExists, got %v", err)
	}

	err = reg.RegisterLocalFunc("", "no name", objectSchema, handler)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for empty name, got %v", err)
	}

	err = reg.RegisterLocalFunc("nohandler", "no handler", objectSchema, nil)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for nil handler, got %v", err)
	}
}

func TestListAllAndNamespaces(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	tools, err := reg.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
	if tools[0].ToolID() != "node:count" || tools[1].ToolID() != "ping" {
		t.Errorf("unexpected order: %s, %s", tools[0].ToolID(), tools[1].ToolID())
	}

	namespaces, err := reg.ListNamespaces(ctx)
	if err != nil {
		t.Fatalf("ListNamespaces failed: %v", err)
	}
	if len(namespaces) != 1 || namespaces[0] != "node" {
		t.Errorf("expected [node], got %v", namespaces)
	}

	stats := reg.Stats()
	if stats.TotalTools != 2 || stats.Namespaces != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestGetTool(t *testing.T) {
	reg := newTestRegistry(t)

	tool, err := reg.GetTool(context.Background(), "node:count")
	if err != nil {
		t.Fatalf("GetTool failed: %v", err)
	}
	if tool.Namespace != "node" {
		t.Errorf("expected namespace 'node', got %s", tool.Namespace)
	}
	if !slices.Contains(tool.Tags, "search") {
		t.Errorf("expected normalized tags, got %v", tool.Tags)
	}

	if _, err := reg.GetTool(context.Background(), "nope"); !errors.Is(err, ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestWithVersion(t *testing.T) {
	reg := New(Config{ServerInfo: ServerInfo{Name: "test", Version: "1.0.0"}})
	err := reg.RegisterLocalFunc("versioned", "Versioned tool", objectSchema,
		func(ctx context.Context, args map[string]any) (any, error) { return nil, nil },
		WithVersion("2.1.0"),
	)
	if err != nil {
		t.Fatalf("RegisterLocalFunc failed: %v", err)
	}

	tool, err := reg.GetTool(context.Background(), "versioned")
	if err != nil {
		t.Fatalf("GetTool failed: %v", err)
	}
	if tool.Version != "2.1.0" {
		t.Errorf("expected version 2.1.0, got %s", tool.Version)
	}
}

func TestHandleRequest_Initialize(t *testing.T) {
	reg := newTestRegistry(t)

	resp := reg.HandleRequest(context.Background(), MCPRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"})
	if resp.Error != nil {
		t.Fatalf("expected no error, got %v", resp.Error)
	}

	resultMap, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("expected result to be map, got %T", resp.Result)
	}
	if resultMap["protocolVersion"] != model.MCPVersion {
		t.Errorf("expected protocolVersion %s, got %v", model.MCPVersion, resultMap["protocolVersion"])
	}
	serverInfo := resultMap["serverInfo"].(map[string]any)
	if serverInfo["name"] != "test-server" {
		t.Errorf("expected name 'test-server', got %v", serverInfo["name"])
	}
}

func TestHandleRequest_ToolsList(t *testing.T) {
	reg := newTestRegistry(t)

	resp := reg.HandleRequest(context.Background(), MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})
	if resp.Error != nil {
		t.Fatalf("expected no error, got %v", resp.Error)
	}

	tools := resp.Result.(map[string]any)["tools"].([]map[string]any)
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
	if tools[0]["name"] != "count" {
		t.Errorf("expected tool name 'count', got %v", tools[0]["name"])
	}
}

// decodeCallResult round-trips a tools/call result through JSON, as a
// client would see it.
func decodeCallResult(t *testing.T, result any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	return out
}

func TestHandleRequest_ToolsCall(t *testing.T) {
	reg := newTestRegistry(t)

	params, _ := json.Marshal(map[string]any{
		"name":      "node:count",
		"arguments": map[string]any{"index": "docs"},
	})
	resp := reg.HandleRequest(context.Background(), MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp.Error != nil {
		t.Fatalf("expected no error, got %v", resp.Error)
	}

	out := decodeCallResult(t, resp.Result)
	structured, ok := out["structuredContent"].(map[string]any)
	if !ok {
		t.Fatalf("expected structured content, got %v", out)
	}
	if structured["count"] != float64(42) {
		t.Errorf("expected count=42, got %v", structured["count"])
	}
	content := out["content"].([]any)
	if len(content) != 1 || content[0].(map[string]any)["type"] != "text" {
		t.Errorf("expected one text content, got %v", content)
	}
}

func TestHandleRequest_ToolsCall_Text(t *testing.T) {
	reg := newTestRegistry(t)

	params, _ := json.Marshal(map[string]any{"name": "ping"})
	resp := reg.HandleRequest(context.Background(), MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp.Error != nil {
		t.Fatalf("expected no error, got %v", resp.Error)
	}

	out := decodeCallResult(t, resp.Result)
	content := out["content"].([]any)
	if content[0].(map[string]any)["text"] != "pong" {
		t.Errorf("expected text 'pong', got %v", content)
	}
}

func TestHandleRequest_ToolsCall_Errors(t *testing.T) {
	reg := newTestRegistry(t)

	tests := []struct {
		name   string
		params string
		code   int
	}{
		{name: "not found", params: `{"name":"missing"}`, code: ErrCodeToolNotFound},
		{name: "bad args", params: `{"name":"count","arguments":{"index":1}}`, code: ErrCodeToolExecFailed},
		{name: "no name", params: `{}`, code: ErrCodeInvalidParams},
		{name: "not json", params: `[`, code: ErrCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := reg.HandleRequest(context.Background(), MCPRequest{
				JSONRPC: "2.0",
				ID:      1,
				Method:  "tools/call",
				Params:  json.RawMessage(tt.params),
			})
			if resp.Error == nil {
				t.Fatal("expected error response")
			}
			if resp.Error.Code != tt.code {
				t.Errorf("expected code %d, got %d", tt.code, resp.Error.Code)
			}
		})
	}
}

func TestHandleRequest_MethodNotFound(t *testing.T) {
	reg := newTestRegistry(t)

	resp := reg.HandleRequest(context.Background(), MCPRequest{JSONRPC: "2.0", ID: 1, Method: "unknown/method"})
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != ErrCodeMethodNotFound {
		t.Errorf("expected ErrCodeMethodNotFound, got %d", resp.Error.Code)
	}
}

func TestServeStdio(t *testing.T) {
	reg := newTestRegistry(t)

	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"ping"}}`,
	}, "\n"))
	var out bytes.Buffer

	if err := ServeStdio(context.Background(), reg, in, &out); err != nil {
		t.Fatalf("ServeStdio failed: %v", err)
	}

	var responses []MCPResponse
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var resp MCPResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		responses = append(responses, resp)
	}

	if len(responses) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(responses))
	}
	if responses[0].Error != nil {
		t.Errorf("initialize failed: %v", responses[0].Error)
	}
	if responses[1].Error == nil || responses[1].Error.Code != ErrCodeParseError {
		t.Errorf("expected parse error, got %+v", responses[1])
	}
	if responses[2].Error != nil {
		t.Errorf("tools/call failed: %v", responses[2].Error)
	}
}

func TestServeStdio_Cancelled(t *testing.T) {
	reg := newTestRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n")
	err := ServeStdio(ctx, reg, in, &bytes.Buffer{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestServeHTTP(t *testing.T) {
	reg := newTestRegistry(t)

	srv := httptest.NewServer(ServeHTTP(reg))
	defer srv.Close()

	body := bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	resp, err := http.Post(srv.URL, "application/json", body)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var mcpResp MCPResponse
	if err := json.NewDecoder(resp.Body).Decode(&mcpResp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if mcpResp.Error != nil {
		t.Fatalf("expected no error, got %v", mcpResp.Error)
	}
	resultMap, ok := mcpResp.Result.(map[string]any)
	if !ok {
		t.Fatalf("expected result map, got %T", mcpResp.Result)
	}
	tools, ok := resultMap["tools"].([]any)
	if !ok || len(tools) != 2 {
		t.Fatalf("expected two tools, got %v", resultMap["tools"])
	}
}

func TestServeSSE(t *testing.T) {
	reg := newTestRegistry(t)

	srv := httptest.NewServer(ServeSSE(reg))
	defer srv.Close()

	reqBody := bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"ping"}}`)
	resp, err := http.Post(srv.URL, "application/json", reqBody)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	scanner := bufio.NewScanner(resp.Body)
	var dataLine string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			dataLine = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	if dataLine == "" {
		t.Fatal("expected SSE data line")
	}

	var mcpResp MCPResponse
	if err := json.Unmarshal([]byte(dataLine), &mcpResp); err != nil {
		t.Fatalf("unmarshal SSE data failed: %v", err)
	}
	if mcpResp.Error != nil {
		t.Fatalf("expected no error, got %v", mcpResp.Error)
	}
	if !strings.Contains(dataLine, "pong") {
		t.Errorf("expected pong in %s", dataLine)
	}
}

func TestServeSSE_Events(t *testing.T) {
	reg := newTestRegistry(t)

	srv := httptest.NewServer(ServeSSE(reg))
	defer srv.Close()

	tests := []struct {
		name      string
		body      string
		wantEvent string
		wantID    string
		wantCode  int
	}{
		{
			name:      "call succeeds",
			body:      `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"ping"}}`,
			wantEvent: "message",
			wantID:    "7",
		},
		{
			name:      "unknown tool",
			body:      `{"jsonrpc":"2.0","id":"a","method":"tools/call","params":{"name":"missing"}}`,
			wantEvent: "error",
			wantID:    "a",
			wantCode:  ErrCodeToolNotFound,
		},
		{
			name:      "invalid json",
			body:      `{not json`,
			wantEvent: "error",
			wantCode:  ErrCodeParseError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL, "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST failed: %v", err)
			}
			defer func() {
				_ = resp.Body.Close()
			}()

			if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
				t.Errorf("Content-Type = %q", ct)
			}

			var id, event, data string
			scanner := bufio.NewScanner(resp.Body)
			for scanner.Scan() {
				line := scanner.Text()
				switch {
				case strings.HasPrefix(line, "id: "):
					id = strings.TrimPrefix(line, "id: ")
				case strings.HasPrefix(line, "event: "):
					event = strings.TrimPrefix(line, "event: ")
				case strings.HasPrefix(line, "data: "):
					data = strings.TrimPrefix(line, "data: ")
				}
			}

			if event != tt.wantEvent {
				t.Errorf("event = %q, want %q", event, tt.wantEvent)
			}
			if id != tt.wantID {
				t.Errorf("id = %q, want %q", id, tt.wantID)
			}

			var mcpResp MCPResponse
			if err := json.Unmarshal([]byte(data), &mcpResp); err != nil {
				t.Fatalf("unmarshal SSE data failed: %v", err)
			}
			if tt.wantCode == 0 {
				if mcpResp.Error != nil {
					t.Errorf("unexpected error %v", mcpResp.Error)
				}
				return
			}
			if mcpResp.Error == nil || mcpResp.Error.Code != tt.wantCode {
				t.Errorf("error = %v, want code %d", mcpResp.Error, tt.wantCode)
			}
		})
	}
}

func TestServeSSE_MethodNotAllowed(t *testing.T) {
	reg := newTestRegistry(t)

	srv := httptest.NewServer(ServeSSE(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestWriteSSEEvent_EncodeError(t *testing.T) {
	var buf bytes.Buffer
	err := writeSSEEvent(&buf, "message", MCPResponse{JSONRPC: "2.0", ID: 1, Result: make(chan int)})
	if err == nil {
		t.Fatal("expected an encoding error")
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written on error, got %q", buf.String())
	}
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	reg := newTestRegistry(t)

	srv := httptest.NewServer(ServeHTTP(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestServeHTTP_InvalidJSON(t *testing.T) {
	reg := newTestRegistry(t)

	srv := httptest.NewServer(ServeHTTP(reg))
	defer srv.Close()

	resp, err := http.Post(srv.URL, "application/json", bytes.NewBufferString("{bad"))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var mcpResp MCPResponse
	if err := json.NewDecoder(resp.Body).Decode(&mcpResp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if mcpResp.Error == nil || mcpResp.Error.Code != ErrCodeParseError {
		t.Errorf("expected parse error, got %+v", mcpResp.Error)
	}
}

func TestArgs(t *testing.T) {
	args := map[string]any{"s": "x", "f": float64(25), "frac": 2.5, "i": 7, "b": true}

	if v, err := StringArg(args, "s", ""); err != nil || v != "x" {
		t.Errorf("StringArg = %q, %v", v, err)
	}
	if v, err := StringArg(args, "absent", "def"); err != nil || v != "def" {
		t.Errorf("StringArg default = %q, %v", v, err)
	}
	if _, err := StringArg(args, "b", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}

	if v, err := IntArg(args, "f", 0); err != nil || v != 25 {
		t.Errorf("IntArg = %d, %v", v, err)
	}
	if v, err := IntArg(args, "i", 0); err != nil || v != 7 {
		t.Errorf("IntArg int = %d, %v", v, err)
	}
	if v, err := IntArg(args, "absent", 10); err != nil || v != 10 {
		t.Errorf("IntArg default = %d, %v", v, err)
	}
	if _, err := IntArg(args, "frac", 0); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for fraction, got %v", err)
	}
	if _, err := IntArg(args, "s", 0); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for string, got %v", err)
	}
	lists := map[string]any{"l": []any{"a", "b^2"}, "mixed": []any{"a", 1}, "typed": []string{"c"}}
	if v, err := StringsArg(lists, "l"); err != nil || !slices.Equal(v, []string{"a", "b^2"}) {
		t.Errorf("StringsArg = %v, %v", v, err)
	}
	if v, err := StringsArg(lists, "typed"); err != nil || !slices.Equal(v, []string{"c"}) {
		t.Errorf("StringsArg typed = %v, %v", v, err)
	}
	if v, err := StringsArg(lists, "absent"); err != nil || v != nil {
		t.Errorf("StringsArg default = %v, %v", v, err)
	}
	if _, err := StringsArg(lists, "mixed"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for mixed list, got %v", err)
	}
	if _, err := StringsArg(args, "s"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for string, got %v", err)
	}
}
