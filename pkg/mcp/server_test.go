package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jllopis/converge/pkg/eval"
	"github.com/jllopis/converge/pkg/llm"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	fixture := `{"eval_id":"growth_basic","description":"basic","pack":"growth-strategy",
		"seeds":[{"id":"s1","content":"B2B SaaS"}],"expected":{"converged":true}}`
	if err := os.WriteFile(filepath.Join(dir, "growth_basic.json"), []byte(fixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	runner := eval.NewRunner(
		eval.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		eval.WithProviderFactory(func(useMock bool) (llm.Provider, string, error) {
			if !useMock {
				return &llm.FailingMockProvider{}, "live", nil
			}
			return llm.DefaultInsights(), "mock", nil
		}),
	)
	s := NewEvalServer(runner, dir, "test")
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return s
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

func TestToolsAreListed(t *testing.T) {
	s := newTestServer(t)
	resp := s.MCPServer().HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, name := range []string{"list_fixtures", "run_eval", "list_packs"} {
		if !strings.Contains(string(raw), `"`+name+`"`) {
			t.Errorf("tool %s not listed: %s", name, raw)
		}
	}
}

func TestListFixtures(t *testing.T) {
	s := newTestServer(t)
	res, err := s.listFixtures(context.Background(), call(nil))
	if err != nil {
		t.Fatalf("list fixtures: %v", err)
	}
	var out []fixtureSummary
	if err := json.Unmarshal([]byte(text(t, res)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].EvalID != "growth_basic" || out[0].Seeds != 1 {
		t.Fatalf("unexpected fixtures: %+v", out)
	}
}

func TestRunEvalTool(t *testing.T) {
	s := newTestServer(t)
	res, err := s.runEval(context.Background(), call(map[string]interface{}{"eval_id": "growth_basic", "mock": true}))
	if err != nil {
		t.Fatalf("run eval: %v", err)
	}
	var out eval.Result
	if err := json.Unmarshal([]byte(text(t, res)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Passed || out.Provider != "mock" || out.Cycles != 6 {
		t.Fatalf("unexpected result: %+v", out)
	}

	missing, _ := s.runEval(context.Background(), call(map[string]interface{}{"eval_id": "nope"}))
	if !missing.IsError {
		t.Fatalf("unknown fixture must be a tool error")
	}
	noID, _ := s.runEval(context.Background(), call(nil))
	if !noID.IsError {
		t.Fatalf("missing eval_id must be a tool error")
	}
}

func TestListPacks(t *testing.T) {
	s := newTestServer(t)
	res, err := s.listPacks(context.Background(), call(nil))
	if err != nil {
		t.Fatalf("list packs: %v", err)
	}
	if !strings.Contains(text(t, res), `"name": "growth-strategy"`) {
		t.Fatalf("unexpected packs: %s", text(t, res))
	}
}
