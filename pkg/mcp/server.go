// Copyright 2026 © The Converge Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp exposes the eval harness as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jllopis/converge/pkg/eval"
	"github.com/jllopis/converge/pkg/packs"
)

// ServerName is announced to MCP clients.
const ServerName = "converge-evals"

// Server wraps the mcp-go server with the eval tools registered.
type Server struct {
	mcpServer *server.MCPServer
	runner    *eval.Runner
	dir       string
	logger    *slog.Logger
}

// NewEvalServer creates a server that runs fixtures from dir with runner.
func NewEvalServer(runner *eval.Runner, dir, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false)),
		runner:    runner,
		dir:       dir,
		logger:    slog.Default().With("component", "mcp"),
	}
	s.mcpServer.AddTool(mcp.NewTool("list_fixtures",
		mcp.WithDescription("List the eval fixtures available to run"),
	), s.listFixtures)
	s.mcpServer.AddTool(mcp.NewTool("run_eval",
		mcp.WithDescription("Run one eval fixture and return its result"),
		mcp.WithString("eval_id", mcp.Required(), mcp.Description("Fixture identifier")),
		mcp.WithBoolean("mock", mcp.Description("Force the deterministic mock provider")),
	), s.runEval)
	s.mcpServer.AddTool(mcp.NewTool("list_packs",
		mcp.WithDescription("List the domain packs compiled into this server"),
	), s.listPacks)
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin and stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

type fixtureSummary struct {
	EvalID      string `json:"eval_id"`
	Description string `json:"description"`
	Pack        string `json:"pack"`
	Seeds       int    `json:"seeds"`
	UseMockLLM  bool   `json:"use_mock_llm"`
}

func (s *Server) listFixtures(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fixtures, err := eval.LoadFixturesFromDir(s.dir, s.logger)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := make([]fixtureSummary, 0, len(fixtures))
	for _, f := range fixtures {
		out = append(out, fixtureSummary{
			EvalID:      f.EvalID,
			Description: f.Description,
			Pack:        f.Pack,
			Seeds:       len(f.Seeds),
			UseMockLLM:  f.UseMockLLM,
		})
	}
	return jsonResult(out)
}

func (s *Server) runEval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	id, _ := args["eval_id"].(string)
	if id == "" {
		return mcp.NewToolResultError("eval_id is required"), nil
	}
	fixtures, err := eval.LoadFixturesFromDir(s.dir, s.logger)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, ok := eval.FindFixture(fixtures, id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("eval fixture %q not found", id)), nil
	}
	if mock, _ := args["mock"].(bool); mock {
		f.UseMockLLM = true
	}
	return jsonResult(s.runner.RunEval(ctx, f))
}

func (s *Server) listPacks(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var out []packs.Info
	for _, name := range packs.Available() {
		if info, ok := packs.Lookup(name); ok {
			out = append(out, info)
		}
	}
	return jsonResult(out)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}
