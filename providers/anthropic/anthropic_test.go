// Copyright 2026 © The Converge Authors
// SPDX-License-Identifier: Apache-2.0

package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jllopis/converge/pkg/errors"
	"github.com/jllopis/converge/pkg/llm"
)

func TestNewProvider(t *testing.T) {
	p := New()
	if p.model != DefaultModel {
		t.Errorf("expected model %s, got %s", DefaultModel, p.model)
	}
	if p.maxTokens != 1024 {
		t.Errorf("expected maxTokens 1024, got %d", p.maxTokens)
	}
}

func TestOptions(t *testing.T) {
	p := New(WithModel("claude-opus-4-20250514"), WithMaxTokens(8192), WithAPIKey("k"), WithBaseURL("http://localhost/"))
	if p.Model() != "claude-opus-4-20250514" {
		t.Errorf("unexpected model %s", p.Model())
	}
	if p.maxTokens != 8192 {
		t.Errorf("expected maxTokens 8192, got %d", p.maxTokens)
	}
	if len(p.clientOpts) != 2 {
		t.Errorf("expected both client options to be kept, got %d", len(p.clientOpts))
	}
	if New(WithModel("")).Model() != DefaultModel {
		t.Errorf("empty model must keep the default")
	}
}

func TestConvertMessagesDropsSystem(t *testing.T) {
	msgs := convertMessages([]llm.Message{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "hello"},
		{Role: llm.RoleAssistant, Content: "hi"},
	})
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
}

func TestFinishReason(t *testing.T) {
	cases := map[string]llm.FinishReason{
		"end_turn":      llm.FinishStop,
		"stop_sequence": llm.FinishStop,
		"max_tokens":    llm.FinishLength,
		"refusal":       llm.FinishContentFilter,
		"tool_use":      llm.FinishOther,
	}
	for in, want := range cases {
		if got := finishReason(in); got != want {
			t.Errorf("%s: expected %s, got %s", in, want, got)
		}
	}
}

func TestChatAgainstFakeServer(t *testing.T) {
	var gotSystem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		var body struct {
			System []struct {
				Text string `json:"text"`
			} `json:"system"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.System) > 0 {
			gotSystem = body.System[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "1. Ship the demo first"}],
			"stop_reason": "end_turn",
			"stop_sequence": null,
			"usage": {"input_tokens": 12, "output_tokens": 8}
		}`))
	}))
	defer srv.Close()

	p := New(WithAPIKey("test-key"), WithBaseURL(srv.URL+"/"))
	resp, err := p.Chat(context.Background(), llm.NewRequest("be brief", "analyse"))
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if gotSystem != "be brief" {
		t.Errorf("system prompt not forwarded, got %q", gotSystem)
	}
	if resp.Content != "1. Ship the demo first" || resp.Model != "claude-test" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.FinishReason != llm.FinishStop || resp.Usage.TotalTokens != 20 {
		t.Errorf("unexpected metadata: %+v", resp)
	}
}

func TestChatClassifiesStatusErrors(t *testing.T) {
	cases := []struct {
		status      int
		code        errors.ErrorCode
		recoverable bool
	}{
		{http.StatusTooManyRequests, errors.CodeRateLimit, true},
		{http.StatusServiceUnavailable, errors.CodeLLMError, true},
		{http.StatusUnauthorized, errors.CodeLLMError, false},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
		}))

		p := New(WithAPIKey("test-key"), WithBaseURL(srv.URL+"/"), WithMaxRetries(0))
		_, err := p.Chat(context.Background(), llm.NewRequest("", "analyse"))
		srv.Close()

		if !errors.IsCode(err, tc.code) {
			t.Errorf("status %d: expected %s, got %v", tc.status, tc.code, err)
		}
		if errors.IsRecoverable(err) != tc.recoverable {
			t.Errorf("status %d: expected recoverable=%v", tc.status, tc.recoverable)
		}
	}
}
