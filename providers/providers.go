// Copyright 2026 © The Converge Authors
// SPDX-License-Identifier: Apache-2.0

// Package providers selects the model backend for a run.
package providers

import (
	"log/slog"
	"os"
	"strings"

	"github.com/jllopis/converge/pkg/config"
	"github.com/jllopis/converge/pkg/errors"
	"github.com/jllopis/converge/pkg/llm"
	"github.com/jllopis/converge/pkg/resilience"
	"github.com/jllopis/converge/providers/anthropic"
	"github.com/jllopis/converge/providers/openai"
)

// Provider names reported in run results.
const (
	NameMock      = "mock"
	NameAnthropic = "anthropic"
	NameOpenAI    = "openai"
	NameOllama    = "ollama"
)

// Mock returns the deterministic offline provider.
func Mock() (llm.Provider, string) {
	return llm.DefaultInsights(), NameMock
}

// FromConfig builds the provider named by cfg.Provider. With "auto" (or an
// empty name) Anthropic is preferred when ANTHROPIC_API_KEY is set, then
// OpenAI when OPENAI_API_KEY is set, and the mock otherwise.
func FromConfig(cfg config.LLMConfig, logger *slog.Logger) (llm.Provider, string, error) {
	return fromConfig(cfg, logger, os.Getenv)
}

func fromConfig(cfg config.LLMConfig, logger *slog.Logger, getenv func(string) string) (llm.Provider, string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" || name == "auto" {
		switch {
		case getenv("ANTHROPIC_API_KEY") != "":
			name = NameAnthropic
		case getenv("OPENAI_API_KEY") != "":
			name = NameOpenAI
		default:
			logger.Warn("no model API key found, using mock provider")
			name = NameMock
		}
	}

	// Retries happen in llm.RetryProvider, so the SDK clients must not retry too.
	wrapped := cfg.MaxRetries > 1
	sdkRetries := -1
	if wrapped {
		sdkRetries = 0
	}

	var p llm.Provider
	switch name {
	case NameMock:
		p, _ := Mock()
		return p, NameMock, nil
	case NameAnthropic:
		p = anthropic.New(
			anthropic.WithModel(cfg.Model),
			anthropic.WithAPIKey(cfg.APIKey),
			anthropic.WithBaseURL(cfg.BaseURL),
			anthropic.WithMaxTokens(int64(cfg.MaxTokens)),
			anthropic.WithMaxRetries(sdkRetries),
		)
	case NameOpenAI:
		p = openai.New(
			openai.WithModel(cfg.Model),
			openai.WithAPIKey(cfg.APIKey),
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithMaxRetries(sdkRetries),
		)
	case NameOllama:
		p = llm.NewOllama(cfg.BaseURL, cfg.Model)
	default:
		return nil, "", errors.Newf(errors.CodeInvalidInput, "unknown llm provider %q", cfg.Provider).
			WithContext("provider", cfg.Provider)
	}

	logger.Info("llm provider selected", slog.String("provider", name), slog.String("model", cfg.Model))
	if wrapped {
		p = llm.NewRetryProvider(p, resilience.DefaultRetryConfig().WithMaxAttempts(cfg.MaxRetries), logger)
	}
	return p, name, nil
}
