// Package config loads converge settings from defaults, an optional YAML
// file and CONVERGE_* environment variables, in that order of precedence.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONVERGE_"

type Config struct {
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Engine    EngineConfig    `koanf:"engine"`
	Eval      EvalConfig      `koanf:"eval"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type LLMConfig struct {
	Provider   string `koanf:"provider"` // auto, mock, anthropic, openai, ollama
	Model      string `koanf:"model"`
	BaseURL    string `koanf:"base_url"`
	APIKey     string `koanf:"api_key"`
	MaxRetries int    `koanf:"max_retries"`
	MaxTokens  int    `koanf:"max_tokens"`
}

type EngineConfig struct {
	MaxCycles      int  `koanf:"max_cycles"`
	ParallelAgents bool `koanf:"parallel_agents"`
}

type EvalConfig struct {
	Dir      string `koanf:"dir"`
	Parallel int    `koanf:"parallel"`
	History  string `koanf:"history"` // sqlite path; empty disables history
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

func defaults(k *koanf.Koanf) {
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("llm.provider", "auto")
	k.Set("llm.max_retries", 3)
	k.Set("llm.max_tokens", 1024)
	k.Set("engine.max_cycles", 50)
	k.Set("engine.parallel_agents", true)
	k.Set("eval.dir", "evals")
	k.Set("eval.parallel", 1)
	k.Set("telemetry.exporter", "none")
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (*Config, error) {
	return LoadWithOverrides(path, nil)
}

// LoadWithOverrides is Load with a final layer of dotted-key overrides, used
// for command-line flags.
func LoadWithOverrides(path string, overrides map[string]interface{}) (*Config, error) {
	k := koanf.New(".")
	defaults(k)

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (CONVERGE_LLM_BASE_URL -> llm.base_url)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}

	// 3. Explicit overrides
	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps CONVERGE_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}
