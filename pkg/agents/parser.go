package agents

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jllopis/converge/pkg/core"
)

// ParseConfig describes how free text becomes facts for one agent.
type ParseConfig struct {
	Key core.ContextKey
	// IDPrefix is joined with a 1-based counter: "<prefix>:<n>".
	IDPrefix string
	// MinLength is exclusive and measured in bytes.
	MinLength int
	// FallbackID and FallbackContent describe the single fact emitted when
	// no line survives.
	FallbackID      string
	FallbackContent string
}

// InsightParseConfig is used by the strategic insight agent.
var InsightParseConfig = ParseConfig{
	Key:             core.Hypotheses,
	IDPrefix:        "insight",
	MinLength:       10,
	FallbackID:      "insight:fallback",
	FallbackContent: "LLM analysis completed but no structured insights extracted. Review raw evaluation data.",
}

// RiskParseConfig is used by the risk assessment agent.
var RiskParseConfig = ParseConfig{
	Key:             core.Constraints,
	IDPrefix:        "risk",
	MinLength:       20,
	FallbackID:      "risk:none-identified",
	FallbackContent: "No significant risks identified. Recommend manual review of assumptions.",
}

// ParseResponse splits text into one fact per substantive line. Numbered
// list markers are removed and lines not longer than cfg.MinLength are
// dropped. The result is never empty.
func ParseResponse(text string, cfg ParseConfig) []core.Fact {
	var facts []core.Fact
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		content := strings.TrimSpace(stripListMarker(line))
		if len(content) <= cfg.MinLength {
			continue
		}
		id := fmt.Sprintf("%s:%d", cfg.IDPrefix, len(facts)+1)
		facts = append(facts, core.NewFact(cfg.Key, id, content))
	}
	if len(facts) == 0 {
		facts = append(facts, core.NewFact(cfg.Key, cfg.FallbackID, cfg.FallbackContent))
	}
	return facts
}

// stripListMarker removes a leading run of numerals, '.', ')' and spaces.
func stripListMarker(s string) string {
	return strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsNumber(r) || r == '.' || r == ')' || r == ' '
	})
}
