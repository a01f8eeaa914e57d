package agents

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jllopis/converge/pkg/core"
)

func TestParseResponseNeverEmpty(t *testing.T) {
	inputs := []string{"", "   ", "\n\n\t\n", "1.", "ok", "1) 2) 3)", strings.Repeat("x", 10)}
	for _, cfg := range []ParseConfig{InsightParseConfig, RiskParseConfig} {
		for _, in := range inputs {
			facts := ParseResponse(in, cfg)
			if len(facts) != 1 {
				t.Fatalf("%s %q: expected a single fallback fact, got %d", cfg.IDPrefix, in, len(facts))
			}
			if facts[0].ID != cfg.FallbackID || facts[0].Content != cfg.FallbackContent || facts[0].Key != cfg.Key {
				t.Fatalf("%s %q: unexpected fallback %+v", cfg.IDPrefix, in, facts[0])
			}
		}
	}
}

func TestParseResponseNumberedLines(t *testing.T) {
	text := "1. Focus on enterprise buyers first\n2) Bundle onboarding with every plan\n  3.   Price annual plans below competitors  \n"
	got := ParseResponse(text, InsightParseConfig)
	want := []core.Fact{
		core.NewFact(core.Hypotheses, "insight:1", "Focus on enterprise buyers first"),
		core.NewFact(core.Hypotheses, "insight:2", "Bundle onboarding with every plan"),
		core.NewFact(core.Hypotheses, "insight:3", "Price annual plans below competitors"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("facts mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResponseNumbersEmittedFactsOnly(t *testing.T) {
	text := "Here are my thoughts:\n\n1. short\n2. The first substantive insight line\n\n3. The second substantive insight line"
	got := ParseResponse(text, InsightParseConfig)
	var ids []string
	for _, f := range got {
		ids = append(ids, f.ID)
	}
	if diff := cmp.Diff([]string{"insight:1", "insight:2", "insight:3"}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if got[0].Content != "Here are my thoughts:" {
		t.Fatalf("preamble longer than the threshold is kept, got %q", got[0].Content)
	}
}

func TestParseResponseThresholdIsExclusive(t *testing.T) {
	exactly := strings.Repeat("a", 10)
	above := strings.Repeat("b", 11)
	got := ParseResponse(exactly+"\n"+above, InsightParseConfig)
	if len(got) != 1 || got[0].Content != above || got[0].ID != "insight:1" {
		t.Fatalf("unexpected facts: %+v", got)
	}

	risk20 := strings.Repeat("r", 20)
	if facts := ParseResponse("1. "+risk20, RiskParseConfig); facts[0].ID != "risk:none-identified" {
		t.Fatalf("20-byte risk must be dropped, got %+v", facts)
	}
	if facts := ParseResponse("1. "+risk20+"!", RiskParseConfig); facts[0].ID != "risk:1" {
		t.Fatalf("21-byte risk must be kept, got %+v", facts)
	}
}

func TestParseResponseLengthCountsBytes(t *testing.T) {
	// Six runes, eleven bytes.
	got := ParseResponse("ééééé!", InsightParseConfig)
	if got[0].ID != "insight:1" {
		t.Fatalf("expected byte length to clear the threshold, got %+v", got)
	}
}

func TestStripListMarker(t *testing.T) {
	cases := map[string]string{
		"1. item":          "item",
		"12) item":         "item",
		"3.1. item":        "item",
		"٣. arabic digit":  "arabic digit",
		"- bullet":         "- bullet",
		"**Bold** text":    "**Bold** text",
		"2024 was great":   "was great",
		"\t1. tab not cut": "\t1. tab not cut",
	}
	for in, want := range cases {
		if got := stripListMarker(in); got != want {
			t.Errorf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestParseResponseKeepsInputOrder(t *testing.T) {
	lines := []string{
		"3. Third listed but first in text",
		"1. First listed but second in text",
	}
	got := ParseResponse(strings.Join(lines, "\n"), RiskParseConfig)
	if got[0].Content != "Third listed but first in text" || got[1].ID != "risk:2" {
		t.Fatalf("unexpected facts: %+v", got)
	}
}
