package growth

import (
	"fmt"
	"strings"

	"github.com/jllopis/converge/pkg/core"
)

// DefaultForbiddenTerms are phrases no fact may contain.
var DefaultForbiddenTerms = []string{
	"guaranteed results",
	"get rich quick",
	"spam",
	"fake reviews",
}

// BrandSafetyInvariant rejects any fact whose content uses a forbidden term.
type BrandSafetyInvariant struct {
	Terms []string
}

// NewBrandSafetyInvariant returns the invariant with DefaultForbiddenTerms.
func NewBrandSafetyInvariant() BrandSafetyInvariant {
	return BrandSafetyInvariant{Terms: DefaultForbiddenTerms}
}

func (BrandSafetyInvariant) Name() string               { return "BrandSafetyInvariant" }
func (BrandSafetyInvariant) Class() core.InvariantClass { return core.InvariantStructural }

func (i BrandSafetyInvariant) Check(facts *core.Context) error {
	for _, f := range facts.All() {
		lower := strings.ToLower(f.Content)
		for _, term := range i.Terms {
			if strings.Contains(lower, strings.ToLower(term)) {
				return fmt.Errorf("fact %s:%s contains forbidden term %q", f.Key, f.ID, term)
			}
		}
	}
	return nil
}

// RequireMultipleStrategies demands at least two strategies at convergence.
type RequireMultipleStrategies struct{}

func (RequireMultipleStrategies) Name() string               { return "RequireMultipleStrategies" }
func (RequireMultipleStrategies) Class() core.InvariantClass { return core.InvariantAcceptance }

func (RequireMultipleStrategies) Check(facts *core.Context) error {
	if n := len(facts.Get(core.Strategies)); n < 2 {
		return fmt.Errorf("expected at least 2 strategies, found %d", n)
	}
	return nil
}

// RequireStrategyEvaluations demands an evaluation for every strategy.
type RequireStrategyEvaluations struct{}

func (RequireStrategyEvaluations) Name() string               { return "RequireStrategyEvaluations" }
func (RequireStrategyEvaluations) Class() core.InvariantClass { return core.InvariantAcceptance }

func (RequireStrategyEvaluations) Check(facts *core.Context) error {
	evaluated := make(map[string]bool)
	for _, e := range facts.Get(core.Evaluations) {
		evaluated[strings.TrimPrefix(e.ID, "eval:")] = true
	}
	for _, s := range facts.Get(core.Strategies) {
		if !evaluated[StrategySuffix(s.ID)] {
			return fmt.Errorf("strategy %s has no evaluation", s.ID)
		}
	}
	return nil
}

// RequireEvaluationRationale demands that every evaluation explains its score.
type RequireEvaluationRationale struct{}

func (RequireEvaluationRationale) Name() string               { return "RequireEvaluationRationale" }
func (RequireEvaluationRationale) Class() core.InvariantClass { return core.InvariantAcceptance }

func (RequireEvaluationRationale) Check(facts *core.Context) error {
	for _, e := range facts.Get(core.Evaluations) {
		if !strings.Contains(strings.ToLower(e.Content), "rationale:") {
			return fmt.Errorf("evaluation %s has no rationale", e.ID)
		}
	}
	return nil
}
