package eval

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jllopis/converge/pkg/core"
)

// Check is the outcome of one assertion.
type Check struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// outcome is what a finished run exposes to the checks.
type outcome struct {
	facts     *core.Context
	converged bool
	cycles    int
	duration  time.Duration
}

// evaluate runs one check per populated field of exp, in declaration order.
func evaluate(exp Expectation, out outcome) []Check {
	all := out.facts.All()
	factCount := len(all)
	strategies := len(out.facts.Get(core.Strategies))
	evaluations := len(out.facts.Get(core.Evaluations))

	var checks []Check
	if exp.Converged != nil {
		checks = append(checks, Check{
			Name:     "converged",
			Passed:   out.converged == *exp.Converged,
			Expected: strconv.FormatBool(*exp.Converged),
			Actual:   strconv.FormatBool(out.converged),
		})
	}
	if exp.MaxCycles != nil {
		checks = append(checks, upperBound("max_cycles", out.cycles, *exp.MaxCycles))
	}
	if exp.MinFacts != nil {
		checks = append(checks, lowerBound("min_facts", factCount, *exp.MinFacts))
	}
	if exp.MinStrategies != nil {
		checks = append(checks, lowerBound("min_strategies", strategies, *exp.MinStrategies))
	}
	if exp.MinEvaluations != nil {
		checks = append(checks, lowerBound("min_evaluations", evaluations, *exp.MinEvaluations))
	}
	if exp.MaxLatencyMs != nil {
		ms := out.duration.Milliseconds()
		checks = append(checks, Check{
			Name:     "max_latency_ms",
			Passed:   ms <= *exp.MaxLatencyMs,
			Expected: fmt.Sprintf("<= %dms", *exp.MaxLatencyMs),
			Actual:   fmt.Sprintf("%dms", ms),
		})
	}

	for _, prefix := range exp.MustContainFacts {
		found := hasPrefix(all, prefix)
		actual := "not found"
		if found {
			actual = "found"
		}
		checks = append(checks, Check{
			Name:     "contains:" + prefix,
			Passed:   found,
			Expected: fmt.Sprintf("fact with prefix '%s'", prefix),
			Actual:   actual,
		})
	}
	for _, prefix := range exp.MustNotContainFacts {
		found := hasPrefix(all, prefix)
		actual := "not found (good)"
		if found {
			actual = "found (unexpected)"
		}
		checks = append(checks, Check{
			Name:     "excludes:" + prefix,
			Passed:   !found,
			Expected: fmt.Sprintf("no fact with prefix '%s'", prefix),
			Actual:   actual,
		})
	}
	for _, name := range exp.RequiredContextKeys {
		check := Check{Name: "has_key:" + name, Expected: name + " has facts"}
		key, ok := core.ParseContextKey(name)
		switch {
		case !ok:
			check.Actual = "unknown context key"
		case out.facts.Has(key):
			check.Passed = true
			check.Actual = "has facts"
		default:
			check.Actual = "empty"
		}
		checks = append(checks, check)
	}
	return checks
}

func upperBound(name string, actual, limit int) Check {
	return Check{
		Name:     name,
		Passed:   actual <= limit,
		Expected: fmt.Sprintf("<= %d", limit),
		Actual:   strconv.Itoa(actual),
	}
}

func lowerBound(name string, actual, limit int) Check {
	return Check{
		Name:     name,
		Passed:   actual >= limit,
		Expected: fmt.Sprintf(">= %d", limit),
		Actual:   strconv.Itoa(actual),
	}
}

func hasPrefix(facts []core.Fact, prefix string) bool {
	for _, f := range facts {
		if strings.HasPrefix(f.ID, prefix) {
			return true
		}
	}
	return false
}

func allPassed(checks []Check) bool {
	for _, c := range checks {
		if !c.Passed {
			return false
		}
	}
	return true
}
