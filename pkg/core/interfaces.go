package core

import "context"

// AgentEffect is the ordered list of facts one Execute call proposes.
// Agents never write to the store; the engine merges effects.
type AgentEffect struct {
	Facts []Fact
}

// EffectWithFacts builds an effect from facts.
func EffectWithFacts(facts ...Fact) AgentEffect {
	return AgentEffect{Facts: facts}
}

// Empty reports whether the effect proposes nothing.
func (e AgentEffect) Empty() bool {
	return len(e.Facts) == 0
}

// Agent is the unit of work scheduled by the engine. Implementations must be
// idempotent: Accepts returns false once the agent's output key is populated.
type Agent interface {
	// Name is a stable identifier used in logs.
	Name() string
	// Dependencies lists the keys that must hold facts before the agent is considered.
	Dependencies() []ContextKey
	// Accepts reports whether the agent has work to do on ctx.
	Accepts(ctx *Context) bool
	// Execute proposes new facts. Recoverable failures are reported as
	// diagnostic facts, never as panics.
	Execute(ctx context.Context, facts *Context) AgentEffect
}

// InvariantClass tells the engine when to check an invariant.
type InvariantClass int

const (
	// InvariantStructural is checked on the initial store and after every merge.
	InvariantStructural InvariantClass = iota
	// InvariantAcceptance is checked once, when the run converges.
	InvariantAcceptance
)

func (c InvariantClass) String() string {
	switch c {
	case InvariantStructural:
		return "structural"
	case InvariantAcceptance:
		return "acceptance"
	default:
		return "unknown"
	}
}

// Invariant is a pipeline-wide rule whose violation halts a run.
type Invariant interface {
	Name() string
	Class() InvariantClass
	// Check returns a non-nil error describing the violation.
	Check(facts *Context) error
}

// DependenciesMet reports whether every key in deps holds facts.
func DependenciesMet(facts *Context, deps []ContextKey) bool {
	for _, k := range deps {
		if !facts.Has(k) {
			return false
		}
	}
	return true
}
