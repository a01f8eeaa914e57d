// Copyright 2026 © The Converge Authors
// SPDX-License-Identifier: Apache-2.0

// Package core defines the fact model, the shared fact store and the contract
// every pipeline agent implements.
package core

import "strings"

// ContextKey names one of the fixed pipeline stages a fact belongs to.
type ContextKey int

const (
	Seeds ContextKey = iota
	Signals
	Competitors
	Strategies
	Evaluations
	Hypotheses
	Constraints

	numKeys
)

var keyNames = [numKeys]string{
	Seeds:       "Seeds",
	Signals:     "Signals",
	Competitors: "Competitors",
	Strategies:  "Strategies",
	Evaluations: "Evaluations",
	Hypotheses:  "Hypotheses",
	Constraints: "Constraints",
}

// AllKeys returns every context key in pipeline order.
func AllKeys() []ContextKey {
	keys := make([]ContextKey, numKeys)
	for i := range keys {
		keys[i] = ContextKey(i)
	}
	return keys
}

// Valid reports whether k is one of the known keys.
func (k ContextKey) Valid() bool {
	return k >= 0 && k < numKeys
}

func (k ContextKey) String() string {
	if !k.Valid() {
		return "Unknown"
	}
	return keyNames[k]
}

// ParseContextKey resolves a key by name, ignoring case.
func ParseContextKey(name string) (ContextKey, bool) {
	name = strings.TrimSpace(name)
	for i, n := range keyNames {
		if strings.EqualFold(n, name) {
			return ContextKey(i), true
		}
	}
	return 0, false
}

// Fact is one categorized, identified unit of information.
// Facts are values; once created they are never modified.
type Fact struct {
	Key     ContextKey `json:"key"`
	ID      string     `json:"id"`
	Content string     `json:"content"`
}

// NewFact builds a fact.
func NewFact(key ContextKey, id, content string) Fact {
	return Fact{Key: key, ID: id, Content: content}
}
