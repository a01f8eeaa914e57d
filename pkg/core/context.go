// Copyright 2026 © The Converge Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"strings"
	"sync"

	"github.com/jllopis/converge/pkg/errors"
)

// Context is the append-only fact store shared by one pipeline run.
// Facts are partitioned by key and kept in insertion order.
type Context struct {
	mu    sync.RWMutex
	facts [numKeys][]Fact
	index map[factRef]string
}

type factRef struct {
	key ContextKey
	id  string
}

// NewContext returns an empty store.
func NewContext() *Context {
	return &Context{index: make(map[factRef]string)}
}

// Has reports whether key holds at least one fact.
func (c *Context) Has(key ContextKey) bool {
	if !key.Valid() {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.facts[key]) > 0
}

// Get returns a copy of the facts stored under key, in insertion order.
func (c *Context) Get(key ContextKey) []Fact {
	if !key.Valid() {
		return []Fact{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Fact, len(c.facts[key]))
	copy(out, c.facts[key])
	return out
}

// AddFact appends f. It returns false without error when an identical fact
// is already present, and fails on malformed or conflicting facts.
func (c *Context) AddFact(f Fact) (bool, error) {
	if !f.Key.Valid() {
		return false, errors.New(errors.CodeInvalidInput, "unknown context key", nil).
			WithContext("id", f.ID)
	}
	if strings.TrimSpace(f.ID) == "" {
		return false, errors.New(errors.CodeInvalidInput, "fact id is empty", nil).
			WithContext("key", f.Key.String())
	}
	if strings.TrimSpace(f.Content) == "" {
		return false, errors.New(errors.CodeInvalidInput, "fact content is empty", nil).
			WithContext("key", f.Key.String()).
			WithContext("id", f.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil {
		c.index = make(map[factRef]string)
	}
	ref := factRef{key: f.Key, id: f.ID}
	if existing, ok := c.index[ref]; ok {
		if existing == f.Content {
			return false, nil
		}
		return false, errors.Newf(errors.CodeInvalidInput, "conflicting fact %s:%s", f.Key, f.ID).
			WithContext("key", f.Key.String()).
			WithContext("id", f.ID)
	}
	c.index[ref] = f.Content
	c.facts[f.Key] = append(c.facts[f.Key], f)
	return true, nil
}

// Count returns the number of facts across all keys.
func (c *Context) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, fs := range c.facts {
		n += len(fs)
	}
	return n
}

// All returns every fact, keys in pipeline order.
func (c *Context) All() []Fact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Fact
	for _, fs := range c.facts {
		out = append(out, fs...)
	}
	return out
}

// Clone returns an independent snapshot of the store.
func (c *Context) Clone() *Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	clone := NewContext()
	for k, fs := range c.facts {
		clone.facts[k] = append([]Fact(nil), fs...)
	}
	for ref, content := range c.index {
		clone.index[ref] = content
	}
	return clone
}
