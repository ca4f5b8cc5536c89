// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hooks

import "github.com/AleutianAI/sinkgraph/services/sinkgraph/graph"

// Matcher is the active subset of a catalogue. It implements
// graph.HookMatcher.
//
// Lookups bucket by graph.Node.Hash and compare with graph.Node.Equal, so a
// callee matches only when its declaring type, member name and full
// parameter type list equal an entry. Callees with unresolved parameter
// types never match because no entry uses the unknown sentinel.
//
// Thread Safety:
//
//	Immutable after Catalogue.Select returns; safe for concurrent use.
type Matcher struct {
	buckets    map[uint64][]int
	nodes      []graph.Node
	category   []string
	categories []string
}

var _ graph.HookMatcher = (*Matcher)(nil)

func newMatcher() *Matcher {
	return &Matcher{buckets: make(map[uint64][]int)}
}

// add registers a signature. A repeated signature takes the later category.
func (m *Matcher) add(n graph.Node, category string) {
	h := n.Hash()
	for _, i := range m.buckets[h] {
		if m.nodes[i].Equal(n) {
			m.category[i] = category
			return
		}
	}
	m.buckets[h] = append(m.buckets[h], len(m.nodes))
	m.nodes = append(m.nodes, n)
	m.category = append(m.category, category)
}

// Match returns the category of n when n is an active sink.
func (m *Matcher) Match(n graph.Node) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, i := range m.buckets[n.Hash()] {
		if m.nodes[i].Equal(n) {
			return m.category[i], true
		}
	}
	return "", false
}

// Len returns the number of active signatures.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.nodes)
}

// Categories returns the active categories in request order, aliases
// resolved.
func (m *Matcher) Categories() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.categories...)
}
