// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "slices"

// NodeSet is a set of nodes keyed by Node.Hash and separated by Node.Equal.
//
// Insertion order is preserved. The first inserted representative of an
// equivalence class is kept; later equal nodes are discarded even when their
// parameter names differ.
//
// Thread Safety:
//
//	Not safe for concurrent use.
type NodeSet struct {
	buckets map[uint64][]int
	nodes   []Node
}

// NewNodeSet returns an empty set.
func NewNodeSet() *NodeSet {
	return &NodeSet{buckets: make(map[uint64][]int)}
}

// Add inserts n unless an equal node is present. It reports whether n was
// added.
func (s *NodeSet) Add(n Node) bool {
	h := n.Hash()
	for _, i := range s.buckets[h] {
		if s.nodes[i].Equal(n) {
			return false
		}
	}
	s.buckets[h] = append(s.buckets[h], len(s.nodes))
	s.nodes = append(s.nodes, n)
	return true
}

// Contains reports whether an equal node is present.
func (s *NodeSet) Contains(n Node) bool {
	for _, i := range s.buckets[n.Hash()] {
		if s.nodes[i].Equal(n) {
			return true
		}
	}
	return false
}

// Len returns the number of distinct nodes.
func (s *NodeSet) Len() int {
	return len(s.nodes)
}

// Sorted returns the nodes in canonical order.
func (s *NodeSet) Sorted() []Node {
	out := slices.Clone(s.nodes)
	slices.SortStableFunc(out, Compare)
	return out
}

// NodeIndex maps nodes to their string indices.
//
// Thread Safety:
//
//	Read-only after NewNodeIndex returns; safe for concurrent lookups.
type NodeIndex struct {
	buckets map[uint64][]int
	nodes   []Node
}

// NewNodeIndex indexes nodes by position: nodes[i] gets index i.
func NewNodeIndex(nodes []Node) *NodeIndex {
	idx := &NodeIndex{buckets: make(map[uint64][]int, len(nodes)), nodes: nodes}
	for i, n := range nodes {
		h := n.Hash()
		idx.buckets[h] = append(idx.buckets[h], i)
	}
	return idx
}

// Lookup returns the index of the node equal to n.
func (x *NodeIndex) Lookup(n Node) (int, bool) {
	for _, i := range x.buckets[n.Hash()] {
		if x.nodes[i].Equal(n) {
			return i, true
		}
	}
	return 0, false
}
