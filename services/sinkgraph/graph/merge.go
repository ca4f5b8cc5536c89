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

import (
	"log/slog"
	"slices"
)

// equalWithUnknown reports whether two nodes may denote the same member
// when Unknown matches anything. A parameter list of exactly [Unknown]
// matches every list.
func equalWithUnknown(a, b Node) bool {
	str := func(x, y string) bool {
		return x == Unknown || y == Unknown || x == y
	}
	unknownList := []string{Unknown}
	params := slices.Equal(a.ParameterTypes, unknownList) ||
		slices.Equal(b.ParameterTypes, unknownList) ||
		slices.Equal(a.ParameterTypes, b.ParameterTypes)
	return str(a.DeclaringType, b.DeclaringType) && str(a.MemberName, b.MemberName) && params
}

// MergeResult is the output of MergeUnknownNodes.
type MergeResult struct {
	Graph *CallGraph

	// Remap maps every original index to its index in Graph.
	Remap map[string]string

	// Merged is the number of nodes folded into another node.
	Merged int
}

// MergeUnknownNodes folds partially unresolved nodes into resolved ones.
//
// Description:
//
//	Nodes are grouped greedily in index order: each node joins the first
//	group whose first member it equals under Unknown-as-wildcard, or starts
//	a new group. Each group keeps the member with the fewest Unknown fields,
//	the lowest index on ties. Kept nodes are renumbered contiguously in
//	their original order, and every edge endpoint is rewritten to its
//	group's kept node. Hook targets are carried over unchanged.
//
// Inputs:
//   - g: The graph to merge. Not modified.
//   - logger: Receives one debug record per merged node. Nil means slog.Default().
//
// Outputs:
//   - *MergeResult: The merged graph and the index mapping.
func MergeUnknownNodes(g *CallGraph, logger *slog.Logger) *MergeResult {
	if logger == nil {
		logger = slog.Default()
	}
	var groups [][]int
	for i, n := range g.Nodes {
		placed := false
		for gi, grp := range groups {
			if equalWithUnknown(n, g.Nodes[grp[0]]) {
				groups[gi] = append(grp, i)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []int{i})
		}
	}

	keptOf := make([]int, len(g.Nodes))
	kept := make([]int, 0, len(groups))
	for _, grp := range groups {
		best := grp[0]
		for _, i := range grp[1:] {
			if g.Nodes[i].UnknownCount() < g.Nodes[best].UnknownCount() {
				best = i
			}
		}
		for _, i := range grp {
			keptOf[i] = best
		}
		kept = append(kept, best)
	}
	slices.Sort(kept)

	newIndex := make(map[int]int, len(kept))
	out := &CallGraph{
		Nodes:       make([]Node, 0, len(kept)),
		Edges:       make([]Edge, 0, len(g.Edges)),
		HookTargets: slices.Clone(g.HookTargets),
	}
	for _, i := range kept {
		newIndex[i] = len(out.Nodes)
		out.Nodes = append(out.Nodes, g.Nodes[i])
	}

	res := &MergeResult{Graph: out, Remap: make(map[string]string, len(g.Nodes))}
	for i := range g.Nodes {
		to := ID(newIndex[keptOf[i]])
		res.Remap[ID(i)] = to
		if keptOf[i] != i {
			res.Merged++
			logger.Debug("merging node",
				slog.String("from", ID(i)),
				slog.String("into", ID(keptOf[i])),
				slog.String("node", g.Nodes[i].String()),
			)
		}
	}
	for _, e := range g.Edges {
		e.Caller = res.Remap[e.Caller]
		e.Callee = res.Remap[e.Callee]
		out.Edges = append(out.Edges, e)
	}
	if out.HookTargets == nil {
		out.HookTargets = []HookTarget{}
	}
	return res
}
