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
	"fmt"
	"slices"
	"strconv"
)

// SnapshotDiff describes the differences between two call graph snapshots.
//
// Nodes are compared by canonical signature, so renumbering between builds
// does not count as a change.
type SnapshotDiff struct {
	BaseSnapshotID   string `json:"base_snapshot_id"`
	TargetSnapshotID string `json:"target_snapshot_id"`

	// NodesAdded are signatures present in target but not in base.
	NodesAdded []string `json:"nodes_added"`

	// NodesRemoved are signatures present in base but not in target.
	NodesRemoved []string `json:"nodes_removed"`

	// NodesRenamed are signatures whose parameter names changed.
	NodesRenamed []string `json:"nodes_renamed"`

	EdgesAdded   int `json:"edges_added"`
	EdgesRemoved int `json:"edges_removed"`

	HooksAdded   []HookDiff `json:"hooks_added"`
	HooksRemoved []HookDiff `json:"hooks_removed"`

	Summary DiffSummary `json:"summary"`
}

// HookDiff identifies a hook target independent of node numbering.
type HookDiff struct {
	Caller   string `json:"caller"`
	HookName string `json:"hookName"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// DiffSummary holds aggregate statistics about a diff.
type DiffSummary struct {
	// TotalChanges counts node, edge and hook changes.
	TotalChanges int `json:"total_changes"`

	// FilesAffected is the number of distinct files with changed edges or hooks.
	FilesAffected int `json:"files_affected"`

	// ChangeRatio is the fraction of nodes that changed (0.0 to 1.0).
	ChangeRatio float64 `json:"change_ratio"`
}

// DiffSnapshots compares two call graphs.
//
// Inputs:
//
//	base - The older graph. Must not be nil.
//	target - The newer graph. Must not be nil.
//	baseSnapshotID, targetSnapshotID - IDs recorded in the result.
//
// Outputs:
//
//	*SnapshotDiff - Sorted, deterministic differences.
//	error - Non-nil if either graph is nil.
func DiffSnapshots(base, target *CallGraph, baseSnapshotID, targetSnapshotID string) (*SnapshotDiff, error) {
	if base == nil {
		return nil, fmt.Errorf("base graph must not be nil")
	}
	if target == nil {
		return nil, fmt.Errorf("target graph must not be nil")
	}

	diff := &SnapshotDiff{
		BaseSnapshotID:   baseSnapshotID,
		TargetSnapshotID: targetSnapshotID,
		NodesAdded:       []string{},
		NodesRemoved:     []string{},
		NodesRenamed:     []string{},
		HooksAdded:       []HookDiff{},
		HooksRemoved:     []HookDiff{},
	}

	baseNodes := nodesBySignature(base)
	targetNodes := nodesBySignature(target)
	for sig, tn := range targetNodes {
		bn, ok := baseNodes[sig]
		if !ok {
			diff.NodesAdded = append(diff.NodesAdded, sig)
			continue
		}
		if !slices.Equal(bn.ParameterNames, tn.ParameterNames) {
			diff.NodesRenamed = append(diff.NodesRenamed, sig)
		}
	}
	for sig := range baseNodes {
		if _, ok := targetNodes[sig]; !ok {
			diff.NodesRemoved = append(diff.NodesRemoved, sig)
		}
	}
	slices.Sort(diff.NodesAdded)
	slices.Sort(diff.NodesRemoved)
	slices.Sort(diff.NodesRenamed)

	affectedFiles := make(map[string]bool)

	baseEdges := buildEdgeSet(base)
	targetEdges := buildEdgeSet(target)
	for key, file := range targetEdges {
		if _, ok := baseEdges[key]; !ok {
			diff.EdgesAdded++
			affectedFiles[file] = true
		}
	}
	for key, file := range baseEdges {
		if _, ok := targetEdges[key]; !ok {
			diff.EdgesRemoved++
			affectedFiles[file] = true
		}
	}

	baseHooks := buildHookSet(base)
	targetHooks := buildHookSet(target)
	for h := range targetHooks {
		if _, ok := baseHooks[h]; !ok {
			diff.HooksAdded = append(diff.HooksAdded, h)
			affectedFiles[h.File] = true
		}
	}
	for h := range baseHooks {
		if _, ok := targetHooks[h]; !ok {
			diff.HooksRemoved = append(diff.HooksRemoved, h)
			affectedFiles[h.File] = true
		}
	}
	slices.SortFunc(diff.HooksAdded, compareHookDiff)
	slices.SortFunc(diff.HooksRemoved, compareHookDiff)

	totalNodes := max(len(baseNodes), len(targetNodes))
	changeRatio := 0.0
	if totalNodes > 0 {
		changed := len(diff.NodesAdded) + len(diff.NodesRemoved) + len(diff.NodesRenamed)
		changeRatio = float64(changed) / float64(totalNodes)
	}

	diff.Summary = DiffSummary{
		TotalChanges: len(diff.NodesAdded) + len(diff.NodesRemoved) + len(diff.NodesRenamed) +
			diff.EdgesAdded + diff.EdgesRemoved +
			len(diff.HooksAdded) + len(diff.HooksRemoved),
		FilesAffected: len(affectedFiles),
		ChangeRatio:   changeRatio,
	}
	return diff, nil
}

func nodesBySignature(g *CallGraph) map[string]Node {
	out := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		out[n.String()] = n
	}
	return out
}

// buildEdgeSet maps "caller -> callee @ file:line:column" to the edge's file.
func buildEdgeSet(g *CallGraph) map[string]string {
	out := make(map[string]string, len(g.Edges))
	for _, e := range g.Edges {
		caller, ok1 := g.Node(e.Caller)
		callee, ok2 := g.Node(e.Callee)
		if !ok1 || !ok2 {
			continue
		}
		key := caller.String() + " -> " + callee.String() + " @ " +
			e.Position.SourceFile + ":" + strconv.Itoa(e.Position.StartLine) + ":" + strconv.Itoa(e.Position.StartColumn)
		out[key] = e.Position.SourceFile
	}
	return out
}

func buildHookSet(g *CallGraph) map[HookDiff]struct{} {
	out := make(map[HookDiff]struct{}, len(g.HookTargets))
	for _, h := range g.HookTargets {
		out[HookDiff{
			Caller:   h.Node.String(),
			HookName: h.HookName,
			File:     h.Position.SourceFile,
			Line:     h.Position.StartLine,
		}] = struct{}{}
	}
	return out
}

func compareHookDiff(a, b HookDiff) int {
	switch {
	case a.File != b.File:
		if a.File < b.File {
			return -1
		}
		return 1
	case a.Line != b.Line:
		return a.Line - b.Line
	case a.Caller != b.Caller:
		if a.Caller < b.Caller {
			return -1
		}
		return 1
	case a.HookName < b.HookName:
		return -1
	case a.HookName > b.HookName:
		return 1
	}
	return 0
}
