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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffSnapshots(t *testing.T) {
	base := &CallGraph{
		Nodes: []Node{
			NewNode("p.A", "a", nil, nil),
			NewNode("p.A", "b", []string{"int"}, []string{"x"}),
			NewNode("p.A", "gone", nil, nil),
		},
		Edges: []Edge{
			{Caller: "0", Callee: "1", Position: testPosition(2)},
			{Caller: "0", Callee: "2", Position: testPosition(3)},
		},
		HookTargets: []HookTarget{
			{Node: NewNode("p.A", "a", nil, nil), Position: testPosition(3), HookName: "Exec"},
		},
	}
	// Renumbered: a new node sorts first.
	target := &CallGraph{
		Nodes: []Node{
			NewNode("java.io.File", "<init>", []string{"java.lang.String"}, []string{Unknown}),
			NewNode("p.A", "a", nil, nil),
			NewNode("p.A", "b", []string{"int"}, []string{"y"}),
		},
		Edges: []Edge{
			{Caller: "1", Callee: "2", Position: testPosition(2)},
			{Caller: "1", Callee: "0", Position: testPosition(4)},
		},
		HookTargets: []HookTarget{
			{Node: NewNode("p.A", "a", nil, nil), Position: testPosition(4), HookName: "FileSystemTraversal"},
		},
	}

	diff, err := DiffSnapshots(base, target, "base", "target")
	require.NoError(t, err)

	assert.Equal(t, "base", diff.BaseSnapshotID)
	assert.Equal(t, []string{"java.io.File::<init>(java.lang.String)"}, diff.NodesAdded)
	assert.Equal(t, []string{"p.A::gone()"}, diff.NodesRemoved)
	assert.Equal(t, []string{"p.A::b(int)"}, diff.NodesRenamed)
	assert.Equal(t, 1, diff.EdgesAdded)
	assert.Equal(t, 1, diff.EdgesRemoved)
	require.Len(t, diff.HooksAdded, 1)
	assert.Equal(t, HookDiff{Caller: "p.A::a()", HookName: "FileSystemTraversal", File: "/src/A.java", Line: 4}, diff.HooksAdded[0])
	require.Len(t, diff.HooksRemoved, 1)
	assert.Equal(t, "Exec", diff.HooksRemoved[0].HookName)

	assert.Equal(t, 7, diff.Summary.TotalChanges)
	assert.Equal(t, 1, diff.Summary.FilesAffected)
	assert.InDelta(t, 1.0, diff.Summary.ChangeRatio, 1e-9)
}

func TestDiffSnapshots_Identical(t *testing.T) {
	diff, err := DiffSnapshots(sampleGraph(), sampleGraph(), "a", "b")
	require.NoError(t, err)
	assert.Zero(t, diff.Summary.TotalChanges)
	assert.Empty(t, diff.NodesAdded)
	assert.NotNil(t, diff.HooksAdded)
}

func TestDiffSnapshots_NilGraph(t *testing.T) {
	_, err := DiffSnapshots(nil, sampleGraph(), "", "")
	assert.Error(t, err)
	_, err = DiffSnapshots(sampleGraph(), nil, "", "")
	assert.Error(t, err)
}
