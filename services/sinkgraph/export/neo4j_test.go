// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package export

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/sinkgraph/services/sinkgraph/graph"
)

type recorded struct {
	cypher string
	rows   int
}

type recorder struct {
	calls  []recorded
	failOn string
}

func (r *recorder) run(_ context.Context, cypher string, params map[string]any) error {
	n := 0
	if b, ok := params["batch"].([]map[string]any); ok {
		n = len(b)
	}
	r.calls = append(r.calls, recorded{cypher: cypher, rows: n})
	if r.failOn != "" && strings.Contains(cypher, r.failOn) {
		return errors.New("boom")
	}
	return nil
}

func testGraph() *graph.CallGraph {
	pos := graph.Position{StartLine: 3, EndLine: 3, StartColumn: 8, EndColumn: 30, SourceFile: "/src/A.java"}
	main := graph.NewNode("p.A", "main", []string{"java.lang.String[]"}, []string{"args"})
	open := graph.NewNode("java.io.FileReader", "<init>", []string{"java.lang.String"}, []string{graph.Unknown})
	odd := graph.NewNode(graph.Unknown, "run", nil, nil)
	return &graph.CallGraph{
		Nodes: []graph.Node{open, odd, main},
		Edges: []graph.Edge{
			{Caller: "2", Callee: "0", Position: pos},
			{Caller: "2", Callee: "1", Position: pos},
			{Caller: "2", Callee: "9", Position: pos},
		},
		HookTargets: []graph.HookTarget{{Node: main, Position: pos, HookName: "FileSystemTraversal"}},
	}
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMethodRows(t *testing.T) {
	rows := MethodRows(testGraph())
	require.Len(t, rows, 3)
	assert.Equal(t, "java.io.FileReader::<init>(java.lang.String)", rows[0]["signature"])
	assert.Equal(t, false, rows[0]["unresolved"])
	assert.Equal(t, true, rows[1]["unresolved"])
	assert.Equal(t, false, rows[2]["unresolved"])
	assert.Equal(t, []string{"args"}, rows[2]["param_names"])
}

func TestCallRows_SkipsDanglingEdges(t *testing.T) {
	rows := CallRows(testGraph())
	require.Len(t, rows, 2)
	assert.Equal(t, "p.A::main(java.lang.String[])", rows[0]["caller"])
	assert.Equal(t, "java.io.FileReader::<init>(java.lang.String)", rows[0]["callee"])
	assert.Equal(t, 3, rows[0]["line"])
	assert.Equal(t, 8, rows[0]["column"])
	assert.Equal(t, "/src/A.java", rows[0]["file"])
}

func TestHookRows(t *testing.T) {
	rows := HookRows(testGraph())
	require.Len(t, rows, 1)
	assert.Equal(t, "FileSystemTraversal", rows[0]["hook"])
	assert.Equal(t, "p.A::main(java.lang.String[])", rows[0]["method"])
}

func TestExport_Batches(t *testing.T) {
	rec := &recorder{}
	l := newLoader(rec.run, 2, quiet())

	stats, err := l.Export(context.Background(), testGraph(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Methods)
	assert.Equal(t, 2, stats.Calls)
	assert.Equal(t, 1, stats.Hooks)
	// methods 3 rows -> 2 batches, calls 2 -> 1, hooks 1 -> 1
	assert.Equal(t, 4, stats.Statements)

	// 4 clean + 3 index + 4 loads
	require.Len(t, rec.calls, 11)
	assert.Contains(t, rec.calls[0].cypher, "DELETE")
	assert.Contains(t, rec.calls[4].cypher, "CREATE INDEX")
	assert.Equal(t, 2, rec.calls[7].rows)
	assert.Equal(t, 1, rec.calls[8].rows)
}

func TestExport_NoClean(t *testing.T) {
	rec := &recorder{}
	l := newLoader(rec.run, 0, quiet())
	_, err := l.Export(context.Background(), testGraph(), false)
	require.NoError(t, err)
	for _, c := range rec.calls {
		assert.NotContains(t, c.cypher, "DELETE")
	}
	assert.Equal(t, DefaultBatchSize, l.batchSize)
}

func TestExport_Errors(t *testing.T) {
	t.Run("nil graph", func(t *testing.T) {
		l := newLoader((&recorder{}).run, 10, quiet())
		_, err := l.Export(context.Background(), nil, false)
		assert.Error(t, err)
	})

	t.Run("failing statement", func(t *testing.T) {
		rec := &recorder{failOn: "CALLS {file"}
		l := newLoader(rec.run, 10, quiet())
		stats, err := l.Export(context.Background(), testGraph(), false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading calls")
		assert.Equal(t, 3, stats.Methods)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		l := newLoader((&recorder{}).run, 10, quiet())
		_, err := l.Export(ctx, testGraph(), false)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewNeo4jLoader_NoURI(t *testing.T) {
	_, err := NewNeo4jLoader(context.Background(), Neo4jOptions{}, nil)
	assert.ErrorIs(t, err, ErrNoURI)
}

func TestClose_WithoutDriver(t *testing.T) {
	l := newLoader((&recorder{}).run, 1, nil)
	assert.NoError(t, l.Close(context.Background()))
}
