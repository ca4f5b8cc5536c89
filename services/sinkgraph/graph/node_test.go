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

	"github.com/AleutianAI/sinkgraph/services/sinkgraph/ast"
)

func TestNode_EqualIgnoresParameterNames(t *testing.T) {
	a := NewNode("p.A", "m", []string{"int"}, []string{"x"})
	b := NewNode("p.A", "m", []string{"int"}, []string{"y"})
	c := NewNode("p.A", "m", []string{"long"}, []string{"x"})

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(c))
}

func TestNode_HashIsCoarse(t *testing.T) {
	a := NewNode("p.A", "m", []string{"int"}, nil)
	b := NewNode("p.A", "m", []string{"java.lang.String"}, nil)
	c := NewNode("p.A", "m", []string{"int", "int"}, nil)

	assert.Equal(t, a.Hash(), b.Hash(), "same arity overloads share a bucket")
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestNode_String(t *testing.T) {
	n := NewNode("java.io.File", ast.ConstructorName, []string{"java.lang.String", "java.lang.String"}, nil)
	assert.Equal(t, "java.io.File::<init>(java.lang.String, java.lang.String)", n.String())
	assert.Equal(t, "p.A::m()", NewNode("p.A", "m", nil, nil).String())
}

func TestNewNode_CopiesLists(t *testing.T) {
	types := []string{"int"}
	n := NewNode("p.A", "m", types, nil)
	types[0] = "long"

	assert.Equal(t, []string{"int"}, n.ParameterTypes)
	assert.NotNil(t, n.ParameterNames)
	assert.Empty(t, n.ParameterNames)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b Node
		want int
	}{
		{NewNode("A", "m", nil, nil), NewNode("java.io.FileReader", "<init>", nil, nil), -1},
		{NewNode("p.A", "m", []string{"int"}, nil), NewNode("p.A", "m", []string{"int", "int"}, nil), -1},
		{NewNode("p.B", "a", nil, nil), NewNode("p.A", "z", nil, nil), 1},
		{NewNode("p.A", "m", []string{"int"}, []string{"x"}), NewNode("p.A", "m", []string{"int"}, []string{"y"}), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Compare(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestNode_UnknownCount(t *testing.T) {
	assert.Equal(t, 0, NewNode("p.A", "m", []string{"int"}, nil).UnknownCount())
	assert.Equal(t, 1, NewNode(Unknown, "m", []string{"int"}, nil).UnknownCount())
	n := NewNode(Unknown, "m", []string{Unknown}, []string{Unknown})
	assert.Equal(t, 2, n.UnknownCount())
	assert.True(t, n.HasUnknownParameters())
}

func TestNodeSet_KeepsFirstRepresentative(t *testing.T) {
	s := NewNodeSet()
	assert.True(t, s.Add(NewNode("p.B", "m", []string{"int"}, []string{"first"})))
	assert.False(t, s.Add(NewNode("p.B", "m", []string{"int"}, []string{"second"})))
	assert.True(t, s.Add(NewNode("p.B", "m", []string{"long"}, nil)))
	assert.True(t, s.Add(NewNode("p.A", "m", nil, nil)))

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains(NewNode("p.B", "m", []string{"long"}, []string{"z"})))
	assert.False(t, s.Contains(NewNode("p.B", "m", []string{"char"}, nil)))

	sorted := s.Sorted()
	assert.Equal(t, "p.A::m()", sorted[0].String())
	assert.Equal(t, "p.B::m(int)", sorted[1].String())
	assert.Equal(t, []string{"first"}, sorted[1].ParameterNames)
	assert.Equal(t, "p.B::m(long)", sorted[2].String())

	idx := NewNodeIndex(sorted)
	i, ok := idx.Lookup(NewNode("p.B", "m", []string{"long"}, nil))
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	_, ok = idx.Lookup(NewNode("p.C", "m", nil, nil))
	assert.False(t, ok)
}
