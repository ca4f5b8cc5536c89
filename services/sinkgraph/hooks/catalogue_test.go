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

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/sinkgraph/services/sinkgraph/ast"
	"github.com/AleutianAI/sinkgraph/services/sinkgraph/graph"
)

func mustDefault(t *testing.T) *Catalogue {
	t.Helper()
	c, err := Default()
	require.NoError(t, err)
	return c
}

func TestDefault(t *testing.T) {
	c := mustDefault(t)

	assert.Equal(t, []string{
		"OsCommandInjection",
		"FileSystemTraversal",
		"ReflectiveCall",
		"ServerSideRequestForgery",
		"LdapInjection",
		"NamingContextLookup",
		"Deserialization",
		"ExpressionLanguageInjection",
	}, c.Categories())
	assert.Equal(t, 80, c.Len())
	assert.Equal(t, map[string]string{FileReadWrite: FileSystemTraversal}, c.Aliases())

	fs, err := c.Entries(FileSystemTraversal)
	require.NoError(t, err)
	assert.Len(t, fs, 44)
	assert.Equal(t, "java.io.FileReader::<init>(java.lang.String)", fs[0].Node().String())
}

func TestCatalogue_Entries_Unknown(t *testing.T) {
	_, err := mustDefault(t).Entries("Nope")
	assert.True(t, errors.Is(err, ErrUnknownCategory))
}

func TestCatalogue_Select_FileReadWriteAlias(t *testing.T) {
	c := mustDefault(t)
	alias, unknown := c.Select([]string{FileReadWrite})
	assert.Empty(t, unknown)
	direct, _ := c.Select([]string{FileSystemTraversal})
	both, _ := c.Select([]string{FileReadWrite, FileSystemTraversal})

	assert.Equal(t, 44, alias.Len())
	assert.Equal(t, direct.Len(), alias.Len())
	assert.Equal(t, direct.Len(), both.Len())
	assert.Equal(t, []string{FileSystemTraversal}, alias.Categories())

	entries, err := c.Entries(FileSystemTraversal)
	require.NoError(t, err)
	for _, e := range entries {
		cat, ok := alias.Match(e.Node())
		assert.True(t, ok, e.Node().String())
		assert.Equal(t, FileSystemTraversal, cat)
	}
	_, ok := alias.Match(graph.NewNode("java.lang.ProcessBuilder", "start", nil, nil))
	assert.False(t, ok)
}

func TestCatalogue_Select_CaseSensitiveAndUnknown(t *testing.T) {
	m, unknown := mustDefault(t).Select([]string{"osCommandInjection", "Deserialization", "Bogus"})
	assert.Equal(t, []string{"osCommandInjection", "Bogus"}, unknown)
	assert.Equal(t, 5, m.Len())
	assert.Equal(t, []string{"Deserialization"}, m.Categories())
}

func TestMatcher_UnresolvedParametersNeverMatch(t *testing.T) {
	c := mustDefault(t)
	m, _ := c.Select(c.Categories())
	require.Equal(t, c.Len(), m.Len())

	for _, cat := range c.Categories() {
		entries, err := c.Entries(cat)
		require.NoError(t, err)
		for _, e := range entries {
			n := graph.NewNode(e.DeclaringType, e.MemberName, []string{graph.Unknown}, []string{graph.Unknown})
			_, ok := m.Match(n)
			assert.False(t, ok, "unresolved %s must not match", n)
		}
	}
}

func TestMatcher_IgnoresParameterNames(t *testing.T) {
	m, _ := mustDefault(t).Select([]string{"ReflectiveCall"})
	cat, ok := m.Match(graph.NewNode("java.lang.Class", "forName", []string{"java.lang.String"}, []string{graph.Unknown}))
	assert.True(t, ok)
	assert.Equal(t, "ReflectiveCall", cat)

	_, ok = m.Match(graph.NewNode("java.lang.Class", "forName", []string{"java.lang.Object"}, nil))
	assert.False(t, ok)
}

func TestMatcher_Nil(t *testing.T) {
	var m *Matcher
	_, ok := m.Match(graph.NewNode("a", "b", nil, nil))
	assert.False(t, ok)
	assert.Zero(t, m.Len())
	assert.Nil(t, m.Categories())
}

func TestMatcher_LaterCategoryWins(t *testing.T) {
	data := []byte(`
sinks:
  - category: First
    signatures:
      - {type: p.A, member: m, params: [int]}
  - category: Second
    signatures:
      - {type: p.A, member: m, params: [int]}
`)
	c, err := Parse(data, "yaml")
	require.NoError(t, err)
	m, _ := c.Select([]string{"First", "Second"})
	assert.Equal(t, 1, m.Len())
	cat, ok := m.Match(graph.NewNode("p.A", "m", []string{"int"}, nil))
	assert.True(t, ok)
	assert.Equal(t, "Second", cat)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty type", "sinks:\n  - category: X\n    signatures:\n      - {type: '', member: m, params: []}\n"},
		{"empty member", "sinks:\n  - category: X\n    signatures:\n      - {type: p.A, member: '', params: []}\n"},
		{"unknown sentinel", "sinks:\n  - category: X\n    signatures:\n      - {type: p.A, member: m, params: ['<UNKNOWN>']}\n"},
		{"missing category", "sinks:\n  - signatures:\n      - {type: p.A, member: m, params: []}\n"},
		{"names mismatch", "sinks:\n  - category: X\n    signatures:\n      - {type: p.A, member: m, params: [int], names: [a, b]}\n"},
		{"dangling alias", "aliases:\n  Y: Z\nsinks:\n  - category: X\n    signatures: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "yaml")
			assert.True(t, errors.Is(err, ErrInvalidCatalogue), "err = %v", err)
		})
	}
}

func TestParse_UnknownYAMLField(t *testing.T) {
	_, err := Parse([]byte("sinkz: []\n"), "yaml")
	assert.Error(t, err)
}

func TestParse_UnsupportedFormat(t *testing.T) {
	_, err := Parse([]byte("{}"), "json")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestLoad_TOML(t *testing.T) {
	const data = `
[aliases]
Exec = "OsCommandInjection"

[[sinks]]
category = "OsCommandInjection"

  [[sinks.signatures]]
  type = "java.lang.Runtime"
  member = "exec"
  params = ["java.lang.String"]
  names = ["command"]
`
	path := filepath.Join(t.TempDir(), "sinks.toml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"OsCommandInjection"}, c.Categories())

	m, unknown := c.Select(ParseCategories("Exec"))
	assert.Empty(t, unknown)
	cat, ok := m.Match(graph.NewNode("java.lang.Runtime", "exec", []string{"java.lang.String"}, nil))
	assert.True(t, ok)
	assert.Equal(t, "OsCommandInjection", cat)
}

func TestLoad_TOMLUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sinks.toml")
	require.NoError(t, os.WriteFile(path, []byte("extra = 1\n"), 0o644))
	_, err := Load(path)
	assert.True(t, errors.Is(err, ErrInvalidCatalogue), "err = %v", err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestParseCategories(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"FileReadWrite", []string{"FileReadWrite"}},
		{"A,B", []string{"A", "B"}},
		{" A , ,B,", []string{"A", "B"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCategories(tt.in), "input %q", tt.in)
	}
}

func TestCatalogue_Signatures(t *testing.T) {
	c := mustDefault(t)
	sigs := c.Signatures()
	assert.Len(t, sigs, c.Len())
	assert.True(t, slices.ContainsFunc(sigs, func(s ast.Signature) bool {
		return s.DeclaringType == "java.io.FileInputStream" && s.Name == ast.ConstructorName &&
			slices.Equal(s.ParameterTypes, []string{"java.io.File"})
	}))
}
