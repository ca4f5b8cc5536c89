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
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/sinkgraph/services/sinkgraph/ast"
	"github.com/AleutianAI/sinkgraph/services/sinkgraph/graph"
)

//go:embed sinks.yaml
var defaultSinksYAML []byte

// Entry is one sink signature.
type Entry struct {
	DeclaringType  string   `yaml:"type" toml:"type" json:"type"`
	MemberName     string   `yaml:"member" toml:"member" json:"member"`
	ParameterTypes []string `yaml:"params" toml:"params" json:"params"`

	// ParameterNames documents the declared names. Not part of identity.
	ParameterNames []string `yaml:"names,omitempty" toml:"names,omitempty" json:"names,omitempty"`
}

// Node returns the identity of the entry.
func (e Entry) Node() graph.Node {
	return graph.NewNode(e.DeclaringType, e.MemberName, e.ParameterTypes, e.ParameterNames)
}

// Group is the set of entries sharing a category.
type Group struct {
	Category   string  `yaml:"category" toml:"category" json:"category"`
	Signatures []Entry `yaml:"signatures" toml:"signatures" json:"signatures"`
}

// catalogueFile is the on-disk layout shared by YAML and TOML files.
type catalogueFile struct {
	Aliases map[string]string `yaml:"aliases" toml:"aliases"`
	Sinks   []Group           `yaml:"sinks" toml:"sinks"`
}

// Catalogue is an immutable table of sink signatures grouped by category.
//
// Description:
//
//	Categories keep their file order. Aliases name another category and
//	select exactly its entries. A Catalogue is built once at startup with
//	Default, Load or Parse and passed to whatever needs it.
//
// Thread Safety:
//
//	Immutable after construction; safe for concurrent use.
type Catalogue struct {
	groups  []Group
	byName  map[string]int
	aliases map[string]string
}

// Default returns the built-in catalogue.
func Default() (*Catalogue, error) {
	return Parse(defaultSinksYAML, "yaml")
}

// Load reads a catalogue file. The format follows the extension: .yaml and
// .yml use YAML, .toml uses TOML.
func Load(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalogue %s: %w", path, err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	c, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("loading catalogue %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates catalogue data.
//
// Inputs:
//   - data: The encoded catalogue.
//   - format: "yaml", "yml" or "toml".
//
// Outputs:
//   - *Catalogue: The validated catalogue.
//   - error: ErrUnsupportedFormat, a decode error, or ErrInvalidCatalogue.
func Parse(data []byte, format string) (*Catalogue, error) {
	var f catalogueFile
	switch format {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decoding yaml catalogue: %w", err)
		}
	case "toml":
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, fmt.Errorf("decoding toml catalogue: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown key %s", ErrInvalidCatalogue, undecoded[0])
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return newCatalogue(f)
}

func newCatalogue(f catalogueFile) (*Catalogue, error) {
	c := &Catalogue{
		byName:  make(map[string]int, len(f.Sinks)),
		aliases: make(map[string]string, len(f.Aliases)),
	}
	for _, g := range f.Sinks {
		if g.Category == "" {
			return nil, fmt.Errorf("%w: group without a category", ErrInvalidCatalogue)
		}
		i, ok := c.byName[g.Category]
		if !ok {
			i = len(c.groups)
			c.byName[g.Category] = i
			c.groups = append(c.groups, Group{Category: g.Category})
		}
		for j, e := range g.Signatures {
			if err := validateEntry(e); err != nil {
				return nil, fmt.Errorf("%w: %s entry %d: %v", ErrInvalidCatalogue, g.Category, j, err)
			}
			c.groups[i].Signatures = append(c.groups[i].Signatures, Entry{
				DeclaringType:  e.DeclaringType,
				MemberName:     e.MemberName,
				ParameterTypes: slices.Clone(e.ParameterTypes),
				ParameterNames: slices.Clone(e.ParameterNames),
			})
		}
	}
	for alias, target := range f.Aliases {
		if _, ok := c.byName[target]; !ok {
			return nil, fmt.Errorf("%w: alias %s targets unknown category %s", ErrInvalidCatalogue, alias, target)
		}
		if _, ok := c.byName[alias]; ok {
			return nil, fmt.Errorf("%w: alias %s shadows a category", ErrInvalidCatalogue, alias)
		}
		c.aliases[alias] = target
	}
	return c, nil
}

func validateEntry(e Entry) error {
	switch {
	case e.DeclaringType == "":
		return fmt.Errorf("empty type")
	case e.MemberName == "":
		return fmt.Errorf("empty member")
	case slices.Contains(e.ParameterTypes, graph.Unknown):
		return fmt.Errorf("parameter list uses %s", graph.Unknown)
	case e.DeclaringType == graph.Unknown:
		return fmt.Errorf("type is %s", graph.Unknown)
	case len(e.ParameterNames) > 0 && len(e.ParameterNames) != len(e.ParameterTypes):
		return fmt.Errorf("%d names for %d parameters", len(e.ParameterNames), len(e.ParameterTypes))
	}
	for _, p := range e.ParameterTypes {
		if p == "" {
			return fmt.Errorf("empty parameter type")
		}
	}
	return nil
}

// Categories returns the category names in file order. Aliases are not
// included.
func (c *Catalogue) Categories() []string {
	out := make([]string, len(c.groups))
	for i, g := range c.groups {
		out[i] = g.Category
	}
	return out
}

// Aliases returns a copy of the alias table.
func (c *Catalogue) Aliases() map[string]string {
	out := make(map[string]string, len(c.aliases))
	for k, v := range c.aliases {
		out[k] = v
	}
	return out
}

// Resolve maps a requested name to its category, following aliases.
func (c *Catalogue) Resolve(name string) (string, bool) {
	if target, ok := c.aliases[name]; ok {
		return target, true
	}
	_, ok := c.byName[name]
	return name, ok
}

// Entries returns the entries of a category or alias.
//
// Outputs:
//   - []Entry: A copy of the entries in file order.
//   - error: ErrUnknownCategory when name is neither a category nor an alias.
func (c *Catalogue) Entries(name string) ([]Entry, error) {
	cat, ok := c.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, name)
	}
	return slices.Clone(c.groups[c.byName[cat]].Signatures), nil
}

// Len returns the total number of entries.
func (c *Catalogue) Len() int {
	n := 0
	for _, g := range c.groups {
		n += len(g.Signatures)
	}
	return n
}

// Signatures returns every entry as an external declaration for overload
// selection in ast.BuildModel.
func (c *Catalogue) Signatures() []ast.Signature {
	out := make([]ast.Signature, 0, c.Len())
	for _, g := range c.groups {
		for _, e := range g.Signatures {
			out = append(out, ast.Signature{
				DeclaringType:  e.DeclaringType,
				Name:           e.MemberName,
				ParameterTypes: slices.Clone(e.ParameterTypes),
			})
		}
	}
	return out
}

// Select builds a matcher over the requested categories.
//
// Description:
//
//	Names are case-sensitive. Aliases expand to their target, so
//	FileReadWrite and FileSystemTraversal select the same entries. Names the
//	catalogue does not define select nothing and are returned in unknown.
//
// Outputs:
//   - *Matcher: The active set. Empty when nothing matched.
//   - []string: Requested names the catalogue does not define.
func (c *Catalogue) Select(categories []string) (m *Matcher, unknown []string) {
	m = newMatcher()
	selected := make(map[string]bool)
	for _, name := range categories {
		cat, ok := c.Resolve(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if selected[cat] {
			continue
		}
		selected[cat] = true
		m.categories = append(m.categories, cat)
	}
	for _, g := range c.groups {
		if !selected[g.Category] {
			continue
		}
		for _, e := range g.Signatures {
			m.add(e.Node(), g.Category)
		}
	}
	return m, unknown
}

// ParseCategories splits a comma-delimited category list. Surrounding
// whitespace and empty items are dropped.
func ParseCategories(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
