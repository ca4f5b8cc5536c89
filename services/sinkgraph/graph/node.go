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
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/AleutianAI/sinkgraph/services/sinkgraph/ast"
)

// Node identifies a method or constructor.
//
// Description:
//
//	Identity is the declaring type, the member name, and the ordered
//	parameter types. Parameter names are carried for consumers but never
//	participate in equality, hashing, or ordering. A Node must not be
//	mutated after construction; use NewNode to get defensive copies.
//
// Thread Safety:
//
//	Immutable values are safe for concurrent use.
type Node struct {
	DeclaringType  string   `json:"qualifiedClassName"`
	MemberName     string   `json:"methodName"`
	ParameterTypes []string `json:"argTypes"`
	ParameterNames []string `json:"argNames"`
}

// NewNode returns a Node holding copies of the given lists. Nil lists become
// empty lists so the node always renders as JSON arrays.
func NewNode(declaringType, memberName string, parameterTypes, parameterNames []string) Node {
	return Node{
		DeclaringType:  declaringType,
		MemberName:     memberName,
		ParameterTypes: cloneList(parameterTypes),
		ParameterNames: cloneList(parameterNames),
	}
}

func cloneList(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Equal reports whether two nodes denote the same member.
func (n Node) Equal(o Node) bool {
	return n.DeclaringType == o.DeclaringType &&
		n.MemberName == o.MemberName &&
		slices.Equal(n.ParameterTypes, o.ParameterTypes)
}

// Hash returns a hash of the declaring type, member name, and arity.
//
// Overloads of equal arity collide by construction; Equal separates them.
// Equal nodes always have equal hashes.
func (n Node) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(n.DeclaringType)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(n.MemberName)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(strconv.Itoa(len(n.ParameterTypes)))
	return d.Sum64()
}

// String renders the canonical signature "type::name(p1, p2)".
func (n Node) String() string {
	var b strings.Builder
	b.WriteString(n.DeclaringType)
	b.WriteString("::")
	b.WriteString(n.MemberName)
	b.WriteByte('(')
	b.WriteString(strings.Join(n.ParameterTypes, ", "))
	b.WriteByte(')')
	return b.String()
}

// Compare orders nodes lexicographically by their canonical signature.
func Compare(a, b Node) int {
	return strings.Compare(a.String(), b.String())
}

// UnknownCount returns how many identity fields carry the Unknown sentinel.
func (n Node) UnknownCount() int {
	c := 0
	if n.DeclaringType == Unknown {
		c++
	}
	for _, p := range n.ParameterTypes {
		if p == Unknown {
			c++
		}
	}
	return c
}

// HasUnknownParameters reports whether the parameter types are unresolved.
func (n Node) HasUnknownParameters() bool {
	return slices.Contains(n.ParameterTypes, Unknown)
}

// NodeFromDeclaration builds the node of a declared method or constructor.
// Declarations always resolve fully.
func NodeFromDeclaration(e *ast.Executable) Node {
	return NewNode(e.Owner.QualifiedName, e.Name, e.ParameterTypes, e.ParamNames())
}

// Degradation records which reference fields fell back to Unknown.
type Degradation struct {
	DeclaringType  bool
	ParameterTypes bool
	ParameterNames bool
}

// Any reports whether any field degraded.
func (d Degradation) Any() bool {
	return d.DeclaringType || d.ParameterTypes || d.ParameterNames
}

// NodeFromReference builds the callee node of a call site.
//
// Description:
//
//	Each reference field is taken from the site's resolution independently.
//	A failed declaring type becomes Unknown; failed parameter types or names
//	become the single-element list [Unknown]. Every substitution is logged
//	at warning level.
//
// Inputs:
//   - s: A site from a model built by ast.BuildModel. Must not be nil.
//   - logger: Receives one warning per degraded field. Nil means slog.Default().
//
// Outputs:
//   - Node: The callee node.
//   - Degradation: Which fields were substituted.
func NodeFromReference(s *ast.CallSite, logger *slog.Logger) (Node, Degradation) {
	if logger == nil {
		logger = slog.Default()
	}
	ref := s.Ref
	var deg Degradation

	declType := ref.DeclaringType.Value
	if !ref.DeclaringType.OK {
		deg.DeclaringType = true
		declType = Unknown
		logger.Warn("could not determine declaring type, using "+Unknown,
			slog.String("member", ref.Name),
			slog.String("site", s.Position.String()),
			slog.String("reason", ref.DeclaringType.Reason),
		)
	}

	paramTypes := ref.ParameterTypes.Value
	if !ref.ParameterTypes.OK {
		deg.ParameterTypes = true
		paramTypes = []string{Unknown}
		logger.Warn("could not determine argument types, using "+Unknown,
			slog.String("member", declType+"::"+ref.Name),
			slog.String("site", s.Position.String()),
			slog.String("reason", ref.ParameterTypes.Reason),
		)
	}

	paramNames := ref.ParameterNames.Value
	if !ref.ParameterNames.OK {
		deg.ParameterNames = true
		paramNames = []string{Unknown}
		logger.Warn("could not determine argument names, using "+Unknown,
			slog.String("member", declType+"::"+ref.Name),
			slog.String("site", s.Position.String()),
			slog.String("reason", ref.ParameterNames.Reason),
		)
	}

	return NewNode(declType, ref.Name, paramTypes, paramNames), deg
}
