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
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Edge is a call from the caller node to the callee node at a position.
type Edge struct {
	Caller   string   `json:"caller"`
	Callee   string   `json:"callee"`
	Position Position `json:"position"`
}

// HookTarget is a sink occurrence inside a declared method.
//
// Node is the containing declaration, not the matched callee.
type HookTarget struct {
	Node     Node     `json:"node"`
	Position Position `json:"position"`
	HookName string   `json:"hookName"`
}

// CallGraph is the finished graph.
//
// Nodes[i] carries the index strconv.Itoa(i). Edges are in caller traversal
// then site order; hook targets are in declaration then site order.
type CallGraph struct {
	Nodes       []Node
	Edges       []Edge
	HookTargets []HookTarget
}

// ID returns the string index of the i-th node.
func ID(i int) string {
	return strconv.Itoa(i)
}

// Node returns the node with the given string index.
func (g *CallGraph) Node(id string) (Node, bool) {
	i, err := strconv.Atoi(id)
	if err != nil || i < 0 || i >= len(g.Nodes) || ID(i) != id {
		return Node{}, false
	}
	return g.Nodes[i], true
}

type wireGraph struct {
	Nodes       orderedNodes `json:"nodes"`
	Edges       []Edge       `json:"edges"`
	HookTargets []HookTarget `json:"hookTargets"`
}

// MarshalJSON renders the graph in the wire format. Nodes are written as an
// object keyed by index in ascending numeric order.
func (g *CallGraph) MarshalJSON() ([]byte, error) {
	w := wireGraph{
		Nodes:       orderedNodes(g.Nodes),
		Edges:       g.Edges,
		HookTargets: g.HookTargets,
	}
	if w.Edges == nil {
		w.Edges = []Edge{}
	}
	if w.HookTargets == nil {
		w.HookTargets = []HookTarget{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire format. Node indices must be exactly
// "0".."n-1" and every edge must reference existing nodes.
func (g *CallGraph) UnmarshalJSON(data []byte) error {
	var w wireGraph
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	for i, e := range w.Edges {
		if !validID(e.Caller, len(w.Nodes)) || !validID(e.Callee, len(w.Nodes)) {
			return fmt.Errorf("%w: edge %d references %s -> %s", ErrMalformedGraph, i, e.Caller, e.Callee)
		}
	}
	g.Nodes = []Node(w.Nodes)
	g.Edges = w.Edges
	g.HookTargets = w.HookTargets
	return nil
}

func validID(id string, n int) bool {
	i, err := strconv.Atoi(id)
	return err == nil && i >= 0 && i < n && ID(i) == id
}

type orderedNodes []Node

func (o orderedNodes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(ID(i)))
		buf.WriteByte(':')
		data, err := json.Marshal(n)
		if err != nil {
			return nil, fmt.Errorf("marshaling node %d: %w", i, err)
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *orderedNodes) UnmarshalJSON(data []byte) error {
	var byID map[string]Node
	if err := json.Unmarshal(data, &byID); err != nil {
		return err
	}
	nodes := make([]Node, len(byID))
	seen := make([]bool, len(byID))
	for id, n := range byID {
		if !validID(id, len(byID)) {
			return fmt.Errorf("%w: node index %q out of range", ErrMalformedGraph, id)
		}
		i, _ := strconv.Atoi(id)
		if seen[i] {
			return fmt.Errorf("%w: duplicate node index %q", ErrMalformedGraph, id)
		}
		seen[i] = true
		nodes[i] = NewNode(n.DeclaringType, n.MemberName, n.ParameterTypes, n.ParameterNames)
	}
	*o = nodes
	return nil
}
