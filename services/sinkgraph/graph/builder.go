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
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/sinkgraph/services/sinkgraph/ast"
)

// HookMatcher decides whether a callee is a sink.
//
// Implementations must be safe for concurrent use and must not retain n.
type HookMatcher interface {
	// Match returns the sink category of n, if any.
	Match(n Node) (category string, ok bool)
}

// BuilderOptions configures Builder behavior.
type BuilderOptions struct {
	// Logger receives reference-degrade warnings and invariant errors.
	Logger *slog.Logger

	// Hooks is the active sink matcher. Nil disables hook detection.
	Hooks HookMatcher

	// HookConstructors extends hook scanning to declared constructors.
	// Default: false (methods only).
	HookConstructors bool
}

// BuilderOption is a functional option for configuring Builder.
type BuilderOption func(*BuilderOptions)

// WithLogger sets the builder logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(o *BuilderOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithHookMatcher enables hook detection with the given matcher.
func WithHookMatcher(m HookMatcher) BuilderOption {
	return func(o *BuilderOptions) {
		o.Hooks = m
	}
}

// WithHookConstructors sets whether constructor bodies are scanned for sinks.
func WithHookConstructors(enabled bool) BuilderOption {
	return func(o *BuilderOptions) {
		o.HookConstructors = enabled
	}
}

// BuildStats summarizes a build.
type BuildStats struct {
	Files        int `json:"files"`
	Methods      int `json:"methods"`
	Constructors int `json:"constructors"`
	Sites        int `json:"sites"`
	Nodes        int `json:"nodes"`
	Edges        int `json:"edges"`
	HookTargets  int `json:"hook_targets"`

	DegradedDeclaringTypes int `json:"degraded_declaring_types"`
	DegradedParameterTypes int `json:"degraded_parameter_types"`
	DegradedParameterNames int `json:"degraded_parameter_names"`

	DroppedEdgePositions int `json:"dropped_edge_positions"`
	DroppedHookPositions int `json:"dropped_hook_positions"`

	// MissingCallees counts callees absent from the node index. Always zero
	// unless an internal invariant is broken.
	MissingCallees int `json:"missing_callees"`

	DurationMilli int64 `json:"duration_milli"`
}

// BuildResult is the output of Builder.Build.
type BuildResult struct {
	Graph *CallGraph
	Stats BuildStats
}

// Builder assembles call graphs from resolved source models.
//
// The builder is stateless and can be reused across multiple builds.
//
// Thread Safety:
//
//	Builder is safe for concurrent use. Each Build call operates
//	independently with its own internal state.
type Builder struct {
	options BuilderOptions
}

// NewBuilder creates a Builder with the given options.
//
// Example:
//
//	builder := NewBuilder(
//	    WithHookMatcher(matcher),
//	    WithLogger(logger),
//	)
func NewBuilder(opts ...BuilderOption) *Builder {
	options := BuilderOptions{Logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	return &Builder{options: options}
}

// declaration is a declared executable with its node.
type declaration struct {
	exec *ast.Executable
	node Node
}

// buildState holds mutable state during a single build.
type buildState struct {
	model  *ast.Model
	decls  []declaration
	callee map[*ast.CallSite]Node
	index  *NodeIndex
	graph  *CallGraph
	stats  BuildStats
}

// Build assembles the call graph of m.
//
// Description:
//
//	Declared methods (in file then source order) followed by declared
//	constructors are the callers. Every declaration and every callee
//	referenced from a declaration's sites becomes a node; equal nodes are
//	merged, sorted canonically, and numbered from "0". Each site then yields
//	one edge from its caller to its callee and, when a hook matcher is set,
//	a hook target if the callee is a sink. Sites without a position are
//	skipped for both.
//
// Inputs:
//   - ctx: Context for cancellation. Checked between phases and files.
//   - m: A model from ast.BuildModel. Must not be nil.
//
// Outputs:
//   - *BuildResult: The graph and build statistics.
//   - error: ErrNilModel, or a context error.
//
// Build Phases:
//
//  1. COLLECT: Declaration and callee nodes, one callee node per site
//  2. INDEX: Deduplicate, sort, and number nodes
//  3. EXTRACT: Edges and hook targets in traversal order
func (b *Builder) Build(ctx context.Context, m *ast.Model) (*BuildResult, error) {
	if m == nil {
		return nil, ErrNilModel
	}
	start := time.Now()
	ctx, span := startBuildSpan(ctx, len(m.Files))
	defer span.End()

	state := &buildState{
		model:  m,
		callee: make(map[*ast.CallSite]Node),
		graph:  &CallGraph{Edges: []Edge{}, HookTargets: []HookTarget{}},
	}
	state.stats.Files = len(m.Files)

	fail := func(err error) (*BuildResult, error) {
		setBuildSpanResult(span, state.stats, err)
		recordBuildMetrics(time.Since(start), state.stats, false)
		return nil, err
	}

	if err := b.collectPhase(ctx, state); err != nil {
		return fail(err)
	}
	b.indexPhase(state)
	if err := b.extractPhase(ctx, state); err != nil {
		return fail(err)
	}

	state.stats.Nodes = len(state.graph.Nodes)
	state.stats.Edges = len(state.graph.Edges)
	state.stats.HookTargets = len(state.graph.HookTargets)
	state.stats.DurationMilli = time.Since(start).Milliseconds()

	setBuildSpanResult(span, state.stats, nil)
	recordBuildMetrics(time.Since(start), state.stats, true)

	return &BuildResult{Graph: state.graph, Stats: state.stats}, nil
}

// collectPhase builds declaration nodes and the callee node of every site.
func (b *Builder) collectPhase(ctx context.Context, state *buildState) error {
	methods := state.model.Methods()
	ctors := state.model.Constructors()
	state.stats.Methods = len(methods)
	state.stats.Constructors = len(ctors)

	state.decls = make([]declaration, 0, len(methods)+len(ctors))
	for _, e := range methods {
		state.decls = append(state.decls, declaration{exec: e, node: NodeFromDeclaration(e)})
	}
	for _, e := range ctors {
		state.decls = append(state.decls, declaration{exec: e, node: NodeFromDeclaration(e)})
	}

	var file *ast.FileUnit
	for _, d := range state.decls {
		if f := d.exec.Owner.File; f != file {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("collecting nodes: %w", err)
			}
			file = f
		}
		for _, s := range d.exec.Sites {
			if _, ok := state.callee[s]; ok {
				continue
			}
			n, deg := NodeFromReference(s, b.options.Logger)
			state.callee[s] = n
			state.stats.Sites++
			if deg.DeclaringType {
				state.stats.DegradedDeclaringTypes++
			}
			if deg.ParameterTypes {
				state.stats.DegradedParameterTypes++
			}
			if deg.ParameterNames {
				state.stats.DegradedParameterNames++
			}
			recordDegradation(deg)
		}
	}
	return nil
}

// indexPhase deduplicates, sorts, and numbers all nodes.
func (b *Builder) indexPhase(state *buildState) {
	set := NewNodeSet()
	for _, d := range state.decls {
		set.Add(d.node)
		for _, s := range d.exec.Sites {
			set.Add(state.callee[s])
		}
	}
	state.graph.Nodes = set.Sorted()
	state.index = NewNodeIndex(state.graph.Nodes)
}

// extractPhase emits edges and hook targets.
func (b *Builder) extractPhase(ctx context.Context, state *buildState) error {
	var file *ast.FileUnit
	for _, d := range state.decls {
		if f := d.exec.Owner.File; f != file {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("extracting edges: %w", err)
			}
			file = f
		}
		caller, ok := state.index.Lookup(d.node)
		if !ok {
			b.options.Logger.Error("caller missing from node index",
				slog.String("node", d.node.String()))
			state.stats.MissingCallees++
			missingCalleesTotal.Inc()
			continue
		}
		scanHooks := b.options.Hooks != nil && (!d.exec.Constructor || b.options.HookConstructors)

		for _, s := range d.exec.Sites {
			calleeNode := state.callee[s]
			pos, posErr := NormalizePosition(s.Position)

			callee, ok := state.index.Lookup(calleeNode)
			switch {
			case !ok:
				b.options.Logger.Error("callee missing from node index",
					slog.String("node", calleeNode.String()),
					slog.String("site", s.Position.String()))
				state.stats.MissingCallees++
				missingCalleesTotal.Inc()
			case posErr != nil:
				state.stats.DroppedEdgePositions++
				droppedPositionsTotal.WithLabelValues("edge").Inc()
			default:
				state.graph.Edges = append(state.graph.Edges, Edge{
					Caller:   ID(caller),
					Callee:   ID(callee),
					Position: pos,
				})
			}

			if !scanHooks {
				continue
			}
			category, hit := b.options.Hooks.Match(calleeNode)
			if !hit {
				continue
			}
			if posErr != nil {
				state.stats.DroppedHookPositions++
				droppedPositionsTotal.WithLabelValues("hook").Inc()
				continue
			}
			state.graph.HookTargets = append(state.graph.HookTargets, HookTarget{
				Node:     d.node,
				Position: pos,
				HookName: category,
			})
			hookTargetsTotal.WithLabelValues(category).Inc()
		}
	}
	return nil
}
