// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package export writes call graphs to external stores.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/AleutianAI/sinkgraph/services/sinkgraph/graph"
)

// DefaultBatchSize is the number of rows sent per UNWIND statement.
const DefaultBatchSize = 500

// ErrNoURI indicates a loader was requested without a Neo4j URI.
var ErrNoURI = errors.New("neo4j uri must not be empty")

// Neo4jOptions configures a Neo4jLoader.
type Neo4jOptions struct {
	URI      string
	User     string
	Password string

	// Database selects a database. Empty uses the server default.
	Database string

	// BatchSize bounds rows per statement. Default: DefaultBatchSize.
	BatchSize int
}

// runFunc executes one Cypher statement.
type runFunc func(ctx context.Context, cypher string, params map[string]any) error

// Neo4jLoader loads call graphs into Neo4j using batch UNWIND queries.
//
// Graph layout:
//
//	(:JavaMethod {signature, declaring_type, name, param_types, param_names, unresolved})
//	(:JavaMethod)-[:CALLS {file, line, column}]->(:JavaMethod)
//	(:JavaMethod)-[:HOOKS {hook, file, line, column}]->(:SinkCategory {name})
//
// Thread Safety:
//
//	Safe for concurrent use; the driver manages its own pool.
type Neo4jLoader struct {
	driver    neo4j.DriverWithContext
	run       runFunc
	batchSize int
	logger    *slog.Logger
}

// ExportStats counts what an export wrote.
type ExportStats struct {
	Methods    int `json:"methods"`
	Calls      int `json:"calls"`
	Hooks      int `json:"hooks"`
	Statements int `json:"statements"`
}

// NewNeo4jLoader connects to Neo4j and verifies connectivity.
//
// Outputs:
//   - *Neo4jLoader: A ready loader. Close it when done.
//   - error: ErrNoURI, or a driver or connectivity error.
func NewNeo4jLoader(ctx context.Context, opts Neo4jOptions, logger *slog.Logger) (*Neo4jLoader, error) {
	if opts.URI == "" {
		return nil, ErrNoURI
	}
	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.User, opts.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j at %s: %w", opts.URI, err)
	}

	var queryOpts []neo4j.ExecuteQueryConfigurationOption
	if opts.Database != "" {
		queryOpts = append(queryOpts, neo4j.ExecuteQueryWithDatabase(opts.Database))
	}
	l := newLoader(func(ctx context.Context, cypher string, params map[string]any) error {
		_, err := neo4j.ExecuteQuery(ctx, driver, cypher, params, neo4j.EagerResultTransformer, queryOpts...)
		return err
	}, opts.BatchSize, logger)
	l.driver = driver
	return l, nil
}

func newLoader(run runFunc, batchSize int, logger *slog.Logger) *Neo4jLoader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Neo4jLoader{run: run, batchSize: batchSize, logger: logger}
}

// Close releases the driver.
func (l *Neo4jLoader) Close(ctx context.Context) error {
	if l.driver == nil {
		return nil
	}
	return l.driver.Close(ctx)
}

// CleanGraph removes previously loaded methods and sink categories.
func (l *Neo4jLoader) CleanGraph(ctx context.Context) error {
	l.logger.Info("cleaning existing call graph data")
	queries := []string{
		"MATCH ()-[r:CALLS]->() DELETE r",
		"MATCH ()-[r:HOOKS]->() DELETE r",
		"MATCH (n:JavaMethod) DETACH DELETE n",
		"MATCH (n:SinkCategory) DETACH DELETE n",
	}
	for _, q := range queries {
		if err := l.run(ctx, q, nil); err != nil {
			return fmt.Errorf("cleaning graph: %w", err)
		}
	}
	return nil
}

// CreateIndexes ensures the lookup indexes exist.
func (l *Neo4jLoader) CreateIndexes(ctx context.Context) error {
	indexes := []string{
		"CREATE INDEX java_method_signature IF NOT EXISTS FOR (n:JavaMethod) ON (n.signature)",
		"CREATE INDEX java_method_type IF NOT EXISTS FOR (n:JavaMethod) ON (n.declaring_type)",
		"CREATE INDEX sink_category_name IF NOT EXISTS FOR (n:SinkCategory) ON (n.name)",
	}
	for _, q := range indexes {
		if err := l.run(ctx, q, nil); err != nil {
			return fmt.Errorf("creating indexes: %w", err)
		}
	}
	return nil
}

const (
	cypherMethods = `UNWIND $batch AS row
MERGE (n:JavaMethod {signature: row.signature})
SET n.declaring_type = row.declaring_type, n.name = row.name,
    n.param_types = row.param_types, n.param_names = row.param_names,
    n.unresolved = row.unresolved`

	cypherCalls = `UNWIND $batch AS row
MATCH (caller:JavaMethod {signature: row.caller}), (callee:JavaMethod {signature: row.callee})
MERGE (caller)-[r:CALLS {file: row.file, line: row.line, column: row.column}]->(callee)`

	cypherHooks = `UNWIND $batch AS row
MERGE (c:SinkCategory {name: row.hook})
WITH c, row
MATCH (m:JavaMethod {signature: row.method})
MERGE (m)-[r:HOOKS {hook: row.hook, file: row.file, line: row.line, column: row.column}]->(c)`
)

// Export writes a call graph.
//
// Description:
//
//	Optionally cleans existing data, ensures indexes, then upserts methods,
//	call relationships and hook relationships in batches. Re-exporting the
//	same graph is idempotent.
//
// Inputs:
//   - ctx: Context for cancellation. Checked between batches.
//   - g: The graph. Must not be nil.
//   - clean: Remove existing call graph data first.
func (l *Neo4jLoader) Export(ctx context.Context, g *graph.CallGraph, clean bool) (*ExportStats, error) {
	if g == nil {
		return nil, fmt.Errorf("graph must not be nil")
	}
	stats := &ExportStats{}
	if clean {
		if err := l.CleanGraph(ctx); err != nil {
			return nil, err
		}
	}
	if err := l.CreateIndexes(ctx); err != nil {
		return nil, err
	}

	methods := MethodRows(g)
	n, err := l.runBatches(ctx, cypherMethods, methods)
	stats.Statements += n
	if err != nil {
		return stats, fmt.Errorf("loading methods: %w", err)
	}
	stats.Methods = len(methods)

	calls := CallRows(g)
	n, err = l.runBatches(ctx, cypherCalls, calls)
	stats.Statements += n
	if err != nil {
		return stats, fmt.Errorf("loading calls: %w", err)
	}
	stats.Calls = len(calls)

	hooks := HookRows(g)
	n, err = l.runBatches(ctx, cypherHooks, hooks)
	stats.Statements += n
	if err != nil {
		return stats, fmt.Errorf("loading hooks: %w", err)
	}
	stats.Hooks = len(hooks)

	l.logger.Info("call graph exported to neo4j",
		slog.Int("methods", stats.Methods),
		slog.Int("calls", stats.Calls),
		slog.Int("hooks", stats.Hooks),
	)
	return stats, nil
}

func (l *Neo4jLoader) runBatches(ctx context.Context, cypher string, rows []map[string]any) (int, error) {
	statements := 0
	for start := 0; start < len(rows); start += l.batchSize {
		if err := ctx.Err(); err != nil {
			return statements, err
		}
		end := min(start+l.batchSize, len(rows))
		if err := l.run(ctx, cypher, map[string]any{"batch": rows[start:end]}); err != nil {
			return statements, err
		}
		statements++
	}
	return statements, nil
}

// MethodRows returns one row per node.
func MethodRows(g *graph.CallGraph) []map[string]any {
	rows := make([]map[string]any, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		rows = append(rows, map[string]any{
			"signature":      n.String(),
			"declaring_type": n.DeclaringType,
			"name":           n.MemberName,
			"param_types":    n.ParameterTypes,
			"param_names":    n.ParameterNames,
			"unresolved":     n.UnknownCount() > 0,
		})
	}
	return rows
}

// CallRows returns one row per edge. Edges with unknown endpoints are
// skipped.
func CallRows(g *graph.CallGraph) []map[string]any {
	rows := make([]map[string]any, 0, len(g.Edges))
	for _, e := range g.Edges {
		caller, ok1 := g.Node(e.Caller)
		callee, ok2 := g.Node(e.Callee)
		if !ok1 || !ok2 {
			continue
		}
		rows = append(rows, map[string]any{
			"caller": caller.String(),
			"callee": callee.String(),
			"file":   e.Position.SourceFile,
			"line":   e.Position.StartLine,
			"column": e.Position.StartColumn,
		})
	}
	return rows
}

// HookRows returns one row per hook target.
func HookRows(g *graph.CallGraph) []map[string]any {
	rows := make([]map[string]any, 0, len(g.HookTargets))
	for _, h := range g.HookTargets {
		rows = append(rows, map[string]any{
			"method": h.Node.String(),
			"hook":   h.HookName,
			"file":   h.Position.SourceFile,
			"line":   h.Position.StartLine,
			"column": h.Position.StartColumn,
		})
	}
	return rows
}
