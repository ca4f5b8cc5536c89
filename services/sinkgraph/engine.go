// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sinkgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/sinkgraph/services/sinkgraph/ast"
	"github.com/AleutianAI/sinkgraph/services/sinkgraph/graph"
	"github.com/AleutianAI/sinkgraph/services/sinkgraph/hooks"
	"github.com/AleutianAI/sinkgraph/services/sinkgraph/ingest"
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Catalogue is the sink catalogue. Required.
	Catalogue *hooks.Catalogue

	// Workers bounds concurrent parses. Zero means GOMAXPROCS.
	Workers int

	// MaxFileSize is the largest parsed file in bytes. Zero keeps the
	// parser default.
	MaxFileSize int64

	// IncludeConstructors extends sink matching to constructor bodies.
	IncludeConstructors bool

	// Logger receives diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// Request is one call graph run.
type Request struct {
	// Files are Java source paths in priority order.
	Files []string

	// Categories are the active sink category names.
	Categories []string

	// MergeUnknown folds partially unresolved nodes into resolved ones.
	MergeUnknown bool
}

// Diagnostics reports everything non-fatal that happened during a run.
type Diagnostics struct {
	RunID         string `json:"run_id"`
	DurationMilli int64  `json:"duration_milli"`

	InputFiles    int              `json:"input_files"`
	AcceptedFiles int              `json:"accepted_files"`
	SkippedFiles  []ingest.Skipped `json:"skipped_files"`

	// UnparseableFiles lists accepted files the model builder could not read.
	UnparseableFiles []string `json:"unparseable_files,omitempty"`

	// UnknownCategories lists requested categories that selected nothing.
	UnknownCategories []string `json:"unknown_categories,omitempty"`

	// MergedNodes is the number of nodes folded by the unknown-node merge.
	MergedNodes int `json:"merged_nodes"`

	Build graph.BuildStats `json:"build"`
}

// Result is the output of Engine.Generate.
type Result struct {
	Graph *graph.CallGraph

	// Files holds the accepted absolute paths in input order.
	Files []string

	Diagnostics Diagnostics
}

// Engine runs the full pipeline: deduplication, source model, graph
// assembly and sink matching.
//
// Thread Safety:
//
//	Safe for concurrent use. Every Generate call owns its state.
type Engine struct {
	catalogue    *hooks.Catalogue
	signatures   []ast.Signature
	workers      int
	maxFileSize  int64
	constructors bool
	logger       *slog.Logger
}

// NewEngine creates an Engine.
//
// Outputs:
//   - *Engine: The engine.
//   - error: ErrNilCatalogue when no catalogue is configured.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Catalogue == nil {
		return nil, ErrNilCatalogue
	}
	e := &Engine{
		catalogue:    cfg.Catalogue,
		signatures:   cfg.Catalogue.Signatures(),
		workers:      cfg.Workers,
		maxFileSize:  cfg.MaxFileSize,
		constructors: cfg.IncludeConstructors,
		logger:       cfg.Logger,
	}
	if e.workers <= 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// Catalogue returns the engine's sink catalogue.
func (e *Engine) Catalogue() *hooks.Catalogue {
	return e.catalogue
}

// Generate builds the call graph and sink occurrences for a request.
//
// Description:
//
//	Files are deduplicated (first listed wins), parsed into a resolved
//	source model, assembled into a call graph, and matched against the
//	requested sink categories. Skipped files, unresolved references and
//	missing positions are reported in Diagnostics, never as errors.
//
// Inputs:
//   - ctx: Context for cancellation. Honoured between files.
//   - req: The run. Files may be relative.
//
// Outputs:
//   - *Result: The graph and diagnostics.
//   - error: ErrNoInputFiles when no file is accepted, or a context error.
func (e *Engine) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	logger := e.logger.With(slog.String("run_id", runID))

	ctx, span := startGenerateSpan(ctx, runID, len(req.Files))
	defer span.End()

	fail := func(outcome string, err error) (*Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		runsTotal.WithLabelValues(outcome).Inc()
		return nil, err
	}

	if len(req.Files) == 0 {
		return fail("no_input", ErrNoInputFiles)
	}

	parserOpts := []ast.JavaParserOption{ast.WithParserLogger(logger)}
	if e.maxFileSize > 0 {
		parserOpts = append(parserOpts, ast.WithMaxFileSize(e.maxFileSize))
	}
	parser := ast.NewJavaParser(parserOpts...)

	dedup := ingest.NewDeduplicator(
		ingest.WithTypeLister(parser),
		ingest.WithWorkers(e.workers),
		ingest.WithLogger(logger),
	)
	filtered, err := dedup.Filter(ctx, req.Files)
	if err != nil {
		return fail("error", fmt.Errorf("filtering inputs: %w", err))
	}
	if len(filtered.Accepted) == 0 {
		return fail("no_input", ErrNoInputFiles)
	}

	matcher, unknown := e.catalogue.Select(req.Categories)
	for _, name := range unknown {
		unknownCategoriesTotal.Inc()
		logger.Warn("unknown sink category ignored", slog.String("category", name))
	}

	model, err := ast.BuildModel(ctx, filtered.Accepted,
		ast.WithWorkers(e.workers),
		ast.WithParser(parser),
		ast.WithExternalSignatures(e.signatures),
		ast.WithModelLogger(logger),
	)
	if err != nil {
		if errors.Is(err, ast.ErrNoFiles) {
			return fail("no_input", ErrNoInputFiles)
		}
		return fail("error", fmt.Errorf("building source model: %w", err))
	}

	built, err := graph.NewBuilder(
		graph.WithLogger(logger),
		graph.WithHookMatcher(matcher),
		graph.WithHookConstructors(e.constructors),
	).Build(ctx, model)
	if err != nil {
		return fail("error", fmt.Errorf("building call graph: %w", err))
	}

	res := &Result{
		Graph: built.Graph,
		Files: filtered.Accepted,
		Diagnostics: Diagnostics{
			RunID:             runID,
			InputFiles:        len(req.Files),
			AcceptedFiles:     len(filtered.Accepted),
			SkippedFiles:      filtered.Skipped,
			UnknownCategories: unknown,
			Build:             built.Stats,
		},
	}
	if res.Diagnostics.SkippedFiles == nil {
		res.Diagnostics.SkippedFiles = []ingest.Skipped{}
	}
	for _, fe := range model.FileErrors {
		res.Diagnostics.UnparseableFiles = append(res.Diagnostics.UnparseableFiles, fe.Path)
	}

	if req.MergeUnknown {
		merged := graph.MergeUnknownNodes(res.Graph, logger)
		res.Graph = merged.Graph
		res.Diagnostics.MergedNodes = merged.Merged
	}

	elapsed := time.Since(start)
	res.Diagnostics.DurationMilli = elapsed.Milliseconds()
	runDuration.Observe(elapsed.Seconds())
	runsTotal.WithLabelValues("success").Inc()
	span.SetAttributes(
		attribute.Int("accepted_files", len(filtered.Accepted)),
		attribute.Int("skipped_files", len(filtered.Skipped)),
		attribute.Int("node_count", len(res.Graph.Nodes)),
		attribute.Int("hook_target_count", len(res.Graph.HookTargets)),
	)

	logger.Info("call graph generated",
		slog.Int("files", len(filtered.Accepted)),
		slog.Int("skipped", len(filtered.Skipped)),
		slog.Int("nodes", len(res.Graph.Nodes)),
		slog.Int("edges", len(res.Graph.Edges)),
		slog.Int("hook_targets", len(res.Graph.HookTargets)),
		slog.Int64("duration_ms", res.Diagnostics.DurationMilli),
	)
	return res, nil
}
