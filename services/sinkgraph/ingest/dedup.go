// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/sinkgraph/services/sinkgraph/ast"
)

// TypeLister extracts the top-level type names a file declares.
//
// *ast.JavaParser implements it.
type TypeLister interface {
	DeclaredTypes(ctx context.Context, path string) ([]string, error)
}

// SkipReason explains why a file was left out.
type SkipReason string

const (
	// SkipDuplicatePath marks a path already accepted earlier in the input.
	SkipDuplicatePath SkipReason = "duplicate_path"

	// SkipDuplicateType marks a file declaring an already accepted type.
	SkipDuplicateType SkipReason = "duplicate_type"

	// SkipParseFailed marks a file whose isolated parse failed.
	SkipParseFailed SkipReason = "parse_failed"
)

// Skipped records one excluded file.
type Skipped struct {
	Path   string     `json:"path"`
	Reason SkipReason `json:"reason"`

	// Types lists the already declared types for SkipDuplicateType.
	Types []string `json:"types,omitempty"`

	// Err is the parse error for SkipParseFailed.
	Err error `json:"-"`
}

// Result is the outcome of Filter.
type Result struct {
	// Accepted holds absolute paths in input order.
	Accepted []string
	Skipped  []Skipped
}

// Option configures a Deduplicator.
type Option func(*Deduplicator)

// WithTypeLister sets the pre-parser. Default: a fresh ast.JavaParser.
func WithTypeLister(l TypeLister) Option {
	return func(d *Deduplicator) {
		if l != nil {
			d.lister = l
		}
	}
}

// WithWorkers bounds concurrent pre-parses. Non-positive values are ignored.
func WithWorkers(n int) Option {
	return func(d *Deduplicator) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deduplicator) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Deduplicator drops inputs that would redeclare types.
//
// Thread Safety:
//
//	Safe for concurrent use; each Filter call has its own state.
type Deduplicator struct {
	lister  TypeLister
	workers int
	logger  *slog.Logger
}

// NewDeduplicator creates a Deduplicator.
func NewDeduplicator(opts ...Option) *Deduplicator {
	d := &Deduplicator{
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.lister == nil {
		d.lister = ast.NewJavaParser(ast.WithParserLogger(d.logger))
	}
	return d
}

type preparse struct {
	types []string
	err   error
}

// Filter selects the files to analyze.
//
// Description:
//
//	Every file is pre-parsed in isolation, concurrently. Decisions are then
//	made sequentially in input order, so when two files declare the same
//	type the first listed one wins. A file is skipped when its path was
//	already accepted, when it declares any already accepted type, or when
//	its pre-parse fails. Skipped files never contribute their types.
//
// Inputs:
//   - ctx: Context for cancellation.
//   - paths: Candidate files. Relative paths are made absolute.
//
// Outputs:
//   - *Result: Accepted and skipped files. Accepted may be empty.
//   - error: Only a context error.
func (d *Deduplicator) Filter(ctx context.Context, paths []string) (*Result, error) {
	ctx, span := startFilterSpan(ctx, len(paths))
	defer span.End()

	abs := make([]string, len(paths))
	for i, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			a = filepath.Clean(p)
		}
		abs[i] = a
	}

	pre := make([]preparse, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, p := range abs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			types, err := d.lister.DeclaredTypes(gctx, p)
			pre[i] = preparse{types: types, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("pre-parsing inputs: %w", err)
	}
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	res := &Result{Accepted: make([]string, 0, len(paths))}
	seenPath := make(map[string]bool, len(paths))
	declared := make(map[string]string)

	for i, p := range abs {
		switch {
		case seenPath[p]:
			d.skip(res, Skipped{Path: p, Reason: SkipDuplicatePath})
			continue
		case pre[i].err != nil:
			d.logger.Warn("pre-parse failed, skipping file",
				slog.String("file", p),
				slog.String("error", pre[i].err.Error()),
			)
			d.skip(res, Skipped{Path: p, Reason: SkipParseFailed, Err: pre[i].err})
			continue
		}

		var clash []string
		for _, t := range pre[i].types {
			if _, ok := declared[t]; ok {
				clash = append(clash, t)
			}
		}
		if len(clash) > 0 {
			d.logger.Debug("skipping file with already declared types",
				slog.String("file", p),
				slog.String("first_declared_in", declared[clash[0]]),
				slog.Any("types", clash),
			)
			d.skip(res, Skipped{Path: p, Reason: SkipDuplicateType, Types: clash})
			continue
		}

		for _, t := range pre[i].types {
			declared[t] = p
		}
		seenPath[p] = true
		res.Accepted = append(res.Accepted, p)
		filesTotal.WithLabelValues("accepted").Inc()
	}

	span.SetAttributes(
		attribute.Int("accepted", len(res.Accepted)),
		attribute.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

func (d *Deduplicator) skip(res *Result, s Skipped) {
	res.Skipped = append(res.Skipped, s)
	filesTotal.WithLabelValues(string(s.Reason)).Inc()
}
