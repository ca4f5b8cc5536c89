// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ModelOption configures BuildModel.
type ModelOption func(*modelConfig)

type modelConfig struct {
	workers  int
	parser   *JavaParser
	external []Signature
	logger   *slog.Logger
}

// WithWorkers bounds the number of files parsed concurrently.
// Non-positive values are ignored.
func WithWorkers(n int) ModelOption {
	return func(c *modelConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithParser sets the parser used for every file.
func WithParser(p *JavaParser) ModelOption {
	return func(c *modelConfig) {
		if p != nil {
			c.parser = p
		}
	}
}

// WithExternalSignatures registers declarations outside the analyzed sources.
// They are used to pick among overloads of platform methods.
func WithExternalSignatures(sigs []Signature) ModelOption {
	return func(c *modelConfig) {
		c.external = append(c.external, sigs...)
	}
}

// WithModelLogger sets the logger for model construction.
func WithModelLogger(logger *slog.Logger) ModelOption {
	return func(c *modelConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// BuildModel parses the given files and resolves every call site.
//
// Description:
//
//	Files are parsed concurrently and assembled in input order. A file that
//	cannot be read or parsed is recorded in Model.FileErrors and skipped; it
//	does not fail the build. When two files declare the same type, the first
//	one wins. After indexing, every call site's reference is resolved
//	against the combined model, the JDK table, and the external signatures.
//
// Inputs:
//   - ctx: Context for cancellation. Checked between files.
//   - paths: Java source files. Relative paths are made absolute.
//   - opts: WithWorkers, WithParser, WithExternalSignatures, WithModelLogger.
//
// Outputs:
//   - *Model: The resolved model. Never nil on success.
//   - error: ErrNoFiles when paths is empty, or a context error.
//
// Thread Safety:
//
//	Safe to call concurrently. The returned Model must not be mutated.
func BuildModel(ctx context.Context, paths []string, opts ...ModelOption) (*Model, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	cfg := modelConfig{
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.parser == nil {
		cfg.parser = NewJavaParser(WithParserLogger(cfg.logger))
	}

	ctx, span := tracer.Start(ctx, "ast.BuildModel",
		trace.WithAttributes(attribute.Int("file_count", len(paths))),
	)
	defer span.End()

	jdk, err := loadJDKKnowledge()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "jdk table")
		return nil, err
	}

	units := make([]*FileUnit, len(paths))
	errs := make([]error, len(paths))
	abs := make([]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)
	for i, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			a = p
		}
		abs[i] = a
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			u, err := cfg.parser.ParseFile(gctx, a)
			if err != nil {
				// Per-file failures are non-fatal.
				errs[i] = err
				return nil
			}
			units[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		return nil, fmt.Errorf("parsing sources: %w", err)
	}

	m := &Model{
		types:     make(map[string]*TypeDecl),
		canonical: make(map[string]*TypeDecl),
		external:  make(map[string][]Signature),
		jdk:       jdk,
	}
	for i, u := range units {
		if u == nil {
			cfg.logger.Warn("skipping unparseable file",
				slog.String("file", abs[i]),
				slog.String("error", errs[i].Error()),
			)
			m.FileErrors = append(m.FileErrors, FileError{Path: abs[i], Err: errs[i]})
			continue
		}
		m.Files = append(m.Files, u)
		for _, t := range u.Types {
			m.index(t, cfg.logger)
		}
	}
	for _, sig := range cfg.external {
		key := sig.DeclaringType + "::" + sig.Name
		m.external[key] = append(m.external[key], sig)
	}

	r := newResolver(m)
	for _, u := range m.Files {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return nil, err
		}
		for _, e := range u.Executables {
			e.ParameterTypes = r.declaredParamTypes(e)
		}
	}
	for _, u := range m.Files {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return nil, err
		}
		for _, e := range u.Executables {
			for _, s := range e.Sites {
				r.resolveSite(s)
			}
		}
	}

	span.SetAttributes(
		attribute.Int("parsed_files", len(m.Files)),
		attribute.Int("failed_files", len(m.FileErrors)),
		attribute.Int("type_count", len(m.types)),
		attribute.Int("site_count", m.SiteCount()),
	)
	cfg.logger.Debug("model built",
		slog.Int("files", len(m.Files)),
		slog.Int("failed", len(m.FileErrors)),
		slog.Int("types", len(m.types)),
	)
	return m, nil
}

// index registers a declared type. The first declaration of a name wins.
func (m *Model) index(t *TypeDecl, logger *slog.Logger) {
	if prev, ok := m.types[t.QualifiedName]; ok {
		logger.Debug("duplicate type declaration ignored",
			slog.String("type", t.QualifiedName),
			slog.String("kept", prev.File.Path),
			slog.String("ignored", t.File.Path),
		)
		return
	}
	m.types[t.QualifiedName] = t
	if !t.Local && !t.Anonymous {
		canon := strings.ReplaceAll(t.QualifiedName, "$", ".")
		if _, ok := m.canonical[canon]; !ok {
			m.canonical[canon] = t
		}
	}
}
