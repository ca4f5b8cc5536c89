// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/sinkgraph/services/sinkgraph"
	"github.com/AleutianAI/sinkgraph/services/sinkgraph/config"
	"github.com/AleutianAI/sinkgraph/services/sinkgraph/export"
	"github.com/AleutianAI/sinkgraph/services/sinkgraph/graph"
	"github.com/AleutianAI/sinkgraph/services/sinkgraph/hooks"
	"github.com/AleutianAI/sinkgraph/services/sinkgraph/ingest"
)

// rootOptions holds flag values shared by every command.
type rootOptions struct {
	configPath  string
	logLevel    string
	traceStdout bool
	catalogue   string
	snapshotDB  string

	listFile            string
	outputFile          string
	sanitizers          string
	mergeUnknown        bool
	validateOutput      bool
	compact             bool
	includeConstructors bool
	workers             int
	label               string
	metricsFile         string

	neo4jURI      string
	neo4jUser     string
	neo4jPass     string
	neo4jDatabase string
	neo4jClean    bool

	stdout io.Writer
	stderr io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	o := &rootOptions{stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "sinkgraph [FILE...]",
		Short: "Build Java call graphs and locate security sinks",
		Long: `sinkgraph parses Java source files, builds a call graph of every method and
constructor call, and reports which declared methods call a sink from the
selected categories.

Input files come from positional arguments and from --list-file (one path
per line). When two files declare the same type, the first one listed wins.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          o.runGenerate,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "config file (default: sinkgraph.yaml, .yml or .toml in the working directory)")
	pf.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&o.traceStdout, "trace-stdout", false, "print OpenTelemetry spans to stderr")
	pf.StringVar(&o.catalogue, "catalogue", "", "sink catalogue file replacing the built-in one (.yaml or .toml)")
	pf.StringVar(&o.snapshotDB, "snapshot-db", "", "snapshot database directory")

	f := cmd.Flags()
	f.StringVarP(&o.listFile, "list-file", "l", "", "file listing input paths, one per line")
	f.StringVarP(&o.outputFile, "output-file", "o", "", "write the graph to this file instead of stdout")
	f.StringVarP(&o.sanitizers, "sanitizers", "s", "", "comma-separated sink categories to match")
	f.BoolVar(&o.mergeUnknown, "merge-unknown", false, "fold partially unresolved nodes into resolved ones")
	f.BoolVar(&o.validateOutput, "validate-output", false, "validate the graph against the output schema")
	f.BoolVar(&o.compact, "compact", false, "write compact JSON")
	f.BoolVar(&o.includeConstructors, "include-constructors", false, "also scan constructor bodies for sinks")
	f.IntVar(&o.workers, "workers", 0, "concurrent parses (default: number of CPUs)")
	f.StringVar(&o.label, "label", "", "label attached to the saved snapshot")
	f.StringVar(&o.metricsFile, "metrics-file", "", "write Prometheus metrics in textfile format")
	f.StringVar(&o.neo4jURI, "neo4j-uri", "", "export the graph to this Neo4j instance")
	f.StringVar(&o.neo4jUser, "neo4j-user", "", "Neo4j user")
	f.StringVar(&o.neo4jPass, "neo4j-pass", "", "Neo4j password")
	f.StringVar(&o.neo4jDatabase, "neo4j-database", "", "Neo4j database (default: server default)")
	f.BoolVar(&o.neo4jClean, "neo4j-clean", false, "remove existing call graph data before export")
	f.BoolP("version", "V", false, "print the version and exit")
	_ = cmd.MarkFlagRequired("sanitizers")

	cmd.AddCommand(
		newServeCommand(o),
		newSnapshotsCommand(o),
		newCatalogueCommand(o),
	)
	return cmd
}

// env is the per-invocation runtime built from config and flags.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	close  func()
}

// setup loads the config, applies flag overrides, and installs the logger
// and tracer.
func (o *rootOptions) setup(cmd *cobra.Command) (*env, error) {
	path := o.configPath
	if path == "" {
		path = config.Discover(".")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	o.applyOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(o.stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	shutdown, err := setupTracing(o.traceStdout, o.stderr)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:    cfg,
		logger: logger,
		close: func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("tracer shutdown failed", slog.Any("error", err))
			}
		},
	}, nil
}

// applyOverrides copies explicitly set flags over config values.
func (o *rootOptions) applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if changed("catalogue") {
		cfg.Hooks.Catalogue = o.catalogue
	}
	if changed("snapshot-db") {
		cfg.Snapshot.Dir = o.snapshotDB
	}
	if changed("include-constructors") {
		cfg.Hooks.IncludeConstructors = o.includeConstructors
	}
	if changed("workers") {
		cfg.Parser.Workers = o.workers
	}
	if changed("merge-unknown") {
		cfg.Output.MergeUnknown = o.mergeUnknown
	}
	if changed("validate-output") {
		cfg.Output.Validate = o.validateOutput
	}
	if changed("compact") {
		cfg.Output.Compact = o.compact
	}
	if changed("label") {
		cfg.Snapshot.Label = o.label
	}
	if changed("neo4j-uri") {
		cfg.Neo4j.URI = o.neo4jURI
	}
	if changed("neo4j-user") {
		cfg.Neo4j.User = o.neo4jUser
	}
	if changed("neo4j-pass") {
		cfg.Neo4j.Password = o.neo4jPass
	}
	if changed("neo4j-database") {
		cfg.Neo4j.Database = o.neo4jDatabase
	}
	if changed("neo4j-clean") {
		cfg.Neo4j.Clean = o.neo4jClean
	}
}

// loadCatalogue returns the configured catalogue or the built-in one.
func loadCatalogue(cfg *config.Config) (*hooks.Catalogue, error) {
	if cfg.Hooks.Catalogue != "" {
		return hooks.Load(cfg.Hooks.Catalogue)
	}
	return hooks.Default()
}

func newEngine(e *env) (*sinkgraph.Engine, error) {
	cat, err := loadCatalogue(e.cfg)
	if err != nil {
		return nil, err
	}
	return sinkgraph.NewEngine(sinkgraph.EngineConfig{
		Catalogue:           cat,
		Workers:             e.cfg.Parser.Workers,
		MaxFileSize:         e.cfg.Parser.MaxFileSize,
		IncludeConstructors: e.cfg.Hooks.IncludeConstructors,
		Logger:              e.logger,
	})
}

func (o *rootOptions) runGenerate(cmd *cobra.Command, args []string) error {
	e, err := o.setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()
	ctx := cmd.Context()

	files, err := ingest.CollectInputs(o.listFile, args)
	if err != nil {
		return err
	}
	engine, err := newEngine(e)
	if err != nil {
		return err
	}
	res, err := engine.Generate(ctx, sinkgraph.Request{
		Files:        files,
		Categories:   hooks.ParseCategories(o.sanitizers),
		MergeUnknown: e.cfg.Output.MergeUnknown,
	})
	if err != nil {
		return err
	}
	for _, s := range res.Diagnostics.SkippedFiles {
		e.logger.Info("input file skipped",
			slog.String("file", s.Path),
			slog.String("reason", string(s.Reason)),
		)
	}

	if err := o.writeGraph(res.Graph, e.cfg); err != nil {
		return err
	}
	if e.cfg.Snapshot.Dir != "" {
		if err := saveSnapshot(ctx, e, res); err != nil {
			return err
		}
	}
	if e.cfg.Neo4j.URI != "" {
		if err := exportNeo4j(ctx, e, res.Graph); err != nil {
			return err
		}
	}
	if o.metricsFile != "" {
		if err := writeMetrics(o.metricsFile); err != nil {
			return err
		}
	}
	return nil
}

func (o *rootOptions) writeGraph(g *graph.CallGraph, cfg *config.Config) error {
	data, err := graph.Render(g, graph.RenderOptions{
		Indent:   cfg.RenderIndent(),
		Validate: cfg.Output.Validate,
	})
	if err != nil {
		return err
	}
	if o.outputFile == "" || o.outputFile == "-" {
		_, err = o.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(o.outputFile, data, 0o644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	return nil
}

func saveSnapshot(ctx context.Context, e *env, res *sinkgraph.Result) error {
	db, err := graph.OpenSnapshotDB(e.cfg.Snapshot.Dir)
	if err != nil {
		return err
	}
	defer db.Close()

	mgr, err := graph.NewSnapshotManager(db, e.logger)
	if err != nil {
		return err
	}
	meta, err := mgr.Save(ctx, res.Graph, res.Files, e.cfg.Snapshot.Label)
	if err != nil {
		return err
	}
	e.logger.Info("snapshot saved",
		slog.String("snapshot_id", meta.SnapshotID),
		slog.String("project_hash", meta.ProjectHash),
	)
	return nil
}

func exportNeo4j(ctx context.Context, e *env, g *graph.CallGraph) error {
	n := e.cfg.Neo4j
	loader, err := export.NewNeo4jLoader(ctx, export.Neo4jOptions{
		URI:       n.URI,
		User:      n.User,
		Password:  n.Password,
		Database:  n.Database,
		BatchSize: n.BatchSize,
	}, e.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := loader.Close(ctx); err != nil {
			e.logger.Warn("closing neo4j driver", slog.Any("error", err))
		}
	}()
	_, err = loader.Export(ctx, g, n.Clean)
	return err
}

// errNoSnapshotDB is returned by snapshot commands without a database.
var errNoSnapshotDB = errors.New("snapshot database not set (use --snapshot-db or snapshot.dir)")
