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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the OTel tracer name for the source-model provider.
const tracerName = "sinkgraph.ast"

var tracer = otel.Tracer(tracerName)

// Package-level Prometheus metrics, auto-registered via promauto.
var (
	// parseDuration measures per-file parse and extraction time.
	//
	// Labels:
	//   - status: "success" or "error"
	parseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sinkgraph",
			Subsystem: "ast",
			Name:      "parse_duration_seconds",
			Help:      "Duration of Java file parsing in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"status"},
	)

	// filesParsedTotal counts parsed files.
	//
	// Labels:
	//   - status: "success" or "error"
	filesParsedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sinkgraph",
			Subsystem: "ast",
			Name:      "files_parsed_total",
			Help:      "Total Java files parsed.",
		},
		[]string{"status"},
	)

	// siteResolutionsTotal counts call-site reference fields by outcome.
	//
	// Labels:
	//   - field: "declaring_type", "parameter_types", "parameter_names"
	//   - outcome: "resolved" or "unresolved"
	siteResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sinkgraph",
			Subsystem: "ast",
			Name:      "site_resolutions_total",
			Help:      "Call-site reference fields resolved, by field and outcome.",
		},
		[]string{"field", "outcome"},
	)
)

func startParseSpan(ctx context.Context, filePath string, size int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ast.JavaParser.Parse",
		trace.WithAttributes(
			attribute.String("file", filePath),
			attribute.Int("size_bytes", size),
		),
	)
}

func setParseSpanResult(span trace.Span, types, executables, sites int) {
	span.SetAttributes(
		attribute.Int("type_count", types),
		attribute.Int("executable_count", executables),
		attribute.Int("site_count", sites),
	)
}

func recordParseMetrics(duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	parseDuration.WithLabelValues(status).Observe(duration.Seconds())
	filesParsedTotal.WithLabelValues(status).Inc()
}

func recordResolution(field string, ok bool) {
	outcome := "resolved"
	if !ok {
		outcome = "unresolved"
	}
	siteResolutionsTotal.WithLabelValues(field, outcome).Inc()
}
