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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("sinkgraph")

var (
	// runsTotal counts Generate calls.
	//
	// Labels:
	//   - outcome: "success", "no_input", "error"
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sinkgraph",
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Call graph runs by outcome.",
		},
		[]string{"outcome"},
	)

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sinkgraph",
		Subsystem: "engine",
		Name:      "run_duration_seconds",
		Help:      "End-to-end duration of a call graph run in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	})

	rejectedRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sinkgraph",
		Subsystem: "http",
		Name:      "rate_limited_requests_total",
		Help:      "Graph requests rejected by the rate limiter.",
	})

	unknownCategoriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sinkgraph",
		Subsystem: "engine",
		Name:      "unknown_categories_total",
		Help:      "Requested sink categories the catalogue does not define.",
	})
)

func startGenerateSpan(ctx context.Context, runID string, files int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sinkgraph.Engine.Generate",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.Int("input_files", files),
		),
	)
}
