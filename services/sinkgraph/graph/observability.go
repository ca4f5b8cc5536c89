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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("sinkgraph.graph")

var (
	buildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sinkgraph",
			Subsystem: "graph",
			Name:      "build_duration_seconds",
			Help:      "Duration of call graph assembly in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	graphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sinkgraph",
		Subsystem: "graph",
		Name:      "nodes",
		Help:      "Node count of the most recent graph.",
	})

	graphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sinkgraph",
		Subsystem: "graph",
		Name:      "edges",
		Help:      "Edge count of the most recent graph.",
	})

	// degradedReferencesTotal counts Unknown substitutions.
	//
	// Labels:
	//   - field: "declaring_type", "parameter_types", "parameter_names"
	degradedReferencesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sinkgraph",
			Subsystem: "graph",
			Name:      "degraded_references_total",
			Help:      "Reference fields replaced by the unknown sentinel.",
		},
		[]string{"field"},
	)

	// droppedPositionsTotal counts edges and hook targets skipped for lack of
	// a source position.
	//
	// Labels:
	//   - kind: "edge" or "hook"
	droppedPositionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sinkgraph",
			Subsystem: "graph",
			Name:      "dropped_positions_total",
			Help:      "Items skipped because the source position was unavailable.",
		},
		[]string{"kind"},
	)

	hookTargetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sinkgraph",
			Subsystem: "graph",
			Name:      "hook_targets_total",
			Help:      "Sink occurrences found, by category.",
		},
		[]string{"category"},
	)

	missingCalleesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sinkgraph",
		Subsystem: "graph",
		Name:      "missing_callees_total",
		Help:      "Callee nodes absent from the node index.",
	})
)

func startBuildSpan(ctx context.Context, files int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "graph.Builder.Build",
		trace.WithAttributes(attribute.Int("file_count", files)),
	)
}

func setBuildSpanResult(span trace.Span, stats BuildStats, err error) {
	span.SetAttributes(
		attribute.Int("node_count", stats.Nodes),
		attribute.Int("edge_count", stats.Edges),
		attribute.Int("hook_target_count", stats.HookTargets),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func recordBuildMetrics(duration time.Duration, stats BuildStats, success bool) {
	status := "success"
	if !success {
		buildDuration.WithLabelValues("error").Observe(duration.Seconds())
		return
	}
	buildDuration.WithLabelValues(status).Observe(duration.Seconds())
	graphNodes.Set(float64(stats.Nodes))
	graphEdges.Set(float64(stats.Edges))
}

func recordDegradation(d Degradation) {
	if d.DeclaringType {
		degradedReferencesTotal.WithLabelValues("declaring_type").Inc()
	}
	if d.ParameterTypes {
		degradedReferencesTotal.WithLabelValues("parameter_types").Inc()
	}
	if d.ParameterNames {
		degradedReferencesTotal.WithLabelValues("parameter_names").Inc()
	}
}
