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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("sinkgraph.ingest")

// filesTotal counts dedup decisions.
//
// Labels:
//   - outcome: "accepted" or a SkipReason
var filesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sinkgraph",
		Subsystem: "ingest",
		Name:      "files_total",
		Help:      "Input files by deduplication outcome.",
	},
	[]string{"outcome"},
)

func startFilterSpan(ctx context.Context, files int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ingest.Deduplicator.Filter",
		trace.WithAttributes(attribute.Int("file_count", files)),
	)
}
