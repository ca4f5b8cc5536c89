// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sinkgraph wires the ingest, source-model, graph and hooks
// packages into one call graph run, and serves it over HTTP.
package sinkgraph

import (
	"errors"

	"github.com/AleutianAI/sinkgraph/services/sinkgraph/ingest"
)

// ErrNoInputFiles is returned when no input file survives deduplication.
var ErrNoInputFiles = ingest.ErrNoInputFiles

// ErrNilCatalogue indicates an engine configured without a sink catalogue.
var ErrNilCatalogue = errors.New("catalogue must not be nil")
