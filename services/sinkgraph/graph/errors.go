// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph assembles the call graph of a resolved Java source model.
//
// Every declared method and constructor, and every callee referenced from
// their bodies, becomes a Node. Nodes are deduplicated by identity, sorted,
// and numbered; edges connect a caller's index to each callee's index with
// the normalized source position of the call.
package graph

import "errors"

// Unknown is substituted for reference fields that could not be resolved.
const Unknown = "<UNKNOWN>"

// Sentinel errors for the graph package.
var (
	// ErrNoPosition indicates the source model reported no position.
	ErrNoPosition = errors.New("no source position")

	// ErrNilModel indicates Build was called without a model.
	ErrNilModel = errors.New("model must not be nil")

	// ErrSchemaViolation indicates a rendered document failed validation.
	ErrSchemaViolation = errors.New("document does not match call graph schema")

	// ErrMalformedGraph indicates a decoded graph has non-contiguous indices
	// or edges referencing missing nodes.
	ErrMalformedGraph = errors.New("malformed call graph")

	// ErrSnapshotNotFound indicates no snapshot exists for the given key.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
