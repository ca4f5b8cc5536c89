// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast builds a resolved source model of Java files using tree-sitter.
//
// The model exposes declared types, methods, constructors, and every call or
// constructor-invocation site inside their bodies. Each site carries a
// best-effort symbolic reference whose declaring type, parameter types, and
// parameter names resolve independently of one another.
package ast

import "errors"

// Sentinel errors for the ast package.
var (
	// ErrFileTooLarge indicates the file exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidContent indicates the file is not valid UTF-8 source.
	ErrInvalidContent = errors.New("invalid content")

	// ErrNoFiles indicates BuildModel was called with an empty path list.
	ErrNoFiles = errors.New("no files to model")
)

// Size limits for parsed files.
const (
	// DefaultMaxFileSize is the default upper bound on a parsed file (10MB).
	DefaultMaxFileSize int64 = 10 * 1024 * 1024

	// WarnFileSize is the size above which a parse logs a warning (1MB).
	WarnFileSize = 1024 * 1024
)
