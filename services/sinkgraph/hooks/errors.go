// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hooks holds the sink signature catalogue and the matcher that
// flags call sites reaching a sink.
package hooks

import "errors"

// FileReadWrite is the category requested for generic file access. It is an
// alias of FileSystemTraversal in the default catalogue.
const FileReadWrite = "FileReadWrite"

// FileSystemTraversal is the category of file-opening sinks.
const FileSystemTraversal = "FileSystemTraversal"

// Sentinel errors for the hooks package.
var (
	// ErrUnknownCategory indicates a category name the catalogue does not define.
	ErrUnknownCategory = errors.New("unknown sink category")

	// ErrInvalidCatalogue indicates catalogue data failed validation.
	ErrInvalidCatalogue = errors.New("invalid sink catalogue")

	// ErrUnsupportedFormat indicates a catalogue file extension that is not
	// .yaml, .yml or .toml.
	ErrUnsupportedFormat = errors.New("unsupported catalogue format")
)
