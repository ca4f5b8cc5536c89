// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest turns user input into the accepted source file set.
//
// It reads file lists and drops redundant inputs: a file whose top-level
// types were already declared by an earlier file is skipped, so the same
// source reachable through two paths contributes once.
package ingest

import "errors"

// ErrNoInputFiles indicates neither positional arguments nor a list file
// named any input.
var ErrNoInputFiles = errors.New("no input files")
