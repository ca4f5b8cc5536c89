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
	"fmt"
	"path/filepath"

	"github.com/AleutianAI/sinkgraph/services/sinkgraph/ast"
)

// Position is a source span in the downstream convention.
//
// Lines are 0-based and inclusive on both ends. Columns and byte offsets are
// 0-based, inclusive at the start and exclusive at the end. SourceFile is an
// absolute path.
type Position struct {
	StartLine   int    `json:"line"`
	EndLine     int    `json:"endLine"`
	StartColumn int    `json:"column"`
	EndColumn   int    `json:"endColumn"`
	StartOffset int    `json:"start"`
	EndOffset   int    `json:"end"`
	SourceFile  string `json:"file"`
}

// NormalizePosition converts a model position to a Position.
//
// Description:
//
//	Lines and the start column shift from 1-based to 0-based. The end column
//	is inclusive and 1-based in the model, which is already the exclusive
//	0-based value. The end offset becomes exclusive. The file path is made
//	absolute.
//
// Inputs:
//   - p: The model position. Nil means the element has no position.
//
// Outputs:
//   - Position: The normalized span.
//   - error: ErrNoPosition when p is nil, or an error making the path absolute.
func NormalizePosition(p *ast.SourcePosition) (Position, error) {
	if p == nil {
		return Position{}, ErrNoPosition
	}
	file, err := filepath.Abs(p.File)
	if err != nil {
		return Position{}, fmt.Errorf("resolving %s: %w", p.File, err)
	}
	return Position{
		StartLine:   p.Line - 1,
		EndLine:     p.EndLine - 1,
		StartColumn: p.Column - 1,
		EndColumn:   p.EndColumn,
		StartOffset: p.SourceStart,
		EndOffset:   p.SourceEnd + 1,
		SourceFile:  file,
	}, nil
}
