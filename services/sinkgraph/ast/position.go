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
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// SourcePosition is a span in the model's native convention.
//
// Lines and columns are 1-based and inclusive. SourceStart and SourceEnd are
// 0-based byte offsets, both inclusive. A nil *SourcePosition means the model
// has no position for the element.
type SourcePosition struct {
	File        string `json:"file"`
	Line        int    `json:"line"`
	EndLine     int    `json:"end_line"`
	Column      int    `json:"column"`
	EndColumn   int    `json:"end_column"`
	SourceStart int    `json:"source_start"`
	SourceEnd   int    `json:"source_end"`
}

// String renders the position as file:line:column.
func (p *SourcePosition) String() string {
	if p == nil {
		return "<no position>"
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// positionOf converts a tree-sitter node span to a SourcePosition.
//
// tree-sitter points are 0-based with exclusive ends, so the 0-based
// exclusive end column equals the 1-based inclusive end column. Returns nil
// for missing or zero-width nodes, which tree-sitter produces while
// recovering from syntax errors.
func positionOf(n *sitter.Node, file string) *SourcePosition {
	if n == nil || n.IsMissing() || n.EndByte() <= n.StartByte() {
		return nil
	}
	start := n.StartPoint()
	end := n.EndPoint()
	return &SourcePosition{
		File:        file,
		Line:        int(start.Row) + 1,
		EndLine:     int(end.Row) + 1,
		Column:      int(start.Column) + 1,
		EndColumn:   int(end.Column),
		SourceStart: int(n.StartByte()),
		SourceEnd:   int(n.EndByte()) - 1,
	}
}
