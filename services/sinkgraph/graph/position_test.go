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
	"errors"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/sinkgraph/services/sinkgraph/ast"
)

func TestNormalizePosition(t *testing.T) {
	file, err := filepath.Abs("Foo.java")
	if err != nil {
		t.Fatal(err)
	}
	got, err := NormalizePosition(&ast.SourcePosition{
		File:        file,
		Line:        5,
		EndLine:     5,
		Column:      3,
		EndColumn:   10,
		SourceStart: 40,
		SourceEnd:   46,
	})
	if err != nil {
		t.Fatalf("NormalizePosition failed: %v", err)
	}
	want := Position{
		StartLine:   4,
		EndLine:     4,
		StartColumn: 2,
		EndColumn:   10,
		StartOffset: 40,
		EndOffset:   47,
		SourceFile:  file,
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestNormalizePosition_RelativePathBecomesAbsolute(t *testing.T) {
	got, err := NormalizePosition(&ast.SourcePosition{File: "src/Foo.java", Line: 1, EndLine: 1, Column: 1, EndColumn: 1})
	if err != nil {
		t.Fatalf("NormalizePosition failed: %v", err)
	}
	if !filepath.IsAbs(got.SourceFile) {
		t.Errorf("SourceFile = %q, want absolute", got.SourceFile)
	}
}

func TestNormalizePosition_Nil(t *testing.T) {
	if _, err := NormalizePosition(nil); !errors.Is(err, ErrNoPosition) {
		t.Errorf("err = %v, want ErrNoPosition", err)
	}
}
