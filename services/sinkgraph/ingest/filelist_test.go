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
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "files.txt")
	content := "# sources\n/src/A.java\n\n  /src/B.java  \r\n#/src/C.java\n"
	if err := os.WriteFile(list, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		listFile   string
		positional []string
		want       []string
		wantErr    error
	}{
		{
			name:       "list file first",
			listFile:   list,
			positional: []string{"/src/Z.java"},
			want:       []string{"/src/A.java", "/src/B.java", "/src/Z.java"},
		},
		{
			name:       "positional only",
			positional: []string{"X.java", " "},
			want:       []string{"X.java"},
		},
		{
			name:    "nothing",
			wantErr: ErrNoInputFiles,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CollectInputs(tt.listFile, tt.positional)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CollectInputs failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCollectInputs_EmptyListFile(t *testing.T) {
	list := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(list, []byte("# nothing\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := CollectInputs(list, nil); !errors.Is(err, ErrNoInputFiles) {
		t.Errorf("err = %v, want ErrNoInputFiles", err)
	}
}

func TestReadListFile_Missing(t *testing.T) {
	if _, err := ReadListFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error")
	}
}
