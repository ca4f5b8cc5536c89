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
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	types map[string][]string
	errs  map[string]error
	calls atomic.Int32
}

func (s *stubLister) DeclaredTypes(_ context.Context, path string) ([]string, error) {
	s.calls.Add(1)
	if err := s.errs[path]; err != nil {
		return nil, err
	}
	return s.types[path], nil
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDeduplicator_Filter_FirstListedWins(t *testing.T) {
	lister := &stubLister{
		types: map[string][]string{
			"/src/a/Foo.java":  {"p.Foo"},
			"/src/b/Foo.java":  {"p.Foo", "p.Extra"},
			"/src/Bar.java":    {"p.Bar"},
			"/src/Extra.java":  {"p.Extra"},
			"/src/Empty.java":  nil,
			"/src/Empty2.java": nil,
		},
		errs: map[string]error{"/src/Broken.java": errors.New("boom")},
	}
	d := NewDeduplicator(WithTypeLister(lister), WithWorkers(2), WithLogger(quiet()))

	res, err := d.Filter(context.Background(), []string{
		"/src/a/Foo.java",
		"/src/Broken.java",
		"/src/b/Foo.java",
		"/src/Bar.java",
		"/src/Extra.java",
		"/src/a/Foo.java",
		"/src/Empty.java",
		"/src/Empty2.java",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/src/a/Foo.java",
		"/src/Bar.java",
		"/src/Extra.java",
		"/src/Empty.java",
		"/src/Empty2.java",
	}, res.Accepted)

	require.Len(t, res.Skipped, 3)
	assert.Equal(t, SkipParseFailed, res.Skipped[0].Reason)
	assert.Equal(t, "/src/Broken.java", res.Skipped[0].Path)
	assert.EqualError(t, res.Skipped[0].Err, "boom")

	// A skipped file never contributes its types, so p.Extra stays free.
	assert.Equal(t, SkipDuplicateType, res.Skipped[1].Reason)
	assert.Equal(t, []string{"p.Foo"}, res.Skipped[1].Types)

	assert.Equal(t, SkipDuplicatePath, res.Skipped[2].Reason)
	assert.Equal(t, "/src/a/Foo.java", res.Skipped[2].Path)

	assert.EqualValues(t, 8, lister.calls.Load())
}

func TestDeduplicator_Filter_Canceled(t *testing.T) {
	d := NewDeduplicator(WithTypeLister(&stubLister{}), WithLogger(quiet()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Filter(ctx, []string{"/src/A.java"})
	assert.True(t, errors.Is(err, context.Canceled), "err = %v", err)
}

func TestDeduplicator_Filter_JavaSources(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(src), 0o644))
		return p
	}
	first := write("a/Foo.java", "package p;\npublic class Foo { void a() {} }\n")
	copyOf := write("b/Foo.java", "package p;\npublic class Foo { void b() {} }\n")
	other := write("Bar.java", "package p;\ninterface Bar {}\n")
	missing := filepath.Join(dir, "Missing.java")

	d := NewDeduplicator(WithLogger(quiet()))
	res, err := d.Filter(context.Background(), []string{first, first, copyOf, missing, other})
	require.NoError(t, err)

	assert.Equal(t, []string{first, other}, res.Accepted)
	require.Len(t, res.Skipped, 3)
	assert.Equal(t, SkipDuplicatePath, res.Skipped[0].Reason)
	assert.Equal(t, SkipDuplicateType, res.Skipped[1].Reason)
	assert.Equal(t, copyOf, res.Skipped[1].Path)
	assert.Equal(t, SkipParseFailed, res.Skipped[2].Reason)
	assert.Equal(t, missing, res.Skipped[2].Path)
}

func TestDeduplicator_Filter_RelativePaths(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	lister := &stubLister{types: map[string][]string{filepath.Join(wd, "A.java"): {"A"}}}
	res, err := NewDeduplicator(WithTypeLister(lister), WithLogger(quiet())).
		Filter(context.Background(), []string{"A.java", "./A.java"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(wd, "A.java")}, res.Accepted)
	assert.Equal(t, SkipDuplicatePath, res.Skipped[0].Reason)
}
