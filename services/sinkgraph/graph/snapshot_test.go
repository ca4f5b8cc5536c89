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
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// newTestDB creates an in-memory BadgerDB for testing.
func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("failed to open in-memory badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// newTestSnapshotManager creates a SnapshotManager with in-memory DB.
func newTestSnapshotManager(t *testing.T) *SnapshotManager {
	t.Helper()
	db := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	mgr, err := NewSnapshotManager(db, logger)
	if err != nil {
		t.Fatalf("NewSnapshotManager: %v", err)
	}
	return mgr
}

var snapshotFiles = []string{"/src/B.java", "/src/A.java"}

func TestNewSnapshotManager_NilArgs(t *testing.T) {
	if _, err := NewSnapshotManager(nil, slog.Default()); err == nil {
		t.Error("expected error for nil DB")
	}
	if _, err := NewSnapshotManager(newTestDB(t), nil); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestSnapshotManager_SaveAndLoad(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx := context.Background()
	g := sampleGraph()

	meta, err := mgr.Save(ctx, g, snapshotFiles, "first")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(meta.SnapshotID) != 16 {
		t.Errorf("SnapshotID length = %d, want 16", len(meta.SnapshotID))
	}
	if meta.ProjectHash != ProjectHash(snapshotFiles) {
		t.Errorf("ProjectHash = %q", meta.ProjectHash)
	}
	if meta.NodeCount != 12 || meta.EdgeCount != 2 || meta.HookTargetCount != 1 {
		t.Errorf("counts = %d/%d/%d", meta.NodeCount, meta.EdgeCount, meta.HookTargetCount)
	}
	if meta.SchemaVersion != SchemaVersion || meta.FileCount != 2 || meta.Label != "first" {
		t.Errorf("meta = %+v", meta)
	}
	if meta.CompressedSize <= 0 || meta.ContentHash == "" || meta.GraphHash == "" {
		t.Errorf("meta = %+v", meta)
	}

	loaded, loadedMeta, err := mgr.Load(ctx, meta.SnapshotID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loadedMeta.ContentHash != meta.ContentHash {
		t.Errorf("ContentHash = %q, want %q", loadedMeta.ContentHash, meta.ContentHash)
	}
	if len(loaded.Nodes) != 12 || len(loaded.Edges) != 2 || len(loaded.HookTargets) != 1 {
		t.Fatalf("loaded graph = %d/%d/%d", len(loaded.Nodes), len(loaded.Edges), len(loaded.HookTargets))
	}
	if !loaded.Nodes[11].Equal(g.Nodes[11]) || loaded.Edges[1] != g.Edges[1] {
		t.Error("loaded graph differs from saved graph")
	}
}

func TestSnapshotManager_LoadLatest(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx := context.Background()

	if _, err := mgr.Save(ctx, sampleGraph(), snapshotFiles, "old"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	small := &CallGraph{Nodes: []Node{NewNode("p.A", "m", nil, nil)}}
	second, err := mgr.Save(ctx, small, []string{"/src/A.java", "/src/B.java"}, "new")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	g, meta, err := mgr.LoadLatest(ctx, ProjectHash(snapshotFiles))
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if meta.SnapshotID != second.SnapshotID || len(g.Nodes) != 1 {
		t.Errorf("latest = %s with %d nodes, want %s", meta.SnapshotID, len(g.Nodes), second.SnapshotID)
	}

	if _, _, err := mgr.LoadLatest(ctx, "0000000000000000"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("err = %v, want ErrSnapshotNotFound", err)
	}
}

func TestSnapshotManager_List(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		meta, err := mgr.Save(ctx, sampleGraph(), snapshotFiles, "")
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		ids = append(ids, meta.SnapshotID)
		time.Sleep(2 * time.Millisecond)
	}
	if _, err := mgr.Save(ctx, sampleGraph(), []string{"/other/X.java"}, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}

	all, err := mgr.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("List all = %d, want 4", len(all))
	}

	proj, err := mgr.List(ctx, ProjectHash(snapshotFiles), 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(proj) != 2 {
		t.Fatalf("List limited = %d, want 2", len(proj))
	}
	if proj[0].SnapshotID != ids[2] || proj[1].SnapshotID != ids[1] {
		t.Errorf("List order = %s, %s; want newest first", proj[0].SnapshotID, proj[1].SnapshotID)
	}
}

func TestSnapshotManager_Delete(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx := context.Background()

	meta, err := mgr.Save(ctx, sampleGraph(), snapshotFiles, "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mgr.Delete(ctx, meta.SnapshotID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := mgr.Load(ctx, meta.SnapshotID); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Load after delete err = %v, want ErrSnapshotNotFound", err)
	}
	if _, _, err := mgr.LoadLatest(ctx, meta.ProjectHash); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("LoadLatest after delete err = %v, want ErrSnapshotNotFound", err)
	}
	if err := mgr.Delete(ctx, meta.SnapshotID); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("second Delete err = %v, want ErrSnapshotNotFound", err)
	}
}

func TestSnapshotManager_IntegrityCheck(t *testing.T) {
	db := newTestDB(t)
	mgr, err := NewSnapshotManager(db, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	meta, err := mgr.Save(ctx, sampleGraph(), snapshotFiles, "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	dataKey := keyPrefixSnap + meta.ProjectHash + ":" + meta.SnapshotID + keySuffixData
	if err := db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(dataKey), []byte("corrupt"))
	}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := mgr.Load(ctx, meta.SnapshotID); err == nil {
		t.Error("expected integrity error")
	}
}

func TestProjectHash_OrderInsensitive(t *testing.T) {
	a := ProjectHash([]string{"/a", "/b", "/c"})
	b := ProjectHash([]string{"/c", "/a", "/b", "/a"})
	if a != b {
		t.Errorf("ProjectHash differs: %s vs %s", a, b)
	}
	if a == ProjectHash([]string{"/a", "/b"}) {
		t.Error("different file sets should hash differently")
	}
	if len(a) != 16 {
		t.Errorf("len = %d, want 16", len(a))
	}
}

func TestSnapshotManager_DeleteOlderKeepsLatest(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx := context.Background()

	older, err := mgr.Save(ctx, sampleGraph(), snapshotFiles, "old")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	newer, err := mgr.Save(ctx, sampleGraph(), snapshotFiles, "new")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := mgr.Delete(ctx, older.SnapshotID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, meta, err := mgr.LoadLatest(ctx, newer.ProjectHash)
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if meta.SnapshotID != newer.SnapshotID {
		t.Errorf("latest = %s, want %s", meta.SnapshotID, newer.SnapshotID)
	}
}

func TestClearLatestPointer_ReadError(t *testing.T) {
	db := newTestDB(t)
	txn := db.NewTransaction(true)
	txn.Discard()

	err := clearLatestPointer(txn, keyPrefixSnap+"p"+keySuffixLatest, "id")
	if !errors.Is(err, badger.ErrDiscardedTxn) {
		t.Errorf("err = %v, want ErrDiscardedTxn", err)
	}
}
