// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/sinkgraph/services/sinkgraph/graph"
)

func newSnapshotsCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect saved call graph snapshots",
	}

	var (
		project string
		limit   int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withSnapshots(cmd, func(mgr *graph.SnapshotManager) error {
				metas, err := mgr.List(cmd.Context(), project, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(o.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tPROJECT\tCREATED\tNODES\tEDGES\tHOOKS\tLABEL")
				for _, m := range metas {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
						m.SnapshotID, m.ProjectHash,
						time.UnixMilli(m.CreatedAtMilli).UTC().Format(time.RFC3339),
						m.NodeCount, m.EdgeCount, m.HookTargetCount, m.Label)
				}
				return tw.Flush()
			})
		},
	}
	list.Flags().StringVar(&project, "project", "", "only snapshots of this project hash")
	list.Flags().IntVar(&limit, "limit", 0, "maximum number of snapshots (default 100)")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a snapshot's call graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSnapshots(cmd, func(mgr *graph.SnapshotManager) error {
				g, _, err := mgr.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return graph.WriteJSON(o.stdout, g, graph.RenderOptions{Indent: graph.DefaultIndent})
			})
		},
	}

	diff := &cobra.Command{
		Use:   "diff <base> <target>",
		Short: "Compare two snapshots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSnapshots(cmd, func(mgr *graph.SnapshotManager) error {
				base, _, err := mgr.Load(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("loading base: %w", err)
				}
				target, _, err := mgr.Load(cmd.Context(), args[1])
				if err != nil {
					return fmt.Errorf("loading target: %w", err)
				}
				d, err := graph.DiffSnapshots(base, target, args[0], args[1])
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(d, "", graph.DefaultIndent)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(o.stdout, string(out))
				return err
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSnapshots(cmd, func(mgr *graph.SnapshotManager) error {
				return mgr.Delete(cmd.Context(), args[0])
			})
		},
	}

	cmd.AddCommand(list, show, diff, del)
	return cmd
}

// withSnapshots opens the configured snapshot database for fn.
func (o *rootOptions) withSnapshots(cmd *cobra.Command, fn func(*graph.SnapshotManager) error) error {
	e, err := o.setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()
	if e.cfg.Snapshot.Dir == "" {
		return errNoSnapshotDB
	}

	db, err := graph.OpenSnapshotDB(e.cfg.Snapshot.Dir)
	if err != nil {
		return err
	}
	defer db.Close()

	mgr, err := graph.NewSnapshotManager(db, e.logger)
	if err != nil {
		return err
	}
	return fn(mgr)
}
