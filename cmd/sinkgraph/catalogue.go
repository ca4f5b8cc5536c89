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
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/sinkgraph/services/sinkgraph/hooks"
)

func newCatalogueCommand(o *rootOptions) *cobra.Command {
	var sanitizers string
	cmd := &cobra.Command{
		Use:   "catalogue",
		Short: "List sink categories, or the signatures of selected ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := o.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			cat, err := loadCatalogue(e.cfg)
			if err != nil {
				return err
			}

			names := hooks.ParseCategories(sanitizers)
			if len(names) == 0 {
				tw := tabwriter.NewWriter(o.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CATEGORY\tENTRIES")
				for _, c := range cat.Categories() {
					entries, _ := cat.Entries(c)
					fmt.Fprintf(tw, "%s\t%d\n", c, len(entries))
				}
				aliases := cat.Aliases()
				keys := make([]string, 0, len(aliases))
				for k := range aliases {
					keys = append(keys, k)
				}
				slices.Sort(keys)
				for _, k := range keys {
					fmt.Fprintf(tw, "%s\t-> %s\n", k, aliases[k])
				}
				return tw.Flush()
			}

			for _, name := range names {
				entries, err := cat.Entries(name)
				if err != nil {
					return err
				}
				for _, entry := range entries {
					fmt.Fprintln(o.stdout, entry.Node().String())
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&sanitizers, "sanitizers", "s", "", "comma-separated categories whose signatures to print")
	return cmd
}
