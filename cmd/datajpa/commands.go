/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tomoncle/datajpa"
	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/types"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema and apply pending migrations",
	Args:  cobra.NoArgs,
	RunE: withDatabase(true, func(cmd *cobra.Command, f *database.BaseDatabaseFactory) error {
		applied, err := database.NewMigrationManager(f.GetDB(), nil).GetAppliedMigrations(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED AT")
		for _, m := range applied {
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	}),
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Execute the SQL seed files of the configured environment",
	Args:  cobra.NoArgs,
	RunE: withDatabase(false, func(cmd *cobra.Command, f *database.BaseDatabaseFactory) error {
		return f.GetManager().InitData(cmd.Context())
	}),
}

var (
	memberAge  int
	memberPage int
	memberSize int
	memberSort []string
)

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "List members, optionally filtered by age",
	Args:  cobra.NoArgs,
	RunE: withDatabase(false, func(cmd *cobra.Command, f *database.BaseDatabaseFactory) error {
		ctx := cmd.Context()
		svc := datajpa.NewMemberService(f.GetDB())
		req := types.PageOf(memberPage, memberSize, types.ParseSort(memberSort...))

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		if cmd.Flags().Changed("age") {
			page, err := svc.MembersByAge(ctx, memberAge, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tUSERNAME\tAGE")
			for _, m := range page.Content {
				fmt.Fprintf(w, "%d\t%s\t%d\n", m.ID, m.Username, m.Age)
			}
			fmt.Fprintf(w, "page %d/%d, %d total\n", page.Number+1, page.TotalPages(), page.TotalElements)
			return w.Flush()
		}

		page, err := svc.Members(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ID\tUSERNAME\tTEAM")
		for _, m := range page.Content {
			fmt.Fprintf(w, "%d\t%s\t%s\n", m.ID, m.Username, m.TeamName)
		}
		fmt.Fprintf(w, "page %d/%d, %d total\n", page.Number+1, page.TotalPages(), page.TotalElements)
		return w.Flush()
	}),
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the database connection",
	Args:  cobra.NoArgs,
	RunE: withDatabase(false, func(cmd *cobra.Command, f *database.BaseDatabaseFactory) error {
		out := struct {
			Health *database.HealthStatus `json:"health"`
			Stats  *database.DBStats      `json:"stats"`
		}{
			Health: f.GetHealthStatus(cmd.Context()),
			Stats:  f.GetStats(),
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
		if !out.Health.Healthy {
			return fmt.Errorf("database unhealthy: %s", out.Health.LastError)
		}
		return nil
	}),
}

func init() {
	membersCmd.Flags().IntVar(&memberAge, "age", 0, "only members of this age")
	membersCmd.Flags().IntVar(&memberPage, "page", 0, "zero-based page number")
	membersCmd.Flags().IntVar(&memberSize, "size", types.DefaultPageSize, "page size")
	membersCmd.Flags().StringArrayVar(&memberSort, "sort", []string{"username,desc"}, "sort expressions, e.g. username,desc")
}
