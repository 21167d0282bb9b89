package commands

import (
	"context"
	"fmt"
	"sort"

	"go-school-admin/internal/app"
	"go-school-admin/internal/data"
	"go-school-admin/internal/seed"

	"github.com/spf13/cobra"
)

var seedActor string

var seedCmd = &cobra.Command{
	Use:   "seed <file.yml>",
	Short: "Import category trees and owners from a YAML file",
	Long: `Import a seed file. Categories are created along their paths, owners are
matched by display name, and memberships that already exist are left alone, so
the same file can be imported repeatedly.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := seed.LoadYAML(args[0])
		if err != nil {
			return err
		}
		deps, closeDeps, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer closeDeps()

		ctx := data.WithActor(context.Background(), seedActor)
		results, err := app.Seed(ctx, deps, doc)
		if err != nil {
			return err
		}
		types := make([]string, 0, len(results))
		for t := range results {
			types = append(types, t)
		}
		sort.Strings(types)
		var total seed.Result
		for _, t := range types {
			r := results[t]
			total.Add(r)
			fmt.Fprintf(cmd.OutOrStdout(), "%-18s categories +%d  owners +%d  memberships +%d\n", t, r.Categories, r.Owners, r.Memberships)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-18s categories +%d  owners +%d  memberships +%d\n", "total", total.Categories, total.Owners, total.Memberships)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedActor, "actor", "schoolctl", "Actor recorded in the audit columns")
	rootCmd.AddCommand(seedCmd)
}
