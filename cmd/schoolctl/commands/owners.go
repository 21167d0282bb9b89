package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"go-school-admin/internal/app"

	"github.com/spf13/cobra"
)

var ownersIncludeDeleted bool

var ownersCmd = &cobra.Command{
	Use:   "owners <owner_type>",
	Short: "List the owners of one type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, closeDeps, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer closeDeps()

		b, err := app.Find(app.Bindings(deps), args[0])
		if err != nil {
			return err
		}
		owners, err := b.List(context.Background(), ownersIncludeDeleted)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDISPLAY NAME\tDELETED")
		for _, o := range owners {
			fmt.Fprintf(w, "%s\t%s\t%t\n", o.ID, o.DisplayName, o.IsDeleted)
		}
		return w.Flush()
	},
}

func init() {
	ownersCmd.Flags().BoolVar(&ownersIncludeDeleted, "include-deleted", false, "Include soft-deleted owners")
	rootCmd.AddCommand(ownersCmd)
}
