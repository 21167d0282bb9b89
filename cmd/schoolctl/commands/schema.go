package commands

import (
	"fmt"
	"strings"

	"go-school-admin/internal/data"

	"github.com/spf13/cobra"
)

var schemaDialect string

var schemaCmd = &cobra.Command{
	Use:   "schema [owner_type...]",
	Short: "Print the DDL of the per-owner-type tables",
	Long: `Print the CREATE statements generated for each owner type. With no
arguments every owner type is printed. Nothing is executed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := data.DialectFor(schemaDialect)
		if err != nil {
			return err
		}
		types := data.OwnerTypes()
		if len(args) > 0 {
			known := make(map[string]bool, len(types))
			for _, t := range types {
				known[t] = true
			}
			for _, a := range args {
				if !known[a] {
					return fmt.Errorf("unknown owner type %q", a)
				}
			}
			types = args
		}
		out := cmd.OutOrStdout()
		for _, ownerType := range types {
			stmts, err := data.OwnerSchema(d, ownerType)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "-- %s (%s)\n", ownerType, d.Name)
			for _, s := range stmts {
				fmt.Fprintf(out, "%s;\n", strings.TrimSpace(s))
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	schemaCmd.Flags().StringVar(&schemaDialect, "dialect", "sqlite3", "SQL dialect: sqlite3, mysql or postgres")
	rootCmd.AddCommand(schemaCmd)
}
