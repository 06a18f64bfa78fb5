package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newListCmd creates the list command.
func newListCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the metrics in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			type row struct {
				Name        string   `json:"name"`
				Coordinates []string `json:"coordinates"`
				Description string   `json:"description"`
			}
			var rows []row
			for _, name := range a.catalog.Names() {
				d, err := a.catalog.Definition(name)
				if err != nil {
					return err
				}
				rows = append(rows, row{Name: d.Name, Coordinates: d.Coordinates, Description: d.Description})
			}

			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			for _, r := range rows {
				coords := "(" + strings.Join(r.Coordinates, ", ") + ")"
				if _, err := fmt.Fprintf(out, "%-24s %-24s %s\n", r.Name, coords, r.Description); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
