package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newToolsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tools <worker>",
		Short: "List the tools a worker advertises",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.registry.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			tools, err := client.ListTools(cmd.Context())
			if err != nil {
				return err
			}

			if a.flags.JSON {
				return printJSON(cmd.OutOrStdout(), tools)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOOL\tDESCRIPTION")

			for _, tool := range tools {
				fmt.Fprintf(tw, "%s\t%s\n", tool.Name, tool.Description)
			}

			return tw.Flush()
		},
	}
}
