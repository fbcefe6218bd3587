package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wagiedev/toolbridge-go"
)

func newCallCmd(a *app) *cobra.Command {
	var (
		rawArgs string
		raw     bool
	)

	cmd := &cobra.Command{
		Use:   "call <worker> <tool>",
		Short: "Call a tool and print its result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := parseArgs(rawArgs)
			if err != nil {
				return err
			}

			client, err := a.registry.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			result, err := client.CallTool(cmd.Context(), args[1], toolArgs)
			if err != nil {
				return err
			}

			if raw {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), string(result))

				return err
			}

			return printJSON(cmd.OutOrStdout(), toolbridge.Extract(result))
		},
	}

	cmd.Flags().StringVar(&rawArgs, "args", "", "tool arguments as a JSON object")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the unprocessed result")

	return cmd
}
