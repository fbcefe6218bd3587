package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wagiedev/toolbridge-go"
)

func newStatusCmd(a *app) *cobra.Command {
	var start bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Start every worker and report its state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var initErr error
			if start {
				initErr = a.registry.InitializeAll(cmd.Context())
			}

			statuses := a.registry.Statuses()

			if a.flags.JSON {
				if err := printJSON(cmd.OutOrStdout(), statusRows(statuses)); err != nil {
					return err
				}
			} else {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "WORKER\tSTATE\tPID\tSTARTS\tSESSION")

				for _, st := range statuses {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", st.Name, st.State, st.PID, st.Starts, st.Session)
				}

				if err := tw.Flush(); err != nil {
					return err
				}
			}

			return initErr
		},
	}

	cmd.Flags().BoolVar(&start, "start", true, "start workers before reporting")

	return cmd
}

type statusRow struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	PID     int    `json:"pid,omitempty"`
	Starts  int    `json:"starts"`
	Session string `json:"session,omitempty"`
	Pending int    `json:"pending"`
}

func statusRows(statuses []toolbridge.Status) []statusRow {
	rows := make([]statusRow, 0, len(statuses))

	for _, st := range statuses {
		rows = append(rows, statusRow{
			Name:    st.Name,
			State:   st.State.String(),
			PID:     st.PID,
			Starts:  st.Starts,
			Session: st.Session,
			Pending: st.Pending,
		})
	}

	return rows
}
