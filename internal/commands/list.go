package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"settlements/internal/backend"
	"settlements/internal/core"
	"settlements/internal/format"
	"settlements/internal/month"
)

func addList(topLevel *cobra.Command, e *env) {
	var monthFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the settlements of a month",
		Example: `
settlectl list
settlectl list --month 2025-02
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k := month.Current(e.clock)
			if monthFlag != "" {
				var err error
				if k, err = month.Parse(monthFlag); err != nil {
					return err
				}
			}

			return withStore(cmd.Context(), e, func(b backend.Backend) error {
				items, err := b.ListByMonth(cmd.Context(), k)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, month.FormatMonthYear(k))
				if len(items) == 0 {
					_, err := fmt.Fprintln(out, "No settlements.")
					return err
				}

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tDATE\tDESCRIPTION\tOWED BY\tPAID BY\tAMOUNT\tSTATUS")
				for _, s := range items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						s.ID, format.Date(s.Date.Time), s.Description, s.OwedBy, s.PaidBy,
						format.Pence(s.Amount.Pence), s.Status)
				}
				if err := tw.Flush(); err != nil {
					return err
				}

				sum := core.Summarize(k, items)
				_, err = fmt.Fprintf(out, "\nOutstanding %s (%d), settled %s (%d)\n",
					format.Pence(sum.PendingTotal.Pence), sum.Pending,
					format.Pence(sum.SettledTotal.Pence), sum.Settled)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&monthFlag, "month", "", "month to list as YYYY-MM (default: current month)")

	topLevel.AddCommand(cmd)
}
