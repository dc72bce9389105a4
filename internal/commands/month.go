package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"settlements/internal/month"
)

func addMonth(topLevel *cobra.Command, e *env) {
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Work with YYYY-MM month keys",
		Example: `
settlectl month current
settlectl month next 2024-12
settlectl month show 2025-03
`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "current",
		Short: "Print the current month key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), month.Current(e.clock))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "next <key>",
		Short: "Print the month after key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKeyArg(args)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), month.Next(k))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "prev <key>",
		Aliases: []string{"previous"},
		Short:   "Print the month before key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKeyArg(args)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), month.Previous(k))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show [key]",
		Short: "Print a month's name and its neighbours",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nav := month.NewNavigator(e.clock, "")
			if len(args) == 1 {
				if err := nav.SetCurrentMonth(month.Key(args[0])); err != nil {
					return err
				}
			}
			st := nav.State()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\nprevious: %s\nnext:     %s\n",
				st.FormattedMonth, st.PreviousMonth, st.NextMonth)
			return err
		},
	})

	topLevel.AddCommand(cmd)
}
