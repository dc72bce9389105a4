package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"settlements/internal/format"
)

func addFormat(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Render amounts and dates the way the web UI does",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "currency [amount]",
		Short: "Render an amount in pounds, e.g. 1234.5 -> £1,234.50",
		Example: `
settlectl format currency 1234.5
settlectl format currency -42
settlectl format currency
`,
		// Negative amounts look like shorthand flags.
		DisableFlagParsing: true,
		Args:               cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && (args[0] == "-h" || args[0] == "--help") {
				return cmd.Help()
			}
			var amount *float64
			if len(args) == 1 {
				v, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
				if err != nil {
					return fmt.Errorf("invalid amount %q", args[0])
				}
				amount = &v
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), format.Currency(amount))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "date <date>",
		Short: "Render a date, e.g. 2025-03-05 -> Mar 5, 2025",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := format.Date(args[0])
			if out == "" {
				return fmt.Errorf("unrecognised date %q", args[0])
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	})

	topLevel.AddCommand(cmd)
}
