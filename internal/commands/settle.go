package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"settlements/internal/backend"
	"settlements/internal/format"
	"settlements/internal/services"
)

func addSettle(topLevel *cobra.Command, e *env) {
	cmd := &cobra.Command{
		Use:   "settle <id>",
		Short: "Mark a settlement as paid back",
		Long: `Mark a settlement as paid back.

No change event is published; the trigger worker's sweep picks the
settlement up and sends the notification.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), e, func(b backend.Backend) error {
				svc := services.NewSettlementService(b, nil, e.clock)
				s, err := svc.MarkSettled(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Settled %s: %s paid back %s %s\n",
					s.ID, s.OwedBy, s.PaidBy, format.Pence(s.Amount.Pence))
				return err
			})
		},
	}

	topLevel.AddCommand(cmd)
}
