package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	gsheet "settlements/internal/sheets/google"
)

func addLedger(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Manage the Google Sheets ledger",
	}

	var port, tokenFile string
	auth := &cobra.Command{
		Use:   "auth",
		Short: "Authorize the ledger with a Google user account",
		Long: `Run the OAuth consent flow and save a refresh token.

Reads the OAuth client from GOOGLE_OAUTH_CLIENT_JSON or
GOOGLE_OAUTH_CLIENT_FILE. Add http://localhost:<port>/callback to the
client's authorized redirect URIs first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ok, err := gsheet.OAuthClientConfig()
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
			}
			tok, err := gsheet.Authorize(cmd.Context(), cfg, port, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if tokenFile == "" {
				tokenFile = gsheet.TokenFile()
			}
			if err := gsheet.SaveToken(tokenFile, tok); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved token to %s\n", tokenFile)
			return err
		},
	}
	auth.Flags().StringVar(&port, "port", "8085", "local port for the OAuth redirect")
	auth.Flags().StringVar(&tokenFile, "token-file", "", "where to save the token (default: GOOGLE_OAUTH_TOKEN_FILE or token.json)")

	cmd.AddCommand(auth)
	topLevel.AddCommand(cmd)
}
