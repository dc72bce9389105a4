// Package commands implements settlectl, the operator command line for
// browsing months and settling debts without the web UI.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"settlements/internal/backend"
	"settlements/internal/cli"
	"settlements/internal/config"
	"settlements/internal/log"
	"settlements/internal/month"
)

// env is what the commands read from the outside world.
type env struct {
	clock month.Clock
	// openStore opens the configured settlement store.
	openStore func(ctx context.Context) (*backend.BackendResult, error)
}

func defaultEnv() *env {
	return &env{
		clock:     month.SystemClock{},
		openStore: openConfiguredStore,
	}
}

func openConfiguredStore(ctx context.Context) (*backend.BackendResult, error) {
	cli.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	quiet := log.New(log.Config{Output: io.Discard, Component: log.ComponentCLI})
	return backend.NewFactory(quiet.Logger).CreateBackend(ctx, bcfg)
}

// New returns the settlectl root command.
func New() *cobra.Command {
	return newRoot(defaultEnv())
}

func newRoot(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "settlectl",
		Short:         "Browse and settle shared expenses from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	addCommands(cmd, e)
	return cmd
}

func addCommands(topLevel *cobra.Command, e *env) {
	addMonth(topLevel, e)
	addFormat(topLevel)
	addList(topLevel, e)
	addSettle(topLevel, e)
	addLedger(topLevel)
}

// withStore opens the store for the duration of fn.
func withStore(ctx context.Context, e *env, fn func(b backend.Backend) error) error {
	res, err := e.openStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if res.Cleanup != nil {
			_ = res.Cleanup()
		}
	}()
	return fn(res.Backend)
}

func parseKeyArg(args []string) (month.Key, error) {
	return month.Parse(args[0])
}
