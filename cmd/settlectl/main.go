package main

import (
	"context"
	"fmt"
	"os"

	"settlements/internal/cli"
	"settlements/internal/commands"
)

func main() {
	ctx, stop := cli.ShutdownContext(context.Background())
	defer stop()

	if err := commands.New().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "settlectl:", err)
		stop()
		os.Exit(1)
	}
}
