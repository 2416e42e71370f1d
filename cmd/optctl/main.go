// Command optctl inspects and converts option calculator state tokens.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alanyoungcy/optionscalc/internal/cli"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	if err := cli.NewRootCmd(logger).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
