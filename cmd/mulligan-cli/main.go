// Package main provides the entry point for mulligan-cli.
//
// mulligan-cli is the command-line client for the Mulligan golf
// tournament API, supporting both single-command mode and an interactive
// shell.
package main

import (
	"context"
	"os"

	"github.com/mulligan-golf/mulligan-go/internal/cli/command"
	"github.com/mulligan-golf/mulligan-go/internal/infra/shutdown"
)

func main() {
	os.Exit(run())
}

func run() int {
	handler := shutdown.NewHandler(shutdown.DefaultTimeout)
	ctx, stop := handler.WithSignals(context.Background())
	defer stop()

	app := command.App(command.WithShutdown(handler))
	err := app.RunContext(ctx, os.Args)
	if shutdownErr := handler.Shutdown(); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	if err != nil {
		command.PrintError(os.Stderr, err)
	}
	return command.ExitCode(err)
}
