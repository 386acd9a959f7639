// Package main is the entry point for the matrix test runner.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/matrix/cmd/matrix/commands"
	"go.trai.ch/matrix/internal/app"
	"go.trai.ch/matrix/internal/core/domain"
	_ "go.trai.ch/matrix/internal/wiring"
)

// Exit code for a run cut short by SIGINT/SIGTERM, 128 + SIGINT.
const exitInterrupted = 130

// ComponentProvider is a function that returns the application components.
type ComponentProvider func(context.Context) (*app.Components, error)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr, func(ctx context.Context) (*app.Components, error) {
		c, _, err := graft.ExecuteFor[*app.Components](ctx)
		return c, err
	}))
}

func run(
	ctx context.Context,
	args []string,
	stderr io.Writer,
	provider ComponentProvider,
) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, err := provider(ctx)
	if err != nil {
		// Logger is not available yet if initialization failed.
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}

	cli := commands.New(components.App)
	cli.SetArgs(args)
	cli.SetOutput(os.Stdout, stderr)

	if err := cli.Execute(ctx); err != nil {
		switch {
		case errors.Is(err, domain.ErrRunInterrupted):
			return exitInterrupted
		case errors.Is(err, domain.ErrRunFailed):
			return 1
		default:
			components.Logger.Error(err)
			return 1
		}
	}
	return 0
}
