// Package main is the entry point for the lockin CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"lockin/internal/cli"
	"lockin/internal/commands"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Create dispatcher
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, cli.OpenManager)

	// Run and exit with code
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}
