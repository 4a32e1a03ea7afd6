package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Zack-911/forgelsp/internal/transport"
	"github.com/Zack-911/forgelsp/internal/version"
)

func main() {
	app := &cli.App{
		Name:  "forgelsp",
		Usage: "Language Server for the ForgeScript embedded DSL",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the LSP server over stdio",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "cache-dir",
						Value: "./.cache",
						Usage: "directory the metadata fetcher caches source bodies under",
					},
				},
			},
			{
				Name:   "version",
				Usage:  "print version information",
				Action: versionCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCommand(c *cli.Context) error {
	srv, err := transport.New(c.String("cache-dir"))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return srv.Run(ctx)
}

func versionCommand(c *cli.Context) error {
	fmt.Println(version.FullInfo())
	return nil
}
