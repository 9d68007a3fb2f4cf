package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"codeberg.org/docuchat/server/internal/auth"
	"codeberg.org/docuchat/server/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		logger.FatalErr(err, "docuchatctl failed")
	}
}

func newCommand() *cli.Command {
	userFlag := &cli.StringFlag{
		Name:     "user",
		Usage:    "owner of the collection",
		Sources:  cli.EnvVars("DOCUCHAT_USER"),
		Required: true,
	}

	collectionFlag := &cli.StringFlag{
		Name:     "collection",
		Usage:    "collection name",
		Required: true,
	}

	return &cli.Command{
		Name:  "docuchatctl",
		Usage: "operate a docuchat deployment from the command line",
		Commands: []*cli.Command{
			{
				Name:  "ingest",
				Usage: "run the ingestion pipeline over a file or directory",
				Flags: []cli.Flag{
					userFlag,
					collectionFlag,
					&cli.StringFlag{Name: "path", Usage: "file or directory to ingest", Required: true},
					&cli.BoolFlag{Name: "create", Usage: "create the collection when it does not exist"},
				},
				Action: ingestAction,
			},
			{
				Name:  "watch",
				Usage: "ingest files as they appear in a directory",
				Flags: []cli.Flag{
					userFlag,
					collectionFlag,
					&cli.StringFlag{Name: "dir", Usage: "directory to watch", Required: true},
					&cli.DurationFlag{Name: "settle", Usage: "quiet period before a changed file is ingested", Value: defaultSettle},
				},
				Action: watchAction,
			},
			{
				Name:  "search",
				Usage: "print the chunks closest to a query",
				Flags: []cli.Flag{
					userFlag,
					collectionFlag,
					&cli.StringFlag{Name: "query", Usage: "search text", Required: true},
					&cli.IntFlag{Name: "top-k", Usage: "number of results", Value: 5},
				},
				Action: searchAction,
			},
			{
				Name:  "token",
				Usage: "print a development JWT",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "user id placed in the token", Required: true},
					&cli.StringFlag{Name: "email", Usage: "email placed in the token"},
					&cli.DurationFlag{Name: "ttl", Usage: "token lifetime", Value: auth.DefaultTTL},
				},
				Action: tokenAction,
			},
		},
	}
}
