// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/videogate/cmd/app/commands"
)

var version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "videogate",
		Usage:   "Protected video catalog and DRM key brokering service",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "add-video",
				Usage: "Append a video record to the catalog index file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "index",
						Aliases: []string{"i"},
						Value:   "index.json",
						Usage:   "Path to the catalog index file",
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Video id (omit to generate one)",
					},
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Required: true,
						Usage:    "Video title shown in the catalog",
					},
					&cli.StringFlag{
						Name:     "locator",
						Aliases:  []string{"l"},
						Required: true,
						Usage:    "Streaming locator URL",
					},
					&cli.StringFlag{
						Name:  "thumbnail",
						Usage: "Thumbnail URL",
					},
					&cli.StringSliceFlag{
						Name:  "viewer",
						Usage: "Viewer group id allowed to watch (repeatable; defaults to 'all')",
					},
					&cli.StringSliceFlag{
						Name:  "content-key-id",
						Usage: "Content key id owned by this video (repeatable)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunAddVideo(commands.AddVideoOptions{
						IndexFile:     cmd.String("index"),
						ID:            cmd.String("id"),
						Title:         cmd.String("title"),
						Locator:       cmd.String("locator"),
						Thumbnail:     cmd.String("thumbnail"),
						Viewers:       cmd.StringSlice("viewer"),
						ContentKeyIDs: cmd.StringSlice("content-key-id"),
					}, commands.DefaultIO())
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
