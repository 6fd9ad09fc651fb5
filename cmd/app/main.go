package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:   "holocron",
		Usage:  "Browse Star Wars characters from SWAPI and keep local edits on top of them",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:      "list",
				Usage:     "List characters, one page at a time",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Value: 1, Usage: "Page number"},
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Case-insensitive name search"},
					&cli.BoolFlag{Name: "modified", Aliases: []string{"m"}, Usage: "Only locally modified characters"},
				},
				Action: list,
			},
			{
				Name:      "show",
				Usage:     "Show one character with local edits applied",
				ArgsUsage: "<id>",
				Action:    show,
			},
			{
				Name:      "edit",
				Usage:     "Edit fields of a character and save them locally",
				ArgsUsage: "<id> field=value...",
				Action:    edit,
			},
			{
				Name:      "reset",
				Usage:     "Drop local edits and restore the canonical record",
				ArgsUsage: "<id>",
				Action:    reset,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
