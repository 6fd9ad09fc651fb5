package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/holocron/internal"
	"github.com/starford/holocron/internal/display"
	"github.com/starford/holocron/internal/mcpserver"
	"github.com/starford/holocron/internal/models"
	"github.com/starford/holocron/internal/session"
	pkgconfig "github.com/starford/holocron/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// openTool wires the services for a one-shot command. Logs go to stderr so
// stdout carries only the command's output.
func openTool(cmd *cli.Command) (*internal.Services, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	return internal.Open(internal.WithConfig(cfg), internal.WithLogger(logger))
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func serveMCP(_ context.Context, cmd *cli.Command) error {
	s, err := openTool(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return mcpserver.New(s.Catalog, s.NewController).ServeStdio()
}

func list(ctx context.Context, cmd *cli.Command) error {
	s, err := openTool(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	w := output(cmd)

	if cmd.Bool("modified") {
		recs, err := s.Catalog.Modified(ctx)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Fprintln(w, "no locally modified characters")
			return nil
		}
		for _, rec := range recs {
			fmt.Fprintln(w, display.Row(rec))
		}
		return nil
	}

	var page models.EffectivePage
	if q := cmd.String("search"); q != "" {
		page, err = s.Catalog.Search(ctx, q)
	} else {
		page, err = s.Catalog.List(ctx, int(cmd.Int("page")))
	}
	if err != nil {
		return err
	}
	writePage(w, page)
	return nil
}

func writePage(w io.Writer, page models.EffectivePage) {
	for _, rec := range page.Results {
		fmt.Fprintln(w, display.Row(rec))
	}
	if page.TotalPages == 0 {
		fmt.Fprintln(w, "no characters found")
		return
	}
	fmt.Fprintf(w, "page %d of %d (%d characters)\n", page.Page, page.TotalPages, page.Count)
}

func show(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	s, err := openTool(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.Catalog.Get(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprint(output(cmd), display.Card(rec, time.Now()))
	return nil
}

func edit(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	fields, err := parseAssignments(cmd.Args().Tail())
	if err != nil {
		return err
	}
	s, err := openTool(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := session.Edit(ctx, s.NewController(), id, fields)
	if err != nil {
		return err
	}
	fmt.Fprint(output(cmd), display.Card(*snap.Effective, time.Now()))
	return nil
}

func reset(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	s, err := openTool(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctrl := s.NewController()
	if _, err := ctrl.Load(ctx, id); err != nil {
		return err
	}
	snap, err := ctrl.ResetToCanonical(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(output(cmd), display.Card(*snap.Effective, time.Now()))
	return nil
}

func requireID(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.Args().First())
	if id == "" {
		return "", cli.Exit(fmt.Sprintf("usage: %s %s", cmd.FullName(), cmd.ArgsUsage), 2)
	}
	return id, nil
}

// parseAssignments turns ["height=175", "hair_color=brown"] into fields.
// Values may be empty or contain '='.
func parseAssignments(args []string) (models.Fields, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one field=value is required")
	}
	fields := make(models.Fields, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%q: expected field=value", arg)
		}
		f, err := models.ParseField(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		fields[f] = value
	}
	return fields, nil
}
