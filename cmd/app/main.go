package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/mdorg/internal"
	pkgconfig "github.com/starford/mdorg/pkg/config"
)

var version = "dev"

type entryFunc func(ctx context.Context, opts ...internal.Option) error

// options loads the config file, applies flag overrides and collects the
// positional path argument.
func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.Bool("force") {
		cfg.Run.Force = true
	}
	if out := cmd.String("out"); out != "" {
		cfg.Output.Dir = out
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}
	if cmd.Args().Present() {
		opts = append(opts, internal.WithInput(cmd.Args().First()))
	}
	return opts, nil
}

func action(fn entryFunc, needsPath bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if needsPath && !cmd.Args().Present() {
			return fmt.Errorf("%s: missing %s argument (see --help)", cmd.Name, cmd.ArgsUsage)
		}
		opts, err := options(cmd)
		if err != nil {
			return err
		}
		if err := fn(ctx, opts...); err != nil {
			return fmt.Errorf("%s: %w", cmd.Name, err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:      "mdorg",
		Usage:     "Convert an Obsidian-style Markdown vault into Org-roam files",
		ArgsUsage: "<dir|file.md>",
		Version:   version,
		Action:    action(internal.Run, true),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (optional; defaults apply when absent)",
				Value:   "config/config.yaml",
				Sources: cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output directory (overrides output.dir)",
				Sources: cli.EnvVars("MDORG_OUTPUT_DIR"),
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Convert every source even when its checksum is unchanged",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "watch",
				Usage:     "Convert the tree, then re-convert sources as they change",
				ArgsUsage: "<dir>",
				Action:    action(internal.Watch, true),
			},
			{
				Name:      "serve",
				Usage:     "Watch the tree and serve the HTTP API with conversion events",
				ArgsUsage: "<dir>",
				Action:    action(internal.Serve, true),
			},
			{
				Name:      "mcp",
				Usage:     "Serve conversion and identifier tools over MCP stdio",
				ArgsUsage: "[dir]",
				Action:    action(internal.MCP, false),
			},
			{
				Name:   "status",
				Usage:  "Print the conversion ledger report",
				Action: action(internal.Status, false),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
