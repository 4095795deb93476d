package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/zettelnav/internal"
	"github.com/starford/zettelnav/internal/models"
	pkgconfig "github.com/starford/zettelnav/pkg/config"
)

var version = "dev"

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(configPath, "", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func stdio(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunStdio(ctx, os.Stdin, os.Stdout, opts...)
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func jump(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	mode, err := models.ParseMode(cmd.String("mode"))
	if err != nil {
		return err
	}
	content, err := os.ReadFile(cmd.String("file"))
	if err != nil {
		return fmt.Errorf("read notes: %w", err)
	}
	req := models.NewJumpRequest(mode, int(cmd.Int("line")), int(cmd.Int("column")))
	return internal.RunJump(ctx, string(content), req, os.Stdout, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:    "zettelnav",
		Usage:   "Link navigation for single-file Markdown zettelkasten notes",
		Version: version,
		Action:  serve,
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
				Usage:  "Run the HTTP API with live reload of the notes file",
				Action: serve,
			},
			{
				Name:   "stdio",
				Usage:  "Speak the editor JSON-lines protocol on stdin/stdout",
				Action: stdio,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
			{
				Name:   "jump",
				Usage:  "Resolve the link under a cursor and print the target",
				Action: jump,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Notes file", Required: true},
					&cli.IntFlag{Name: "line", Aliases: []string{"l"}, Usage: "1-based cursor line", Required: true},
					&cli.IntFlag{Name: "column", Usage: "0-based cursor byte column"},
					&cli.StringFlag{Name: "mode", Usage: "Jump mode", Value: models.ModeForward.String()},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
