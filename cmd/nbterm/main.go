package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"nbterm/internal/config"
	"nbterm/internal/contents"
	"nbterm/internal/logging"
	"nbterm/internal/telemetry"
	"nbterm/internal/ui"
)

const shutdownTimeout = 5 * time.Second

func run(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	cfg, err := config.Load(configPath, !cmd.IsSet("config"))
	if err != nil {
		return err
	}
	if root := cmd.String("root"); root != "" {
		cfg.Root = root
	}

	logger, closer, err := logging.New().FromPath(cfg.Log.Path).Level(cfg.Log.Level).Make()
	if err != nil {
		return err
	}
	defer closer.Close()

	exporter, err := telemetry.NewOTLPExporter(ctx)
	if err != nil {
		return fmt.Errorf("failed to start tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := exporter.Shutdown(sctx); err != nil {
			logger.Warn().Err(err).Msg("trace exporter shutdown")
		}
	}()

	store, err := contents.NewStore(cfg.Root, logger)
	if err != nil {
		return err
	}
	logger.Info().Str("root", store.Root()).Bool("tracing", exporter.Enabled()).Msg("nbterm starting")
	return runUI(ctx, store, cfg, logger)
}

// runUI drives the program until the user quits or ctx ends.
func runUI(ctx context.Context, store *contents.Store, cfg *config.Config, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewAppModel(ctx, store, cfg.Theme, logger)
	p := tea.NewProgram(model.AsTeaModel(), tea.WithAltScreen(), tea.WithContext(ctx))
	model.SetSender(p.Send)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Stops background watches once the program is gone.
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && gctx.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}

func main() {
	cmd := &cli.Command{
		Name:   "nbterm",
		Usage:  "Browse and edit Jupyter notebooks in the terminal",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "nbterm.yaml",
				Value:       "nbterm.yaml",
				Sources:     cli.EnvVars("NBTERM_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Directory to browse (overrides the config file)",
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
