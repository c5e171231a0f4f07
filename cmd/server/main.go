package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thereceipt/cover-engine/internal/api"
	"github.com/thereceipt/cover-engine/internal/config"
	"github.com/thereceipt/cover-engine/internal/jobs"
	"github.com/thereceipt/cover-engine/internal/logging"
	"github.com/thereceipt/cover-engine/internal/pipeline"
)

// Version is set during build via ldflags
var Version = "dev"

const shutdownTimeout = 10 * time.Second

type serverOptions struct {
	Config     config.Config
	Logger     *slog.Logger
	NoDownload bool
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cover-server",
		Short:   "Serve the cover layout and export API",
		Version: Version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readServerOptions(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), opts)
		},
		SilenceUsage: true,
	}

	cmd.Flags().String("port", "", "Port to listen on (env COVER_PORT, default 12212)")
	cmd.Flags().String("font-dir", "", "Directory of font files (env COVER_FONT_DIR)")
	cmd.Flags().String("font-catalog", "", "Font catalog file (env COVER_FONT_CATALOG)")
	cmd.Flags().String("spine-table", "", "Spine width table: kdp or legacy (env COVER_SPINE_TABLE)")
	cmd.Flags().Float64("default-dpi", 0, "Export DPI when a request names none (env COVER_DEFAULT_DPI)")
	cmd.Flags().Int("retries", 0, "Attempts per export job (env COVER_JOB_RETRIES)")
	cmd.Flags().Bool("no-download", false, "Do not download catalog fonts")
	cmd.Flags().String("log-level", "info", "Log level: debug, info, warn, error")
	cmd.Flags().String("log-format", "text", "Log format: text or json")
	cmd.Flags().BoolP("verbose", "v", false, "Shorthand for --log-level debug")

	return cmd
}

// readServerOptions layers flags over the environment over defaults.
func readServerOptions(cmd *cobra.Command) (serverOptions, error) {
	cfg, err := config.Load()
	if err != nil {
		return serverOptions{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetString("port")
	}
	if flags.Changed("font-dir") {
		cfg.FontDir, _ = flags.GetString("font-dir")
	}
	if flags.Changed("font-catalog") {
		cfg.FontCatalog, _ = flags.GetString("font-catalog")
	}
	if flags.Changed("spine-table") {
		cfg.SpineTable, _ = flags.GetString("spine-table")
	}
	if flags.Changed("default-dpi") {
		cfg.DefaultDPI, _ = flags.GetFloat64("default-dpi")
	}
	if flags.Changed("retries") {
		cfg.JobRetries, _ = flags.GetInt("retries")
	}
	if err := cfg.Validate(); err != nil {
		return serverOptions{}, err
	}

	logger, err := readLogger(cmd)
	if err != nil {
		return serverOptions{}, err
	}
	noDownload, _ := flags.GetBool("no-download")

	return serverOptions{Config: cfg, Logger: logger, NoDownload: noDownload}, nil
}

func readLogger(cmd *cobra.Command) (*slog.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	if !logging.ValidFormat(format) {
		return nil, fmt.Errorf("invalid log format %q (must be text or json)", format)
	}
	return logging.New(os.Stderr, level, format), nil
}

func run(ctx context.Context, opts serverOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := opts.Logger
	cfg := opts.Config

	pipe, err := pipeline.Build(ctx, cfg, pipeline.BuildOptions{
		Download: !opts.NoDownload,
		Preload:  true,
	}, logger)
	if err != nil {
		return err
	}

	hub := api.NewHub(logger)
	queue := jobs.NewQueue(pipe,
		jobs.WithMaxRetries(cfg.JobRetries),
		jobs.WithRetention(cfg.JobTTL, jobs.DefaultMaxFinished),
		jobs.WithLogger(logger),
		jobs.WithNotify(hub.BroadcastJob),
	)
	defer queue.Stop()

	server := api.NewServer(pipe, queue, api.WithHub(hub), api.WithLogger(logger))

	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Info("starting API server", "addr", httpServer.Addr, "version", Version, "spine_table", cfg.SpineTable)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
