package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/thereceipt/cover-engine/internal/config"
	"github.com/thereceipt/cover-engine/internal/coverformat"
	"github.com/thereceipt/cover-engine/internal/export"
	"github.com/thereceipt/cover-engine/internal/geometry"
	"github.com/thereceipt/cover-engine/internal/layout"
	"github.com/thereceipt/cover-engine/internal/logging"
	"github.com/thereceipt/cover-engine/internal/pipeline"
	"github.com/thereceipt/cover-engine/internal/report"
)

const defaultServerURL = "http://localhost:12212"

type cliOptions struct {
	Config config.Config
	Logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "coverctl",
		Short: "Lay out, render and export paperback book covers",
		Long: `coverctl renders .cover projects to print-ready PNG or PDF files,
reports cover geometry, checks blurb boxes against the barcode area,
and talks to a running cover server to queue exports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.String("log-format", "text", "Log format: text or json")
	pf.BoolP("verbose", "v", false, "Shorthand for --log-level debug")
	pf.String("spine-table", "", "Spine width table: kdp or legacy (env COVER_SPINE_TABLE)")

	root.AddCommand(
		newRenderCmd(),
		newGeometryCmd(),
		newSolveBlurbCmd(),
		newSubmitCmd(),
		newStatusCmd(),
	)
	return root
}

// readCLIOptions resolves configuration and the logger shared by every
// subcommand.
func readCLIOptions(cmd *cobra.Command) (cliOptions, error) {
	cfg, err := config.Load()
	if err != nil {
		return cliOptions{}, err
	}
	if cmd.Flags().Changed("spine-table") {
		cfg.SpineTable, _ = cmd.Flags().GetString("spine-table")
		if err := cfg.Validate(); err != nil {
			return cliOptions{}, err
		}
	}

	levelName, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return cliOptions{}, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	if !logging.ValidFormat(format) {
		return cliOptions{}, fmt.Errorf("invalid log format %q (must be text or json)", format)
	}

	return cliOptions{Config: cfg, Logger: logging.New(os.Stderr, level, format)}, nil
}

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <project.cover>",
		Short: "Render a project to a print-ready PNG or PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd)
			if err != nil {
				return err
			}
			projectPath := args[0]

			project, err := coverformat.ParseFile(projectPath)
			if err != nil {
				return err
			}

			formatName, _ := cmd.Flags().GetString("format")
			format, err := export.ParseFormat(formatName)
			if err != nil {
				return err
			}
			dpi, _ := cmd.Flags().GetFloat64("dpi")
			if dpi <= 0 {
				dpi = opts.Config.DefaultDPI
			}
			download, _ := cmd.Flags().GetBool("download-fonts")

			pipe, err := pipeline.Build(cmd.Context(), opts.Config, pipeline.BuildOptions{
				AllowFiles: true,
				BaseDir:    filepath.Dir(projectPath),
				Download:   download,
			}, opts.Logger)
			if err != nil {
				return err
			}

			result, err := pipe.Export(cmd.Context(), project, format, dpi)
			if err != nil {
				return fmt.Errorf("render failed: %w", err)
			}

			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				output = filepath.Join(filepath.Dir(projectPath), result.Filename)
			}
			if err := os.WriteFile(output, result.Data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.SuccessStyle.Render(fmt.Sprintf("✓ Wrote %s (%d bytes)", output, len(result.Data))))
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file (default: {title}_{dpi}dpi_{date}.{format} next to the project)")
	cmd.Flags().StringP("format", "f", "png", "Output format: png or pdf")
	cmd.Flags().Float64("dpi", 0, "Output resolution (default: COVER_DEFAULT_DPI or 300)")
	cmd.Flags().Bool("download-fonts", true, "Download catalog fonts that are not installed")
	return cmd
}

func newGeometryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geometry [project.cover]",
		Short: "Show the canvas, spine and panel sizes of a book",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd)
			if err != nil {
				return err
			}

			book, err := readBook(cmd, args)
			if err != nil {
				return err
			}
			dpi, _ := cmd.Flags().GetFloat64("dpi")

			g := geometry.Compute(book.Geometry(), dpi, opts.Config.Table())
			fmt.Fprintln(cmd.OutOrStdout(), report.Geometry(g))
			return nil
		},
	}

	cmd.Flags().Int("pages", geometry.DefaultPageCount, "Interior page count")
	cmd.Flags().String("trim", "6x9", "Trim size in inches")
	cmd.Flags().String("paper", string(geometry.PaperWhite), "Paper type: white or cream")
	cmd.Flags().Float64("dpi", geometry.PreviewPPI, "Resolution")
	return cmd
}

// readBook takes book details from a project file when one is named, and
// from flags otherwise.
func readBook(cmd *cobra.Command, args []string) (coverformat.BookMetadata, error) {
	if len(args) == 1 {
		project, err := coverformat.ParseFile(args[0])
		if err != nil {
			return coverformat.BookMetadata{}, err
		}
		return project.Book, nil
	}

	pages, _ := cmd.Flags().GetInt("pages")
	trim, _ := cmd.Flags().GetString("trim")
	paper, _ := cmd.Flags().GetString("paper")
	book := coverformat.BookMetadata{PageCount: pages, TrimSize: trim, PaperType: paper}
	if err := coverformat.ValidateBook(&book); err != nil {
		return coverformat.BookMetadata{}, err
	}
	return book, nil
}

func newSolveBlurbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve-blurb",
		Short: "Place a blurb box clear of the barcode area",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := readCLIOptions(cmd); err != nil {
				return err
			}

			trim, _ := cmd.Flags().GetString("trim")
			w, h, ok := geometry.ParseTrimSize(trim)
			if !ok {
				return fmt.Errorf("invalid trim size: %q", trim)
			}
			sizing, _ := cmd.Flags().GetString("sizing")
			height, _ := cmd.Flags().GetFloat64("height")
			offset, _ := cmd.Flags().GetFloat64("offset")
			edited, _ := cmd.Flags().GetString("edited")

			c := layout.NewBarcodeConstraints(w, h)
			var (
				box  layout.Box
				safe bool
			)
			switch coverformat.Sizing(sizing) {
			case coverformat.SizingAuto:
				box, safe = c.AutoPlace(height)
			case coverformat.SizingManual:
				field := layout.Field(edited)
				if field != layout.FieldHeight && field != layout.FieldYOffset {
					return fmt.Errorf("invalid --edited %q (must be height or yOffset)", edited)
				}
				box, safe = c.SolveManual(layout.Box{HeightPercent: height, YOffsetPercent: offset}, field)
			default:
				return fmt.Errorf("invalid --sizing %q (must be auto or manual)", sizing)
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.Blurb(box, safe, c))
			if !safe {
				return fmt.Errorf("no blurb box fits above the barcode on a %s trim", trim)
			}
			return nil
		},
	}

	cmd.Flags().String("trim", "6x9", "Trim size in inches")
	cmd.Flags().String("sizing", string(coverformat.SizingAuto), "auto or manual")
	cmd.Flags().Float64("height", 40, "Box height, percent of trim height")
	cmd.Flags().Float64("offset", coverformat.DefaultBlurbYOffset, "Vertical offset, percent (manual only)")
	cmd.Flags().String("edited", string(layout.FieldHeight), "Field the user changed: height or yOffset (manual only)")
	return cmd
}

func newSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <project.cover>",
		Short: "Queue an export on a cover server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := readCLIOptions(cmd); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read project: %w", err)
			}
			// Fail early on a project the server would reject
			if _, err := coverformat.Parse(data); err != nil {
				return err
			}

			formatName, _ := cmd.Flags().GetString("format")
			if _, err := export.ParseFormat(formatName); err != nil {
				return err
			}
			dpi, _ := cmd.Flags().GetFloat64("dpi")

			client := newClient(cmd)
			jobID, err := client.Submit(cmd.Context(), data, formatName, dpi)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.SuccessStyle.Render("✓ Queued export "+jobID))
			return nil
		},
	}

	addServerFlag(cmd)
	cmd.Flags().StringP("format", "f", "png", "Output format: png or pdf")
	cmd.Flags().Float64("dpi", 0, "Output resolution (default: the server's)")
	return cmd
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show export jobs on a cover server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := readCLIOptions(cmd); err != nil {
				return err
			}
			client := newClient(cmd)
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				list, err := client.Jobs(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, report.Jobs(list))
				return nil
			}

			job, err := client.Job(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, report.Job(job))

			download, _ := cmd.Flags().GetString("download")
			if download == "" {
				return nil
			}
			data, name, err := client.File(cmd.Context(), job.ID)
			if err != nil {
				return err
			}
			if info, err := os.Stat(download); err == nil && info.IsDir() {
				download = filepath.Join(download, name)
			}
			if err := os.WriteFile(download, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", download, err)
			}
			fmt.Fprintln(out, report.SuccessStyle.Render(fmt.Sprintf("✓ Saved %s", download)))
			return nil
		},
	}

	addServerFlag(cmd)
	cmd.Flags().StringP("download", "d", "", "Save the finished file to this path or directory")
	return cmd
}

func addServerFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("server", "s", defaultServerURL, "Server URL")
	cmd.Flags().Duration("timeout", 2*time.Minute, "Request timeout")
}

func newClient(cmd *cobra.Command) *client {
	serverURL, _ := cmd.Flags().GetString("server")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return newHTTPClient(serverURL, timeout)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, report.ErrorStyle.Render("✗ "+err.Error()))
		os.Exit(1)
	}
}
