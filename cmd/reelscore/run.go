package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/use-agent/reelscore/models"
	"github.com/use-agent/reelscore/pipeline"
	"github.com/use-agent/reelscore/report"
	"github.com/use-agent/reelscore/upload"
)

var runCmd = &cobra.Command{
	Use:   "run <titles-file>",
	Short: "Look up every title of a file and write the ratings report",
	Long: `Reads one title per line (or a YAML list) from <titles-file>, "-" for
stdin, looks each up on IMDb and Rotten Tomatoes and writes the report.

Lines that are blank or start with # are skipped; repeated titles are
looked up once. An interrupted run still writes what it collected.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringP("output", "o", "", "report path, - for stdout (default movie_ratings.csv)")
	f.StringP("format", "f", "", "report format: "+fmt.Sprint(report.Formats()))
	f.String("store", "", "SQLite file recording the run history")
	f.Bool("upload", false, "upload the report over SFTP when done")
	f.Duration("delay", 0, "minimum delay between two pages of the same site")
	f.String("imdb-mode", "", "IMDb fetch mode: http, browser or auto")
	f.String("rt-mode", "", "Rotten Tomatoes fetch mode: http, browser or auto")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"report.output":           "output",
		"report.format":           "format",
		"store.path":              "store",
		"scraper.page_delay":      "delay",
		"sources.imdb_fetch_mode": "imdb-mode",
		"sources.rt_fetch_mode":   "rt-mode",
	})
	if err != nil {
		return err
	}
	if _, err := report.Lookup(cfg.Report.Format); err != nil {
		return err
	}
	doUpload, _ := cmd.Flags().GetBool("upload")
	if doUpload && cfg.Report.Output == "-" {
		return errors.New("--upload needs a report file, not stdout")
	}

	titles, err := pipeline.LoadTitles(args[0])
	if err != nil {
		return err
	}
	if len(titles) == 0 {
		return fmt.Errorf("no titles in %s", args[0])
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, 0)
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("starting run",
		"titles", len(titles),
		"imdb_mode", cfg.Sources.IMDbFetchMode,
		"rt_mode", cfg.Sources.RTFetchMode,
		"output", cfg.Report.Output,
	)

	rep, runErr := a.runner.Run(ctx, titles, logProgress)
	if rep == nil {
		return runErr
	}
	if runErr != nil {
		slog.Warn("run interrupted, writing partial report",
			"done", len(rep.Movies),
			"total", len(titles),
			"error", runErr,
		)
	}

	// The report is written even after an interrupt.
	if err := report.WriteFile(cfg.Report.Output, cfg.Report.Format, rep); err != nil {
		return err
	}
	slog.Info("report written", "path", cfg.Report.Output, "format", cfg.Report.Format, "movies", len(rep.Movies))

	if a.store != nil {
		// The run context may be cancelled already.
		id, err := a.store.SaveRun(context.Background(), "cli", cfg.Report.Output, rep)
		if err != nil {
			slog.Warn("saving run history failed", "error", err)
		} else {
			slog.Info("run recorded", "id", id, "store", cfg.Store.Path)
		}
	}

	if doUpload && runErr == nil {
		remote, err := upload.File(ctx, cfg.SFTP, cfg.Report.Output)
		if err != nil {
			return fmt.Errorf("upload report: %w", err)
		}
		slog.Info("report uploaded", "host", cfg.SFTP.Host, "path", remote)
	}

	var out io.Writer = cmd.OutOrStdout()
	if cfg.Report.Output == "-" {
		out = cmd.ErrOrStderr()
	}
	if err := report.WriteSummary(out, rep.Summary); err != nil {
		return err
	}
	return runErr
}

// logProgress logs one line per finished title.
func logProgress(done, total int, movie models.Movie, outcome pipeline.Outcome) {
	attrs := []any{
		"done", done,
		"total", total,
		"title", movie.Title,
		"cached", outcome.Cached,
	}
	if outcome.IMDbErr != nil {
		attrs = append(attrs, "imdb_error", outcome.IMDbErr)
	}
	if outcome.RTErr != nil {
		attrs = append(attrs, "rt_error", outcome.RTErr)
	}
	slog.Info("title processed", attrs...)
}
