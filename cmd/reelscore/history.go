package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/reelscore/report"
	"github.com/use-agent/reelscore/store"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs or re-export one of them",
	Long: `Without an argument, lists the most recent runs of the history
database. With a run id, writes that run's report in --format to
--output, or to stdout if --output is not given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.String("store", "", "SQLite file holding the run history")
	f.StringP("output", "o", "-", "report path when exporting a run")
	f.StringP("format", "f", "", "report format when exporting a run")
	f.Int("limit", 20, "number of runs to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"store.path":    "store",
		"report.format": "format",
	})
	if err != nil {
		return err
	}
	if cfg.Store.Path == "" {
		return errors.New("no history database: set --store or store.path")
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 0 {
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
		return printRuns(cmd, runs)
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}
	rep, err := st.LoadRun(cmd.Context(), id)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "-" {
		return report.Write(cfg.Report.Format, cmd.OutOrStdout(), rep)
	}
	return report.WriteFile(output, cfg.Report.Format, rep)
}

func printRuns(cmd *cobra.Command, runs []store.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tORIGIN\tTITLES\tIMDB\tRT\tOUTPUT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Origin,
			r.Total,
			r.FetchedIMDb,
			r.FetchedRT,
			r.Output,
		)
	}
	return tw.Flush()
}
