package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/schedlens/schedlens/pkg/classify"
	"github.com/schedlens/schedlens/pkg/store"
	"github.com/schedlens/schedlens/pkg/watch"
)

// Additional CLI flags
var (
	cronSpec     string
	historyLimit int
	historyRun   string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-analyze a log file whenever it changes",
	Long: `Watch a scheduler log file and re-run the analysis when it is
modified. Useful against a live log that the scheduler appends to.

Examples:
  schedlens watch -i scheduler.log
  schedlens watch -i scheduler.log --json latest.json`,
	RunE: runWatch,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the analysis on a cron schedule",
	Long: `Run the analysis periodically on a cron schedule, e.g. for a
daily report over yesterday's log.

Examples:
  schedlens schedule -i scheduler.log --cron "0 6 * * *"
  schedlens schedule -i scheduler.log --cron "@hourly" --xlsx report.xlsx`,
	RunE: runSchedule,
}

var rulesCmd = &cobra.Command{
	Use:   "rules [ruleset.yaml]",
	Short: "Validate a classification ruleset",
	Long: `Compile a ruleset file and print the rules in evaluation order.
Without an argument, shows the built-in reference ruleset.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRules,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent analysis runs from the drill-down store",
	Long: `List recent runs recorded in the drill-down store, or drill into
one run's per-task-type breakdown.

Examples:
  schedlens history
  schedlens history --limit 5
  schedlens history --run 4f1c2a9b`,
	RunE: runHistory,
}

func init() {
	scheduleCmd.Flags().StringVar(&cronSpec, "cron", "", "cron spec for recurring analysis")
	scheduleCmd.MarkFlagRequired("cron")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "show the per-task-type breakdown for one run")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	w, err := watch.New(inputFile)
	if err != nil {
		return err
	}
	w.OnChange = func(path string) error {
		log.Info().Str("path", path).Msg("source changed, re-analyzing")
		_, err := analyzeOnce(ctx, cfg, log)
		return err
	}
	w.OnError = func(path string, err error) {
		log.Error().Err(err).Str("path", path).Msg("watch error")
	}

	// Initial pass before waiting for changes.
	if _, err := analyzeOnce(ctx, cfg, log); err != nil {
		return err
	}

	log.Info().Str("path", inputFile).Msg("watching")
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	c := cron.New()
	_, err = c.AddFunc(cronSpec, func() {
		if _, err := analyzeOnce(ctx, cfg, log); err != nil {
			log.Error().Err(err).Msg("scheduled analysis failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", cronSpec, err)
	}

	log.Info().Str("cron", cronSpec).Str("source", inputFile).Msg("scheduler started")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func runRules(cmd *cobra.Command, args []string) error {
	var rs *classify.Ruleset
	var err error
	if len(args) == 1 {
		rs, err = classify.LoadFile(args[0])
		if err != nil {
			return err
		}
	} else {
		rs = classify.Default()
	}

	fmt.Printf("%d rules, evaluated first-match-wins:\n", rs.Len())
	for i, name := range rs.Names() {
		fmt.Printf("  %2d. %s\n", i+1, name)
	}
	fmt.Println("  --  no match -> unknown")
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Database == "" {
		return fmt.Errorf("no drill-down store configured (store.database)")
	}

	db, err := store.Open(cfg.Store.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if historyRun != "" {
		return printRunBreakdown(ctx, db, historyRun)
	}

	runs, err := db.RunHistory(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	tw := tabWriter(os.Stdout)
	fmt.Fprintln(tw, "RUN\tSOURCE\tSTARTED\tTOTAL\tSCHEDULED\tUNSCHEDULED\tUNKNOWN\tREJECTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			r.RunID[:8], r.Source, r.StartedAt.Format("2006-01-02 15:04"),
			r.Total, r.Scheduled, r.Unscheduled, r.Unknown, r.Rejected)
	}
	return tw.Flush()
}

// printRunBreakdown drills into one run's per-task-type status counts.
func printRunBreakdown(ctx context.Context, db *store.DB, runID string) error {
	counts, err := db.StatusByType(ctx, runID)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Printf("no retained events for run %s\n", runID)
		return nil
	}

	tw := tabWriter(os.Stdout)
	fmt.Fprintln(tw, "TYPE\tSTATUS\tCOUNT")
	for _, tc := range counts {
		label := tc.TaskType
		if label == "" {
			label = "(untyped)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", label, tc.Status, tc.Count)
	}
	return tw.Flush()
}

func tabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
