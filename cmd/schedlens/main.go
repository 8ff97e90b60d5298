// SchedLens - scheduler log analyzer.
// Parses scheduler logs, classifies tasks as scheduled or unscheduled,
// and assembles structured reports for external renderers.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/schedlens/schedlens/pkg/checkpoint"
	"github.com/schedlens/schedlens/pkg/classify"
	"github.com/schedlens/schedlens/pkg/config"
	"github.com/schedlens/schedlens/pkg/export"
	"github.com/schedlens/schedlens/pkg/logx"
	"github.com/schedlens/schedlens/pkg/pipeline"
	"github.com/schedlens/schedlens/pkg/report"
	"github.com/schedlens/schedlens/pkg/snapshot"
	"github.com/schedlens/schedlens/pkg/store"
	"github.com/schedlens/schedlens/pkg/telemetry"
	"github.com/schedlens/schedlens/pkg/tui"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	inputFile    string
	configFile   string
	rulesFile    string
	bucketWidth  int64
	workers      int
	fromTS       int64
	toTS         int64
	snapshotsDir string
	xlsxOut      string
	jsonOut      string
	quiet        bool
	verbose      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "schedlens",
	Short: "SchedLens - scheduler log analysis and reporting",
	Long: `SchedLens parses scheduler log output, classifies each task as
scheduled or unscheduled against an ordered ruleset, aggregates
per-task and per-period statistics, and assembles a structured report
combining computed tables and chart data with externally captured
dashboard imagery.`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a scheduler log and render the report",
	Long: `Analyze a scheduler log file and print the assembled report.

Supports reading from stdin using "-" as the input path and
gzip-compressed sources by file suffix.

Examples:
  schedlens analyze -i scheduler.log
  schedlens analyze -i scheduler.log.gz --bucket-width 3600
  schedlens analyze -i scheduler.log --rules rules.yaml --workers 4
  schedlens analyze -i scheduler.log --from 1700000000 --to 1700086400
  cat scheduler.log | schedlens analyze -i -
  schedlens analyze -i scheduler.log --xlsx report.xlsx --json report.json`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (merged over defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress terminal report output")

	for _, cmd := range []*cobra.Command{analyzeCmd, watchCmd, scheduleCmd} {
		cmd.Flags().StringVarP(&inputFile, "input", "i", "", "scheduler log file (- for stdin)")
		cmd.Flags().StringVar(&rulesFile, "rules", "", "classification ruleset YAML")
		cmd.Flags().Int64Var(&bucketWidth, "bucket-width", 0, "trend bucket width in log time units")
		cmd.Flags().IntVar(&workers, "workers", 0, "parallel aggregation workers")
		cmd.Flags().Int64Var(&fromTS, "from", 0, "drop events before this timestamp")
		cmd.Flags().Int64Var(&toTS, "to", 0, "drop events at or after this timestamp")
		cmd.Flags().StringVar(&snapshotsDir, "snapshots", "", "directory of captured dashboard images")
		cmd.Flags().StringVar(&xlsxOut, "xlsx", "", "write the report workbook to this path")
		cmd.Flags().StringVar(&jsonOut, "json", "", "write the report sections as JSON to this path")
		cmd.MarkFlagRequired("input")
	}

	rootCmd.AddCommand(analyzeCmd, watchCmd, scheduleCmd, rulesCmd, historyCmd)
}

// loadConfig resolves layered configuration plus flag overrides.
func loadConfig() (*config.Config, error) {
	mgr := config.NewManager()
	if err := mgr.Load(); err != nil {
		return nil, err
	}
	if configFile != "" {
		if err := mgr.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	cfg := mgr.Get()

	if rulesFile != "" {
		cfg.Classifier.RulesPath = rulesFile
	}
	if bucketWidth > 0 {
		cfg.Aggregation.BucketWidth = bucketWidth
	}
	if workers > 0 {
		cfg.Pipeline.Workers = workers
	}
	if snapshotsDir != "" {
		cfg.Snapshots.Dir = snapshotsDir
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) zerolog.Logger {
	return logx.New(cfg.Logging.Level, true, os.Stderr)
}

// loadRuleset loads the configured ruleset, falling back to the
// built-in reference rules.
func loadRuleset(cfg *config.Config) (*classify.Ruleset, error) {
	if cfg.Classifier.RulesPath == "" {
		return classify.Default(), nil
	}
	return classify.LoadFile(cfg.Classifier.RulesPath)
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// timeFilter builds the optional event time filter from flags.
func timeFilter() *pipeline.Range {
	if fromTS == 0 && toTS == 0 {
		return nil
	}
	to := toTS
	if to == 0 {
		to = math.MaxInt64
	}
	return &pipeline.Range{From: fromTS, To: to}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	if cfg.Telemetry.Enabled {
		tcfg := telemetry.DefaultConfig("schedlens", version)
		tcfg.Endpoint = cfg.Telemetry.Endpoint
		shutdown, err := telemetry.Init(ctx, tcfg)
		if err != nil {
			log.Warn().Err(err).Msg("telemetry disabled")
		} else {
			defer shutdown(context.Background())
		}
	}

	_, err = analyzeOnce(ctx, cfg, log)
	return err
}

// analyzeOnce runs the full pipeline once and handles report fan-out.
// Shared by analyze, watch, and schedule.
func analyzeOnce(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pipeline.Result, error) {
	rules, err := loadRuleset(cfg)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	pcfg := pipeline.Config{
		SourcePath:   inputFile,
		RunID:        runID,
		Parser:       cfg.Parser,
		BucketWidth:  cfg.Aggregation.BucketWidth,
		Workers:      cfg.Pipeline.Workers,
		BufferSize:   cfg.Pipeline.BufferSize,
		OpenTimeout:  cfg.Pipeline.OpenTimeout.Std(),
		TimeFilter:   timeFilter(),
		RetainEvents: cfg.Store.Database != "",
	}

	var bar *progressbar.ProgressBar
	if !quiet {
		bar = tui.NewProgress("analyzing")
	}

	var cpStore checkpoint.Store
	if cfg.Checkpoint.Enabled {
		cpStore, err = newCheckpointStore(ctx, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("checkpointing disabled")
			cpStore = nil
		}
	}

	// Checkpoint lifecycle: in-progress at start, line counts updated
	// as the run advances, completed or failed at the end.
	var cp *checkpoint.Checkpoint
	if cpStore != nil {
		cp = &checkpoint.Checkpoint{
			RunID:      runID,
			SourcePath: inputFile,
			Status:     checkpoint.StatusInProgress,
			StartedAt:  time.Now(),
		}
		if err := cpStore.Save(ctx, cp); err != nil {
			log.Warn().Err(err).Msg("checkpoint save failed")
		}
	}

	if bar != nil || cp != nil {
		pcfg.OnProgress = func(lines int64) {
			if bar != nil {
				bar.Set64(lines)
			}
			if cp != nil {
				cp.LinesRead = lines
				cpStore.Save(ctx, cp)
			}
		}
	}

	p, err := pipeline.New(pcfg, rules, log)
	if err != nil {
		return nil, err
	}

	result, err := p.Run(ctx)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		if cp != nil {
			cp.Status = checkpoint.StatusFailed
			cp.Error = err.Error()
			if serr := cpStore.Save(context.Background(), cp); serr != nil {
				log.Warn().Err(serr).Msg("checkpoint save failed")
			}
		}
		return nil, err
	}

	if cp != nil {
		cp.LinesRead = result.Metrics.LinesRead
		cp.Events = result.Metrics.Total
		cp.Rejected = result.Metrics.ParseErrors
		cp.Status = checkpoint.StatusCompleted
		if err := cpStore.Save(ctx, cp); err != nil {
			log.Warn().Err(err).Msg("checkpoint save failed")
		}
	}

	snaps, err := snapshot.LoadDir(cfg.Snapshots.Dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.Snapshots.Dir).Msg("snapshot load failed")
	}

	sections := report.NewAssembler().Assemble(result.Metrics, snaps)

	if !quiet {
		tui.RenderSections(sections)
	}

	var artifacts []string
	if xlsxOut != "" {
		if err := export.WriteXLSX(sections, xlsxOut); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, xlsxOut)
	}
	if jsonOut != "" {
		if err := export.WriteJSON(sections, jsonOut); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, jsonOut)
	}

	if cfg.Store.Database != "" {
		db, err := store.Open(cfg.Store.Database)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		if err := db.RecordRun(ctx, result.RunID, result.Source,
			result.StartedAt, result.Metrics, result.Events); err != nil {
			return nil, err
		}
		log.Info().Str("db", cfg.Store.Database).Msg("run recorded")
	}

	if cfg.Upload.Enabled && len(artifacts) > 0 {
		up, err := store.NewUploader(ctx, store.UploaderConfig{
			Bucket:    cfg.Upload.Bucket,
			Prefix:    cfg.Upload.Prefix,
			Region:    cfg.Upload.Region,
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		})
		if err != nil {
			return nil, err
		}
		for _, a := range artifacts {
			key, err := up.UploadFile(ctx, a)
			if err != nil {
				return nil, err
			}
			log.Info().Str("key", key).Msg("artifact uploaded")
		}
	}

	if !quiet {
		tui.Success(fmt.Sprintf("run %s: %d events from %d lines",
			result.RunID, result.Metrics.Total, result.Metrics.LinesRead))
	}
	return result, nil
}

// newCheckpointStore builds the configured checkpoint backend.
func newCheckpointStore(ctx context.Context, cfg *config.Config) (checkpoint.Store, error) {
	switch cfg.Checkpoint.Backend {
	case "redis":
		return checkpoint.NewRedisStore(ctx, cfg.Checkpoint.Redis.Addr, cfg.Checkpoint.Redis.DB)
	default:
		return checkpoint.NewFileStore(cfg.Checkpoint.Dir)
	}
}
