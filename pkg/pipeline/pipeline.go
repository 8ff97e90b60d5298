// Package pipeline wires the reader, parser, classifier, and aggregator
// into a single-pass analysis run.
//
// Data flows strictly left to right: reader -> parser -> classifier ->
// aggregator. Each parallel worker owns a private accumulator; a final
// merge combines them, so no locking happens on the hot path.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/schedlens/schedlens/internal/model"
	"github.com/schedlens/schedlens/pkg/aggregate"
	"github.com/schedlens/schedlens/pkg/classify"
	"github.com/schedlens/schedlens/pkg/parser"
	"github.com/schedlens/schedlens/pkg/reader"
	"github.com/schedlens/schedlens/pkg/telemetry"
)

// Range filters events to [From, To) in log time units.
type Range struct {
	From int64
	To   int64
}

// Contains reports whether ts falls inside the range.
func (r Range) Contains(ts int64) bool {
	return ts >= r.From && ts < r.To
}

// Config controls one analysis run.
type Config struct {
	// SourcePath is the log source ("-" for stdin, .gz supported).
	SourcePath string

	// RunID identifies the run in logs, checkpoints, and the store.
	// Empty generates a random ID.
	RunID string

	// Parser is the line grammar.
	Parser parser.Config

	// BucketWidth for trend aggregation, in log time units.
	BucketWidth int64

	// Workers sets the number of parse/classify/aggregate workers.
	// Values below 2 run sequentially.
	Workers int

	// BufferSize is the channel buffer between reader and workers.
	BufferSize int

	// OpenTimeout bounds how long opening the source may block before
	// the run fails with SourceUnavailable. Zero disables the bound.
	OpenTimeout time.Duration

	// TimeFilter, when non-nil, drops events outside the range before
	// aggregation (they still count as parsed).
	TimeFilter *Range

	// RetainEvents keeps the classified event sequence on the result
	// for drill-down storage. Off by default: aggregation alone does
	// not require retention.
	RetainEvents bool

	// OnProgress, when set, is invoked periodically with the number of
	// lines read so far.
	OnProgress func(linesRead int64)
}

// Result is the outcome of one analysis run.
type Result struct {
	RunID     string
	Source    string
	Metrics   *aggregate.Metrics
	Events    []*model.TaskEvent
	StartedAt time.Time
	Elapsed   time.Duration
}

// Pipeline executes analysis runs.
type Pipeline struct {
	cfg   Config
	rules *classify.Ruleset
	par   *parser.Parser
	log   zerolog.Logger
}

// progressEvery is the line interval between OnProgress callbacks.
const progressEvery = 10_000

// New creates a pipeline. The ruleset is supplied by the caller;
// classification rules are configuration, never hard-coded here.
func New(cfg Config, rules *classify.Ruleset, log zerolog.Logger) (*Pipeline, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 4096
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	par, err := parser.New(cfg.Parser)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, rules: rules, par: par, log: log}, nil
}

// Run opens the configured source and analyzes it. Only source-level
// failures are returned as errors; per-line failures are counted in
// the metrics.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	r, cleanup, err := reader.OpenSourceTimeout(p.cfg.SourcePath, p.cfg.OpenTimeout)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return p.RunReader(ctx, r)
}

// RunReader analyzes an already-open source.
func (p *Pipeline) RunReader(ctx context.Context, r io.Reader) (*Result, error) {
	started := time.Now()
	runID := p.cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	tracer := telemetry.Tracer("schedlens/pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.run")
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.Int("workers", p.cfg.Workers),
	)
	defer span.End()

	p.log.Info().
		Str("run_id", runID).
		Str("source", p.cfg.SourcePath).
		Int("workers", p.cfg.Workers).
		Msg("analysis started")

	type rawLine struct {
		text string
		n    int64
	}

	lines := make(chan rawLine, p.cfg.BufferSize)
	shards := make([]*aggregate.Metrics, p.cfg.Workers)
	retained := make([][]*model.TaskEvent, p.cfg.Workers)

	g, ctx := errgroup.WithContext(ctx)

	// Reader stage: lazy line iteration, cancellation at line
	// granularity.
	g.Go(func() error {
		defer close(lines)
		scanner := reader.NewLineScanner(r, 0)
		for {
			text, n, err := scanner.Next(ctx)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case lines <- rawLine{text: text, n: n}:
			case <-ctx.Done():
				return ctx.Err()
			}
			if p.cfg.OnProgress != nil && n%progressEvery == 0 {
				p.cfg.OnProgress(n)
			}
		}
	})

	// Worker stages: parse, classify, and fold into a private shard.
	// No worker reads another's accumulator before the merge.
	for i := 0; i < p.cfg.Workers; i++ {
		i := i
		shards[i] = aggregate.New(p.cfg.BucketWidth)
		g.Go(func() error {
			m := shards[i]
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					event, perr := p.par.ParseLine(line.text, line.n)
					switch {
					case perr != nil:
						m.ObserveLine(false)
						m.AddParseError(perr.Reason)
					case event == nil:
						m.ObserveLine(true)
					default:
						m.ObserveLine(false)
						if p.cfg.TimeFilter != nil && !p.cfg.TimeFilter.Contains(event.Timestamp) {
							m.ObserveFiltered()
							continue
						}
						p.rules.Apply(event)
						m.Add(event)
						if p.cfg.RetainEvents {
							retained[i] = append(retained[i], event)
						}
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	// Merge shard accumulators: pointwise sums, buckets aligned by key.
	metrics := shards[0]
	for _, shard := range shards[1:] {
		if err := metrics.Merge(shard); err != nil {
			return nil, err
		}
	}

	var events []*model.TaskEvent
	if p.cfg.RetainEvents {
		for _, part := range retained {
			events = append(events, part...)
		}
	}

	elapsed := time.Since(started)
	p.log.Info().
		Str("run_id", runID).
		Int64("lines", metrics.LinesRead).
		Int64("events", metrics.Total).
		Int64("rejected", metrics.ParseErrors).
		Dur("elapsed", elapsed).
		Msg("analysis finished")

	return &Result{
		RunID:     runID,
		Source:    p.cfg.SourcePath,
		Metrics:   metrics,
		Events:    events,
		StartedAt: started,
		Elapsed:   elapsed,
	}, nil
}
