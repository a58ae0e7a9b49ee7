package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"newsmask/internal/config"
	"newsmask/internal/dataset"
	"newsmask/internal/logger"
	"newsmask/internal/masking"
	"newsmask/internal/models"
	"newsmask/internal/sink"
	"newsmask/internal/stats"
	"newsmask/pkg/metadata"
)

// ErrUnknownSplit is returned when a split name is not in the config.
var ErrUnknownSplit = errors.New("unknown split")

// SplitReport describes the outcome of one split.
type SplitReport struct {
	Split    string
	Input    int
	Written  int
	Skipped  int
	Path     string
	Duration time.Duration
	Stats    stats.Summary
	Manifest *metadata.Manifest
}

// Runner executes the batch pass over the configured splits.
type Runner struct {
	cfg       *config.Config
	log       *logger.Logger
	loader    *dataset.Loader
	writer    sink.Writer
	engine    *masking.Engine
	processor *Processor
}

// NewRunner wires the tokenizer, engine, loader and sink from cfg.
func NewRunner(cfg *config.Config, log *logger.Logger) (*Runner, error) {
	if log == nil {
		log = logger.Discard()
	}

	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create masking engine: %w", err)
	}

	writer, err := sink.New(cfg)
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:       cfg,
		log:       log,
		loader:    dataset.NewLoader(cfg, log.With("component", "loader")),
		writer:    writer,
		engine:    engine,
		processor: NewProcessor(engine),
	}, nil
}

// Run processes every enabled split in config order.
func (r *Runner) Run(ctx context.Context) ([]SplitReport, error) {
	splits := r.cfg.GetEnabledSplits()
	reports := make([]SplitReport, 0, len(splits))

	for _, split := range splits {
		report, err := r.RunSplit(ctx, split)
		if err != nil {
			r.log.Error("Split failed", "split", split.Name, "error", err)

			return reports, err
		}

		reports = append(reports, report)
	}

	return reports, nil
}

// RunNamed processes a single split by name, enabled or not.
func (r *Runner) RunNamed(ctx context.Context, name string) (SplitReport, error) {
	split, ok := r.cfg.GetSplit(name)
	if !ok {
		return SplitReport{}, fmt.Errorf("%w: %s", ErrUnknownSplit, name)
	}

	return r.RunSplit(ctx, split)
}

// RunSplit loads, masks, writes and signs one split.
func (r *Runner) RunSplit(ctx context.Context, cfg config.SplitConfig) (SplitReport, error) {
	start := time.Now()
	log := r.log.With("split", cfg.Name)

	log.Info("Processing split", "sources", len(cfg.GetSources()), "format", cfg.Format)

	split, err := r.loader.Load(ctx, cfg)
	if err != nil {
		return SplitReport{}, err
	}

	records, examples, skipped, err := r.MaskSplit(ctx, split)
	if err != nil {
		return SplitReport{}, fmt.Errorf("split %s: %w", cfg.Name, err)
	}

	for i := 0; i < len(records) && i < r.cfg.Logging.SampleRecords; i++ {
		log.Debug("Sample record", "id", records[i].ID,
			"masked_article", records[i].MaskedArticle, "answer", records[i].Answer)
	}

	summary := stats.Summarize(examples)

	path, err := r.writer.Write(ctx, cfg.Name, records)
	if err != nil {
		return SplitReport{}, err
	}

	report := SplitReport{
		Split:    cfg.Name,
		Input:    len(split.Records),
		Written:  len(records),
		Skipped:  skipped,
		Path:     path,
		Duration: time.Since(start),
		Stats:    summary,
	}

	if r.cfg.Output.WriteManifest {
		m, err := metadata.Sign(path, metadata.Manifest{
			Split:     cfg.Name,
			Format:    r.outputFormat(),
			Records:   len(records),
			Seed:      r.cfg.Advanced.Seed,
			Tokenizer: r.tokenizerKind(),
			Policy:    policyManifest(r.engine.Policy(), r.engine.Delimiters()),
		})
		if err != nil {
			return SplitReport{}, fmt.Errorf("failed to sign %s: %w", path, err)
		}

		report.Manifest = &m
	}

	log.Timed("Split written", start, append([]any{"path", path, "skipped", skipped}, summary.LogArgs()...)...)

	return report, nil
}

// Preview masks the first limit records of a split without writing anything.
// Each record uses the same random source as in a full run.
func (r *Runner) Preview(ctx context.Context, name string, limit int) ([]models.Record, error) {
	cfg, ok := r.cfg.GetSplit(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSplit, name)
	}

	split, err := r.loader.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if limit > 0 && limit < len(split.Records) {
		split.Records = split.Records[:limit]
	}

	records, _, _, err := r.MaskSplit(ctx, split)

	return records, err
}

// MaskSplit masks every record of split on a bounded worker pool. Records keep
// their input order. Invalid records are skipped when the config allows it and
// abort the split otherwise; masking errors always abort.
func (r *Runner) MaskSplit(ctx context.Context, split models.Split) ([]models.Record, []models.MaskedExample, int, error) {
	n := len(split.Records)
	out := make([]models.Record, n)
	examples := make([]models.MaskedExample, n)
	ok := make([]bool, n)

	var skipped atomic.Int64

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError().WithMaxGoroutines(r.workers())

	for i := range split.Records {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			rec := split.Records[i]
			rng := RecordRand(r.cfg.Advanced.Seed, split.Name, i)

			masked, ex, err := r.processor.Process(rng, rec)
			if err != nil {
				if errors.Is(err, ErrInvalidRecord) && r.cfg.Advanced.ContinueOnValidationErrors {
					skipped.Add(1)
					r.log.Warn("Skipping invalid record", "split", split.Name, "index", i, "id", rec.ID, "error", err)

					return nil
				}

				return fmt.Errorf("record %d (%s): %w", i, rec.ID, err)
			}

			out[i] = masked
			examples[i] = ex
			ok[i] = true

			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, nil, 0, err
	}

	records := make([]models.Record, 0, n)
	kept := make([]models.MaskedExample, 0, n)

	for i := range out {
		if ok[i] {
			records = append(records, out[i])
			kept = append(kept, examples[i])
		}
	}

	return records, kept, int(skipped.Load()), nil
}

func (r *Runner) workers() int {
	if r.cfg.Advanced.Workers > 0 {
		return r.cfg.Advanced.Workers
	}

	return runtime.GOMAXPROCS(0)
}

func (r *Runner) outputFormat() string {
	if r.cfg.Output.Format == "" {
		return "json"
	}

	return r.cfg.Output.Format
}

func (r *Runner) tokenizerKind() string {
	if r.cfg.Tokenizer.Kind == "" {
		return "grapheme"
	}

	return r.cfg.Tokenizer.Kind
}
