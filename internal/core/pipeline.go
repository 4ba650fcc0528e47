package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/chatmerge/internal/logging"
	"github.com/google/uuid"
)

// PipelineConfig holds the tunables of a Pipeline.
type PipelineConfig struct {
	// MaxSourceSize caps each source in bytes (default: DefaultMaxSourceSize).
	MaxSourceSize int64
}

// Pipeline runs the read, normalize, merge and filter steps over a
// caller-owned list of sources. It holds no per-run state and is safe to
// share between goroutines.
type Pipeline struct {
	opener Opener
	cfg    PipelineConfig
}

// NewPipeline creates a Pipeline that resolves sources through opener.
func NewPipeline(opener Opener, cfg PipelineConfig) *Pipeline {
	if cfg.MaxSourceSize <= 0 {
		cfg.MaxSourceSize = DefaultMaxSourceSize
	}
	return &Pipeline{opener: opener, cfg: cfg}
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID    string
	Timeline *Timeline // every record that survived, in order
	View     *View     // Timeline narrowed by the requested users
	Skipped  []Skip
	Sources  []SourceReport
	Dropped  int // records dropped for unparseable timestamps
	Duration time.Duration
}

// Failed returns the reports of sources that could not be read.
func (r *Result) Failed() []SourceReport {
	var out []SourceReport
	for _, s := range r.Sources {
		if !s.OK() {
			out = append(out, s)
		}
	}
	return out
}

// SkippedOf returns the skipped entries of the given kind.
func (r *Result) SkippedOf(kind SkipKind) []Skip {
	var out []Skip
	for _, s := range r.Skipped {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// Run processes sources one at a time, merges the records of every source
// that could be read and applies the users filter.
//
// No failure in a single source or row aborts the run. The returned Result
// is always non-nil; when nothing survived, Run also returns ErrEmptyResult
// so callers can show "no data to display". A run whose context ends early
// returns ErrMergeInterrupted wrapping the context error instead.
func (p *Pipeline) Run(ctx context.Context, sources []SourceDescriptor, users []string) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	ctx = logging.ContextWithRunID(ctx, runID)
	logger := logging.FromContext(ctx)

	logger.Info("merge started", "sources", len(sources), "users", len(users))

	res := &Result{
		RunID:   runID,
		Sources: make([]SourceReport, 0, len(sources)),
	}

	sets := make([][]Record, 0, len(sources))
	locators := make([]string, 0, len(sources))
	lines := make([][]int, 0, len(sources))

	for _, desc := range sources {
		if ctx.Err() != nil {
			break
		}
		norm, err := p.processSource(ctx, desc)
		if err != nil {
			logger.Warn("source skipped", "source", desc.Locator, "channel", desc.Channel, "error", err)
			res.Sources = append(res.Sources, SourceReport{
				Locator: desc.Locator,
				Channel: desc.Channel,
				Err:     err.Error(),
			})
			res.Skipped = append(res.Skipped, Skip{
				Kind:    SkipSourceUnavailable,
				Source:  desc.Locator,
				Channel: desc.Channel,
				Reason:  err.Error(),
			})
			continue
		}

		if norm.Report.Malformed > 0 || norm.Report.Irregular > 0 {
			logger.Info("source normalized with issues",
				"source", desc.Locator,
				"malformed", norm.Report.Malformed,
				"irregular", norm.Report.Irregular,
			)
		}

		res.Sources = append(res.Sources, norm.Report)
		res.Skipped = append(res.Skipped, norm.Skipped...)
		sets = append(sets, norm.Records)
		locators = append(locators, desc.Locator)
		lines = append(lines, norm.Lines)
	}

	merged := mergeLabeled(sets, locators, lines)
	res.Timeline = merged.Timeline
	res.Dropped = merged.Dropped
	res.Skipped = append(res.Skipped, merged.Skipped...)
	res.View = res.Timeline.Filter(users)
	res.Duration = time.Since(start)

	logger.Info("merge finished",
		"records", res.Timeline.Len(),
		"selected", res.View.Len(),
		"dropped", res.Dropped,
		"skipped", len(res.Skipped),
		"duration_ms", res.Duration.Milliseconds(),
	)

	// sources cut short by the deadline are not source failures
	if err := ctx.Err(); err != nil {
		logger.Warn("merge interrupted", "error", err)
		return res, fmt.Errorf("%w: %w", ErrMergeInterrupted, err)
	}
	if res.Timeline.Len() == 0 {
		return res, ErrEmptyResult
	}
	return res, nil
}

// processSource reads and normalizes one descriptor.
func (p *Pipeline) processSource(ctx context.Context, desc SourceDescriptor) (Normalized, error) {
	if desc.Channel == "" {
		return Normalized{}, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, desc.Locator, ErrMissingChannel)
	}

	rows, err := ReadSource(ctx, p.opener, desc, p.cfg.MaxSourceSize)
	if err != nil {
		return Normalized{}, err
	}

	firstLine := 1
	if desc.HasHeader {
		firstLine = 2
	}
	return Normalize(desc, rows, firstLine), nil
}

// IsEmptyResult reports whether err signals a run with no surviving records.
func IsEmptyResult(err error) bool {
	return errors.Is(err, ErrEmptyResult)
}
