// Package filter implements the record filtering and group-balanced
// subsampling engine: a predicate pipeline and group resolver folded over the
// input stream (pass 1), a quota allocator over the realized group sizes, and
// a per-group priority selection fed by a second traversal (pass 2).
package filter

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/phylo-tools/strainfilter/internal/config"
	"github.com/phylo-tools/strainfilter/internal/metadata"
	"github.com/phylo-tools/strainfilter/internal/model"
)

// decision is a cached pass-1 classification, reused in pass 2 when decision
// caching is enabled. Indexed by the record's stream sequence.
type decision struct {
	pass    bool
	forced  bool
	grouped bool
	group   model.GroupKey
	reason  model.DropReason
}

// Engine runs one filtering invocation over a metadata source. It is built
// for a single Run call; all mutable state lives in the run.
type Engine struct {
	opts     *config.FilterOptions
	source   metadata.Source
	query    QueryEvaluator
	priority PriorityPolicy

	seed     int64
	pipeline *Pipeline
	resolver *GroupResolver
}

// NewEngine validates the options against the source header and prepares the
// pipeline. All configuration errors surface here, before any record is
// streamed. query may be nil (no ad-hoc predicate); priority may be nil
// (uniform seeded policy).
func NewEngine(opts *config.FilterOptions, source metadata.Source, query QueryEvaluator, priority PriorityPolicy) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	columns := make(map[string]bool, len(source.Columns()))
	for _, c := range source.Columns() {
		columns[c] = true
	}
	for _, col := range opts.GroupBy {
		if !config.IsSynthetic(col) && !columns[col] {
			return nil, eris.Wrapf(config.ErrInvalid, "filter: group_by column %q not in metadata", col)
		}
	}
	if opts.NeedsDate() && !columns[opts.DateColumn] {
		return nil, eris.Wrapf(config.ErrInvalid, "filter: date column %q not in metadata", opts.DateColumn)
	}

	minDate, err := parseBound(opts.MinDate, false)
	if err != nil {
		return nil, err
	}
	maxDate, err := parseBound(opts.MaxDate, true)
	if err != nil {
		return nil, err
	}

	seed := opts.Seed
	if !opts.Seeded {
		// Unseeded runs are internally consistent (both passes and the
		// allocator share one seed) but not reproducible across runs.
		seed = time.Now().UnixNano()
	}
	if priority == nil {
		priority = NewUniformPolicy(seed)
	}

	dateGrouping := false
	for _, col := range opts.GroupBy {
		if config.IsSynthetic(col) {
			dateGrouping = true
		}
	}

	return &Engine{
		opts:     opts,
		source:   source,
		query:    query,
		priority: priority,
		seed:     seed,
		pipeline: NewPipeline(opts, query, minDate, maxDate, dateGrouping),
		resolver: NewGroupResolver(opts.GroupBy),
	}, nil
}

// parseBound widens a partial bound to the edge of the period it names: a
// min bound of "2020" means 2020-01-01, a max bound of "2020" means
// 2020-12-31. A bound with an unknown year is contradictory.
func parseBound(raw string, isMax bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	dv, err := ParseDate(raw)
	if err != nil {
		return nil, eris.Wrapf(config.ErrInvalid, "filter: date bound %q: %v", raw, err)
	}

	var t time.Time
	var ok bool
	if isMax {
		t, ok = dv.Latest()
	} else {
		t, ok = dv.Earliest()
	}
	if !ok {
		return nil, eris.Wrapf(config.ErrInvalid, "filter: date bound %q has no usable year", raw)
	}
	return &t, nil
}

// Run executes the two-pass fold and returns the finalized outcome. The
// outcome is populated even when the empty-output policy makes the run fail;
// only configuration and allocation errors return a nil outcome.
func (e *Engine) Run(ctx context.Context) (*model.Outcome, error) {
	agg := NewAggregator()

	var cache []decision
	if e.opts.CacheDecisions {
		cache = make([]decision, 0, 1024)
	}

	log := zap.L()
	subsampling := e.opts.Subsampling()

	// Pass 1: classify every record, tally group populations.
	progress := rate.Sometimes{Interval: 2 * time.Second}
	recCh, errCh := e.source.Stream(ctx)
	for rec := range recCh {
		agg.ObserveRecord()
		progress.Do(func() {
			log.Info("filter: pass 1", zap.Int("records", rec.Seq+1))
		})

		d := e.classify(rec)
		if e.opts.CacheDecisions {
			cache = append(cache, d)
		}

		switch {
		case d.forced:
			agg.KeepForced(rec.ID, rec.Seq)
		case !d.pass:
			agg.Drop(d.reason)
		case !subsampling:
			agg.Keep(rec.ID, rec.Seq, -1)
		case d.grouped:
			agg.Group(d.group)
		}
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "filter: pass 1")
	}

	if !subsampling {
		return e.finish(agg, Allocation{})
	}

	// Allocate quotas from the realized group sizes.
	sizes := agg.Populations()
	var alloc Allocation
	if e.opts.SubsamplePerGroup > 0 {
		alloc = AllocateExact(sizes, e.opts.SubsamplePerGroup)
	} else {
		var err error
		alloc, err = AllocateTotal(sizes, e.opts.SubsampleTotal, e.seed)
		if err != nil {
			return nil, err
		}
	}
	agg.SetQuotas(alloc.Quotas)

	if alloc.Probabilistic {
		log.Info("filter: sampling probabilistically",
			zap.Float64("per_group", alloc.PerGroup),
			zap.Int("groups", len(sizes)),
			zap.Int("attempt", alloc.Attempts))
	} else if len(sizes) > 0 {
		log.Info("filter: sampling evenly",
			zap.Float64("per_group", alloc.PerGroup),
			zap.Int("groups", len(sizes)))
	}

	// Pass 2: feed surviving records into their group's selector.
	selectors := make([]*Selector, len(alloc.Quotas))
	for i, q := range alloc.Quotas {
		selectors[i] = NewSelector(q)
	}

	progress = rate.Sometimes{Interval: 2 * time.Second}
	recCh, errCh = e.source.Stream(ctx)
	for rec := range recCh {
		progress.Do(func() {
			log.Info("filter: pass 2", zap.Int("records", rec.Seq+1))
		})

		var d decision
		if e.opts.CacheDecisions && rec.Seq < len(cache) {
			d = cache[rec.Seq]
		} else {
			d = e.classify(rec)
		}
		if !d.grouped {
			continue
		}

		idx := agg.GroupIndex(d.group)
		if idx < 0 {
			continue // group unseen in pass 1: source violated restartability
		}
		selectors[idx].Add(rec.ID, rec.Seq, e.priority.Priority(rec.ID))
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "filter: pass 2")
	}

	for i, sel := range selectors {
		for _, c := range sel.Kept() {
			agg.Keep(c.id, c.seq, i)
		}
		agg.DropSubsampled(sel.Dropped())
		selectors[i] = nil // release the group's working set
	}

	return e.finish(agg, alloc)
}

// classify runs the pipeline and, for passing records under subsampling, the
// group resolver.
func (e *Engine) classify(rec model.Record) decision {
	v := e.pipeline.Eval(rec)
	d := decision{pass: v.Pass, forced: v.Forced}
	if v.Forced || !v.Pass {
		d.reason = v.Reason
		return d
	}
	if !e.opts.Subsampling() {
		return d
	}

	key, reason := e.resolver.Resolve(rec, v.Date)
	if reason != "" {
		d.pass = false
		d.reason = reason
		return d
	}
	d.grouped = true
	d.group = key
	return d
}

// finish finalizes the outcome and applies the empty-output policy.
func (e *Engine) finish(agg *Aggregator, alloc Allocation) (*model.Outcome, error) {
	outcome := agg.Finalize(e.seed, e.opts.Seeded, alloc.Probabilistic)

	if len(outcome.Kept) == 0 {
		switch e.opts.EmptyOutput {
		case config.EmptyOutputWarn:
			zap.L().Warn("filter: all records were dropped; check filters and metadata format")
		case config.EmptyOutputAllow:
		default: // fail
			return outcome, eris.Wrap(ErrEmptyOutput, "filter: empty kept set")
		}
	}

	return outcome, nil
}
