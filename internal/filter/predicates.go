package filter

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/phylo-tools/strainfilter/internal/config"
	"github.com/phylo-tools/strainfilter/internal/model"
)

// QueryEvaluator is the external ad-hoc predicate capability: a compiled
// boolean expression applied to one record at a time.
type QueryEvaluator interface {
	Match(rec model.Record) bool
}

// Verdict is the pipeline's classification of a single record. Exactly one
// of the following holds: the record passed, the record passed because it is
// force-included (Forced), or the record failed with a single Reason.
//
// When the pipeline parsed the record's date, Date/DateOK carry the result so
// downstream grouping does not parse twice.
type Verdict struct {
	Pass   bool
	Forced bool
	Reason model.DropReason
	Date   DateValue
	DateOK bool
}

// qualityCheck is one numeric bound on a metadata column, built from a
// "min:<column>" or "max:<column>" threshold key.
type qualityCheck struct {
	column string
	isMin  bool
	bound  float64
}

// Pipeline applies the configured predicates to records in a fixed order,
// short-circuiting at the first failure so each dropped record carries
// exactly one reason:
//
//  1. force-include override (accepted immediately, tagged Forced)
//  2. malformed date (only when dates participate in filtering or grouping)
//  3. exclusion by identifier
//  4. inclusion mismatch (when an include list is configured)
//  5. date-range bounds
//  6. ad-hoc query predicate
//  7. quality thresholds
//
// Force-include is evaluated first so that a record on both the exclusion and
// force-include lists is kept.
type Pipeline struct {
	force      map[string]bool
	exclude    map[string]bool
	include    map[string]bool
	dateColumn string
	needsDate  bool
	minDate    *time.Time
	maxDate    *time.Time
	query      QueryEvaluator
	quality    []qualityCheck
}

// NewPipeline builds the predicate pipeline from validated options. The query
// evaluator may be nil (no query predicate); minDate/maxDate are the bound
// realizations already resolved by the engine. needsDate forces per-record
// date parsing even without bounds, for date-derived grouping.
func NewPipeline(opts *config.FilterOptions, query QueryEvaluator, minDate, maxDate *time.Time, needsDate bool) *Pipeline {
	p := &Pipeline{
		force:      opts.ForceIncludeIDs,
		exclude:    opts.ExcludeIDs,
		include:    opts.IncludeIDs,
		dateColumn: opts.DateColumn,
		needsDate:  needsDate || minDate != nil || maxDate != nil,
		minDate:    minDate,
		maxDate:    maxDate,
		query:      query,
	}

	// Quality checks run in sorted key order so evaluation order is stable.
	keys := make([]string, 0, len(opts.QualityThresholds))
	for k := range opts.QualityThresholds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		kind, column, ok := strings.Cut(k, ":")
		if !ok {
			continue // rejected earlier by FilterOptions.Validate
		}
		p.quality = append(p.quality, qualityCheck{
			column: column,
			isMin:  kind == "min",
			bound:  opts.QualityThresholds[k],
		})
	}

	return p
}

func failed(reason model.DropReason) Verdict {
	return Verdict{Reason: reason}
}

// Eval classifies one record. It never mutates the record; counting drop
// reasons is the caller's concern.
func (p *Pipeline) Eval(rec model.Record) Verdict {
	if p.force[rec.ID] {
		return Verdict{Pass: true, Forced: true}
	}

	var v Verdict
	if p.needsDate {
		dv, err := ParseDate(rec.Get(p.dateColumn))
		if err != nil {
			return failed(model.DropMalformedDate)
		}
		v.Date, v.DateOK = dv, true
	}

	if p.exclude[rec.ID] {
		return failed(model.DropExcluded)
	}

	if len(p.include) > 0 && !p.include[rec.ID] {
		return failed(model.DropNotIncluded)
	}

	if p.minDate != nil || p.maxDate != nil {
		if !p.inBounds(v.Date) {
			return failed(model.DropDateBounds)
		}
	}

	if p.query != nil && !p.query.Match(rec) {
		return failed(model.DropQuery)
	}

	for _, q := range p.quality {
		if !q.check(rec) {
			return failed(model.DropQuality)
		}
	}

	v.Pass = true
	return v
}

// inBounds reports whether the date could fall inside the configured range.
// A record whose year is unknown has no usable realization and never passes
// configured bounds, matching the "earlier than min_date or missing a date"
// behavior of the original min/max filters.
func (p *Pipeline) inBounds(dv DateValue) bool {
	latest, ok := dv.Latest()
	if !ok {
		return false
	}
	earliest, _ := dv.Earliest()

	if p.minDate != nil && latest.Before(*p.minDate) {
		return false
	}
	if p.maxDate != nil && earliest.After(*p.maxDate) {
		return false
	}
	return true
}

// check applies one numeric bound. A column value that does not parse as a
// number fails the check: a record that cannot demonstrate the required
// quality does not pass it.
func (q qualityCheck) check(rec model.Record) bool {
	val, err := strconv.ParseFloat(strings.TrimSpace(rec.Get(q.column)), 64)
	if err != nil {
		return false
	}
	if q.isMin {
		return val >= q.bound
	}
	return val <= q.bound
}
