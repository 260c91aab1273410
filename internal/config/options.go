package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalid is the root of all configuration errors. Invalid or
// contradictory options are fatal and reported before any record is
// streamed.
var ErrInvalid = eris.New("invalid configuration")

// EmptyOutputPolicy decides how a run with an empty kept set ends.
type EmptyOutputPolicy string

const (
	EmptyOutputFail  EmptyOutputPolicy = "fail"
	EmptyOutputWarn  EmptyOutputPolicy = "warn"
	EmptyOutputAllow EmptyOutputPolicy = "allow"
)

// Synthetic date-derived grouping columns.
const (
	GroupByYear  = "year"
	GroupByMonth = "month"
	GroupByWeek  = "week"
)

// FilterOptions carries the per-run options of one filtering invocation.
// Identifier sets are plain membership maps; a nil or empty IncludeIDs means
// no inclusion list is enforced.
type FilterOptions struct {
	// Grouping columns: metadata column names or the synthetic year/month/
	// week columns derived from DateColumn.
	GroupBy []string `json:"group_by,omitempty"`

	// Target total output size, spread across the realized groups.
	// Mutually exclusive with SubsamplePerGroup. Zero means unset.
	SubsampleTotal int `json:"subsample_total,omitempty"`

	// Fixed keep-count per group. Zero means unset.
	SubsamplePerGroup int `json:"subsample_per_group,omitempty"`

	// Seed makes subsampling reproducible. Seeded records whether the user
	// supplied one; an unseeded run is internally consistent but not
	// reproducible.
	Seed   int64 `json:"seed,omitempty"`
	Seeded bool  `json:"seeded,omitempty"`

	// Date bounds, in the same grammar the date column uses (a partial bound
	// such as "2020" is widened to the full period it names).
	MinDate string `json:"min_date,omitempty"`
	MaxDate string `json:"max_date,omitempty"`

	ExcludeIDs      map[string]bool `json:"exclude_ids,omitempty"`
	IncludeIDs      map[string]bool `json:"include_ids,omitempty"`
	ForceIncludeIDs map[string]bool `json:"force_include_ids,omitempty"`

	// Query is an ad-hoc boolean expression evaluated per record.
	Query string `json:"query,omitempty"`

	// QualityThresholds maps "min:<column>" or "max:<column>" to a numeric
	// bound on that column's value.
	QualityThresholds map[string]float64 `json:"quality_thresholds,omitempty"`

	// DateColumn names the metadata column holding collection dates.
	DateColumn string `json:"date_column,omitempty"`

	EmptyOutput EmptyOutputPolicy `json:"empty_output,omitempty"`

	// CacheDecisions keeps pass-1 verdicts in memory for reuse in pass 2,
	// trading O(records) memory for skipping re-evaluation.
	CacheDecisions bool `json:"cache_decisions,omitempty"`
}

// IsSynthetic reports whether a grouping column is date-derived.
func IsSynthetic(column string) bool {
	switch column {
	case GroupByYear, GroupByMonth, GroupByWeek:
		return true
	}
	return false
}

// Subsampling reports whether any subsample mode is configured.
func (o *FilterOptions) Subsampling() bool {
	return o.SubsampleTotal > 0 || o.SubsamplePerGroup > 0
}

// NeedsDate reports whether dates participate in this run, either through
// bounds or through date-derived grouping.
func (o *FilterOptions) NeedsDate() bool {
	if o.MinDate != "" || o.MaxDate != "" {
		return true
	}
	for _, col := range o.GroupBy {
		if IsSynthetic(col) {
			return true
		}
	}
	return false
}

// Validate rejects invalid or contradictory options. It is called once,
// before any streaming begins; every failure wraps ErrInvalid.
func (o *FilterOptions) Validate() error {
	if o.SubsampleTotal > 0 && o.SubsamplePerGroup > 0 {
		return eris.Wrap(ErrInvalid, "config: subsample_total and subsample_per_group are mutually exclusive")
	}
	if o.SubsampleTotal < 0 || o.SubsamplePerGroup < 0 {
		return eris.Wrap(ErrInvalid, "config: subsample counts must be positive")
	}
	if len(o.GroupBy) > 0 && !o.Subsampling() {
		return eris.Wrap(ErrInvalid, "config: group_by requires subsample_total or subsample_per_group")
	}

	seen := make(map[string]bool, len(o.GroupBy))
	for _, col := range o.GroupBy {
		if col == "" {
			return eris.Wrap(ErrInvalid, "config: empty group_by column")
		}
		if seen[col] {
			return eris.Wrapf(ErrInvalid, "config: duplicate group_by column %q", col)
		}
		seen[col] = true
	}

	switch o.EmptyOutput {
	case "", EmptyOutputFail, EmptyOutputWarn, EmptyOutputAllow:
	default:
		return eris.Wrapf(ErrInvalid, "config: unknown empty-output policy %q", o.EmptyOutput)
	}

	for key := range o.QualityThresholds {
		kind, column, ok := strings.Cut(key, ":")
		if !ok || column == "" || (kind != "min" && kind != "max") {
			return eris.Wrapf(ErrInvalid, "config: quality threshold key %q (want min:<column> or max:<column>)", key)
		}
	}

	if o.DateColumn == "" && o.NeedsDate() {
		return eris.Wrap(ErrInvalid, "config: date filters or grouping configured without a date column")
	}

	return nil
}
