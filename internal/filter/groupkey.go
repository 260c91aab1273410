package filter

import (
	"fmt"
	"time"

	"github.com/phylo-tools/strainfilter/internal/config"
	"github.com/phylo-tools/strainfilter/internal/model"
)

// implicitGroup is the single group all passing records share when no
// grouping columns are configured but a total subsample target is. It cannot
// collide with a literal key because it is only used when no grouping
// columns exist.
const implicitGroup = model.GroupKey("all")

// GroupResolver derives a composite group key from the configured grouping
// columns for records that already passed the predicate pipeline. Literal
// columns use the raw value unconditionally; the synthetic year/month/week
// columns require the corresponding date components to be known.
type GroupResolver struct {
	columns []string
}

// NewGroupResolver builds a resolver for the configured grouping columns.
// An empty column list resolves every record to the implicit group.
func NewGroupResolver(columns []string) *GroupResolver {
	return &GroupResolver{columns: columns}
}

// Resolve computes the record's group key. When a date-derived column's
// components are ambiguous, the record is excluded from all grouping and the
// reason names the most demanding missing component: an unknown year blocks
// year/month/week, a known year with unknown month blocks month/week, and a
// missing day blocks only week.
func (g *GroupResolver) Resolve(rec model.Record, dv DateValue) (model.GroupKey, model.DropReason) {
	if len(g.columns) == 0 {
		return implicitGroup, ""
	}

	parts := make([]string, 0, len(g.columns))
	for _, col := range g.columns {
		switch col {
		case config.GroupByYear:
			if !dv.YearUsable() {
				return "", model.DropAmbiguousYear
			}
			parts = append(parts, fmt.Sprintf("%04d", dv.Year))
		case config.GroupByMonth:
			if !dv.YearUsable() {
				return "", model.DropAmbiguousYear
			}
			if !dv.MonthUsable() {
				return "", model.DropAmbiguousMonth
			}
			parts = append(parts, fmt.Sprintf("%04d-%02d", dv.Year, dv.Month))
		case config.GroupByWeek:
			if !dv.YearUsable() {
				return "", model.DropAmbiguousYear
			}
			if !dv.MonthUsable() {
				return "", model.DropAmbiguousMonth
			}
			if !dv.WeekUsable() {
				return "", model.DropAmbiguousDay
			}
			t := time.Date(dv.Year, time.Month(dv.Month), dv.Day, 0, 0, 0, 0, time.UTC)
			isoYear, isoWeek := t.ISOWeek()
			parts = append(parts, fmt.Sprintf("%04d-W%02d", isoYear, isoWeek))
		default:
			parts = append(parts, rec.Get(col))
		}
	}

	return model.MakeGroupKey(parts), ""
}
