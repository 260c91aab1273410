// Package model defines the core value types shared across the filtering
// pipeline: records, drop reasons, group keys, and run outcomes.
package model

import "strings"

// Record is one row of sample metadata: a unique identifier plus a read-only
// mapping from column name to raw string value. Seq is the record's position
// in the input stream (0-based), used for deterministic tie-breaking.
type Record struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
	Seq    int               `json:"seq"`
}

// Get returns the raw value of a column, or "" if the column is absent.
func (r Record) Get(column string) string {
	return r.Fields[column]
}

// DropReason classifies why a record did not survive a run. Every dropped
// record carries exactly one reason.
type DropReason string

const (
	DropMalformedDate  DropReason = "malformed-date"
	DropExcluded       DropReason = "exclusion-list"
	DropNotIncluded    DropReason = "inclusion-mismatch"
	DropDateBounds     DropReason = "date-bounds"
	DropQuery          DropReason = "query-predicate"
	DropQuality        DropReason = "quality-threshold"
	DropAmbiguousYear  DropReason = "ambiguous-date-year"
	DropAmbiguousMonth DropReason = "ambiguous-date-month"
	DropAmbiguousDay   DropReason = "ambiguous-date-day"
	DropSubsampling    DropReason = "subsampling-quota-exceeded"
)

// GroupKey is the composite key of the grouping columns' values. Component
// values are joined with an ASCII unit separator so literal column values
// cannot collide across positions.
type GroupKey string

// keySep separates group key components.
const keySep = "\x1f"

// MakeGroupKey builds a GroupKey from ordered component values.
func MakeGroupKey(parts []string) GroupKey {
	return GroupKey(strings.Join(parts, keySep))
}

// Display renders the key for reports, joining components with " / ".
func (k GroupKey) Display() string {
	return strings.Join(strings.Split(string(k), keySep), " / ")
}
