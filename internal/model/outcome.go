package model

import "time"

// GroupStat summarizes one group after selection.
type GroupStat struct {
	Key        string `json:"key" yaml:"key"`
	Population int    `json:"population" yaml:"population"`
	Quota      int    `json:"quota" yaml:"quota"`
	Kept       int    `json:"kept" yaml:"kept"`
}

// Outcome is the finalized result of a filtering run: the ordered kept
// identifiers (input-stream order), per-reason drop counts, and per-group
// statistics. Immutable once returned by the aggregator.
type Outcome struct {
	Kept          []string           `json:"kept" yaml:"kept"`
	DropCounts    map[DropReason]int `json:"drop_counts" yaml:"drop_counts"`
	Groups        []GroupStat        `json:"groups,omitempty" yaml:"groups,omitempty"`
	TotalRecords  int                `json:"total_records" yaml:"total_records"`
	ForceIncluded int                `json:"force_included" yaml:"force_included"`
	Probabilistic bool               `json:"probabilistic" yaml:"probabilistic"`
	Seed          int64              `json:"seed" yaml:"seed"`
	Seeded        bool               `json:"seeded" yaml:"seeded"`
}

// TotalDropped sums drops across all reasons.
func (o *Outcome) TotalDropped() int {
	n := 0
	for _, c := range o.DropCounts {
		n += c
	}
	return n
}

// RunStatus represents the state of a persisted filtering run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// FilterRun is a persisted record of one filtering run: the input, a snapshot
// of the options it ran with, and its outcome.
type FilterRun struct {
	ID          string     `json:"id"`
	Metadata    string     `json:"metadata"`
	Options     []byte     `json:"options,omitempty"`
	Status      RunStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	Outcome     *Outcome   `json:"outcome,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
