package filter

import (
	"sort"

	"github.com/phylo-tools/strainfilter/internal/model"
)

// keptRecord pairs a kept identifier with its input-stream position so the
// final output can be emitted in input order.
type keptRecord struct {
	id  string
	seq int
}

// Aggregator accumulates the observable outcome of a run across both
// streaming passes: per-reason drop counts, per-group statistics, and the
// kept identifiers. It is scoped to a single run and must not be touched
// after Finalize.
type Aggregator struct {
	total      int
	forced     int
	drops      map[model.DropReason]int
	groupOrder []model.GroupKey
	groupIdx   map[model.GroupKey]int
	population []int
	quotas     []int
	keptByGrp  []int
	kept       []keptRecord
	finalized  bool
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		drops:    make(map[model.DropReason]int),
		groupIdx: make(map[model.GroupKey]int),
	}
}

// ObserveRecord counts one input record (called once per record in pass 1).
func (a *Aggregator) ObserveRecord() {
	a.total++
}

// Drop records one dropped record under the given reason.
func (a *Aggregator) Drop(reason model.DropReason) {
	a.drops[reason]++
}

// Group tallies a record into its group, registering the group in first-seen
// order, and returns the group's index.
func (a *Aggregator) Group(key model.GroupKey) int {
	idx, ok := a.groupIdx[key]
	if !ok {
		idx = len(a.groupOrder)
		a.groupIdx[key] = idx
		a.groupOrder = append(a.groupOrder, key)
		a.population = append(a.population, 0)
	}
	a.population[idx]++
	return idx
}

// GroupIndex returns the index of an already-registered group, or -1.
func (a *Aggregator) GroupIndex(key model.GroupKey) int {
	if idx, ok := a.groupIdx[key]; ok {
		return idx
	}
	return -1
}

// Populations returns the per-group population vector in first-seen order.
// The slice is the aggregator's own; callers must not mutate it.
func (a *Aggregator) Populations() []int {
	return a.population
}

// SetQuotas records the allocator's result.
func (a *Aggregator) SetQuotas(quotas []int) {
	a.quotas = quotas
	a.keptByGrp = make([]int, len(quotas))
}

// Keep marks a record as kept. groupIdx is -1 for force-included records,
// which belong to no group.
func (a *Aggregator) Keep(id string, seq, groupIdx int) {
	a.kept = append(a.kept, keptRecord{id: id, seq: seq})
	if groupIdx >= 0 && groupIdx < len(a.keptByGrp) {
		a.keptByGrp[groupIdx]++
	}
}

// KeepForced marks a force-included record as kept.
func (a *Aggregator) KeepForced(id string, seq int) {
	a.forced++
	a.Keep(id, seq, -1)
}

// DropSubsampled counts records dropped because their group's quota was
// exceeded.
func (a *Aggregator) DropSubsampled(n int) {
	a.drops[model.DropSubsampling] += n
}

// Finalize assembles the immutable outcome: kept ids sorted back into input
// order plus the accumulated statistics. The aggregator must not be used
// afterwards.
func (a *Aggregator) Finalize(seed int64, seeded, probabilistic bool) *model.Outcome {
	a.finalized = true

	sort.Slice(a.kept, func(i, j int) bool { return a.kept[i].seq < a.kept[j].seq })
	ids := make([]string, len(a.kept))
	for i, k := range a.kept {
		ids[i] = k.id
	}

	drops := make(map[model.DropReason]int, len(a.drops))
	for r, c := range a.drops {
		if c > 0 {
			drops[r] = c
		}
	}

	var groups []model.GroupStat
	for i, key := range a.groupOrder {
		gs := model.GroupStat{
			Key:        key.Display(),
			Population: a.population[i],
		}
		if i < len(a.quotas) {
			gs.Quota = a.quotas[i]
		}
		if i < len(a.keptByGrp) {
			gs.Kept = a.keptByGrp[i]
		}
		groups = append(groups, gs)
	}

	return &model.Outcome{
		Kept:          ids,
		DropCounts:    drops,
		Groups:        groups,
		TotalRecords:  a.total,
		ForceIncluded: a.forced,
		Probabilistic: probabilistic,
		Seed:          seed,
		Seeded:        seeded,
	}
}
