package filter

import (
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"
)

// maxAllocationAttempts bounds the probabilistic-allocation retry loop.
// Attempt k draws from an RNG seeded by (seed, k), so retries are themselves
// deterministic under a fixed seed.
const maxAllocationAttempts = 10

// Allocation is the allocator's result: one quota per group, in the same
// (first-seen) order as the size vector it was computed from. Quotas are
// immutable once computed and never exceed the group's population.
type Allocation struct {
	Quotas        []int   `json:"quotas"`
	Probabilistic bool    `json:"probabilistic"`
	PerGroup      float64 `json:"per_group"`
	Attempts      int     `json:"attempts,omitempty"`
}

// Total sums the per-group quotas.
func (a Allocation) Total() int {
	n := 0
	for _, q := range a.Quotas {
		n += q
	}
	return n
}

// AllocateExact assigns a fixed per-group keep-count, capped at each group's
// population. No randomness is involved.
func AllocateExact(sizes []int, perGroup int) Allocation {
	quotas := make([]int, len(sizes))
	for i, n := range sizes {
		quotas[i] = min(n, perGroup)
	}
	return Allocation{Quotas: quotas, PerGroup: float64(perGroup)}
}

// AllocateTotal spreads a target total across the realized groups.
//
// When base = total/len(sizes) is at least one and every group can supply
// base records, the allocation is purely deterministic: base per group, with
// the remainder going to the first groups in first-seen order. The summed
// quota then never exceeds the target.
//
// Otherwise allocation is probabilistic: each group's quota is the fractional
// per-group share resolved by stochastic rounding from a seeded stream,
// capped at the group's population. A draw in which every group rounds to
// zero is retried with an advanced seed; if the retry ceiling is exhausted
// while a nonzero result is feasible, ErrAllocationExhausted is returned.
func AllocateTotal(sizes []int, total int, seed int64) (Allocation, error) {
	g := len(sizes)
	if g == 0 {
		return Allocation{}, nil
	}

	base := total / g
	remainder := total % g

	if base >= 1 && minSize(sizes) >= base {
		quotas := make([]int, g)
		for i, n := range sizes {
			quotas[i] = base
			if i < remainder {
				quotas[i] = min(n, base+1)
			}
		}
		return Allocation{Quotas: quotas, PerGroup: float64(base)}, nil
	}

	perGroup := float64(total) / float64(g)
	frac := perGroup - math.Floor(perGroup)
	whole := int(math.Floor(perGroup))

	feasible := min(total, sumSizes(sizes))

	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(attempt)))

		quotas := make([]int, g)
		sum := 0
		for i, n := range sizes {
			q := whole
			if rng.Float64() < frac {
				q++
			}
			q = min(q, n)
			quotas[i] = q
			sum += q
		}

		if sum > 0 || feasible == 0 {
			return Allocation{
				Quotas:        quotas,
				Probabilistic: true,
				PerGroup:      perGroup,
				Attempts:      attempt,
			}, nil
		}
	}

	return Allocation{}, eris.Wrapf(ErrAllocationExhausted,
		"allocate: no draw produced output in %d attempts (target %d across %d groups)",
		maxAllocationAttempts, total, g)
}

func minSize(sizes []int) int {
	m := sizes[0]
	for _, n := range sizes[1:] {
		if n < m {
			m = n
		}
	}
	return m
}

func sumSizes(sizes []int) int {
	s := 0
	for _, n := range sizes {
		s += n
	}
	return s
}
