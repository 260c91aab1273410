package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorePolicy_MissingRanksLast(t *testing.T) {
	p := NewScorePolicy(map[string]float64{"a": 2.5})

	assert.Equal(t, 2.5, p.Priority("a"))
	assert.True(t, math.IsInf(p.Priority("unknown"), -1))
}

func TestUniformPolicy_Deterministic(t *testing.T) {
	p := NewUniformPolicy(42)
	assert.Equal(t, p.Priority("sample-1"), p.Priority("sample-1"))
}

func TestUniformPolicy_IndependentOfOtherRecords(t *testing.T) {
	// A record's priority is a pure function of (seed, id), so it is the
	// same no matter which other records exist.
	a := NewUniformPolicy(42).Priority("sample-1")

	p := NewUniformPolicy(42)
	p.Priority("sample-9")
	p.Priority("sample-8")
	assert.Equal(t, a, p.Priority("sample-1"))
}

func TestUniformPolicy_SeedChangesValues(t *testing.T) {
	a := NewUniformPolicy(1).Priority("sample-1")
	b := NewUniformPolicy(2).Priority("sample-1")
	assert.NotEqual(t, a, b)
}

func TestUniformPolicy_InUnitInterval(t *testing.T) {
	p := NewUniformPolicy(7)
	for _, id := range []string{"a", "b", "c", "long-identifier/2021|x"} {
		v := p.Priority(id)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}
