package filter

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func keptIDs(s *Selector) []string {
	kept := s.Kept()
	sort.Slice(kept, func(i, j int) bool { return kept[i].seq < kept[j].seq })
	ids := make([]string, len(kept))
	for i, c := range kept {
		ids[i] = c.id
	}
	return ids
}

func TestSelector_ZeroQuotaDropsEverything(t *testing.T) {
	s := NewSelector(0)
	s.Add("a", 0, 0.5)
	s.Add("b", 1, 0.9)

	assert.Empty(t, s.Kept())
	assert.Equal(t, 2, s.Dropped())
}

func TestSelector_UnderQuotaKeepsAll(t *testing.T) {
	s := NewSelector(5)
	s.Add("a", 0, 0.1)
	s.Add("b", 1, 0.2)

	assert.ElementsMatch(t, []string{"a", "b"}, keptIDs(s))
	assert.Zero(t, s.Dropped())
}

func TestSelector_KeepsHighestPriorities(t *testing.T) {
	s := NewSelector(2)
	s.Add("low", 0, 0.1)
	s.Add("high", 1, 0.9)
	s.Add("mid", 2, 0.5)
	s.Add("highest", 3, 0.95)

	assert.ElementsMatch(t, []string{"high", "highest"}, keptIDs(s))
	assert.Equal(t, 2, s.Dropped())
}

func TestSelector_TieBrokenByEarlierPosition(t *testing.T) {
	s := NewSelector(1)
	s.Add("first", 3, 0.5)
	s.Add("second", 7, 0.5)

	assert.Equal(t, []string{"first"}, keptIDs(s))

	// Same candidates in the opposite arrival order select the same record.
	s = NewSelector(1)
	s.Add("second", 7, 0.5)
	s.Add("first", 3, 0.5)

	assert.Equal(t, []string{"first"}, keptIDs(s))
}

func TestSelector_DroppedCountsEveryRejection(t *testing.T) {
	s := NewSelector(2)
	for i := 0; i < 10; i++ {
		s.Add("x", i, float64(i))
	}
	assert.Equal(t, 8, s.Dropped())
	assert.Len(t, s.Kept(), 2)
}
