package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phylo-tools/strainfilter/internal/model"
)

func mustDate(t *testing.T, raw string) DateValue {
	t.Helper()
	dv, err := ParseDate(raw)
	require.NoError(t, err)
	return dv
}

func TestGroupResolver_ImplicitGroup(t *testing.T) {
	r := NewGroupResolver(nil)
	key, reason := r.Resolve(rec("a", nil), DateValue{})
	assert.Equal(t, model.GroupKey("all"), key)
	assert.Empty(t, reason)
}

func TestGroupResolver_LiteralColumns(t *testing.T) {
	r := NewGroupResolver([]string{"region", "host"})
	key, reason := r.Resolve(rec("a", map[string]string{"region": "Europe", "host": "human"}), DateValue{})
	require.Empty(t, reason)
	assert.Equal(t, "Europe / human", key.Display())
}

func TestGroupResolver_LiteralMissingValueIsItsOwnGroup(t *testing.T) {
	r := NewGroupResolver([]string{"region"})
	key, reason := r.Resolve(rec("a", nil), DateValue{})
	require.Empty(t, reason)
	assert.Equal(t, model.MakeGroupKey([]string{""}), key)
}

func TestGroupResolver_YearMonth(t *testing.T) {
	r := NewGroupResolver([]string{"year"})
	key, reason := r.Resolve(rec("a", nil), mustDate(t, "2021-03-15"))
	require.Empty(t, reason)
	assert.Equal(t, "2021", key.Display())

	r = NewGroupResolver([]string{"month"})
	key, reason = r.Resolve(rec("a", nil), mustDate(t, "2021-03-15"))
	require.Empty(t, reason)
	assert.Equal(t, "2021-03", key.Display())
}

func TestGroupResolver_Week(t *testing.T) {
	r := NewGroupResolver([]string{"week"})
	// 2021-01-04 is the Monday of ISO week 1, 2021.
	key, reason := r.Resolve(rec("a", nil), mustDate(t, "2021-01-04"))
	require.Empty(t, reason)
	assert.Equal(t, "2021-W01", key.Display())
}

func TestGroupResolver_AmbiguousComponents(t *testing.T) {
	// Known year, unknown month: usable for year grouping only. A known day
	// under an unknown month does not rescue month or week grouping.
	dv := mustDate(t, "2021-XX-05")

	_, reason := NewGroupResolver([]string{"year"}).Resolve(rec("a", nil), dv)
	assert.Empty(t, reason)

	_, reason = NewGroupResolver([]string{"month"}).Resolve(rec("a", nil), dv)
	assert.Equal(t, model.DropAmbiguousMonth, reason)

	_, reason = NewGroupResolver([]string{"week"}).Resolve(rec("a", nil), dv)
	assert.Equal(t, model.DropAmbiguousMonth, reason)

	_, reason = NewGroupResolver([]string{"year"}).Resolve(rec("a", nil), mustDate(t, "XXXX-05-01"))
	assert.Equal(t, model.DropAmbiguousYear, reason)

	_, reason = NewGroupResolver([]string{"week"}).Resolve(rec("a", nil), mustDate(t, "2021-05-XX"))
	assert.Equal(t, model.DropAmbiguousDay, reason)
}

func TestGroupResolver_MixedLiteralAndSynthetic(t *testing.T) {
	r := NewGroupResolver([]string{"region", "month"})
	key, reason := r.Resolve(rec("a", map[string]string{"region": "Asia"}), mustDate(t, "2021-07-01"))
	require.Empty(t, reason)
	assert.Equal(t, "Asia / 2021-07", key.Display())
}
