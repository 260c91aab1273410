package filter

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate_Complete(t *testing.T) {
	dv, err := ParseDate("2021-03-15")
	require.NoError(t, err)
	assert.Equal(t, 2021, dv.Year)
	assert.Equal(t, 3, dv.Month)
	assert.Equal(t, 15, dv.Day)
	assert.True(t, dv.YearKnown)
	assert.True(t, dv.MonthKnown)
	assert.True(t, dv.DayKnown)
}

func TestParseDate_YearOnly(t *testing.T) {
	dv, err := ParseDate("2020")
	require.NoError(t, err)
	assert.True(t, dv.YearKnown)
	assert.False(t, dv.MonthKnown)
	assert.False(t, dv.DayKnown)
}

func TestParseDate_Placeholders(t *testing.T) {
	dv, err := ParseDate("2021-XX-XX")
	require.NoError(t, err)
	assert.True(t, dv.YearKnown)
	assert.False(t, dv.MonthKnown)
	assert.False(t, dv.DayKnown)

	dv, err = ParseDate("20XX-05-01")
	require.NoError(t, err)
	assert.False(t, dv.YearKnown)
}

func TestParseDate_AmbiguityPropagatesRightward(t *testing.T) {
	// A known day under an unknown month is still unusable.
	dv, err := ParseDate("2021-XX-05")
	require.NoError(t, err)
	assert.True(t, dv.YearKnown)
	assert.False(t, dv.MonthKnown)
	assert.False(t, dv.DayKnown)
}

func TestParseDate_Malformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"not-a-date",
		"2021-13",
		"2021-00",
		"2021-02-32",
		"21000",
		"2021-03-15-09",
		"2021/03/15",
	} {
		_, err := ParseDate(raw)
		assert.True(t, eris.Is(err, ErrMalformedDate), "expected malformed date for %q", raw)
	}
}

func TestParseDate_MixedTokenIsAmbiguous(t *testing.T) {
	dv, err := ParseDate("2021-1X")
	require.NoError(t, err)
	assert.True(t, dv.YearKnown)
	assert.False(t, dv.MonthKnown)
}

func TestDateValue_EarliestLatest(t *testing.T) {
	dv, err := ParseDate("2021-02")
	require.NoError(t, err)

	earliest, ok := dv.Earliest()
	require.True(t, ok)
	assert.Equal(t, time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC), earliest)

	latest, ok := dv.Latest()
	require.True(t, ok)
	assert.Equal(t, time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC), latest)
}

func TestDateValue_YearOnlyRange(t *testing.T) {
	dv, err := ParseDate("2020")
	require.NoError(t, err)

	earliest, _ := dv.Earliest()
	latest, _ := dv.Latest()
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), earliest)
	assert.Equal(t, time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), latest)
}

func TestDateValue_UnknownYearHasNoRealization(t *testing.T) {
	dv, err := ParseDate("XXXX-05-01")
	require.NoError(t, err)

	_, ok := dv.Earliest()
	assert.False(t, ok)
	_, ok = dv.Latest()
	assert.False(t, ok)
}

func TestDateValue_Usable(t *testing.T) {
	dv, err := ParseDate("2021-03-15")
	require.NoError(t, err)
	assert.True(t, dv.YearUsable())
	assert.True(t, dv.MonthUsable())
	assert.True(t, dv.WeekUsable())

	dv, err = ParseDate("2021-03")
	require.NoError(t, err)
	assert.True(t, dv.MonthUsable())
	assert.False(t, dv.WeekUsable())
}
