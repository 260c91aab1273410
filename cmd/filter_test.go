package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func resetFilterFlags(t *testing.T) {
	t.Helper()
	orig := struct {
		exclude, include, force, quality []string
		total, perGroup                  int
		groupBy                          []string
	}{filterExclude, filterInclude, filterForceInclude, filterQuality, filterTotal, filterPerGroup, filterGroupBy}
	t.Cleanup(func() {
		filterExclude, filterInclude, filterForceInclude = orig.exclude, orig.include, orig.force
		filterQuality = orig.quality
		filterTotal, filterPerGroup = orig.total, orig.perGroup
		filterGroupBy = orig.groupBy
	})
}

func TestBuildFilterOptions_QualitySpecs(t *testing.T) {
	resetFilterFlags(t)
	filterQuality = []string{"min:coverage=0.9", "max:missing=100"}

	opts, err := buildFilterOptions(filterCmd)
	require.NoError(t, err)
	assert.Equal(t, 0.9, opts.QualityThresholds["min:coverage"])
	assert.Equal(t, 100.0, opts.QualityThresholds["max:missing"])
}

func TestBuildFilterOptions_BadQualitySpec(t *testing.T) {
	resetFilterFlags(t)

	filterQuality = []string{"min:coverage"}
	_, err := buildFilterOptions(filterCmd)
	assert.Error(t, err)

	filterQuality = []string{"min:coverage=high"}
	_, err = buildFilterOptions(filterCmd)
	assert.Error(t, err)
}

func TestBuildFilterOptions_IDFileUnion(t *testing.T) {
	resetFilterFlags(t)
	a := writeTempFile(t, "a.txt", "s1\ns2\n")
	b := writeTempFile(t, "b.txt", "s2\ns3\n")
	filterExclude = []string{a, b}

	opts, err := buildFilterOptions(filterCmd)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"s1": true, "s2": true, "s3": true}, opts.ExcludeIDs)
}

func TestBuildFilterOptions_MissingIDFile(t *testing.T) {
	resetFilterFlags(t)
	filterInclude = []string{"/nonexistent/ids.txt"}

	_, err := buildFilterOptions(filterCmd)
	assert.Error(t, err)
}

func TestOpenSource_DispatchesOnExtension(t *testing.T) {
	path := writeTempFile(t, "meta.tsv", "strain\ns1\n")

	src, err := openSource(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "strain", src.IDColumn())

	_, err = openSource(filepath.Join(t.TempDir(), "missing.xlsx"), nil)
	assert.Error(t, err)
}
