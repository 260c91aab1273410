// Package metadata supplies the record streams and auxiliary input files
// (identifier lists, priority scores) consumed by the filtering engine.
package metadata

import (
	"context"

	"github.com/phylo-tools/strainfilter/internal/model"
)

// DefaultIDColumns are the identifier column candidates checked in priority
// order when the caller does not name one.
var DefaultIDColumns = []string{"strain", "name"}

// Source is a lazy, finite stream of metadata records in a stable order. It
// must be restartable: Stream may be called once per pass, and every call
// yields the same records in the same order.
type Source interface {
	// Columns returns the header, in file order.
	Columns() []string

	// IDColumn returns the resolved identifier column name.
	IDColumn() string

	// Stream starts a fresh traversal. The record channel is closed when the
	// input is exhausted; the error channel carries at most one error and is
	// closed with it. Callers must drain the record channel before checking
	// for an error.
	Stream(ctx context.Context) (<-chan model.Record, <-chan error)
}
