package filter

import "github.com/rotisserie/eris"

// ErrAllocationExhausted means probabilistic allocation could not produce a
// plausible nonzero total within the retry ceiling. Fatal for the run: the
// request is structurally impossible for the realized groups.
var ErrAllocationExhausted = eris.New("subsampling produced no output")

// ErrEmptyOutput signals that the final kept set is empty. Whether this is
// fatal depends on the configured empty-output policy; the run's outcome is
// populated either way.
var ErrEmptyOutput = eris.New("all records were dropped")
