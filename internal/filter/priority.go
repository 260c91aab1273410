package filter

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// PriorityPolicy supplies the ranking value for a record inside its group.
// Priorities have no cross-group meaning.
type PriorityPolicy interface {
	Priority(id string) float64
}

// ScorePolicy ranks records by externally supplied scores. Records absent
// from the score table rank below every scored record.
type ScorePolicy struct {
	scores map[string]float64
}

// NewScorePolicy wraps a score table (typically read from a priority file).
func NewScorePolicy(scores map[string]float64) *ScorePolicy {
	return &ScorePolicy{scores: scores}
}

func (p *ScorePolicy) Priority(id string) float64 {
	if v, ok := p.scores[id]; ok {
		return v
	}
	return math.Inf(-1)
}

// UniformPolicy draws a uniform pseudo-random priority per record, derived
// from (seed, id) by hashing rather than from a shared generator stream, so
// a record's priority does not depend on the order records are evaluated in.
type UniformPolicy struct {
	seed int64
}

// NewUniformPolicy creates the default priority policy for the given seed.
func NewUniformPolicy(seed int64) *UniformPolicy {
	return &UniformPolicy{seed: seed}
}

func (p *UniformPolicy) Priority(id string) float64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(p.seed))
	h.Write(buf[:])
	h.Write([]byte(id))

	// Top 53 bits give a uniform float in [0, 1).
	return float64(h.Sum64()>>11) / float64(1<<53)
}
