package table

import (
	"errors"
	"math/rand/v2"
)

// Source yields uniform integers in [0, n). Implementations used by a shared
// table must be safe for concurrent use.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

// IntN uses the math/rand/v2 top-level generator, which is safe for concurrent use.
func (globalSource) IntN(n int) int { return rand.IntN(n) }

// DefaultSource returns the process-wide concurrency-safe source.
func DefaultSource() Source { return globalSource{} }

var errEmptySequence = errors.New("random index over empty sequence")

// RandomIndex picks a uniform index into a sequence of length n.
func RandomIndex(n int, src Source) (int, error) {
	if n <= 0 {
		return 0, errEmptySequence
	}
	if src == nil {
		src = DefaultSource()
	}
	return src.IntN(n), nil
}
