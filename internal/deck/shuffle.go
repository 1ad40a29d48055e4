package deck

import (
	"math/rand/v2"

	"github.com/sparkcards/spark/internal/prompt"
)

// Source provides uniform random integers in [0, n).
// *math/rand/v2.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// Shuffle returns a uniformly random permutation of records using the
// Fisher–Yates algorithm. The input slice is not modified.
func Shuffle(records []prompt.Record, rnd Source) []prompt.Record {
	out := make([]prompt.Record, len(records))
	copy(out, records)
	for i := len(out) - 1; i > 0; i-- {
		j := rnd.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// NewSource returns a PCG-backed random source. A zero seed draws a fresh
// seed from the runtime's randomly seeded generator; any other value makes
// shuffles reproducible.
func NewSource(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
