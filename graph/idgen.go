package graph

import "math/rand"

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
const idLength = 10

// IDGen produces deterministic ten-character uppercase block
// identifiers from a seeded pseudorandom stream (spec.md section 6).
// Grounded on original_source/pangraph/block.py's randomid() / RS =
// rng.RandomState(0), and on encoding/fastq/downsample.go's
// rand.New(rand.NewSource(0)) for the Go-idiomatic seeded-PRNG shape.
type IDGen struct {
	rng *rand.Rand
}

// NewIDGen returns an IDGen seeded for reproducible generation. Callers
// that need bit-identical graphs across runs (spec.md section 5) must
// reset to the same seed at the start of each run.
func NewIDGen(seed int64) *IDGen {
	return &IDGen{rng: rand.New(rand.NewSource(seed))}
}

// Next returns the next id in the stream.
func (g *IDGen) Next() string {
	b := make([]byte, idLength)
	for i := range b {
		b[i] = idAlphabet[g.rng.Intn(len(idAlphabet))]
	}
	return string(b)
}

// defaultIDGen is the package-level generator used by constructors that
// don't take an explicit IDGen, matching the original's module-level
// randomid() global. Reset it via ResetDefaultIDGen for a reproducible
// run.
var defaultIDGen = NewIDGen(0)

// ResetDefaultIDGen reseeds the package-level id generator; call this at
// the start of a reproducible run (spec.md section 9: "global state ...
// must be reset to its seed").
func ResetDefaultIDGen(seed int64) {
	defaultIDGen = NewIDGen(seed)
}
