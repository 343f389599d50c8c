// Package cigar parses CIGAR alignment strings and implements the
// splitter that decomposes an alignment into the ordered sub-block
// triples consumed by graph.FromAlignment (spec.md section 4.1).
package cigar

import (
	"strconv"

	"github.com/pkg/errors"
)

// OpType is one CIGAR operation kind. Only the subset relevant to
// pairwise whole-genome alignment is supported: M, I, D, S, H.
type OpType byte

const (
	Match    OpType = 'M'
	Insert   OpType = 'I'
	Delete   OpType = 'D'
	SoftClip OpType = 'S'
	HardClip OpType = 'H'
)

// Op is one CIGAR operation: a length and a type.
type Op struct {
	Len int
	Type OpType
}

// Ops is a parsed CIGAR string.
type Ops []Op

// Parse parses a standard CIGAR string ("12M3D5M...") into a sequence
// of operations. Every operation must have length >= 1 and a type in
// {M,I,D,S,H}; any other character, or a zero/negative length, is a
// malformed-input error (spec.md section 7).
func Parse(s string) (Ops, error) {
	var ops Ops
	n := 0
	haveDigits := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			n = n*10 + int(c-'0')
			haveDigits = true
		case isOpType(c):
			if !haveDigits || n <= 0 {
				return nil, errors.Errorf("malformed CIGAR %q: operation %q has no positive length", s, string(c))
			}
			ops = append(ops, Op{Len: n, Type: OpType(c)})
			n = 0
			haveDigits = false
		default:
			return nil, errors.Errorf("malformed CIGAR %q: unexpected character %q", s, string(c))
		}
	}
	if haveDigits {
		return nil, errors.Errorf("malformed CIGAR %q: trailing length with no operation", s)
	}
	if len(ops) == 0 {
		return nil, errors.Errorf("malformed CIGAR %q: empty", s)
	}
	return ops, nil
}

func isOpType(c byte) bool {
	switch OpType(c) {
	case Match, Insert, Delete, SoftClip, HardClip:
		return true
	default:
		return false
	}
}

// String renders Ops back into standard CIGAR string form.
func (ops Ops) String() string {
	b := make([]byte, 0, len(ops)*4)
	for _, op := range ops {
		b = strconv.AppendInt(b, int64(op.Len), 10)
		b = append(b, byte(op.Type))
	}
	return string(b)
}
