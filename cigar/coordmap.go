package cigar

import "sort"

// CoordMap translates a position expressed in one isolate's original
// coordinate frame into the consensus frame of a block produced by the
// splitter. It is the two-row (anchors, deltas) table of spec.md
// section 6, grounded on interval/bedunion.go's searchPosType /
// fwdsearchPosType binary-search idiom.
type CoordMap struct {
	Anchors []int
	Deltas  []int
}

// Translate maps an isolate-frame position to the consensus frame:
// consensus_pos = pos + deltas[searchsorted_right(anchors, pos)].
func (m CoordMap) Translate(pos int) int {
	idx := sort.Search(len(m.Anchors), func(i int) bool { return m.Anchors[i] > pos })
	return pos + m.Deltas[idx]
}
