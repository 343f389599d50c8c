package graph

import "github.com/grailbio/pangraph/strand"

// Node is one visit along a path: a block handle, the visit number
// that disambiguates repeated visits to the same block, and a strand
// (spec.md section 3/4.3).
//
// Equality (for the purposes of graph topology, e.g. path.Merge's
// block-id/strand matching) compares (block.ID(), strand); the visit
// number is carried for mutation lookup only, matching spec.md's
// description of Node's immutable-triple contract.
type Node struct {
	Block  *Block
	Num    int
	Strand strand.Strand
}

// Length returns the ungapped length of this node's visit for the
// given isolate.
func (n Node) Length(name string) (int, error) {
	return n.Block.LengthOf(name, n.Num)
}

// Key returns the VisitKey this node uses to look itself up in its
// block's mutation map.
func (n Node) Key(name string) VisitKey {
	return VisitKey{Isolate: name, Num: n.Num}
}

// sameVertex reports whether n and o refer to the same graph vertex:
// same block id and strand (ignoring visit number), matching the
// equality spec.md assigns to Node.
func (n Node) sameVertex(o Node) bool {
	return n.Block.ID() == o.Block.ID() && n.Strand == o.Strand
}
