package graph

import (
	"testing"

	"github.com/grailbio/pangraph/strand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoBlockPath(t *testing.T) (*Path, *Block, *Block) {
	t.Helper()
	a := FromSequence("x", "ACGTACGT")
	b := FromSequence("x", "TTTT")
	p, err := NewPath("x", []Node{
		{Block: a, Num: 0, Strand: strand.Plus},
		{Block: b, Num: 0, Strand: strand.Plus},
	}, 0, false)
	require.NoError(t, err)
	return p, a, b
}

func TestPathSequence(t *testing.T) {
	p, _, _ := twoBlockPath(t)
	s, err := p.Sequence()
	require.NoError(t, err)
	assert.Equal(t, "ACGTACGTTTTT", s)
}

func TestPathPositionOf(t *testing.T) {
	p, a, b := twoBlockPath(t)
	start, stop, ok := p.PositionOf(a, 0)
	require.True(t, ok)
	assert.Equal(t, 0, start)
	assert.Equal(t, 8, stop)

	start, stop, ok = p.PositionOf(b, 0)
	require.True(t, ok)
	assert.Equal(t, 8, start)
	assert.Equal(t, 12, stop)

	_, _, ok = p.PositionOf(a, 1)
	assert.False(t, ok)
}

func TestPathOrientationOf(t *testing.T) {
	p, a, _ := twoBlockPath(t)
	s, ok := p.OrientationOf(a, 0)
	require.True(t, ok)
	assert.Equal(t, strand.Plus, s)
}

func TestPathRange(t *testing.T) {
	p, _, _ := twoBlockPath(t)
	s, err := p.Range(2, 10)
	require.NoError(t, err)
	assert.Equal(t, "GTACGTTT", s)
}

func TestPathRangeCircularWrap(t *testing.T) {
	a := FromSequence("x", "ACGTACGT")
	b := FromSequence("x", "TTTT")
	p, err := NewPath("x", []Node{
		{Block: a, Num: 0, Strand: strand.Plus},
		{Block: b, Num: 0, Strand: strand.Plus},
	}, 0, true)
	require.NoError(t, err)
	s, err := p.Range(10, 14)
	require.NoError(t, err)
	assert.Equal(t, "TTAC", s)
}

func TestPathRangeNegativeRejectedWhenLinear(t *testing.T) {
	p, _, _ := twoBlockPath(t)
	_, err := p.Range(-2, 4)
	require.Error(t, err)
}

func TestPathOffsetRotation(t *testing.T) {
	a := FromSequence("x", "ACGTACGT")
	p, err := NewPath("x", []Node{{Block: a, Num: 0, Strand: strand.Plus}}, 2, false)
	require.NoError(t, err)
	s, err := p.Sequence()
	require.NoError(t, err)
	assert.Equal(t, "GTACGTAC", s)
}

func TestPathRemoveEmptyVisits(t *testing.T) {
	a := FromSequence("x", "ACGT")
	c := NewBlockWithID("allgap")
	c.consensus = []byte{'A', '-'}
	key := c.Push("x", map[int]byte{0: '-'})
	require.True(t, c.IsEmpty("x", key.Num))

	p, err := NewPath("x", []Node{
		{Block: a, Num: 0, Strand: strand.Plus},
		{Block: c, Num: key.Num, Strand: strand.Plus},
	}, 0, false)
	require.NoError(t, err)
	p.RemoveEmptyVisits()
	assert.Equal(t, 1, p.NodeCount())
	_, _, ok := p.PositionOf(c, key.Num)
	assert.False(t, ok)
	assert.False(t, c.Has("x"))
}

func TestPathMergeForward(t *testing.T) {
	a := FromSequence("z", "AC")
	b := FromSequence("z", "GT")
	c := FromSequence("z", "TT")
	p, err := NewPath("z", []Node{
		{Block: a, Num: 0, Strand: strand.Plus},
		{Block: b, Num: 0, Strand: strand.Plus},
		{Block: c, Num: 0, Strand: strand.Plus},
	}, 0, false)
	require.NoError(t, err)

	merged := NewBlockWithID("MERGED")
	merged.consensus = []byte("ACGTTT")

	err = p.Merge(BlockStrandKey{BlockID: a.ID(), Strand: strand.Plus}, BlockStrandKey{BlockID: c.ID(), Strand: strand.Plus}, merged)
	require.NoError(t, err)

	assert.Equal(t, 1, p.NodeCount())
	s, err := p.Sequence()
	require.NoError(t, err)
	assert.Equal(t, "ACGTTT", s)
}

func TestPathMergeUnknownBlock(t *testing.T) {
	p, a, _ := twoBlockPath(t)
	other := FromSequence("y", "AAAA")
	err := p.Merge(BlockStrandKey{BlockID: "nope", Strand: strand.Plus}, BlockStrandKey{BlockID: a.ID(), Strand: strand.Plus}, other)
	assert.Error(t, err)
}

func TestPathMergeWrapRequiresCircular(t *testing.T) {
	p, a, b := twoBlockPath(t)
	merged := NewBlockWithID("MERGED")
	merged.consensus = append([]byte(nil), "ACGTACGTTTTT"...)
	err := p.Merge(BlockStrandKey{BlockID: b.ID(), Strand: strand.Plus}, BlockStrandKey{BlockID: a.ID(), Strand: strand.Plus}, merged)
	assert.Equal(t, ErrWrapOnLinearPath, err)
}

// Scenario 6: circular rotation (spec.md section 8). A hit merges a
// span that wraps from the last node to the second node; the offset
// absorbs the wrapped tail's length and the reconstructed sequence is
// unchanged.
func TestPathMergeWrapCircular(t *testing.T) {
	a := FromSequence("z", "AA")
	b := FromSequence("z", "CC")
	c := FromSequence("z", "GG")
	d := FromSequence("z", "TT")
	p, err := NewPath("z", []Node{
		{Block: a, Num: 0, Strand: strand.Plus},
		{Block: b, Num: 0, Strand: strand.Plus},
		{Block: c, Num: 0, Strand: strand.Plus},
		{Block: d, Num: 0, Strand: strand.Plus},
	}, 0, true)
	require.NoError(t, err)

	orig, err := p.Sequence()
	require.NoError(t, err)
	require.Equal(t, "AACCGGTT", orig)

	merged := NewBlockWithID("MERGED")
	merged.consensus = []byte("TTAACC")

	err = p.Merge(BlockStrandKey{BlockID: d.ID(), Strand: strand.Plus}, BlockStrandKey{BlockID: b.ID(), Strand: strand.Plus}, merged)
	require.NoError(t, err)

	assert.Equal(t, 2, p.NodeCount())
	assert.Equal(t, 2, p.Offset())
	s, err := p.Sequence()
	require.NoError(t, err)
	assert.Equal(t, orig, s)
}

func TestPathReplace(t *testing.T) {
	old := FromSequence("w", "AAAA")
	a2 := FromSequence("w", "GG")
	b2 := FromSequence("w", "CC")
	p, err := NewPath("w", []Node{{Block: old, Num: 0, Strand: strand.Plus}}, 0, false)
	require.NoError(t, err)

	items := []ReplacementItem{
		{Block: a2, Strand: strand.Plus, Merged: false},
		{Block: b2, Strand: strand.Minus, Merged: false},
	}
	isomap := make(IsoMap)
	err = p.Replace(old, VisitKey{Isolate: "w", Num: 0}, items, isomap)
	require.NoError(t, err)

	nodes := p.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, a2.ID(), nodes[0].Block.ID())
	assert.Equal(t, strand.Plus, nodes[0].Strand)
	assert.Equal(t, b2.ID(), nodes[1].Block.ID())
	assert.Equal(t, strand.Minus, nodes[1].Strand)
}

func TestPathReplaceReversesOnMinusStrand(t *testing.T) {
	old := FromSequence("w", "AAAA")
	a2 := FromSequence("w", "GG")
	b2 := FromSequence("w", "CC")
	p, err := NewPath("w", []Node{{Block: old, Num: 0, Strand: strand.Minus}}, 0, false)
	require.NoError(t, err)

	items := []ReplacementItem{
		{Block: a2, Strand: strand.Plus, Merged: false},
		{Block: b2, Strand: strand.Plus, Merged: false},
	}
	err = p.Replace(old, VisitKey{Isolate: "w", Num: 0}, items, make(IsoMap))
	require.NoError(t, err)

	nodes := p.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, b2.ID(), nodes[0].Block.ID())
	assert.Equal(t, strand.Minus, nodes[0].Strand)
	assert.Equal(t, a2.ID(), nodes[1].Block.ID())
	assert.Equal(t, strand.Minus, nodes[1].Strand)
}

func TestPathBlocks(t *testing.T) {
	p, a, b := twoBlockPath(t)
	blocks := p.Blocks()
	assert.Len(t, blocks, 2)
	assert.Same(t, a, blocks[a.ID()])
	assert.Same(t, b, blocks[b.ID()])
}
