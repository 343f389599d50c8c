package cigar_test

import (
	"strings"
	"testing"

	"github.com/grailbio/pangraph/cigar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitWholeMatch(t *testing.T) {
	ops, err := cigar.Parse("12M")
	require.NoError(t, err)
	qry := []byte("AAACCCGGGTTT")
	ref := []byte("AAACCCGGGTTT")
	qrys, refs, blks, err := cigar.Split(ops, qry, ref, 500)
	require.NoError(t, err)
	require.Len(t, blks, 1)
	require.Len(t, qrys, 1)
	require.Len(t, refs, 1)
	assert.Equal(t, cigar.Interval{Lo: 0, Hi: 12}, *qrys[0])
	assert.Equal(t, cigar.Interval{Lo: 0, Hi: 12}, *refs[0])
	assert.Equal(t, "AAACCCGGGTTT", string(blks[0].Consensus))
	assert.Empty(t, blks[0].QMuts)
	assert.Empty(t, blks[0].RMuts)
}

func TestSplitSingleSubstitution(t *testing.T) {
	ops, err := cigar.Parse("9M")
	require.NoError(t, err)
	qry := []byte("AAACGCGGG")
	ref := []byte("AAACCCGGG")
	_, _, blks, err := cigar.Split(ops, qry, ref, 500)
	require.NoError(t, err)
	require.Len(t, blks, 1)
	assert.Equal(t, "AAACCCGGG", string(blks[0].Consensus))
	assert.Equal(t, map[int]byte{4: 'G'}, blks[0].QMuts)
}

func TestSplitLargeIndel(t *testing.T) {
	ops, err := cigar.Parse("5M600D5M")
	require.NoError(t, err)
	qry := []byte("AAAAATTTTT")
	ref := []byte("AAAAA" + strings.Repeat("N", 600) + "TTTTT")
	qrys, refs, blks, err := cigar.Split(ops, qry, ref, 500)
	require.NoError(t, err)
	require.Len(t, blks, 3)

	// head: shared, 5 bases
	assert.Equal(t, "AAAAA", string(blks[0].Consensus))
	require.NotNil(t, qrys[0])
	require.NotNil(t, refs[0])

	// middle: reference-only, 600 bases
	assert.Equal(t, 600, len(blks[1].Consensus))
	assert.Nil(t, qrys[1])
	require.NotNil(t, refs[1])
	assert.Equal(t, cigar.Interval{Lo: 5, Hi: 605}, *refs[1])

	// tail: shared, 5 bases
	assert.Equal(t, "TTTTT", string(blks[2].Consensus))
	require.NotNil(t, qrys[2])
	require.NotNil(t, refs[2])

	// reconstructing the reference from present ref intervals reproduces it.
	var refOut []byte
	for i, iv := range refs {
		if iv != nil {
			refOut = append(refOut, blks[i].Consensus...)
		}
	}
	assert.Equal(t, string(ref), string(refOut))
}

func TestSplitLengthsMatch(t *testing.T) {
	ops, err := cigar.Parse("3M2I3M2D3M")
	require.NoError(t, err)
	qry := []byte("AAAGGAAATTT")
	ref := []byte("AAACCCGGTTT")
	qrys, refs, blks, err := cigar.Split(ops, qry, ref, 500)
	require.NoError(t, err)
	assert.Len(t, refs, len(blks))
	assert.Len(t, qrys, len(blks))
}

func TestParseMalformed(t *testing.T) {
	_, err := cigar.Parse("12X")
	require.Error(t, err)
	_, err = cigar.Parse("0M")
	require.Error(t, err)
	_, err = cigar.Parse("")
	require.Error(t, err)
}

func TestCoordMapTranslate(t *testing.T) {
	m := cigar.CoordMap{Anchors: []int{0, 5, 5}, Deltas: []int{0, 0, 2}}
	assert.Equal(t, 3, m.Translate(3))
}
