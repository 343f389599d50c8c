package graph

import (
	"testing"

	"github.com/grailbio/pangraph/strand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeLength(t *testing.T) {
	b := FromSequence("iso1", "ACGT")
	n := Node{Block: b, Num: 0, Strand: strand.Plus}
	l, err := n.Length("iso1")
	require.NoError(t, err)
	assert.Equal(t, 4, l)
}

func TestNodeLengthMissingVisit(t *testing.T) {
	b := FromSequence("iso1", "ACGT")
	n := Node{Block: b, Num: 1, Strand: strand.Plus}
	_, err := n.Length("iso1")
	require.Error(t, err)
}

func TestNodeSameVertex(t *testing.T) {
	b := FromSequence("iso1", "ACGT")
	a := Node{Block: b, Num: 0, Strand: strand.Plus}
	c := Node{Block: b, Num: 1, Strand: strand.Plus}
	assert.True(t, a.sameVertex(c))

	d := Node{Block: b, Num: 0, Strand: strand.Minus}
	assert.False(t, a.sameVertex(d))
}

func TestNodeKey(t *testing.T) {
	b := FromSequence("iso1", "ACGT")
	n := Node{Block: b, Num: 3, Strand: strand.Plus}
	assert.Equal(t, VisitKey{Isolate: "iso1", Num: 3}, n.Key("iso1"))
}
