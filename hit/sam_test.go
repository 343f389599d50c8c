package hit_test

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/pangraph/cigar"
	"github.com/grailbio/pangraph/hit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSAMCigarRoundTripsThroughParse(t *testing.T) {
	c := sam.Cigar{
		sam.NewCigarOp(sam.CigarMatch, 3),
		sam.NewCigarOp(sam.CigarInsertion, 1),
		sam.NewCigarOp(sam.CigarMatch, 2),
		sam.NewCigarOp(sam.CigarDeletion, 4),
		sam.NewCigarOp(sam.CigarSoftClipped, 5),
	}

	s := hit.FromSAMCigar(c)
	assert.Equal(t, "3M1I2M4D5S", s)

	ops, err := cigar.Parse(s)
	require.NoError(t, err)
	require.Len(t, ops, 5)
	assert.Equal(t, cigar.Op{Len: 3, Type: cigar.Match}, ops[0])
	assert.Equal(t, cigar.Op{Len: 1, Type: cigar.Insert}, ops[1])
	assert.Equal(t, cigar.Op{Len: 2, Type: cigar.Match}, ops[2])
	assert.Equal(t, cigar.Op{Len: 4, Type: cigar.Delete}, ops[3])
	assert.Equal(t, cigar.Op{Len: 5, Type: cigar.SoftClip}, ops[4])
}

func TestFromSAMCigarEmpty(t *testing.T) {
	assert.Equal(t, "", hit.FromSAMCigar(sam.Cigar{}))
}
