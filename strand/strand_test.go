package strand_test

import (
	"testing"

	"github.com/grailbio/pangraph/strand"
	"github.com/stretchr/testify/assert"
)

func TestCompose(t *testing.T) {
	assert.Equal(t, strand.Plus, strand.Compose(strand.Plus, strand.Plus))
	assert.Equal(t, strand.Minus, strand.Compose(strand.Plus, strand.Minus))
	assert.Equal(t, strand.Minus, strand.Compose(strand.Minus, strand.Plus))
	assert.Equal(t, strand.Plus, strand.Compose(strand.Minus, strand.Minus))
}

func TestComposeIdentity(t *testing.T) {
	for _, s := range []strand.Strand{strand.Plus, strand.Minus} {
		assert.Equal(t, s, strand.Compose(s, strand.Plus))
	}
}

func TestComposeAssociative(t *testing.T) {
	vals := []strand.Strand{strand.Plus, strand.Minus}
	for _, a := range vals {
		for _, b := range vals {
			for _, c := range vals {
				lhs := strand.Compose(strand.Compose(a, b), c)
				rhs := strand.Compose(a, strand.Compose(b, c))
				assert.Equal(t, rhs, lhs)
			}
		}
	}
}

func TestComplement(t *testing.T) {
	assert.Equal(t, strand.Minus, strand.Complement(strand.Plus))
	assert.Equal(t, strand.Plus, strand.Complement(strand.Minus))
	assert.Equal(t, strand.Null, strand.Complement(strand.Null))
}

func TestFromOrientation(t *testing.T) {
	assert.Equal(t, strand.Plus, strand.FromOrientation(1))
	assert.Equal(t, strand.Minus, strand.FromOrientation(-1))
}
