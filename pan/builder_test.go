package pan_test

import (
	"strings"
	"testing"

	"github.com/grailbio/pangraph/hit"
	"github.com/grailbio/pangraph/pan"
	"github.com/grailbio/pangraph/strand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderSeedAndRun(t *testing.T) {
	store, err := hit.NewSeqStore(strings.NewReader(">S1\nAAACCCGGG\n>S2\nAAACGCGGG\n"))
	require.NoError(t, err)

	b := pan.NewBuilder(pan.DefaultOpts)
	require.NoError(t, b.Seed(store, nil))

	p1, ok := b.Graph().Path("S1")
	require.True(t, ok)
	p2, ok := b.Graph().Path("S2")
	require.True(t, ok)
	refID := p1.Nodes()[0].Block.ID()
	qryID := p2.Nodes()[0].Block.ID()

	h := hit.Hit{
		Qry:         hit.Side{Name: qryID},
		Ref:         hit.Side{Name: refID},
		Cigar:       "9M",
		Orientation: strand.Plus,
		QryCluster:  hit.Cluster{Lo: 0, Hi: 9},
		RefCluster:  hit.Cluster{Lo: 0, Hi: 9},
	}
	require.NoError(t, b.Run([]hit.Hit{h}))
	b.Finish()

	p1, _ = b.Graph().Path("S1")
	p2, _ = b.Graph().Path("S2")
	s1, err := p1.Sequence()
	require.NoError(t, err)
	s2, err := p2.Sequence()
	require.NoError(t, err)
	assert.Equal(t, "AAACCCGGG", s1)
	assert.Equal(t, "AAACGCGGG", s2)
	assert.Equal(t, p1.Nodes()[0].Block.ID(), p2.Nodes()[0].Block.ID())
	require.NoError(t, b.Graph().CheckInvariants())
}

func TestBuilderRunUnknownBlock(t *testing.T) {
	b := pan.NewBuilder(pan.DefaultOpts)
	err := b.Run([]hit.Hit{{Qry: hit.Side{Name: "nope"}, Ref: hit.Side{Name: "also-nope"}}})
	assert.Error(t, err)
}

func TestBuilderRunEmptyBatch(t *testing.T) {
	b := pan.NewBuilder(pan.DefaultOpts)
	assert.NoError(t, b.Run(nil))
}
