package pan

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/pangraph/graph"
	"github.com/grailbio/pangraph/hit"
	"github.com/pkg/errors"
)

// Builder owns one Graph and drives it to completion. Grounded on
// original_source/scripts/graph.py's Graph.merge_hit loop (one hit at
// a time, in whatever order the caller supplies) and
// pileup/snp/pileup.go's Opts-configured top-level coordinator shape.
type Builder struct {
	g    *graph.Graph
	opts Opts
}

// NewBuilder returns a Builder wrapping a freshly created, empty Graph.
func NewBuilder(opts Opts) *Builder {
	if opts.Cutoff <= 0 {
		opts.Cutoff = graph.DefaultCutoff
	}
	return &Builder{g: graph.NewGraph(opts.Cutoff), opts: opts}
}

// Graph returns the graph under construction.
func (b *Builder) Graph() *graph.Graph { return b.g }

// Seed installs one single-block, single-node path per sequence in
// store (spec.md section 8, scenario 1), before any hit referencing it
// is applied. circular names an isolate as circular; absent names
// default to linear.
func (b *Builder) Seed(store *hit.SeqStore, circular map[string]bool) error {
	for _, name := range store.SeqNames() {
		s, err := store.Get(name)
		if err != nil {
			return err
		}
		if err := b.g.AddSequence(name, s, circular[name]); err != nil {
			return errors.Wrapf(err, "pan: seed %s", name)
		}
	}
	return nil
}

// Run decodes and applies one batch of hits, in the exact order
// given. The decode phase — resolving each hit's QrySeq/RefSeq from
// the consensus of the block it names — touches only blocks already
// in the graph before this call and is independent hit to hit, so it
// runs concurrently via traverse.Each (grounded on
// pileup/snp/pileup.go's traverse.Each-sharded main loop). The merge
// phase that follows applies every decoded hit to the graph serially,
// in order, exactly as spec.md section 5 requires of the core.
//
// hits' Qry.Name/Ref.Name must each already name a block present in
// the graph (the same contract graph.Graph.ApplyHit documents) and
// QryCluster/RefCluster must already be set in that block's consensus
// frame; Run fills in QrySeq/RefSeq from them. Resolving a guide tree
// or an isolate's original PAF coordinates into block ids across
// rounds is the caller's responsibility — spec.md's Non-goals exclude
// both aligner invocation and guide-tree construction, and this
// coordinator only consumes an externally supplied traversal order.
func (b *Builder) Run(hits []hit.Hit) error {
	if len(hits) == 0 {
		return nil
	}
	decoded := make([]hit.Hit, len(hits))
	shards := len(hits)
	if b.opts.Parallelism > 0 && b.opts.Parallelism < shards {
		shards = b.opts.Parallelism
	}
	decodeOne := func(i int) error {
		h := hits[i]
		qryBlock, ok := b.g.Block(h.Qry.Name)
		if !ok {
			return errors.Errorf("pan: hit %d: unknown query block %q", i, h.Qry.Name)
		}
		refBlock, ok := b.g.Block(h.Ref.Name)
		if !ok {
			return errors.Errorf("pan: hit %d: unknown reference block %q", i, h.Ref.Name)
		}
		qrySeq, err := qryBlock.ConsensusRange(h.QryCluster.Lo, h.QryCluster.Hi)
		if err != nil {
			return errors.Wrapf(err, "pan: hit %d", i)
		}
		refSeq, err := refBlock.ConsensusRange(h.RefCluster.Lo, h.RefCluster.Hi)
		if err != nil {
			return errors.Wrapf(err, "pan: hit %d", i)
		}
		h.QrySeq = qrySeq
		h.RefSeq = refSeq
		decoded[i] = h
		return nil
	}
	// Shard the batch into opts.Parallelism contiguous ranges and hand
	// one goroutine per shard, exactly as pileup/snp/pileup.go's main
	// loop shards reads across jobs before running traverse.Each.
	err := traverse.Each(shards, func(shardIdx int) error {
		lo := (shardIdx * len(hits)) / shards
		hi := ((shardIdx + 1) * len(hits)) / shards
		for i := lo; i < hi; i++ {
			if err := decodeOne(i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "pan: decode hits")
	}

	for i, h := range decoded {
		if err := b.g.ApplyHit(h); err != nil {
			return errors.Wrapf(err, "pan: apply hit %d (qry=%s ref=%s)", i, h.Qry.Name, h.Ref.Name)
		}
	}
	log.Printf("pan: applied %d hits, %d blocks remain\n", len(decoded), len(b.g.BlockIDs()))
	return nil
}

// Finish prunes empty visits and orphaned blocks left behind by the
// batches applied so far (spec.md section 4.3's remove_empty_visits,
// graph.Graph.Prune). Callers typically call this once after the last
// Run of a build, not after every batch.
func (b *Builder) Finish() {
	b.g.Prune()
}
