package graph

import (
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/pangraph/hit"
	"github.com/grailbio/pangraph/strand"
	"github.com/pkg/errors"
)

// Graph is the pan-graph orchestrator: the block pool and the path set
// (spec.md section 3, "Graph"). Its lifetime is a build session.
//
// Grounded on original_source/py/scripts/graph.py's Graph class
// driving hits through Block.from_aln/merge/replace in guide-tree
// order; the Go shape (a struct holding maps, mutated in place by one
// coordinator) follows markduplicates' top-level coordinator style.
type Graph struct {
	blocks map[string]*Block
	paths  map[string]*Path
	cutoff int
}

// DefaultCutoff is the CIGAR splitter's clip/indel cutoff C (spec.md
// section 4.1).
const DefaultCutoff = 500

// NewGraph returns an empty graph using the given splitter cutoff. A
// cutoff <= 0 is replaced with DefaultCutoff.
func NewGraph(cutoff int) *Graph {
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	return &Graph{
		blocks: make(map[string]*Block),
		paths:  make(map[string]*Path),
		cutoff: cutoff,
	}
}

// Block looks up a block by id.
func (g *Graph) Block(id string) (*Block, bool) {
	b, ok := g.blocks[id]
	return b, ok
}

// Path looks up a path by isolate name.
func (g *Graph) Path(name string) (*Path, bool) {
	p, ok := g.paths[name]
	return p, ok
}

// BlockIDs returns the ids of every block currently in the pool, in no
// particular order.
func (g *Graph) BlockIDs() []string {
	ids := make([]string, 0, len(g.blocks))
	for id := range g.blocks {
		ids = append(ids, id)
	}
	return ids
}

// PathNames returns the isolate names of every path, in no particular
// order.
func (g *Graph) PathNames() []string {
	names := make([]string, 0, len(g.paths))
	for name := range g.paths {
		names = append(names, name)
	}
	return names
}

// AddSequence creates a brand-new one-block path for an unaligned
// input genome, and installs both into the graph. This is the entry
// point for every isolate before any hit involving it is applied
// (spec.md section 8, scenario 1).
func (g *Graph) AddSequence(name, sequence string, circular bool) error {
	if _, ok := g.paths[name]; ok {
		return errors.Errorf("graph: path %q already exists", name)
	}
	b := FromSequence(name, sequence)
	p, err := NewPath(name, []Node{{Block: b, Num: 0, Strand: strand.Plus}}, 0, circular)
	if err != nil {
		return err
	}
	g.blocks[b.ID()] = b
	g.paths[name] = p
	return nil
}

// ApplyHit integrates one alignment hit into the graph (spec.md
// sections 4.1-4.3): it splits the two blocks h names, folds their
// prior mutations into the resulting sub-blocks, replaces the old
// block's nodes with the new sub-block run in every path that visits
// it, installs the new blocks, and drops any block left with no
// referencing path.
//
// A hit's cluster is usually a strict sub-interval of the block it
// names — only the aligned span gets split and merged. The region
// outside [Cluster.Lo, Cluster.Hi) still belongs to every isolate that
// visited the old block and must survive untouched, so ApplyHit slices
// it off as one or two flanking blocks (flankItems) and splices them
// back in around the aligned sub-blocks, exactly as
// original_source/scripts/graph.py's merge_hit splices tmp_block's
// left/right remainders around its merged_block.
//
// h.Qry.Name and h.Ref.Name must each name a block already in the
// pool (spec.md section 6: qry_cluster/ref_cluster are intervals in
// "the query/reference block's consensus frame" -- the hit aligns two
// existing blocks, not raw isolate sequences).
func (g *Graph) ApplyHit(h hit.Hit) error {
	qryBlock, ok := g.blocks[h.Qry.Name]
	if !ok {
		return errors.Errorf("graph: apply hit: unknown query block %q", h.Qry.Name)
	}
	refBlock, ok := g.blocks[h.Ref.Name]
	if !ok {
		return errors.Errorf("graph: apply hit: unknown reference block %q", h.Ref.Name)
	}

	qryOld, err := qryBlock.IsolateMutations()
	if err != nil {
		return errors.Wrap(err, "apply hit: query block")
	}
	refOld, err := refBlock.IsolateMutations()
	if err != nil {
		return errors.Wrap(err, "apply hit: reference block")
	}

	all, qryBlocks, refBlocks, _, isomap, err := FromAlignment(h, g.cutoff, qryOld, refOld)
	if err != nil {
		return errors.Wrap(err, "apply hit")
	}

	qryItems, qryFlanks, err := flankItems(qryBlock, h.QryCluster, replacementItems(qryBlocks, h.Orientation))
	if err != nil {
		return errors.Wrap(err, "apply hit: query flanks")
	}
	refItems, refFlanks, err := flankItems(refBlock, h.RefCluster, replacementItems(refBlocks, strand.Plus))
	if err != nil {
		return errors.Wrap(err, "apply hit: reference flanks")
	}

	if err := g.rewritePaths(qryBlock, qryItems, isomap); err != nil {
		return errors.Wrap(err, "apply hit: rewrite query paths")
	}
	if err := g.rewritePaths(refBlock, refItems, isomap); err != nil {
		return errors.Wrap(err, "apply hit: rewrite reference paths")
	}

	for _, nb := range all {
		g.blocks[nb.ID()] = nb
	}
	for _, fb := range qryFlanks {
		g.blocks[fb.ID()] = fb
	}
	for _, fb := range refFlanks {
		g.blocks[fb.ID()] = fb
	}
	delete(g.blocks, qryBlock.ID())
	delete(g.blocks, refBlock.ID())

	g.removeOrphans()
	log.Debugf("graph: applied hit %s/%s -> %d blocks", h.Qry.Name, h.Ref.Name, len(all))
	return nil
}

func replacementItems(blocks []*Block, s strand.Strand) []ReplacementItem {
	items := make([]ReplacementItem, len(blocks))
	for i, b := range blocks {
		items[i] = ReplacementItem{Block: b, Strand: s, Merged: true}
	}
	return items
}

// flankItems wraps mid (the splitter's sub-blocks for the aligned
// cluster) with the unaligned flanks outside [cluster.Lo, cluster.Hi),
// if any, so the old block's full length survives the hit rather than
// only the aligned span. Flanks carry every isolate-visit of old
// forward unchanged (Merged: false) since no new mutation folding
// applies to them; always plus strand, matching original_source's
// merge_hit, which slices flanks off the block's own consensus frame
// regardless of the hit's orientation.
func flankItems(old *Block, cluster hit.Cluster, mid []ReplacementItem) (items []ReplacementItem, flanks []*Block, err error) {
	if cluster.Lo > 0 {
		left, err := old.sliceGapped(0, cluster.Lo)
		if err != nil {
			return nil, nil, errors.Wrap(err, "left flank")
		}
		items = append(items, ReplacementItem{Block: left, Strand: strand.Plus, Merged: false})
		flanks = append(flanks, left)
	}
	items = append(items, mid...)
	if cluster.Hi < old.Len() {
		right, err := old.sliceGapped(cluster.Hi, old.Len())
		if err != nil {
			return nil, nil, errors.Wrap(err, "right flank")
		}
		items = append(items, ReplacementItem{Block: right, Strand: strand.Plus, Merged: false})
		flanks = append(flanks, right)
	}
	return items, flanks, nil
}

// rewritePaths replaces every node referencing oldBlock, across every
// path that visits it, with items. A path may legitimately carry more
// than one visit number for the same block id; each is replaced
// independently.
func (g *Graph) rewritePaths(oldBlock *Block, items []ReplacementItem, isomap IsoMap) error {
	for _, p := range g.paths {
		for _, num := range p.NumsForBlock(oldBlock.ID()) {
			tag := VisitKey{Isolate: p.Name(), Num: num}
			if err := p.Replace(oldBlock, tag, items, isomap); err != nil {
				return err
			}
		}
	}
	return nil
}

// removeOrphans walks every path, collects the set of block ids still
// referenced, and drops everything else from the pool (spec.md
// invariant 2, section 9 "orphan detection is done by walking all
// paths").
func (g *Graph) removeOrphans() {
	referenced := make(map[string]bool, len(g.blocks))
	for _, p := range g.paths {
		for _, n := range p.Nodes() {
			referenced[n.Block.ID()] = true
		}
	}
	for id := range g.blocks {
		if !referenced[id] {
			delete(g.blocks, id)
		}
	}
}

// Prune drops empty visits from every path (spec.md section 4.3,
// Path.remove_empty_visits) and then removes any block this left
// unreferenced. Callers that apply a batch of hits typically invoke
// Prune once at the end of the batch rather than after every hit.
func (g *Graph) Prune() {
	for _, p := range g.paths {
		p.RemoveEmptyVisits()
	}
	g.removeOrphans()
}

// CheckInvariants walks the whole graph and verifies spec.md's
// invariants 1-4 hold: mutation positions in range, every path node
// resolved in its block's mutation map, and distinct visit numbers for
// repeated block visits within one path. It returns the first
// violation found, wrapped for the caller; a correct graph never fails
// this check, so finding one here indicates a broken invariant rather
// than a caller-correctable error (spec.md section 7).
func (g *Graph) CheckInvariants() error {
	for id, b := range g.blocks {
		for k, m := range b.muts {
			for pos := range m {
				if pos < 0 || pos >= len(b.consensus) {
					return errors.Errorf("graph: invariant 1 violated: block %s visit %v mutation at %d out of range [0,%d)", id, k, pos, len(b.consensus))
				}
			}
		}
		if b.Depth() == 0 {
			return errors.Errorf("graph: invariant 2 violated: block %s is orphaned", id)
		}
	}
	for name, p := range g.paths {
		seenNum := make(map[string]map[int]bool)
		for _, n := range p.Nodes() {
			key := VisitKey{Isolate: name, Num: n.Num}
			if _, ok := n.Block.muts[key]; !ok {
				return errors.Errorf("graph: invariant 3 violated: path %s references missing key %v in block %s", name, key, n.Block.ID())
			}
			if seenNum[n.Block.ID()] == nil {
				seenNum[n.Block.ID()] = make(map[int]bool)
			}
			if seenNum[n.Block.ID()][n.Num] {
				return errors.Errorf("graph: invariant 4 violated: path %s has two nodes with the same visit number %d for block %s", name, n.Num, n.Block.ID())
			}
			seenNum[n.Block.ID()][n.Num] = true
		}
	}
	return nil
}

// Census returns, for diagnostics, the block ids sorted by descending
// depth. Supplemental: useful for reporting graph compression without
// walking the full structure by hand.
func (g *Graph) Census() []string {
	ids := g.BlockIDs()
	sort.Slice(ids, func(i, j int) bool {
		di, dj := g.blocks[ids[i]].Depth(), g.blocks[ids[j]].Depth()
		if di != dj {
			return di > dj
		}
		return ids[i] < ids[j]
	})
	return ids
}
