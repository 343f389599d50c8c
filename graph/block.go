// Package graph implements the pan-graph data model: blocks holding a
// consensus sequence and sparse per-isolate mutations, nodes visiting
// those blocks along oriented paths, paths reconstructing one input
// genome, and the Graph orchestrator that merges new alignment hits
// into the block/path set (spec.md sections 3-4).
package graph

import (
	"sort"

	"github.com/grailbio/pangraph/cigar"
	"github.com/grailbio/pangraph/hit"
	"github.com/grailbio/pangraph/seq"
	"github.com/grailbio/pangraph/strand"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// VisitKey identifies one visit of one isolate to a block:
// (isolate_name, visit_number). spec.md section 3, "Visit".
type VisitKey struct {
	Isolate string
	Num     int
}

// Block is an aligned-region entity: a consensus array plus sparse
// per-isolate-visit mutation maps (spec.md section 3, "Block").
//
// Grounded directly on original_source/pangraph/block.py (the Python
// Block class this entity is ported from); Go shape (explicit error
// returns, struct+methods) grounded on markduplicates/duplicate_key.go
// and circular/bitmap.go's invariant-panic idiom.
type Block struct {
	id        string
	consensus []byte
	muts      map[VisitKey]map[int]byte
}

// ErrMissingVisit is returned by Extract/LengthOf when the requested
// (isolate, visit) key is absent from the block's mutation map.
var ErrMissingVisit = errors.New("graph: visit not present in block")

// NewBlockWithID constructs an empty block with an explicit id; used
// by the JSON/RecordIO decoders, which must preserve persisted ids
// rather than minting fresh ones.
func NewBlockWithID(id string) *Block {
	return &Block{id: id, muts: make(map[VisitKey]map[int]byte)}
}

// FromSequence creates a block for a brand-new, unaligned isolate
// sequence: the whole sequence becomes the consensus, with a single
// visit (name, 0) carrying no mutations.
func FromSequence(name, sequence string) *Block {
	b := &Block{
		id:        defaultIDGen.Next(),
		consensus: seq.ToArray(sequence),
		muts:      map[VisitKey]map[int]byte{{Isolate: name, Num: 0}: {}},
	}
	return b
}

// ID returns the block's stable identifier.
func (b *Block) ID() string { return b.id }

// Len returns the gapped consensus length.
func (b *Block) Len() int { return len(b.consensus) }

// Consensus returns the block's consensus array. Callers must not
// mutate the returned slice.
func (b *Block) Consensus() []byte { return b.consensus }

// Depth returns the number of mutation-map keys, i.e. the number of
// isolate-visits through this block (spec.md invariant 2).
func (b *Block) Depth() int { return len(b.muts) }

// Isolates returns, for each isolate with at least one visit to this
// block, the number of visits it makes. Supplemental: grounded on
// original_source/pangraph/block.py's `isolates` property
// (Counter(k[0] for k in muts)).
func (b *Block) Isolates() map[string]int {
	out := make(map[string]int)
	for k := range b.muts {
		out[k.Isolate]++
	}
	return out
}

// Has reports whether any visit for the given isolate exists.
func (b *Block) Has(iso string) bool {
	for k := range b.muts {
		if k.Isolate == iso {
			return true
		}
	}
	return false
}

// IsolateMutations collapses the block's per-visit mutation table into
// a per-isolate one, for callers (graph.Graph.ApplyHit) that merge
// whole blocks and so expect exactly one visit per isolate on the
// block being split. Returns an error if any isolate has more than one
// visit, since that case has no well-defined single mutation map to
// fold through FromAlignment.
func (b *Block) IsolateMutations() (map[string]map[int]byte, error) {
	out := make(map[string]map[int]byte, len(b.muts))
	for k, m := range b.muts {
		if _, ok := out[k.Isolate]; ok {
			return nil, errors.Errorf("graph: block %s has more than one visit for isolate %s", b.id, k.Isolate)
		}
		out[k.Isolate] = m
	}
	return out, nil
}

// NumOf returns the visit number this block assigns to iso, if any.
func (b *Block) NumOf(iso string) (int, bool) {
	for k := range b.muts {
		if k.Isolate == iso {
			return k.Num, true
		}
	}
	return 0, false
}

// ConsensusRange returns the gapped consensus substring [lo, hi) — the
// same coordinate frame QryCluster/RefCluster use. Supplemental:
// exercised by pan.Builder to materialize a hit's aligned substrings
// directly from the block it names, instead of re-reading the raw
// isolate FASTA for every round of a guide-tree build.
func (b *Block) ConsensusRange(lo, hi int) (string, error) {
	if lo < 0 || hi > len(b.consensus) || lo > hi {
		return "", errors.Errorf("graph: consensus range [%d:%d) out of bounds for block %s of length %d", lo, hi, b.id, len(b.consensus))
	}
	return string(b.consensus[lo:hi]), nil
}

// Push assigns a fresh visit number for iso — the smallest n >= 0 not
// already used — and records muts under that key.
func (b *Block) Push(iso string, muts map[int]byte) VisitKey {
	n := 0
	for {
		key := VisitKey{Isolate: iso, Num: n}
		if _, ok := b.muts[key]; !ok {
			b.muts[key] = muts
			return key
		}
		n++
	}
}

// Extract reconstructs the sequence for one isolate-visit: the
// consensus overlaid with that visit's mutations, with gaps optionally
// stripped.
func (b *Block) Extract(iso string, num int, stripGaps bool) (string, error) {
	key := VisitKey{Isolate: iso, Num: num}
	muts, ok := b.muts[key]
	if !ok {
		return "", errors.Wrapf(ErrMissingVisit, "extract(%s, %d)", iso, num)
	}
	tmp := make([]byte, len(b.consensus))
	copy(tmp, b.consensus)
	for p, s := range muts {
		if p < 0 || p >= len(tmp) {
			log.Panicf("graph: mutation position %d out of range [0,%d) for block %s visit %s/%d", p, len(tmp), b.id, iso, num)
		}
		tmp[p] = s
	}
	if stripGaps {
		return string(seq.StripGaps(tmp)), nil
	}
	return string(tmp), nil
}

// LengthOf returns the ungapped length of one isolate-visit.
func (b *Block) LengthOf(iso string, num int) (int, error) {
	key := VisitKey{Isolate: iso, Num: num}
	muts, ok := b.muts[key]
	if !ok {
		return 0, errors.Wrapf(ErrMissingVisit, "length_of(%s, %d)", iso, num)
	}
	gaps := 0
	for _, s := range muts {
		if s == seq.Gap {
			gaps++
		}
	}
	return len(b.consensus) - gaps, nil
}

// IsEmpty reports whether the reconstructed sequence for one
// isolate-visit is empty or all-gap, or the visit is absent. Unlike
// Extract/LengthOf, a missing visit returns true rather than an error
// (spec.md section 7).
func (b *Block) IsEmpty(iso string, num int) bool {
	key := VisitKey{Isolate: iso, Num: num}
	muts, ok := b.muts[key]
	if !ok {
		return true
	}
	if len(b.consensus) == 0 {
		return true
	}
	tmp := make([]byte, len(b.consensus))
	copy(tmp, b.consensus)
	for p, s := range muts {
		tmp[p] = s
	}
	for _, c := range tmp {
		if c != seq.Gap {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of b under a freshly minted id.
func (b *Block) Copy() *Block {
	nb := &Block{
		id:        defaultIDGen.Next(),
		consensus: append([]byte(nil), b.consensus...),
		muts:      make(map[VisitKey]map[int]byte, len(b.muts)),
	}
	for k, m := range b.muts {
		nm := make(map[int]byte, len(m))
		for p, s := range m {
			nm[p] = s
		}
		nb.muts[k] = nm
	}
	return nb
}

// Marginalize drops every mutation key whose isolate is not in the
// given set, in place. Used while reconstructing one isolate's view of
// a block that is also visited by others.
func (b *Block) Marginalize(isolates ...string) {
	keep := make(map[string]bool, len(isolates))
	for _, iso := range isolates {
		keep[iso] = true
	}
	for k := range b.muts {
		if !keep[k.Isolate] {
			delete(b.muts, k)
		}
	}
}

// ReverseComplement returns a new block with reversed/complemented
// consensus and every mutation position/base mapped accordingly.
func (b *Block) ReverseComplement() *Block {
	nb := &Block{
		id:        defaultIDGen.Next(),
		consensus: seq.ReverseComplement(b.consensus),
		muts:      make(map[VisitKey]map[int]byte, len(b.muts)),
	}
	L := len(b.consensus) - 1
	for k, m := range b.muts {
		nm := make(map[int]byte, len(m))
		for p, c := range m {
			nm[L-p] = seq.Complement(c)
		}
		nb.muts[k] = nm
	}
	return nb
}

// ungappedOffsets returns, in order, the gapped consensus index of every
// non-gap base: entry n is the gapped position of the n-th non-gap base
// (0-indexed), so it maps ungapped offsets to gapped ones for Slice. Its
// length is the ungapped consensus length.
func ungappedOffsets(consensus []byte) []int {
	offs := make([]int, 0, len(consensus))
	for i, c := range consensus {
		if c != seq.Gap {
			offs = append(offs, i)
		}
	}
	return offs
}

// Slice returns a block whose consensus is consensus[s:e], where s, e
// are the ungapped-coordinate bounds [start, stop), with mutations
// restricted to that span and reindexed relative to it.
func (b *Block) Slice(start, stop int) (*Block, error) {
	offs := ungappedOffsets(b.consensus)
	if start < 0 || stop > len(offs) || start >= stop {
		return nil, errors.Errorf("graph: slice [%d:%d) out of range for block %s of ungapped length %d", start, stop, b.id, len(offs))
	}
	s := offs[start]
	e := offs[stop-1] + 1
	nb := &Block{
		id:        defaultIDGen.Next(),
		consensus: append([]byte(nil), b.consensus[s:e]...),
		muts:      make(map[VisitKey]map[int]byte, len(b.muts)),
	}
	for k, m := range b.muts {
		nm := make(map[int]byte)
		for p, c := range m {
			if p >= s && p < e {
				nm[p-s] = c
			}
		}
		nb.muts[k] = nm
	}
	return nb, nil
}

// sliceGapped returns a block whose consensus is consensus[lo:hi],
// where lo/hi are gapped-consensus-index bounds — the same coordinate
// frame hit.Cluster uses — with every mutation key carried forward
// unchanged and positions restricted and reindexed to the span. Unlike
// Slice (ungapped bounds, for callers reconstructing an isolate's own
// coordinate system), this is the flank cut ApplyHit needs: the part of
// a block outside the aligned cluster, which keeps every isolate's
// existing visit rather than assigning new ones.
//
// Grounded directly on original_source/scripts/graph.py's merge_hit,
// whose tmp_block[0:subhit['start']] / tmp_block[subhit['end']:] slices
// are plain Python sequence slices over the block's own consensus
// frame, not ungapped-coordinate slices.
func (b *Block) sliceGapped(lo, hi int) (*Block, error) {
	if lo < 0 || hi > len(b.consensus) || lo > hi {
		return nil, errors.Errorf("graph: gapped slice [%d:%d) out of range for block %s of length %d", lo, hi, b.id, len(b.consensus))
	}
	nb := &Block{
		id:        defaultIDGen.Next(),
		consensus: append([]byte(nil), b.consensus[lo:hi]...),
		muts:      make(map[VisitKey]map[int]byte, len(b.muts)),
	}
	for k, m := range b.muts {
		nm := make(map[int]byte)
		for p, c := range m {
			if p >= lo && p < hi {
				nm[p-lo] = c
			}
		}
		nb.muts[k] = nm
	}
	return nb, nil
}

// Concatenate joins blocks end to end. Every block must carry exactly
// the same set of mutation keys (spec.md section 4.2, "requires
// identical mutation-key sets across all inputs").
func Concatenate(blocks []*Block) (*Block, error) {
	if len(blocks) == 0 {
		return nil, errors.New("graph: concatenate requires at least one block")
	}
	keys := make(map[VisitKey]bool, len(blocks[0].muts))
	for k := range blocks[0].muts {
		keys[k] = true
	}
	for _, blk := range blocks[1:] {
		if len(blk.muts) != len(keys) {
			return nil, errors.New("graph: concatenate requires identical mutation-key sets")
		}
		for k := range blk.muts {
			if !keys[k] {
				return nil, errors.New("graph: concatenate requires identical mutation-key sets")
			}
		}
	}

	nb := &Block{id: defaultIDGen.Next(), muts: make(map[VisitKey]map[int]byte, len(keys))}
	for k := range keys {
		nb.muts[k] = make(map[int]byte)
	}
	offset := 0
	for _, blk := range blocks {
		nb.consensus = append(nb.consensus, blk.consensus...)
		for k, m := range blk.muts {
			for p, c := range m {
				nb.muts[k][p+offset] = c
			}
		}
		offset += len(blk.consensus)
	}
	return nb, nil
}

// updateConsensus enforces spec.md's consensus majority bound
// (invariant 5): for each position, if a single alternative base is
// carried by a strict majority of the block's visits, the consensus
// and that base swap roles. Positions are processed in ascending order
// and at most one allele per position is flipped per call, resolving
// open question (c) of spec.md section 9: ties on carrier-set size
// break toward the lexicographically smaller base.
func (b *Block) updateConsensus() {
	type key struct {
		pos  int
		base byte
	}
	carriers := make(map[key][]VisitKey)
	for tag, muts := range b.muts {
		for pos, base := range muts {
			k := key{pos, base}
			carriers[k] = append(carriers[k], tag)
		}
	}
	byPos := make(map[int][]key)
	for k := range carriers {
		byPos[k.pos] = append(byPos[k.pos], k)
	}
	positions := make([]int, 0, len(byPos))
	for pos := range byPos {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	total := len(b.muts)
	for _, pos := range positions {
		alts := byPos[pos]
		sort.Slice(alts, func(i, j int) bool {
			ci, cj := len(carriers[alts[i]]), len(carriers[alts[j]])
			if ci != cj {
				return ci > cj
			}
			return alts[i].base < alts[j].base
		})
		best := alts[0]
		tags := carriers[best]
		if len(tags)*2 <= total {
			continue
		}
		oldConsensus := b.consensus[pos]
		b.consensus[pos] = best.base
		carrierSet := make(map[VisitKey]bool, len(tags))
		for _, tag := range tags {
			carrierSet[tag] = true
			delete(b.muts[tag], pos)
		}
		for tag := range b.muts {
			if carrierSet[tag] {
				continue
			}
			// A tag that already carries some other allele at pos (e.g.
			// the minority side of a tri-allelic position) already states
			// its true base correctly relative to the old consensus; only
			// a tag with no entry here was implicitly matching the old
			// consensus and needs one spelled out now that it's deposed.
			if _, ok := b.muts[tag][pos]; !ok {
				b.muts[tag][pos] = oldConsensus
			}
		}
	}
}

// foldMutations implements spec.md section 4.2.1: translate an
// isolate's original-coordinate mutations through a coord map into the
// new sub-block's consensus frame, overlay the splitter's extra
// side-specific mutations, and push the result as a fresh visit.
//
// orig is in the old block's consensus frame, while the splitter's
// interval iv and coord map cm are relative to the cluster substring it
// was given (reverse-complemented when rc is set, i.e. the query side of
// a Minus hit); each position is moved into that frame first, and only
// those inside iv are folded into this sub-block.
func foldMutations(newBlock *Block, extra map[int]byte, cm cigar.CoordMap, orig map[int]byte, cluster hit.Cluster, rc bool, iv *cigar.Interval, iso string) VisitKey {
	newmuts := make(map[int]byte)
	for p, base := range orig {
		if p < cluster.Lo || p >= cluster.Hi {
			continue
		}
		q := p - cluster.Lo
		if rc {
			q, base = cluster.Hi-1-p, seq.Complement(base)
		}
		if q < iv.Lo || q >= iv.Hi {
			continue
		}
		npos := cm.Translate(q)
		if npos < 0 || npos >= len(newBlock.consensus) {
			log.Panicf("graph: folded mutation position %d out of range [0,%d) for block %s", npos, len(newBlock.consensus), newBlock.id)
		}
		newmuts[npos] = base
	}
	for p, n := range extra {
		if existing, ok := newmuts[p]; ok && existing == newBlock.consensus[p] {
			delete(newmuts, p)
		} else {
			newmuts[p] = n
		}
	}
	return newBlock.Push(iso, newmuts)
}

// IsoMap tells the path rewriter which visit number each isolate
// received in each newly produced block: IsoMap[blockID][isolate] =
// the assigned VisitKey (spec.md section 4.2).
type IsoMap map[string]map[string]VisitKey

func (m IsoMap) set(blockID, iso string, key VisitKey) {
	sub, ok := m[blockID]
	if !ok {
		sub = make(map[string]VisitKey)
		m[blockID] = sub
	}
	sub[iso] = key
}

// FromAlignment runs the CIGAR splitter over h and constructs the
// resulting blocks, folding in both sides' prior mutations (spec.md
// section 4.2.1) and recomputing each new block's consensus (section
// 4.2.2).
//
// qryOld/refOld carry the entire pre-hit mutation table of the block
// each side of h refers to: isolate name -> (position -> base), for
// every isolate-visit already registered on that block, in the
// block's own consensus coordinate frame (matching h.QryCluster /
// h.RefCluster, which are intervals in that same frame). A hit merges
// two whole blocks, each of which may already carry several isolates
// from earlier merges, so every one of them is carried forward into
// the new sub-blocks, not only the pair named by h.Qry.Name/h.Ref.Name.
//
// Grounded directly on original_source/pangraph/block.py's from_aln,
// whose updatemuts() iterates over the full per-isolate table of the
// block being split, not a single isolate's visit.
//
// Returns all new blocks (in splitter order), the subset assigned to
// the query, the subset assigned to the reference, the subset shared
// by both sides, and the isomap recording every isolate's new visit
// key in each new block.
func FromAlignment(h hit.Hit, cutoff int, qryOld, refOld map[string]map[int]byte) (all, qryBlocks, refBlocks, sharedBlocks []*Block, isomap IsoMap, err error) {
	ops, err := cigar.Parse(h.Cigar)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	qrys, refs, subblks, err := cigar.Split(ops, seq.ToArray(h.QrySeq), seq.ToArray(h.RefSeq), cutoff)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	isomap = make(IsoMap)
	for i, sub := range subblks {
		nb := &Block{id: defaultIDGen.Next(), consensus: append([]byte(nil), sub.Consensus...), muts: make(map[VisitKey]map[int]byte)}

		if qrys[i] != nil {
			for iso, muts := range qryOld {
				key := foldMutations(nb, sub.QMuts, sub.QCoordMap, muts, h.QryCluster, h.Orientation == strand.Minus, qrys[i], iso)
				isomap.set(nb.id, iso, key)
			}
		}
		if refs[i] != nil {
			for iso, muts := range refOld {
				key := foldMutations(nb, sub.RMuts, sub.RCoordMap, muts, h.RefCluster, false, refs[i], iso)
				isomap.set(nb.id, iso, key)
			}
		}
		nb.updateConsensus()
		all = append(all, nb)

		if qrys[i] != nil {
			qryBlocks = append(qryBlocks, nb)
		}
		if refs[i] != nil {
			refBlocks = append(refBlocks, nb)
		}
		if qrys[i] != nil && refs[i] != nil {
			sharedBlocks = append(sharedBlocks, nb)
		}
	}

	if h.Orientation == strand.Minus {
		reverseBlocks(qryBlocks)
	}

	return all, qryBlocks, refBlocks, sharedBlocks, isomap, nil
}

func reverseBlocks(bs []*Block) {
	for i, j := 0, len(bs)-1; i < j; i, j = i+1, j-1 {
		bs[i], bs[j] = bs[j], bs[i]
	}
}
