package graph

import (
	"sort"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/pangraph/seq"
	"github.com/grailbio/pangraph/strand"
	"github.com/pkg/errors"
)

// ErrBlockNotInPath is returned by Merge when start_key/stop_key don't
// resolve to nodes in the path. Resolves spec.md section 9 open
// question (b): the original's merge() swallows this as a logged,
// silently-ignored ValueError; here it is a returned error.
var ErrBlockNotInPath = errors.New("graph: block not found in path")

// ErrWrapOnLinearPath is returned by Merge when the resolved merge
// span wraps around the end of a non-circular path.
var ErrWrapOnLinearPath = errors.New("graph: wrap-around merge on a linear path")

// BlockStrandKey names one end of a merge span: a block id and the
// strand that end's hit orientation implies (spec.md section 4.3).
type BlockStrandKey struct {
	BlockID string
	Strand  strand.Strand
}

// ReplacementItem is one substitute node description for Path.Replace:
// the new block, the node-local strand it contributes (composed
// against the old node's strand to get the final node strand), and
// whether its visit number must be looked up via an IsoMap (Merged)
// or carried over unchanged from the node being replaced.
type ReplacementItem struct {
	Block  *Block
	Strand strand.Strand
	Merged bool
}

// Path is a named, possibly circular, ordered sequence of nodes
// reconstructing one input genome (spec.md section 3/4.3).
//
// Grounded directly on original_source/pangraph/sequence.py's Path
// class (the semantic source for every operation below).
type Path struct {
	name     string
	nodes    []Node
	offset   int
	circular bool
	position []int
}

// NewPath constructs a path and computes its initial position array.
func NewPath(name string, nodes []Node, offset int, circular bool) (*Path, error) {
	p := &Path{name: name, nodes: append([]Node(nil), nodes...), offset: offset, circular: circular}
	if err := p.recomputePosition(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Path) Name() string        { return p.name }
func (p *Path) Offset() int         { return p.offset }
func (p *Path) Circular() bool      { return p.circular }
func (p *Path) Len() int            { return p.position[len(p.position)-1] }
func (p *Path) NodeCount() int      { return len(p.nodes) }
func (p *Path) Nodes() []Node       { return append([]Node(nil), p.nodes...) }
func (p *Path) Position() []int     { return append([]int(nil), p.position...) }

func (p *Path) recomputePosition() error {
	pos := make([]int, len(p.nodes)+1)
	for i, n := range p.nodes {
		l, err := n.Length(p.name)
		if err != nil {
			return errors.Wrapf(err, "path %s: node %d", p.name, i)
		}
		pos[i+1] = pos[i] + l
	}
	p.position = pos
	return nil
}

// Sequence reconstructs the path's full genome sequence: each node's
// isolate-visit, reverse-complemented when its strand is Minus,
// concatenated in order and rotated left by offset.
func (p *Path) Sequence() (string, error) {
	var b strings.Builder
	for _, n := range p.nodes {
		s, err := p.nodeSeq(n)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	out := b.String()
	if p.offset != 0 {
		if p.offset < 0 || p.offset > len(out) {
			return "", errors.Errorf("path %s: offset %d out of range for sequence of length %d", p.name, p.offset, len(out))
		}
		out = out[p.offset:] + out[:p.offset]
	}
	return out, nil
}

func (p *Path) nodeSeq(n Node) (string, error) {
	s, err := n.Block.Extract(p.name, n.Num, true)
	if err != nil {
		return "", err
	}
	if n.Strand == strand.Minus {
		s = string(seq.ReverseComplement([]byte(s)))
	}
	return s, nil
}

// Blocks returns the distinct set of blocks this path visits, keyed by
// block id. Supplemental: grounded on
// original_source/pangraph/sequence.py's Path.blocks().
func (p *Path) Blocks() map[string]*Block {
	out := make(map[string]*Block, len(p.nodes))
	for _, n := range p.nodes {
		out[n.Block.ID()] = n.Block
	}
	return out
}

// RemoveEmptyVisits drops every node whose visit is empty for this
// path, deleting the corresponding key from the underlying block; if a
// block no longer has any visit for this path, subsequent nodes in
// this path referencing the same block id are also dropped (guards
// against pathological duplicate visits of an already-emptied block).
func (p *Path) RemoveEmptyVisits() {
	var good []Node
	popped := make(map[string]bool)
	for _, n := range p.nodes {
		if popped[n.Block.ID()] {
			continue
		}
		if n.Block.IsEmpty(p.name, n.Num) {
			key := VisitKey{Isolate: p.name, Num: n.Num}
			if _, ok := n.Block.muts[key]; !ok {
				log.Panicf("graph: malformed mutation bookkeeping: path %s node references missing key %v in block %s", p.name, key, n.Block.ID())
			}
			delete(n.Block.muts, key)
		} else {
			good = append(good, n)
		}
		if !n.Block.Has(p.name) {
			popped[n.Block.ID()] = true
		}
	}
	p.nodes = good
	// recomputePosition cannot fail here: every surviving node's visit
	// is known non-empty, so LengthOf cannot hit a missing key.
	_ = p.recomputePosition()
}

// PositionOf returns the [start, stop) ungapped-position interval of
// the node visiting (block, num), if present.
func (p *Path) PositionOf(block *Block, num int) (start, stop int, ok bool) {
	for i, n := range p.nodes {
		if n.Block.ID() == block.ID() && n.Num == num {
			return p.position[i], p.position[i+1], true
		}
	}
	return 0, 0, false
}

// OrientationOf returns the strand of the node visiting (block, num),
// if present.
func (p *Path) OrientationOf(block *Block, num int) (strand.Strand, bool) {
	for _, n := range p.nodes {
		if n.Block.ID() == block.ID() && n.Num == num {
			return n.Strand, true
		}
	}
	return strand.Null, false
}

// Range performs a circular half-open range query [start, stop) over
// the path's reconstructed sequence, without materializing the whole
// sequence. Negative start and stop beyond the path length are only
// supported on circular paths with more than one node.
//
// Grounded directly on original_source/pangraph/sequence.py's
// sequence_range / __getitem__ slicing.
func (p *Path) Range(start, stop int) (string, error) {
	total := p.Len()
	beg, end := start, stop
	var left, right string

	if beg < 0 {
		if !(p.circular && len(p.nodes) > 1) {
			return "", errors.Errorf("path %s: negative range start %d only valid for circular multi-node paths", p.name, start)
		}
		l, err := p.Range(total+beg, total)
		if err != nil {
			return "", err
		}
		left = l
		beg = 0
	}
	if end > total {
		if !(p.circular && len(p.nodes) > 1) {
			return "", errors.Errorf("path %s: range stop %d beyond length %d only valid for circular multi-node paths", p.name, stop, total)
		}
		r, err := p.Range(0, end-total)
		if err != nil {
			return "", err
		}
		right = r
		end = total
	}
	if beg > end {
		beg, end = end, beg
	}

	i := sort.Search(len(p.position), func(k int) bool { return p.position[k] > beg }) - 1
	j := sort.Search(len(p.position), func(k int) bool { return p.position[k] >= end })

	var mid string
	if i < j {
		if i == j-1 {
			full, err := p.nodeSeq(p.nodes[i])
			if err != nil {
				return "", err
			}
			mid = full[beg-p.position[i] : end-p.position[i]]
		} else {
			full, err := p.nodeSeq(p.nodes[i])
			if err != nil {
				return "", err
			}
			var b strings.Builder
			b.WriteString(full[beg-p.position[i]:])
			for k := i + 1; k < j-1; k++ {
				s, err := p.nodeSeq(p.nodes[k])
				if err != nil {
					return "", err
				}
				b.WriteString(s)
			}
			last, err := p.nodeSeq(p.nodes[j-1])
			if err != nil {
				return "", err
			}
			b.WriteString(last[:end-p.position[j-1]])
			mid = b.String()
		}
	}
	return left + mid + right, nil
}

// foldRun concatenates the (path.name, node.Num) mutation maps of a
// contiguous run of nodes, shifting each node's positions by the
// cumulative gapped length of the nodes before it, so the result is
// indexed against newBlock's consensus (which is assumed to be the
// straightforward concatenation of the run's block consensuses, in
// run order).
func (p *Path) foldRun(run []Node) (map[int]byte, error) {
	combined := make(map[int]byte)
	offset := 0
	for _, n := range run {
		key := VisitKey{Isolate: p.name, Num: n.Num}
		m, ok := n.Block.muts[key]
		if !ok {
			return nil, errors.Wrapf(ErrBlockNotInPath, "fold run: block %s missing key %v", n.Block.ID(), key)
		}
		for pos, c := range m {
			combined[pos+offset] = c
		}
		offset += n.Block.Len()
	}
	return combined, nil
}

// Merge locates the span of nodes between start and stop (given as
// block-id/strand keys taken from a merged hit) and replaces that
// span with a single node of newBlock, folding the span's mutations
// into a freshly assigned visit (spec.md section 4.3).
func (p *Path) Merge(start, stop BlockStrandKey, newBlock *Block) error {
	i, iok := p.indexOfBlock(start.BlockID)
	j, jok := p.indexOfBlock(stop.BlockID)
	if !iok || !jok {
		return ErrBlockNotInPath
	}

	var begin, end int
	var s strand.Strand
	if p.nodes[i].Strand == start.Strand {
		begin, end, s = i, j, strand.Plus
	} else {
		begin, end, s = j, i, strand.Minus
	}

	switch {
	case begin < end:
		run := p.nodes[begin : end+1]
		val, err := p.foldRun(run)
		if err != nil {
			return err
		}
		key := newBlock.Push(p.name, val)
		newNode := Node{Block: newBlock, Num: key.Num, Strand: s}
		nodes := make([]Node, 0, len(p.nodes)-(end-begin))
		nodes = append(nodes, p.nodes[:begin]...)
		nodes = append(nodes, newNode)
		nodes = append(nodes, p.nodes[end+1:]...)
		p.nodes = nodes
	case begin > end:
		if !p.circular {
			return ErrWrapOnLinearPath
		}
		tail := p.nodes[begin:]
		tailLen := 0
		for _, n := range tail {
			l, err := n.Length(p.name)
			if err != nil {
				return err
			}
			tailLen += l
		}
		run := make([]Node, 0, len(tail)+end+1)
		run = append(run, tail...)
		run = append(run, p.nodes[:end+1]...)
		val, err := p.foldRun(run)
		if err != nil {
			return err
		}
		key := newBlock.Push(p.name, val)
		newNode := Node{Block: newBlock, Num: key.Num, Strand: s}
		p.offset += tailLen
		nodes := make([]Node, 0, 1+begin-end-1)
		nodes = append(nodes, newNode)
		nodes = append(nodes, p.nodes[end+1:begin]...)
		p.nodes = nodes
	default:
		return errors.Errorf("path %s: merge with identical start/stop index is not supported", p.name)
	}

	return p.recomputePosition()
}

// NumsForBlock returns the distinct visit numbers this path's nodes use
// when referencing blockID, in node order. Ordinarily a path visits a
// given block with a single visit number; a path that legitimately
// repeats a block carries more than one.
func (p *Path) NumsForBlock(blockID string) []int {
	var nums []int
	seen := make(map[int]bool)
	for _, n := range p.nodes {
		if n.Block.ID() == blockID && !seen[n.Num] {
			seen[n.Num] = true
			nums = append(nums, n.Num)
		}
	}
	return nums
}

func (p *Path) indexOfBlock(id string) (int, bool) {
	for i, n := range p.nodes {
		if n.Block.ID() == id {
			return i, true
		}
	}
	return 0, false
}

// Replace substitutes every node referencing (oldBlock, oldTag) with
// the ordered list of items, composing strands and resolving visit
// numbers per spec.md section 4.3.
func (p *Path) Replace(oldBlock *Block, oldTag VisitKey, items []ReplacementItem, isomap IsoMap) error {
	var newNodes []Node
	for _, n := range p.nodes {
		if n.Block.ID() != oldBlock.ID() || n.Num != oldTag.Num {
			newNodes = append(newNodes, n)
			continue
		}
		os := n.Strand
		subs := make([]Node, 0, len(items))
		for _, item := range items {
			ns := strand.Compose(os, item.Strand)
			num := oldTag.Num
			if item.Merged {
				key, ok := isomap[item.Block.ID()][p.name]
				if !ok {
					return errors.Errorf("path %s: isomap missing entry for block %s isolate %s", p.name, item.Block.ID(), p.name)
				}
				num = key.Num
			}
			subs = append(subs, Node{Block: item.Block, Num: num, Strand: ns})
		}
		if os == strand.Minus {
			for l, r := 0, len(subs)-1; l < r; l, r = l+1, r-1 {
				subs[l], subs[r] = subs[r], subs[l]
			}
		}
		newNodes = append(newNodes, subs...)
	}
	p.nodes = newNodes
	return p.recomputePosition()
}
