package cigar

import "github.com/pkg/errors"

// Interval is a half-open [Lo, Hi) range in either the query or
// reference's original coordinate frame.
type Interval struct {
	Lo, Hi int
}

func (iv *Interval) valid() bool {
	return iv != nil && iv.Lo < iv.Hi
}

// SubBlock is one entry of the splitter's output: a consensus array
// plus each side's extra mutations (relative to that consensus) and
// the coord map needed to translate further mutations from the
// original isolate frame into this consensus's frame.
type SubBlock struct {
	Consensus []byte
	QMuts     map[int]byte
	QCoordMap CoordMap
	RMuts     map[int]byte
	RCoordMap CoordMap
}

// Split decomposes a CIGAR alignment between query and reference
// sequences into parallel qry/ref intervals and sub-blocks, cutting on
// soft/hard clips and indels of length >= cutoff (spec.md section
// 4.1). qry and ref must already be sliced to the aligned span the
// CIGAR describes.
func Split(ops Ops, qry, ref []byte, cutoff int) (qrys, refs []*Interval, blks []SubBlock, err error) {
	s := &splitter{qry: qry, ref: ref, cutoff: cutoff}
	s.resetPending()

	for _, op := range ops {
		switch op.Type {
		case Match:
			if err := s.checkSpan(op.Len, op.Len); err != nil {
				return nil, nil, nil, err
			}
			s.doMatch(op.Len)
		case Delete:
			if err := s.checkSpan(0, op.Len); err != nil {
				return nil, nil, nil, err
			}
			s.doDelete(op.Len)
		case Insert:
			if err := s.checkSpan(op.Len, 0); err != nil {
				return nil, nil, nil, err
			}
			s.doInsert(op.Len)
		case SoftClip, HardClip:
			if err := s.checkSpan(op.Len, 0); err != nil {
				return nil, nil, nil, err
			}
			s.doClip(op.Len)
		default:
			return nil, nil, nil, errors.Errorf("cigar: unsupported operation %q", string(op.Type))
		}
	}
	s.flushPending(&Interval{s.lq, s.rq}, &Interval{s.lr, s.rr})

	if len(s.qrys) != len(s.refs) || len(s.qrys) != len(s.blks) {
		return nil, nil, nil, errors.Errorf("cigar: internal invariant broken: len(qrys)=%d len(refs)=%d len(blks)=%d",
			len(s.qrys), len(s.refs), len(s.blks))
	}
	return s.qrys, s.refs, s.blks, nil
}

type splitter struct {
	qry, ref []byte
	cutoff   int

	rq, rr int // cursors into qry/ref
	lq, lr int // start of the pending sub-block's span

	blkseq []byte
	qmuts  map[int]byte
	rmuts  map[int]byte
	qrymap CoordMap
	refmap CoordMap

	qrys []*Interval
	refs []*Interval
	blks []SubBlock
}

func (s *splitter) checkSpan(qn, rn int) error {
	if s.rq+qn > len(s.qry) {
		return errors.Errorf("cigar: query overruns sequence of length %d at position %d+%d", len(s.qry), s.rq, qn)
	}
	if s.rr+rn > len(s.ref) {
		return errors.Errorf("cigar: reference overruns sequence of length %d at position %d+%d", len(s.ref), s.rr, rn)
	}
	return nil
}

func (s *splitter) resetPending() {
	s.blkseq = nil
	s.qmuts = map[int]byte{}
	s.rmuts = map[int]byte{}
	s.qrymap = CoordMap{Anchors: []int{s.rq}, Deltas: []int{-s.rq}}
	s.refmap = CoordMap{Anchors: []int{s.rr}, Deltas: []int{-s.rr}}
}

func (s *splitter) recordBreakpoint() {
	blkpos := len(s.blkseq)
	s.refmap.Anchors = append(s.refmap.Anchors, s.rr)
	s.refmap.Deltas = append(s.refmap.Deltas, blkpos-s.rr)
	s.qrymap.Anchors = append(s.qrymap.Anchors, s.rq)
	s.qrymap.Deltas = append(s.qrymap.Deltas, blkpos-s.rq)
}

// flushPending emits the pending sub-block when it is non-empty and at
// least one of qval/rval is a non-empty interval; it always resets the
// pending accumulator afterward.
func (s *splitter) flushPending(qval, rval *Interval) {
	validQ := qval.valid()
	validR := rval.valid()
	if len(s.blkseq) > 0 && (validQ || validR) {
		var qOut, rOut *Interval
		if validQ {
			iv := *qval
			qOut = &iv
		}
		if validR {
			iv := *rval
			rOut = &iv
		}
		consensus := make([]byte, len(s.blkseq))
		copy(consensus, s.blkseq)
		s.qrys = append(s.qrys, qOut)
		s.refs = append(s.refs, rOut)
		s.blks = append(s.blks, SubBlock{
			Consensus: consensus,
			QMuts:     s.qmuts,
			QCoordMap: s.qrymap,
			RMuts:     s.rmuts,
			RCoordMap: s.refmap,
		})
	}
	s.resetPending()
}

func (s *splitter) doMatch(l int) {
	blkpos := len(s.blkseq)
	refSlice := s.ref[s.rr : s.rr+l]
	qrySlice := s.qry[s.rq : s.rq+l]
	for i := 0; i < l; i++ {
		if qrySlice[i] != refSlice[i] {
			s.qmuts[blkpos+i] = qrySlice[i]
		}
	}
	s.blkseq = append(s.blkseq, refSlice...)
	s.rq += l
	s.rr += l
	s.recordBreakpoint()
}

func (s *splitter) doDelete(l int) {
	if l >= s.cutoff {
		s.flushPending(&Interval{s.lq, s.rq}, &Interval{s.lr, s.rr})
		s.blkseq = append(s.blkseq, s.ref[s.rr:s.rr+l]...)
		s.rr += l
		s.recordBreakpoint()
		s.flushPending(nil, &Interval{s.rr - l, s.rr})
		s.lq, s.lr = s.rq, s.rr
		return
	}
	blkpos := len(s.blkseq)
	for i := 0; i < l; i++ {
		s.qmuts[blkpos+i] = '-'
	}
	s.blkseq = append(s.blkseq, s.ref[s.rr:s.rr+l]...)
	s.rr += l
	s.recordBreakpoint()
}

func (s *splitter) doInsert(l int) {
	if l >= s.cutoff {
		s.flushPending(&Interval{s.lq, s.rq}, &Interval{s.lr, s.rr})
		s.blkseq = append(s.blkseq, s.qry[s.rq:s.rq+l]...)
		s.rq += l
		s.recordBreakpoint()
		s.flushPending(&Interval{s.rq - l, s.rq}, nil)
		s.lq, s.lr = s.rq, s.rr
		return
	}
	blkpos := len(s.blkseq)
	for i := 0; i < l; i++ {
		s.rmuts[blkpos+i] = '-'
	}
	s.blkseq = append(s.blkseq, s.qry[s.rq:s.rq+l]...)
	s.rq += l
	s.recordBreakpoint()
}

func (s *splitter) doClip(l int) {
	if l >= s.cutoff {
		s.flushPending(&Interval{s.lq, s.rq}, &Interval{s.lr, s.rr})
		s.blkseq = append(s.blkseq, s.qry[s.rq:s.rq+l]...)
		s.rq += l
		s.recordBreakpoint()
		s.flushPending(&Interval{s.rq - l, s.rq}, nil)
		s.lq, s.lr = s.rq, s.rr
		return
	}
	s.rq += l
	s.recordBreakpoint()
}
