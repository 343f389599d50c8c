package hit

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/pangraph/strand"
	"github.com/pkg/errors"
)

// ParsePAF reads minimap2-style PAF records from r and returns the
// corresponding Hit records, minus the alignment sequences (which PAF
// does not carry; callers must fill QrySeq/RefSeq before the hit
// reaches graph.FromAlignment, as pan.Builder.Run does from the
// consensus of the blocks the hit names).
//
// Grounded directly on original_source/py/utils.py's parsepaf: the
// twelve mandatory PAF columns, plus the optional "cg:" CIGAR tag.
func ParsePAF(r io.Reader) ([]Hit, error) {
	var hits []Hit
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 64*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cols := strings.Fields(line)
		if len(cols) < 12 {
			return nil, errors.Errorf("paf: line %d: expected at least 12 columns, got %d", lineNo, len(cols))
		}
		h := Hit{}
		var err error
		h.Qry.Name = cols[0]
		if h.Qry.Len, err = strconv.Atoi(cols[1]); err != nil {
			return nil, errors.Wrapf(err, "paf: line %d: qry len", lineNo)
		}
		if h.Qry.Start, err = strconv.Atoi(cols[2]); err != nil {
			return nil, errors.Wrapf(err, "paf: line %d: qry start", lineNo)
		}
		if h.Qry.End, err = strconv.Atoi(cols[3]); err != nil {
			return nil, errors.Wrapf(err, "paf: line %d: qry end", lineNo)
		}
		switch cols[4] {
		case "+":
			h.Orientation = strand.Plus
		case "-":
			h.Orientation = strand.Minus
		default:
			return nil, errors.Errorf("paf: line %d: unexpected orientation %q", lineNo, cols[4])
		}
		h.Ref.Name = cols[5]
		if h.Ref.Len, err = strconv.Atoi(cols[6]); err != nil {
			return nil, errors.Wrapf(err, "paf: line %d: ref len", lineNo)
		}
		if h.Ref.Start, err = strconv.Atoi(cols[7]); err != nil {
			return nil, errors.Wrapf(err, "paf: line %d: ref start", lineNo)
		}
		if h.Ref.End, err = strconv.Atoi(cols[8]); err != nil {
			return nil, errors.Wrapf(err, "paf: line %d: ref end", lineNo)
		}
		for _, extra := range cols[12:] {
			if strings.HasPrefix(extra, "cg:") {
				parts := strings.Split(extra, ":")
				h.Cigar = parts[len(parts)-1]
			}
		}
		hits = append(hits, h)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "paf: read error")
	}
	return hits, nil
}
