package hit

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// SeqStore holds a set of named input genomes in memory, keyed by the
// isolate name used elsewhere in a Hit/Path. It mirrors the
// Get/Len/SeqNames shape of encoding/fasta.Fasta, adapted to this
// module's needs: eager, unindexed, whole-sequence access (a pan-graph
// build reads every input genome at least once to seed its paths).
type SeqStore struct {
	seqs     map[string]string
	seqNames []string
}

// NewSeqStore reads FASTA-formatted data from r into an in-memory
// SeqStore. Grounded on encoding/fasta/fasta.go's newEagerUnindexed.
func NewSeqStore(r io.Reader) (*SeqStore, error) {
	s := &SeqStore{seqs: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 300*1024*1024)
	var name string
	var seq strings.Builder
	flush := func() {
		if name != "" {
			s.seqs[name] = seq.String()
			s.seqNames = append(s.seqNames, name)
			seq.Reset()
		}
	}
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			flush()
			name = strings.Split(line[1:], " ")[0]
		} else {
			seq.WriteString(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "seqstore: read error")
	}
	flush()
	return s, nil
}

// Get returns the full sequence for the given isolate name.
func (s *SeqStore) Get(name string) (string, error) {
	seq, ok := s.seqs[name]
	if !ok {
		return "", errors.Errorf("seqstore: sequence not found: %s", name)
	}
	return seq, nil
}

// Len returns the length of the given isolate's sequence.
func (s *SeqStore) Len(name string) (int, error) {
	seq, err := s.Get(name)
	if err != nil {
		return 0, err
	}
	return len(seq), nil
}

// SeqNames returns isolate names in file order.
func (s *SeqStore) SeqNames() []string {
	return s.seqNames
}
