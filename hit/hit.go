// Package hit defines the normalized alignment-hit record that is the
// external interface to the pan-graph core (spec.md section 6), plus
// I/O-boundary helpers (PAF parsing, SAM/BAM CIGAR conversion, FASTA
// sequence loading) that sit outside the core but feed it.
package hit

import "github.com/grailbio/pangraph/strand"

// Side describes one end of a pairwise alignment.
type Side struct {
	Name  string
	Len   int
	Start int
	End   int
}

// Cluster is a half-open [Lo, Hi) interval in a block's consensus
// frame, used to scope which of an isolate's existing mutations fall
// within the span a hit re-aligns (spec.md section 4.2.1).
type Cluster struct {
	Lo, Hi int
}

// Hit is one pairwise alignment record consumed by the merge
// algorithm (spec.md section 6).
type Hit struct {
	Qry         Side
	Ref         Side
	Cigar       string
	Orientation strand.Strand
	QrySeq      string
	RefSeq      string
	QryCluster  Cluster
	RefCluster  Cluster
}
