// Package pan is the guide-tree-driven build coordinator: it seeds a
// graph.Graph from a set of input genomes and drives it through a
// caller-supplied, externally ordered batch of alignment hits.
//
// This package is supplemental to the pan-graph data model in graph/:
// nothing here is required to construct or query a graph by hand, but
// it is the natural entry point for a command-line tool that already
// has a PAF file and a guide tree and wants to build one.
package pan

import "github.com/grailbio/pangraph/graph"

// Opts configures a Builder, following the Opts/DefaultOpts pattern
// (a config struct plus a package-level default value).
type Opts struct {
	// Cutoff is the CIGAR splitter's clip/large-indel cutoff (spec.md
	// section 4.1). Zero means graph.DefaultCutoff.
	Cutoff int
	// Parallelism bounds how many hits in one Run batch are decoded
	// concurrently. Zero means every hit in the batch decodes at once.
	Parallelism int
}

// DefaultOpts mirrors graph.NewGraph's own default cutoff and runs
// the decode phase fully parallel.
var DefaultOpts = Opts{
	Cutoff:      graph.DefaultCutoff,
	Parallelism: 0,
}
