// Command pan-build constructs a pan-genome graph from a set of input
// genomes and a PAF file of pairwise alignment hits between them,
// applied in file order, and writes the resulting graph as JSON
// (spec.md section 6).
//
// Usage:
//
//	pan-build -fasta genomes.fa -paf hits.paf -out graph.json
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/log"
	"github.com/grailbio/pangraph/hit"
	"github.com/grailbio/pangraph/pan"
	"github.com/pkg/errors"
)

var (
	fastaPath   = flag.String("fasta", "", "Input FASTA path with one record per isolate genome")
	pafPath     = flag.String("paf", "", "Input PAF path with pairwise alignment hits, in application order")
	jsonOut     = flag.String("out", "graph.json", "Output path for the persisted graph, spec.md section 6 JSON form")
	rioOut      = flag.String("rio-out", "", "Optional output path for a supplemental RecordIO checkpoint of the graph")
	cutoff      = flag.Int("cutoff", 0, "CIGAR splitter clip/indel cutoff; 0 uses the package default")
	parallelism = flag.Int("parallelism", 0, "Hit-decode batch parallelism; 0 decodes the whole batch at once")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -fasta <path> -paf <path> -out <path>\n", os.Args[0])
	flag.PrintDefaults()
}

func run() error {
	if *fastaPath == "" || *pafPath == "" {
		return errors.New("pan-build: -fasta and -paf are required")
	}

	fastaFile, err := os.Open(*fastaPath)
	if err != nil {
		return errors.Wrap(err, "pan-build: open fasta")
	}
	defer fastaFile.Close()
	store, err := hit.NewSeqStore(fastaFile)
	if err != nil {
		return errors.Wrap(err, "pan-build: read fasta")
	}
	log.Printf("pan-build: loaded %d sequences from %s", len(store.SeqNames()), *fastaPath)

	pafFile, err := os.Open(*pafPath)
	if err != nil {
		return errors.Wrap(err, "pan-build: open paf")
	}
	defer pafFile.Close()
	hits, err := hit.ParsePAF(pafFile)
	if err != nil {
		return errors.Wrap(err, "pan-build: read paf")
	}
	log.Printf("pan-build: loaded %d hits from %s", len(hits), *pafPath)

	b := pan.NewBuilder(pan.Opts{Cutoff: *cutoff, Parallelism: *parallelism})
	if err := b.Seed(store, nil); err != nil {
		return errors.Wrap(err, "pan-build: seed")
	}

	// The PAF file names isolates, not the block ids pan.Builder.Run
	// requires, and an isolate's block id changes every time one of its
	// prior hits splits it. Resolving that in general is a guide-tree
	// driver's job (out of scope per spec.md's Non-goals), so this CLI
	// only supports PAF files where every isolate still has exactly one
	// node at the time its hit is applied — each hit is resolved and
	// run immediately before moving to the next.
	for i, h := range hits {
		qryPath, ok := b.Graph().Path(h.Qry.Name)
		if !ok {
			return errors.Errorf("pan-build: hit %d references unknown isolate %q", i, h.Qry.Name)
		}
		refPath, ok := b.Graph().Path(h.Ref.Name)
		if !ok {
			return errors.Errorf("pan-build: hit %d references unknown isolate %q", i, h.Ref.Name)
		}
		if len(qryPath.Nodes()) != 1 || len(refPath.Nodes()) != 1 {
			return errors.Errorf("pan-build: hit %d: isolate %q or %q already split by an earlier hit; this CLI requires both isolates to still have exactly one node", i, h.Qry.Name, h.Ref.Name)
		}
		h.Qry.Name = qryPath.Nodes()[0].Block.ID()
		h.Ref.Name = refPath.Nodes()[0].Block.ID()
		h.QryCluster = hit.Cluster{Lo: h.Qry.Start, Hi: h.Qry.End}
		h.RefCluster = hit.Cluster{Lo: h.Ref.Start, Hi: h.Ref.End}
		if err := b.Run([]hit.Hit{h}); err != nil {
			return errors.Wrapf(err, "pan-build: apply hit %d", i)
		}
	}
	b.Finish()
	if err := b.Graph().CheckInvariants(); err != nil {
		return errors.Wrap(err, "pan-build: post-build invariant check")
	}
	log.Printf("pan-build: %d blocks, %d paths", len(b.Graph().BlockIDs()), len(b.Graph().PathNames()))

	out, err := os.Create(*jsonOut)
	if err != nil {
		return errors.Wrap(err, "pan-build: create output")
	}
	defer out.Close()
	if err := b.Graph().WriteJSON(out); err != nil {
		return errors.Wrap(err, "pan-build: write json")
	}

	if *rioOut != "" {
		rio, err := os.Create(*rioOut)
		if err != nil {
			return errors.Wrap(err, "pan-build: create rio output")
		}
		defer rio.Close()
		if err := b.Graph().DumpRecordIO(rio); err != nil {
			return errors.Wrap(err, "pan-build: write recordio checkpoint")
		}
	}
	return nil
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if err := run(); err != nil {
		log.Printf("pan-build: %v", err)
		os.Exit(1)
	}
}
