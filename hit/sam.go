package hit

import "github.com/biogo/hts/sam"

// FromSAMCigar renders a biogo/hts sam.Cigar (as produced by parsing an
// external aligner's BAM/SAM output) into the standard CIGAR string
// form the splitter's cigar.Parse expects.
//
// Grounded on pileup/snp/pileup.go's read.samr.Cigar access pattern:
// this module never walks sam.Cigar operations itself (that belongs
// to the out-of-scope I/O layer per spec.md section 1); it only
// normalizes the already-parsed record into the hit.Hit.Cigar field.
// An empty sam.Cigar renders as "", as an empty cigar.Ops does.
func FromSAMCigar(c sam.Cigar) string {
	if len(c) == 0 {
		return ""
	}
	return c.String()
}
