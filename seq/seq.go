// Package seq provides the character-array utilities shared by the
// pan-graph block and path types: conversion between strings and byte
// arrays, base-alphabet validation, and reverse complementation.
//
// Bases are represented as single ASCII bytes drawn from {A,C,G,T,N,-}
// as required by spec.md section 6. ToArray does not change case, and
// Validate rejects lowercase bases.
package seq

import "github.com/pkg/errors"

// Gap is the gap character used inside a block's consensus and
// mutation maps.
const Gap = '-'

// ToArray converts a sequence string into a mutable byte array.
func ToArray(s string) []byte {
	return []byte(s)
}

// FromArray converts a byte array back into a string.
func FromArray(a []byte) string {
	return string(a)
}

// Validate reports an error if any byte of seq is outside the
// {A,C,G,T,N,-} alphabet.
func Validate(a []byte) error {
	for i, b := range a {
		switch b {
		case 'A', 'C', 'G', 'T', 'N', Gap:
		default:
			return errors.Errorf("invalid base %q at position %d", b, i)
		}
	}
	return nil
}

// StripGaps returns a copy of a with every Gap byte removed.
func StripGaps(a []byte) []byte {
	out := make([]byte, 0, len(a))
	for _, b := range a {
		if b != Gap {
			out = append(out, b)
		}
	}
	return out
}

// CountGaps returns the number of Gap bytes in a.
func CountGaps(a []byte) int {
	n := 0
	for _, b := range a {
		if b == Gap {
			n++
		}
	}
	return n
}
