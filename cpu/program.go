package cpu

import (
	"fmt"
	"io"
	"iter"
)

// Record is one emitted (address, word) pair tied back to its source
// line.
type Record struct {
	Addr   uint16
	Word   Word
	LineNo int
}

// Program is the result of a successful assembly: the original
// source lines and the emitted records in assembly order.
type Program struct {
	Source  []string
	Records []Record
}

// Words iterates the emitted (address, word) pairs in assembly order.
func (prog *Program) Words() iter.Seq2[uint16, Word] {
	return func(yield func(addr uint16, w Word) bool) {
		for _, rec := range prog.Records {
			if !yield(rec.Addr, rec.Word) {
				return
			}
		}
	}
}

// WriteLoad writes the load image: one record per line, address and
// word as 6 octal digits each.
func (prog *Program) WriteLoad(w io.Writer) (err error) {
	for _, rec := range prog.Records {
		_, err = fmt.Fprintf(w, "%06o\t%06o\n", rec.Addr, uint16(rec.Word))
		if err != nil {
			return
		}
	}

	return
}

// WriteListing writes the listing: every source line in order, with
// the address/word columns prefixed on lines that emitted a word.
// Blank, comment-only, label-only and LOC lines are reproduced
// verbatim.
func (prog *Program) WriteListing(w io.Writer) (err error) {
	byLine := map[int]Record{}
	for _, rec := range prog.Records {
		byLine[rec.LineNo] = rec
	}

	for n, line := range prog.Source {
		rec, ok := byLine[n+1]
		if ok {
			_, err = fmt.Fprintf(w, "%06o\t%06o %s\n", rec.Addr, uint16(rec.Word), line)
		} else {
			_, err = fmt.Fprintf(w, "%s\n", line)
		}
		if err != nil {
			return
		}
	}

	return
}
