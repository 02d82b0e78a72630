// 14 Feb 2026

// Package fasta moves protein sequences in and out of fasta format.
// The parsing is done by biogo's reader, so what lives here is the
// small amount of bookkeeping the pipeline wants: a flat record type,
// deterministic per-species file names and the concatenation of many
// little files into one big one. Everything that goes through here is
// protein, so the alphabet is fixed.
package fasta

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

// A Record is one sequence as we care about it: the identifier from
// the comment line, the rest of the comment line and the residues.
type Record struct {
	ID   string
	Desc string
	Seq  []byte
}

// lineWidth is what we use when writing sequences out. NCBI uses 70,
// alignment tools do not care.
const lineWidth = 70

// ReadAll reads fasta records until the reader is exhausted.
// A reader with no records is an error. It usually means an empty
// file, which usually means an earlier step quietly did nothing.
func ReadAll(r io.Reader) ([]Record, error) {
	tmpl := linear.NewSeq("", nil, alphabet.Protein)
	rdr := fasta.NewReader(r, tmpl)
	var recs []Record
	for {
		s, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		l, ok := s.(*linear.Seq)
		if !ok {
			return nil, fmt.Errorf("fasta reader returned a %T, not a linear sequence", s)
		}
		recs = append(recs, Record{
			ID:   l.ID,
			Desc: l.Desc,
			Seq:  []byte(alphabet.Letters(l.Seq).String()),
		})
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("no fasta records found")
	}
	return recs, nil
}

// ReadFile is ReadAll on a named file.
func ReadFile(fname string) ([]Record, error) {
	fp, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	recs, err := ReadAll(fp)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", fname, err)
	}
	return recs, nil
}

// Write writes records to w in fasta format.
func Write(w io.Writer, recs []Record) error {
	wrtr := fasta.NewWriter(w, lineWidth)
	for _, rec := range recs {
		s := linear.NewSeq(rec.ID, alphabet.BytesToLetters(rec.Seq), alphabet.Protein)
		s.Desc = rec.Desc
		if _, err := wrtr.Write(s); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes records to a named file, clobbering whatever was
// there before.
func WriteFile(fname string, recs []Record) error {
	fp, err := os.Create(fname)
	if err != nil {
		return err
	}
	if err := Write(fp, recs); err != nil {
		fp.Close()
		return fmt.Errorf("writing %s: %w", fname, err)
	}
	return fp.Close()
}

// SpeciesFname gives the deterministic name for one fetched sequence.
// "fliC" + "Escherichia coli" becomes fliC_Escherichia_coli.fasta, so
// a second run lands on the same file.
func SpeciesFname(gene, org string) string {
	org = strings.ReplaceAll(org, " ", "_")
	return gene + "_" + org + ".fasta"
}

// Combine concatenates the named fasta files, in the order given,
// into outPath. The files are copied byte for byte. A missing input
// file is reported with its name, since it means an earlier step did
// not do what it claimed.
func Combine(outPath string, paths []string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	for _, p := range paths {
		fp, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("combining into %s: %w", outPath, err)
		}
		n, err := io.Copy(out, fp)
		fp.Close()
		if err != nil {
			return fmt.Errorf("combining %s into %s: %w", p, outPath, err)
		}
		if n > 0 {
			if err := ensureNewline(out); err != nil {
				return err
			}
		}
	}
	return out.Sync()
}

// ensureNewline appends a newline unless the file already ends in
// one. Some tools are fussy when two records end up on one line.
func ensureNewline(fp *os.File) error {
	fi, err := fp.Stat()
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		return nil
	}
	var last [1]byte
	if _, err := fp.ReadAt(last[:], fi.Size()-1); err != nil {
		return err
	}
	if last[0] != '\n' {
		if _, err := fp.Write([]byte{'\n'}); err != nil {
			return err
		}
	}
	return nil
}
