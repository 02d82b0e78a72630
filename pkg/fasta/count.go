// 15 Feb 2026

package fasta

import (
	"bytes"
	"os"

	"github.com/edsrzf/mmap-go"
)

// NumSeq counts the records in a fasta file by mapping it and
// counting comment characters. For the file sizes here this is
// instant, and nothing gets parsed, so it works on a file some
// external tool wrote however strangely it wrapped the lines.
// A record starts with '>' at the start of a line, not anywhere.
// Deflines from genbank can contain '>' in the free text, so we
// count "\n>" and then look at the first byte.
// A zero length file has zero records, but mmap does not like
// mapping it, so that case goes first.
func NumSeq(fname string) (int, error) {
	fp, err := os.Open(fname)
	if err != nil {
		return 0, err
	}
	defer fp.Close()
	if fi, err := fp.Stat(); err != nil {
		return 0, err
	} else if fi.Size() == 0 {
		return 0, nil
	}
	mm, err := mmap.Map(fp, mmap.RDONLY, 0)
	if err != nil {
		return 0, err
	}
	defer mm.Unmap()
	n := bytes.Count(mm, []byte("\n>"))
	if mm[0] == '>' {
		n++
	}
	return n, nil
}
