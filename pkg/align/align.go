// 16 Feb 2026

// Package align drives one of the multiple sequence alignment tools.
// The set of tools is closed. Each one has its own idea about where
// output goes: mafft writes to stdout, the other two take an output
// file name. Either way the caller gets back the path of an aligned
// fasta file in the output directory.
package align

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mwiesner/phylopipe/pkg/exttool"
)

// Method names one alignment tool.
type Method string

const (
	Mafft    Method = "mafft"
	Clustalo Method = "clustalo"
	Muscle   Method = "muscle"
)

// Methods lists the tools we know how to call.
func Methods() []Method { return []Method{Mafft, Clustalo, Muscle} }

// Valid says whether a method is one of ours. It is checked at
// configuration time, so by the time Run is called an unknown method
// is a programming error.
func Valid(m Method) bool {
	for _, k := range Methods() {
		if m == k {
			return true
		}
	}
	return false
}

// OutFname is where the alignment for a method lands.
func OutFname(outDir string, m Method) string {
	return filepath.Join(outDir, "alignment_"+string(m)+".fasta")
}

// Run aligns the combined fasta file and returns the path of the
// alignment. Exactly one method runs per pipeline execution.
func Run(ctx context.Context, m Method, combined, outDir string, vbsty int) (string, error) {
	out := OutFname(outDir, m)
	var cmd exttool.Cmd
	switch m {
	case Mafft:
		cmd = exttool.Cmd{
			Prog:     "mafft",
			Args:     []string{"--auto", combined},
			StdoutTo: out,
		}
	case Clustalo:
		cmd = exttool.Cmd{
			Prog:    "clustalo",
			Args:    []string{"-i", combined, "-o", out, "--force"},
			OutFile: out,
		}
	case Muscle:
		cmd = exttool.Cmd{
			Prog:    "muscle",
			Args:    []string{"-in", combined, "-out", out},
			OutFile: out,
		}
	default:
		return "", fmt.Errorf("unknown alignment method %q", m)
	}
	if err := exttool.Run(ctx, cmd, vbsty); err != nil {
		return "", err
	}
	return out, nil
}
