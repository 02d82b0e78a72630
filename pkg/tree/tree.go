// 17 Feb 2026

// Package tree drives the phylogenetic tree builders. The three
// methods are independent of each other, so they all get to run and
// each one reports its own outcome. One of them falling over does not
// take the others with it. The argument sets are fixed. They are the
// ones the analysis has always used and are not worth configuring.
package tree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/evolbioinfo/gotree/io/newick"
	"github.com/mwiesner/phylopipe/pkg/exttool"
)

// Method names one tree building tool.
type Method string

const (
	FastTree Method = "fasttree"
	RAxML    Method = "raxml"
	IQTree   Method = "iqtree"
)

// MinTaxa is the smallest alignment worth handing to a tree builder.
// With two sequences there is exactly one unrooted topology and most
// of the tools refuse the job anyway, so we refuse it first.
const MinTaxa = 3

// Methods lists the builders we know how to call.
func Methods() []Method { return []Method{FastTree, RAxML, IQTree} }

// Valid says whether a method is one of ours.
func Valid(m Method) bool {
	for _, k := range Methods() {
		if m == k {
			return true
		}
	}
	return false
}

// A Result is the outcome for one method. Path is the main tree file
// when Err is nil. raxml and iqtree drop a pile of sibling files next
// to it (bootstrap summaries, logs); Path is the one a reader of the
// results wants.
type Result struct {
	Method Method
	Path   string
	Err    error
}

// Build runs one tree builder over an alignment and returns the path
// of its tree file.
func Build(ctx context.Context, m Method, aln, outDir string, vbsty int) (string, error) {
	var cmd exttool.Cmd
	var out string
	switch m {
	case FastTree:
		out = strings.TrimSuffix(aln, ".fasta") + ".fasttree.nwk"
		cmd = exttool.Cmd{
			Prog:     "FastTree",
			Args:     []string{"-lg", aln},
			StdoutTo: out,
		}
	case RAxML:
		// raxml insists on an absolute working directory and
		// invents its output name from the -n argument.
		absDir, err := filepath.Abs(outDir)
		if err != nil {
			return "", err
		}
		out = filepath.Join(absDir, "RAxML_bestTree.raxml_tree")
		cmd = exttool.Cmd{
			Prog: "raxmlHPC-PTHREADS",
			Args: []string{"-T", "2", "-s", aln, "-n", "raxml_tree",
				"-m", "PROTGAMMAJTT", "-p", "12345", "-#", "100",
				"-w", absDir},
			OutFile: out,
		}
	case IQTree:
		prefix := filepath.Join(outDir, "iqtree_out")
		out = prefix + ".treefile"
		cmd = exttool.Cmd{
			Prog: "iqtree",
			Args: []string{"-s", aln, "-m", "MFP", "-B", "1000",
				"--prefix", prefix},
			OutFile: out,
		}
	default:
		return "", fmt.Errorf("unknown tree method %q", m)
	}
	if err := exttool.Run(ctx, cmd, vbsty); err != nil {
		return "", err
	}
	return out, nil
}

// BuildAll runs every requested builder over the same alignment at
// the same time and collects one Result per method, in the order the
// methods were given. The tools have no dependency on each other, so
// running them together costs nothing but cores. A non-zero timeout
// applies to each builder separately.
func BuildAll(ctx context.Context, timeout time.Duration, methods []Method, aln, outDir string, vbsty int) []Result {
	rslts := make([]Result, len(methods))
	var wg sync.WaitGroup
	for i, m := range methods {
		wg.Add(1)
		go func(i int, m Method) {
			defer wg.Done()
			mCtx, cancel := ctx, context.CancelFunc(func() {})
			if timeout > 0 {
				mCtx, cancel = context.WithTimeout(ctx, timeout)
			}
			path, err := Build(mCtx, m, aln, outDir, vbsty)
			cancel()
			rslts[i] = Result{Method: m, Path: path, Err: err}
		}(i, m)
	}
	wg.Wait()
	return rslts
}

// LeafCount parses a newick file and counts its leaves. It is how the
// pipeline checks a builder did not quietly drop a taxon.
func LeafCount(fname string) (int, error) {
	fp, err := os.Open(fname)
	if err != nil {
		return 0, err
	}
	defer fp.Close()
	t, err := newick.NewParser(fp).Parse()
	if err != nil {
		return 0, fmt.Errorf("parsing tree %s: %w", fname, err)
	}
	return len(t.Tips()), nil
}
