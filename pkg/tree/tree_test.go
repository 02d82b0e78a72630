// 23 Feb 2026

package tree_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwiesner/phylopipe/pkg/exttool"
	"github.com/mwiesner/phylopipe/pkg/tree"
)

const newick3 = "(WP_1:0.1,WP_2:0.2,WP_3:0.3);"

func fakeTool(t *testing.T, dir, name, script string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+script+"\n"), 0777); err != nil {
		t.Fatal(err)
	}
}

func setup(t *testing.T) (binDir, outDir, aln string) {
	t.Helper()
	binDir, outDir = t.TempDir(), t.TempDir()
	aln = filepath.Join(outDir, "alignment_mafft.fasta")
	const aligned = ">WP_1\nMKLV\n>WP_2\nMSTV\n>WP_3\nMAAV\n"
	if err := os.WriteFile(aln, []byte(aligned), 0666); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))
	return binDir, outDir, aln
}

func TestFastTree(t *testing.T) {
	binDir, outDir, aln := setup(t)
	fakeTool(t, binDir, "FastTree", `echo '`+newick3+`'`)

	out, err := tree.Build(context.Background(), tree.FastTree, aln, outDir, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(out, ".fasttree.nwk") {
		t.Fatal("fasttree output name wrong:", out)
	}
	n, err := tree.LeafCount(out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("leaf count %d, wanted 3", n)
	}
}

// TestRAxML checks we find the file raxml invents from its -n
// argument inside the -w directory.
func TestRAxML(t *testing.T) {
	binDir, outDir, aln := setup(t)
	fakeTool(t, binDir, "raxmlHPC-PTHREADS", `
while [ $# -gt 1 ]; do
	if [ "$1" = "-w" ]; then d="$2"; fi
	shift
done
echo '`+newick3+`' > "$d/RAxML_bestTree.raxml_tree"`)

	out, err := tree.Build(context.Background(), tree.RAxML, aln, outDir, 0)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(out) != "RAxML_bestTree.raxml_tree" {
		t.Fatal("raxml output name wrong:", out)
	}
	if n, _ := tree.LeafCount(out); n != 3 {
		t.Fatal("raxml tree lost leaves")
	}
}

func TestIQTree(t *testing.T) {
	binDir, outDir, aln := setup(t)
	fakeTool(t, binDir, "iqtree", `
while [ $# -gt 1 ]; do
	if [ "$1" = "--prefix" ]; then p="$2"; fi
	shift
done
echo '`+newick3+`' > "$p.treefile"`)

	out, err := tree.Build(context.Background(), tree.IQTree, aln, outDir, 0)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(out) != "iqtree_out.treefile" {
		t.Fatal("iqtree output name wrong:", out)
	}
}

// TestBuildAllIsolation is the point of the redesigned tree stage:
// one broken builder must not stop the others, and every method must
// report its own outcome.
func TestBuildAllIsolation(t *testing.T) {
	binDir, outDir, aln := setup(t)
	fakeTool(t, binDir, "FastTree", `echo '`+newick3+`'`)
	fakeTool(t, binDir, "iqtree", `echo "segfault, probably" >&2; exit 2`)
	// raxmlHPC-PTHREADS is deliberately not installed at all.

	methods := []tree.Method{tree.FastTree, tree.RAxML, tree.IQTree}
	rslts := tree.BuildAll(context.Background(), 0, methods, aln, outDir, 0)
	if len(rslts) != 3 {
		t.Fatalf("wanted 3 results, got %d", len(rslts))
	}
	for i, m := range methods {
		if rslts[i].Method != m {
			t.Fatalf("result %d is for %s, wanted %s", i, rslts[i].Method, m)
		}
	}
	if rslts[0].Err != nil {
		t.Fatal("fasttree should have worked:", rslts[0].Err)
	}
	var terr *exttool.Error
	if !errors.As(rslts[1].Err, &terr) || terr.ExitCode != -1 {
		t.Fatal("missing raxml binary should be a tool error, got", rslts[1].Err)
	}
	if !errors.As(rslts[2].Err, &terr) || terr.ExitCode != 2 {
		t.Fatal("failing iqtree should report its exit code, got", rslts[2].Err)
	}
	if !strings.Contains(rslts[2].Err.Error(), "segfault") {
		t.Fatal("iqtree stderr lost:", rslts[2].Err)
	}
}

func TestLeafCountBadFile(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "not_a_tree")
	if err := os.WriteFile(bad, []byte("this is no newick"), 0666); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.LeafCount(bad); err == nil {
		t.Fatal("parsing junk as newick should fail")
	}
	if _, err := tree.LeafCount(filepath.Join(dir, "nosuch")); err == nil {
		t.Fatal("missing tree file should fail")
	}
}

func TestValid(t *testing.T) {
	for _, m := range tree.Methods() {
		if !tree.Valid(m) {
			t.Error(m, "should be valid")
		}
	}
	if tree.Valid("neighborjoining") {
		t.Error("neighborjoining is not one of ours")
	}
}
