// 24 Feb 2026

package phylopipe_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwiesner/phylopipe/pkg/align"
	"github.com/mwiesner/phylopipe/pkg/config"
	"github.com/mwiesner/phylopipe/pkg/entrez"
	"github.com/mwiesner/phylopipe/pkg/exttool"
	"github.com/mwiesner/phylopipe/pkg/fasta"
	"github.com/mwiesner/phylopipe/pkg/phylopipe"
	"github.com/mwiesner/phylopipe/pkg/tree"
)

// cannedFetcher serves sequences from a map instead of NCBI. The map
// key is "gene organism".
type cannedFetcher struct {
	seqs map[string]string
}

func (c *cannedFetcher) Search(ctx context.Context, gene, org string) (string, error) {
	if _, ok := c.seqs[gene+" "+org]; !ok {
		return "", &entrez.NotFoundErr{Gene: gene, Org: org}
	}
	return gene + " " + org, nil
}

func (c *cannedFetcher) Fetch(ctx context.Context, id string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(c.seqs[id])), nil
}

var threeSpecies = []config.Species{
	{Gene: "fliC", Organism: "Escherichia coli"},
	{Gene: "flaA", Organism: "Vibrio cholerae"},
	{Gene: "fliC", Organism: "Salmonella enterica"},
}

func fetcherFor(species []config.Species) *cannedFetcher {
	f := &cannedFetcher{seqs: make(map[string]string)}
	for i, sp := range species {
		f.seqs[sp.Gene+" "+sp.Organism] = fmt.Sprintf(
			">WP_%06d.1 flagellin [%s]\nMAQVINTNSLSLLTQNNLNKS%c\n",
			i+1, sp.Organism, 'A'+i)
	}
	return f
}

func fakeTool(t *testing.T, dir, name, script string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+script+"\n"), 0777); err != nil {
		t.Fatal(err)
	}
}

// newickFor emits one leaf per record in the file named by $2, which
// is how the fake FastTree keeps the leaf-count check honest.
const fakeFastTree = `
n=$(grep -c '^>' "$2")
printf '('
i=1
while [ $i -le $n ]; do
	[ $i -gt 1 ] && printf ','
	printf 'L%d:0.1' $i
	i=$((i+1))
done
printf ');\n'`

func setup(t *testing.T, species []config.Species) *config.Config {
	t.Helper()
	binDir := t.TempDir()
	fakeTool(t, binDir, "mafft", `cat "$2"`)
	fakeTool(t, binDir, "FastTree", fakeFastTree)
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))

	cfg := config.Default()
	cfg.Species = species
	cfg.TreeMethods = []tree.Method{tree.FastTree}
	cfg.OutDir = filepath.Join(t.TempDir(), "out")
	cfg.Email = "nobody@example.org"
	return cfg
}

func TestPipeline(t *testing.T) {
	cfg := setup(t, threeSpecies)
	opts := &phylopipe.Opts{Cfg: cfg, Fetcher: fetcherFor(threeSpecies)}

	if err := phylopipe.Mymain(context.Background(), opts); err != nil {
		t.Fatal(err)
	}

	// One file per species, named from the pair.
	for _, sp := range threeSpecies {
		p := filepath.Join(cfg.OutDir, fasta.SpeciesFname(sp.Gene, sp.Organism))
		recs, err := fasta.ReadFile(p)
		if err != nil {
			t.Fatal("per-species file:", err)
		}
		if len(recs) != 1 {
			t.Fatalf("%s has %d records, wanted 1", p, len(recs))
		}
	}

	// Combined record count matches the species list.
	n, err := fasta.NumSeq(filepath.Join(cfg.OutDir, "combined.fasta"))
	if err != nil {
		t.Fatal(err)
	}
	if n != len(threeSpecies) {
		t.Fatalf("combined has %d records, wanted %d", n, len(threeSpecies))
	}

	// Alignment kept every sequence.
	aln := align.OutFname(cfg.OutDir, align.Mafft)
	if nAln, _ := fasta.NumSeq(aln); nAln != n {
		t.Fatalf("alignment has %d records, combined had %d", nAln, n)
	}

	// The tree is there and has one leaf per sequence.
	nwk := strings.TrimSuffix(aln, ".fasta") + ".fasttree.nwk"
	nLeaf, err := tree.LeafCount(nwk)
	if err != nil {
		t.Fatal(err)
	}
	if nLeaf != n {
		t.Fatalf("tree has %d leaves, wanted %d", nLeaf, n)
	}
}

// TestPipelineIdempotentFetch re-runs the run and expects the
// per-species files to come out byte for byte the same.
func TestPipelineIdempotentFetch(t *testing.T) {
	cfg := setup(t, threeSpecies)
	opts := &phylopipe.Opts{Cfg: cfg, Fetcher: fetcherFor(threeSpecies)}

	first := make(map[string][]byte)
	if err := phylopipe.Mymain(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	for _, sp := range threeSpecies {
		p := filepath.Join(cfg.OutDir, fasta.SpeciesFname(sp.Gene, sp.Organism))
		raw, err := os.ReadFile(p)
		if err != nil {
			t.Fatal(err)
		}
		first[p] = raw
	}
	if err := phylopipe.Mymain(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	for p, want := range first {
		got, err := os.ReadFile(p)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != string(want) {
			t.Fatal("re-run changed", p)
		}
	}
}

func TestNotFoundAborts(t *testing.T) {
	species := append([]config.Species{}, threeSpecies...)
	species = append(species, config.Species{Gene: "fliZ", Organism: "Planctomyces nowhere"})
	cfg := setup(t, species)
	// The fetcher only knows the first three.
	opts := &phylopipe.Opts{Cfg: cfg, Fetcher: fetcherFor(threeSpecies)}

	err := phylopipe.Mymain(context.Background(), opts)
	var nf *entrez.NotFoundErr
	if !errors.As(err, &nf) {
		t.Fatalf("wanted NotFoundErr, got %v", err)
	}
	if !strings.Contains(err.Error(), "Planctomyces nowhere") {
		t.Fatal("error does not name the failing pair:", err)
	}
	// Nothing downstream of the fetch may exist.
	if _, err := os.Stat(filepath.Join(cfg.OutDir, "combined.fasta")); err == nil {
		t.Fatal("combined file written despite aborted fetch")
	}
}

// TestTooFewTaxa is the single-species scenario. The contract here:
// fetch, combine and align all run, then the tree stage refuses the
// job before any builder is invoked.
func TestTooFewTaxa(t *testing.T) {
	one := threeSpecies[:1]
	cfg := setup(t, one)
	opts := &phylopipe.Opts{Cfg: cfg, Fetcher: fetcherFor(one)}

	err := phylopipe.Mymain(context.Background(), opts)
	if err == nil {
		t.Fatal("one taxon should not reach the tree builders")
	}
	if !strings.Contains(err.Error(), "taxa") {
		t.Fatal("error should explain the taxa precondition:", err)
	}
	// The alignment itself must exist: the run got that far.
	aln := align.OutFname(cfg.OutDir, align.Mafft)
	if n, err := fasta.NumSeq(aln); err != nil || n != 1 {
		t.Fatalf("single-sequence alignment missing: n %d, err %v", n, err)
	}
	// No tree file.
	if _, err := os.Stat(strings.TrimSuffix(aln, ".fasta") + ".fasttree.nwk"); err == nil {
		t.Fatal("a tree appeared for one taxon")
	}
}

// TestAlignerMissing knocks the aligner off PATH. Fetched and
// combined files must survive the abort.
func TestAlignerMissing(t *testing.T) {
	cfg := setup(t, threeSpecies)
	t.Setenv("PATH", t.TempDir()) // no tools at all
	opts := &phylopipe.Opts{Cfg: cfg, Fetcher: fetcherFor(threeSpecies)}

	err := phylopipe.Mymain(context.Background(), opts)
	var terr *exttool.Error
	if !errors.As(err, &terr) {
		t.Fatalf("wanted an *exttool.Error, got %v", err)
	}
	if n, err := fasta.NumSeq(filepath.Join(cfg.OutDir, "combined.fasta")); err != nil || n != 3 {
		t.Fatalf("combined file should survive the abort: n %d, err %v", n, err)
	}
}

func TestNoEmail(t *testing.T) {
	cfg := setup(t, threeSpecies)
	cfg.Email = ""
	opts := &phylopipe.Opts{Cfg: cfg, Fetcher: fetcherFor(threeSpecies)}
	err := phylopipe.Mymain(context.Background(), opts)
	if err == nil || !strings.Contains(err.Error(), config.EnvEmail) {
		t.Fatal("missing email must name the variable to set, got", err)
	}
}

func TestDryRun(t *testing.T) {
	cfg := setup(t, threeSpecies)
	opts := &phylopipe.Opts{Cfg: cfg, DryRun: true}
	if err := phylopipe.Mymain(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cfg.OutDir); err == nil {
		t.Fatal("dry run must not create the output directory")
	}
}
