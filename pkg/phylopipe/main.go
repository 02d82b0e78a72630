// 19 Feb 2026

// Package phylopipe is the pipeline itself. The steps have not
// changed since this was a shell script: fetch a protein sequence per
// species, put them all in one file, align that, hand the alignment
// to the tree builders. Each step's output file is the next step's
// input and the first failure before the tree stage kills the run.
// The tree stage is different. The builders do not depend on each
// other, so each one gets to try and each one reports separately.
package phylopipe

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mwiesner/phylopipe/pkg/align"
	"github.com/mwiesner/phylopipe/pkg/config"
	"github.com/mwiesner/phylopipe/pkg/entrez"
	"github.com/mwiesner/phylopipe/pkg/fasta"
	"github.com/mwiesner/phylopipe/pkg/galaxy"
	"github.com/mwiesner/phylopipe/pkg/tree"
)

// A Fetcher finds and retrieves one protein record. It is the entrez
// client in real runs and a canned lookup in tests.
type Fetcher interface {
	Search(ctx context.Context, gene, org string) (string, error)
	Fetch(ctx context.Context, id string) (io.ReadCloser, error)
}

// Opts is what the command line hands us.
type Opts struct {
	Cfg     *config.Config
	Fetcher Fetcher // nil means build an entrez client from Cfg
	Remote  bool    // run on a Galaxy server instead of local tools
	DryRun  bool    // print the plan, touch nothing
}

// combinedFname is the concatenation of all fetched sequences.
const combinedFname = "combined.fasta"

// Mymain runs the pipeline. Everything user-visible lands in
// cfg.OutDir; everything that goes wrong comes back as an error for
// main to print and turn into an exit status.
func Mymain(ctx context.Context, opts *Opts) error {
	cfg := opts.Cfg
	if opts.DryRun {
		printPlan(cfg, opts.Remote)
		return nil
	}
	if opts.Remote {
		return remoteRun(ctx, cfg)
	}

	if cfg.Email == "" {
		return fmt.Errorf("NCBI requires a contact email: set %s", config.EnvEmail)
	}
	if err := os.MkdirAll(cfg.OutDir, 0777); err != nil {
		return err
	}

	ftchr := opts.Fetcher
	if ftchr == nil {
		ftchr = entrez.NewClient(cfg.Email, cfg.APIKey)
	}

	paths, err := fetchAll(ctx, ftchr, cfg)
	if err != nil {
		return err
	}

	combined := filepath.Join(cfg.OutDir, combinedFname)
	if err := fasta.Combine(combined, paths); err != nil {
		return err
	}
	nIn, err := fasta.NumSeq(combined)
	if err != nil {
		return err
	}
	if nIn != len(paths) {
		return fmt.Errorf("combined file has %d records, expected %d", nIn, len(paths))
	}
	vprint(cfg.Vbsty, 1, "combined %d sequences into %s\n", nIn, combined)

	alnCtx, done := toolCtx(ctx, cfg.Timeout)
	aln, err := align.Run(alnCtx, cfg.AlignMethod, combined, cfg.OutDir, cfg.Vbsty)
	done()
	if err != nil {
		return fmt.Errorf("alignment with %s: %w", cfg.AlignMethod, err)
	}

	nAln, err := fasta.NumSeq(aln)
	if err != nil {
		return err
	}
	if nAln != nIn {
		return fmt.Errorf("%s dropped sequences: alignment has %d, input had %d",
			cfg.AlignMethod, nAln, nIn)
	}
	vprint(cfg.Vbsty, 1, "alignment written to %s\n", aln)

	if nAln < tree.MinTaxa {
		return fmt.Errorf("only %d sequences aligned; tree building needs at least %d taxa",
			nAln, tree.MinTaxa)
	}

	rslts := buildTrees(ctx, cfg, aln, nAln)
	return report(rslts)
}

// fetchAll gets one sequence per species and writes each to its own
// file. The files come back in species-list order, which fixes the
// record order everywhere downstream. A pair with no hit, or a
// database we cannot reach, stops the run here. That is deliberate: a
// tree quietly missing a species is worse than no tree.
func fetchAll(ctx context.Context, ftchr Fetcher, cfg *config.Config) ([]string, error) {
	var paths []string
	for _, sp := range cfg.Species {
		vprint(cfg.Vbsty, 1, "fetching %s\n", entrez.Term(sp.Gene, sp.Organism))
		id, err := ftchr.Search(ctx, sp.Gene, sp.Organism)
		if err != nil {
			return nil, err
		}
		body, err := ftchr.Fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		recs, err := fasta.ReadAll(body)
		body.Close()
		if err != nil {
			return nil, fmt.Errorf("record %s for %s in %s: %w", id, sp.Gene, sp.Organism, err)
		}
		fname := filepath.Join(cfg.OutDir, fasta.SpeciesFname(sp.Gene, sp.Organism))
		if err := fasta.WriteFile(fname, recs[:1]); err != nil {
			return nil, err
		}
		vprint(cfg.Vbsty, 1, "  saved to %s\n", fname)
		paths = append(paths, fname)
	}
	return paths, nil
}

// buildTrees runs the enabled builders and then checks each tree that
// appeared really has one leaf per aligned sequence. A tree with the
// wrong leaf count is converted into a failure for that method.
func buildTrees(ctx context.Context, cfg *config.Config, aln string, nAln int) []tree.Result {
	rslts := tree.BuildAll(ctx, cfg.Timeout, cfg.TreeMethods, aln, cfg.OutDir, cfg.Vbsty)
	for i, r := range rslts {
		if r.Err != nil {
			continue
		}
		nLeaf, err := tree.LeafCount(r.Path)
		if err != nil {
			rslts[i].Err = err
		} else if nLeaf != nAln {
			rslts[i].Err = fmt.Errorf("%s tree has %d leaves, alignment had %d sequences",
				r.Method, nLeaf, nAln)
		}
	}
	return rslts
}

// report prints one line per tree method and decides the overall
// outcome. Any failed method makes the whole run a failure, but only
// after every method had its chance.
func report(rslts []tree.Result) error {
	nBad := 0
	for _, r := range rslts {
		if r.Err != nil {
			nBad++
			fmt.Fprintf(os.Stderr, "%-9s failed: %v\n", r.Method, r.Err)
		} else {
			fmt.Fprintf(os.Stderr, "%-9s tree in %s\n", r.Method, r.Path)
		}
	}
	if nBad > 0 {
		return fmt.Errorf("%d of %d tree methods failed", nBad, len(rslts))
	}
	return nil
}

// remoteRun is the Galaxy mode. Same steps, different machine.
func remoteRun(ctx context.Context, cfg *config.Config) error {
	g, err := galaxy.New(cfg.GalaxyURL, cfg.GalaxyKey)
	if err != nil {
		return err
	}
	rslts, err := galaxy.RunPipeline(ctx, g, cfg)
	if err != nil {
		return err
	}
	return report(rslts)
}

// toolCtx puts the configured time limit, if any, on one tool
// invocation.
func toolCtx(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

func vprint(vbsty, lvl int, format string, args ...any) {
	if vbsty >= lvl {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// printPlan says what a run would do. Handy for checking a config
// file before spending an hour of bootstrap replicates on it.
func printPlan(cfg *config.Config, remote bool) {
	where := "locally"
	if remote {
		where = "on " + cfg.GalaxyURL
	}
	fmt.Printf("would run %s, output in %s\n", where, cfg.OutDir)
	for _, sp := range cfg.Species {
		fmt.Printf("  fetch %s from %s\n", sp.Gene, sp.Organism)
	}
	fmt.Printf("  align with %s\n", cfg.AlignMethod)
	for _, m := range cfg.TreeMethods {
		fmt.Printf("  build tree with %s\n", m)
	}
}
