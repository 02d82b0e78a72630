// 19 Feb 2026

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/mwiesner/phylopipe/pkg/align"
	"github.com/mwiesner/phylopipe/pkg/config"
	"github.com/mwiesner/phylopipe/pkg/phylopipe"

	. "github.com/mwiesner/phylopipe/pkg/common"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage:", path.Base(os.Args[0]), "[options]")
	long := `With no options, run the built-in flagellin analysis: fetch the
species list from NCBI, align with mafft and build all three trees.
ENTREZ_EMAIL must be set; NCBI insists on a contact address.
For -remote, GALAXY_API_KEY must be set and the config must name the
server's URL.`
	fmt.Fprintln(os.Stderr, long)
	flag.PrintDefaults()
}

func main() {
	var cfgFile, outDir, alnMethod string
	var vbsty int
	var remote, dryRun bool

	flag.StringVar(&cfgFile, "c", "", "yaml configuration file")
	flag.StringVar(&outDir, "o", "", "output directory, overrides config")
	flag.StringVar(&alnMethod, "a", "", "alignment method, overrides config")
	flag.IntVar(&vbsty, "v", 0, "verbosity, 0 is quiet")
	flag.BoolVar(&remote, "remote", false, "run on a Galaxy server instead of local tools")
	flag.BoolVar(&dryRun, "n", false, "print what would run, then stop")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "unexpected arguments:", flag.Args())
		usage()
		os.Exit(ExitUsageError)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitUsageError)
	}
	if outDir != "" {
		cfg.OutDir = outDir
	}
	if alnMethod != "" {
		cfg.AlignMethod = align.Method(alnMethod)
	}
	if vbsty > cfg.Vbsty {
		cfg.Vbsty = vbsty
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitUsageError)
	}

	opts := &phylopipe.Opts{Cfg: cfg, Remote: remote, DryRun: dryRun}
	if err := phylopipe.Mymain(context.Background(), opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitFailure)
	}
	os.Exit(ExitSuccess)
}
