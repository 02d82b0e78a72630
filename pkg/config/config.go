// 17 Feb 2026

// Package config is the run configuration. The analysis used to be
// constants edited in source. Now it is a yaml file with the same
// content: which species, which aligner, which tree builders, where
// output goes. Anything that is a credential never appears in the
// file. The contact email NCBI wants and the Galaxy API key come from
// the environment and have no fallback values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/mwiesner/phylopipe/pkg/align"
	"github.com/mwiesner/phylopipe/pkg/tree"
)

// Environment variable names for the credentials.
const (
	EnvEmail     = "ENTREZ_EMAIL"
	EnvAPIKey    = "NCBI_API_KEY"
	EnvGalaxyKey = "GALAXY_API_KEY"
)

// A Species is one (gene, organism) query pair.
type Species struct {
	Gene     string `yaml:"gene"`
	Organism string `yaml:"organism"`
}

// Config is everything a run needs to know. The yaml tags are the
// file format; the untagged credential fields only ever come from the
// environment.
type Config struct {
	Species     []Species     `yaml:"species"`
	AlignMethod align.Method  `yaml:"align_method"`
	TreeMethods []tree.Method `yaml:"tree_methods"`
	OutDir      string        `yaml:"out_dir"`
	ToolTimeout string        `yaml:"tool_timeout"` // "30m", empty for none
	GalaxyURL   string        `yaml:"galaxy_url"`
	Vbsty       int           `yaml:"verbosity"`

	Email     string        `yaml:"-"`
	APIKey    string        `yaml:"-"`
	GalaxyKey string        `yaml:"-"`
	Timeout   time.Duration `yaml:"-"`
}

// Default is the flagellin analysis as it has always been run: ten
// species, mafft, all three tree builders.
func Default() *Config {
	return &Config{
		Species: []Species{
			{"fliC", "Escherichia coli"},
			{"fliC", "Pseudomonas aeruginosa"},
			{"flaB", "Borrelia burgdorferi"},
			{"fliC", "Serratia marcescens"},
			{"fliC", "Shewanella oneidensis"},
			{"flaA", "Vibrio cholerae"},
			{"fliM", "Listeria monocytogenes"},
			{"fliC", "Salmonella enterica"},
			{"flaA", "Agrobacterium tumefaciens"},
			{"fliC", "Clostridioides difficile"},
		},
		AlignMethod: align.Mafft,
		TreeMethods: tree.Methods(),
		OutDir:      "phylo_out",
	}
}

// Load reads a yaml file over the defaults. An empty path gives the
// defaults untouched. The credentials are read from the environment
// afterwards either way, and the result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	cfg.fromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) fromEnv() {
	c.Email = os.Getenv(EnvEmail)
	c.APIKey = os.Getenv(EnvAPIKey)
	c.GalaxyKey = os.Getenv(EnvGalaxyKey)
}

// Validate checks the enumerated fields against their closed sets and
// parses the timeout. It does not check credentials; whether a
// credential is needed depends on the mode, so the pipeline checks
// those at the point of use.
func (c *Config) Validate() error {
	if len(c.Species) == 0 {
		return fmt.Errorf("species list is empty")
	}
	for _, sp := range c.Species {
		if sp.Gene == "" || sp.Organism == "" {
			return fmt.Errorf("species entry needs both gene and organism, got %+v", sp)
		}
	}
	if !align.Valid(c.AlignMethod) {
		return fmt.Errorf("alignment method %q is not one of %v",
			c.AlignMethod, align.Methods())
	}
	if len(c.TreeMethods) == 0 {
		return fmt.Errorf("no tree methods enabled")
	}
	seen := make(map[tree.Method]bool)
	for _, m := range c.TreeMethods {
		if !tree.Valid(m) {
			return fmt.Errorf("tree method %q is not one of %v", m, tree.Methods())
		}
		if seen[m] {
			return fmt.Errorf("tree method %q listed twice", m)
		}
		seen[m] = true
	}
	if c.OutDir == "" {
		return fmt.Errorf("out_dir is empty")
	}
	if c.ToolTimeout != "" {
		d, err := time.ParseDuration(c.ToolTimeout)
		if err != nil {
			return fmt.Errorf("tool_timeout: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("tool_timeout is negative")
		}
		c.Timeout = d
	}
	return nil
}
