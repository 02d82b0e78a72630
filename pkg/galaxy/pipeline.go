// 18 Feb 2026

package galaxy

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/mwiesner/phylopipe/pkg/align"
	"github.com/mwiesner/phylopipe/pkg/config"
	"github.com/mwiesner/phylopipe/pkg/entrez"
	"github.com/mwiesner/phylopipe/pkg/tree"
)

// The toolshed IDs for the tools we run remotely. These are pinned
// versions; a Galaxy server without them installed will say so.
var alignTools = map[align.Method]string{
	align.Mafft:    "toolshed.g2.bx.psu.edu/repos/devteam/mafft/mafft/7.221.1",
	align.Clustalo: "toolshed.g2.bx.psu.edu/repos/devteam/clustalomega/clustalomega/1.2.0",
	align.Muscle:   "toolshed.g2.bx.psu.edu/repos/devteam/muscle/muscle/3.8.31",
}

var treeTools = map[tree.Method]string{
	tree.FastTree: "toolshed.g2.bx.psu.edu/repos/iuc/fasttree/fasttree/2.1.10",
	tree.RAxML:    "toolshed.g2.bx.psu.edu/repos/iuc/raxml/raxml/8.2.12.1",
	tree.IQTree:   "toolshed.g2.bx.psu.edu/repos/iuc/iqtree/iqtree/2.1.2",
}

// treeInputs gives each builder the same settings the local run
// hard-codes on its command line.
func treeInputs(m tree.Method, alnID string) map[string]any {
	inputs := map[string]any{
		"input": map[string]any{"src": "hda", "id": alnID},
	}
	switch m {
	case tree.FastTree:
		inputs["model"] = "JTT+CAT"
	case tree.RAxML:
		inputs["model"] = "PROTGAMMAJTT"
		inputs["bootstrap_replicates"] = 100
	case tree.IQTree:
		inputs["model"] = "AUTO"
		inputs["ultrafast_bootstrap"] = 1000
	}
	return inputs
}

// CreateCollection gathers datasets into a named list collection, the
// server-side equivalent of concatenating the fetched files.
func (g *Instance) CreateCollection(ctx context.Context, historyID, name string, ids []string) (Dataset, error) {
	elems := make([]map[string]any, len(ids))
	for i, id := range ids {
		elems[i] = map[string]any{
			"name": fmt.Sprintf("seq_%d", i),
			"src":  "hda",
			"id":   id,
		}
	}
	var d Dataset
	err := g.do(ctx, http.MethodPost, "/api/histories/"+historyID+"/contents/dataset_collections",
		map[string]any{
			"collection_type":     "list",
			"name":                name,
			"element_identifiers": elems,
		}, &d)
	return d, err
}

// RunPipeline runs the whole analysis on the server: fetch each
// species, merge, align, then every enabled tree builder, and pulls
// the finished trees down into cfg.OutDir. Like the local run, the
// tree stage is best effort and the caller gets one result per
// method.
func RunPipeline(ctx context.Context, g *Instance, cfg *config.Config) ([]tree.Result, error) {
	if err := os.MkdirAll(cfg.OutDir, 0777); err != nil {
		return nil, err
	}
	hist, err := g.CreateHistory(ctx, "Flagellin Analysis")
	if err != nil {
		return nil, err
	}

	var fetched []string
	for _, sp := range cfg.Species {
		tr, err := g.RunTool(ctx, hist.ID, "ncbi_esearch", map[string]any{
			"query":       entrez.Term(sp.Gene, sp.Organism),
			"return_type": "protein_fasta",
		})
		if err != nil {
			return nil, fmt.Errorf("fetching %s in %s: %w", sp.Gene, sp.Organism, err)
		}
		if err := g.WaitDataset(ctx, tr.Outputs[0].ID); err != nil {
			return nil, fmt.Errorf("fetching %s in %s: %w", sp.Gene, sp.Organism, err)
		}
		fetched = append(fetched, tr.Outputs[0].ID)
	}

	merged, err := g.CreateCollection(ctx, hist.ID, "merged_fasta", fetched)
	if err != nil {
		return nil, err
	}

	alnRun, err := g.RunTool(ctx, hist.ID, alignTools[cfg.AlignMethod], map[string]any{
		"input_file": map[string]any{"src": "hda", "id": merged.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("alignment with %s: %w", cfg.AlignMethod, err)
	}
	alnID := alnRun.Outputs[0].ID
	if err := g.WaitDataset(ctx, alnID); err != nil {
		return nil, fmt.Errorf("alignment with %s: %w", cfg.AlignMethod, err)
	}

	rslts := make([]tree.Result, len(cfg.TreeMethods))
	for i, m := range cfg.TreeMethods {
		rslts[i].Method = m
		rslts[i].Path, rslts[i].Err = g.buildTree(ctx, hist.ID, m, alnID, cfg.OutDir)
	}
	return rslts, nil
}

// buildTree runs one remote builder and downloads its tree.
func (g *Instance) buildTree(ctx context.Context, histID string, m tree.Method, alnID, outDir string) (string, error) {
	tr, err := g.RunTool(ctx, histID, treeTools[m], treeInputs(m, alnID))
	if err != nil {
		return "", err
	}
	if err := g.WaitDataset(ctx, tr.Outputs[0].ID); err != nil {
		return "", err
	}
	fname := filepath.Join(outDir, string(m)+"_tree.nwk")
	if err := g.DownloadDataset(ctx, tr.Outputs[0].ID, fname); err != nil {
		return "", err
	}
	return fname, nil
}
