// 18 Feb 2026

// Package galaxy is a small client for the Galaxy workflow server's
// REST API, enough to run the same analysis remotely instead of
// shelling out to local binaries. We create a history, run toolshed
// tools in it, wait for their datasets to finish and download the
// results. The API key comes from the environment and the client
// refuses to exist without one.
package galaxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// dfltPoll is how often we ask the server whether a dataset is done.
const dfltPoll = 5 * time.Second

// An Instance is one Galaxy server we can talk to.
type Instance struct {
	URL  string
	Key  string
	HC   *http.Client
	Poll time.Duration // override for tests
}

// New returns a client for the server at url. An empty key is refused
// here rather than as a 403 three calls later.
func New(url, key string) (*Instance, error) {
	if key == "" {
		return nil, fmt.Errorf("galaxy API key is not set")
	}
	if url == "" {
		return nil, fmt.Errorf("galaxy URL is not set")
	}
	return &Instance{URL: url, Key: key, HC: http.DefaultClient, Poll: dfltPoll}, nil
}

// History is the part of a history record we use.
type History struct {
	ID string `json:"id"`
}

// Dataset is the part of a dataset record we use. State runs through
// queued and running before landing on ok or error.
type Dataset struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// ToolRun is a tool execution response, a list of output datasets.
type ToolRun struct {
	Outputs []Dataset `json:"outputs"`
}

func (g *Instance) do(ctx context.Context, method, path string, body, into any) error {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.URL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", g.Key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := g.HC.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("galaxy %s %s: %s: %s", method, path, resp.Status, raw)
	}
	if into == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(into)
}

// CreateHistory makes a fresh history to run the analysis in.
func (g *Instance) CreateHistory(ctx context.Context, name string) (History, error) {
	var h History
	err := g.do(ctx, http.MethodPost, "/api/histories",
		map[string]any{"name": name}, &h)
	return h, err
}

// RunTool runs one tool in a history. The inputs map is whatever the
// tool's form wants; dataset references look like
// {"src": "hda", "id": <dataset id>}.
func (g *Instance) RunTool(ctx context.Context, historyID, toolID string, inputs map[string]any) (ToolRun, error) {
	var tr ToolRun
	err := g.do(ctx, http.MethodPost, "/api/tools", map[string]any{
		"history_id": historyID,
		"tool_id":    toolID,
		"inputs":     inputs,
	}, &tr)
	if err != nil {
		return tr, err
	}
	if len(tr.Outputs) == 0 {
		return tr, fmt.Errorf("tool %s produced no output datasets", toolID)
	}
	return tr, nil
}

// WaitDataset polls until a dataset reaches a terminal state. A
// dataset in state "error" is an error here too; the server keeps the
// details, we keep the ID to go look at.
func (g *Instance) WaitDataset(ctx context.Context, id string) error {
	tick := time.NewTicker(g.Poll)
	defer tick.Stop()
	for {
		var d Dataset
		if err := g.do(ctx, http.MethodGet, "/api/datasets/"+id, nil, &d); err != nil {
			return err
		}
		switch d.State {
		case "ok":
			return nil
		case "error":
			return fmt.Errorf("galaxy dataset %s finished in state error", id)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// DownloadDataset fetches a finished dataset's contents into a local
// file.
func (g *Instance) DownloadDataset(ctx context.Context, id, fname string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.URL+"/api/datasets/"+id+"/display", nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", g.Key)
	resp, err := g.HC.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("galaxy download of %s: %s", id, resp.Status)
	}
	fp, err := os.Create(fname)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fp, resp.Body); err != nil {
		fp.Close()
		return fmt.Errorf("writing %s: %w", fname, err)
	}
	return fp.Close()
}
