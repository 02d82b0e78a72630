// 15 Feb 2026

// Package entrez talks to the NCBI E-utilities to find and fetch
// protein sequences. Two calls are all we use. esearch turns a
// (gene, organism) pair into a database ID and efetch turns the ID
// into a fasta record. NCBI asks for a contact email with every
// request, so a client will not work without one. An API key raises
// the rate limit and is passed along when present, but we never need
// the higher limit for a ten species run.
package entrez

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const dfltBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// toolName is sent as the "tool" parameter, which NCBI use to work
// out who to complain to.
const toolName = "phylopipe"

// A Client holds what every E-utilities request needs. BaseURL and
// HC exist so tests can point us at a local server.
type Client struct {
	Email   string // required by NCBI usage policy
	APIKey  string // optional
	BaseURL string
	HC      *http.Client
}

// NotFoundErr says a query matched nothing. It keeps the pair so the
// message can name exactly which species came up empty.
type NotFoundErr struct {
	Gene string
	Org  string
}

func (e *NotFoundErr) Error() string {
	return "no protein record found for " + e.Gene + " in " + e.Org
}

// ConnError says we could not get a usable answer out of the server,
// as opposed to the server answering "nothing matched".
type ConnError struct {
	Op  string // which eutil we were calling
	Err error
}

func (e *ConnError) Error() string {
	return "entrez " + e.Op + ": " + e.Err.Error()
}

func (e *ConnError) Unwrap() error { return e.Err }

// NewClient gives a client with the real NCBI address filled in.
func NewClient(email, apiKey string) *Client {
	return &Client{
		Email:   email,
		APIKey:  apiKey,
		BaseURL: dfltBaseURL,
		HC:      http.DefaultClient,
	}
}

// Term builds the query NCBI sees for a gene and organism. Restricting
// to refseq keeps us from getting six hundred near-identical
// submissions for fliC.
func Term(gene, org string) string {
	return gene + "[Gene Name] AND " + org + "[Organism] AND srcdb_refseq[PROP]"
}

// get does one request and hands back the body. Anything other than a
// clean 200 is a connection error carrying what we wanted and what we
// got, since NCBI's error pages are not worth parsing.
func (c *Client) get(ctx context.Context, op string, q url.Values) (io.ReadCloser, error) {
	q.Set("email", c.Email)
	q.Set("tool", toolName)
	if c.APIKey != "" {
		q.Set("api_key", c.APIKey)
	}
	u := c.BaseURL + "/" + op + ".fcgi?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &ConnError{Op: op, Err: err}
	}
	resp, err := c.HC.Do(req)
	if err != nil {
		return nil, &ConnError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err := fmt.Errorf("wanted %s, got %s", u, resp.Status)
		return nil, &ConnError{Op: op, Err: err}
	}
	return resp.Body, nil
}

// esearchRslt is the part of the esearch JSON we look at.
type esearchRslt struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// Search asks for protein records matching a gene and organism and
// returns the ID of the best hit. The database ranks by its own idea
// of relevance and we take the first, same as typing the query into
// the website and clicking the top row. No hits is a NotFoundErr.
func (c *Client) Search(ctx context.Context, gene, org string) (string, error) {
	q := url.Values{}
	q.Set("db", "protein")
	q.Set("term", Term(gene, org))
	q.Set("retmax", "1")
	q.Set("retmode", "json")

	body, err := c.get(ctx, "esearch", q)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var rslt esearchRslt
	if err := json.NewDecoder(body).Decode(&rslt); err != nil {
		return "", &ConnError{Op: "esearch", Err: err}
	}
	if len(rslt.ESearchResult.IDList) == 0 {
		return "", &NotFoundErr{Gene: gene, Org: org}
	}
	return rslt.ESearchResult.IDList[0], nil
}

// Fetch retrieves one record as fasta text. The caller gets a reader
// and closes it.
func (c *Client) Fetch(ctx context.Context, id string) (io.ReadCloser, error) {
	q := url.Values{}
	q.Set("db", "protein")
	q.Set("id", id)
	q.Set("rettype", "fasta")
	q.Set("retmode", "text")
	return c.get(ctx, "efetch", q)
}
