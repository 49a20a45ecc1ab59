/*
 *  apis.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// EntrezClient talks to the NCBI eutils endpoint. NCBI asks that clients
// identify themselves with an email address on every request.
type EntrezClient struct {
	c     *resty.Client
	email string
}

// NewEntrezClient returns a client against the given eutils base URL,
// e.g. https://eutils.ncbi.nlm.nih.gov/entrez/eutils
func NewEntrezClient(host, email string) *EntrezClient {
	return &EntrezClient{
		c:     resty.New().SetBaseURL(host).SetRetryCount(3),
		email: email,
	}
}

// Ping checks that the eutils service answers at all
func (e *EntrezClient) Ping(ctx context.Context) error {
	resp, err := e.c.R().SetContext(ctx).
		SetQueryParams(map[string]string{"retmode": "json", "email": e.email}).
		Get("/einfo.fcgi")
	if err != nil {
		return errors.Wrap(err, "entrez is unreachable")
	}
	if resp.IsError() {
		return errors.Errorf("entrez einfo returned %s", resp.Status())
	}
	return nil
}

type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// SearchGenes returns the live Entrez gene ids for a taxon, paging through
// esearch until the reported count is exhausted. A positive limit caps the
// download, which test runs use to stay small.
func (e *EntrezClient) SearchGenes(ctx context.Context, taxon string, limit int) ([]string, error) {
	term := taxon + "[taxid] AND alive[prop]"
	pageSize := EntrezPageSize
	if limit > 0 && limit < pageSize {
		pageSize = limit
	}
	var ids []string
	for start := 0; ; start += pageSize {
		var out esearchResponse
		resp, err := e.c.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"db":       "gene",
				"term":     term,
				"retmode":  "json",
				"retstart": itoa(start),
				"retmax":   itoa(pageSize),
				"email":    e.email,
			}).
			SetResult(&out).
			Get("/esearch.fcgi")
		if err != nil {
			return nil, errors.Wrap(err, "entrez esearch failed")
		}
		if resp.IsError() {
			return nil, errors.Errorf("entrez esearch returned %s", resp.Status())
		}
		ids = append(ids, out.Result.IDList...)
		count := atoi(out.Result.Count)
		if limit > 0 && len(ids) >= limit {
			ids = ids[:limit]
			break
		}
		if start+pageSize >= count || len(out.Result.IDList) == 0 {
			break
		}
	}
	log.Noticef("Entrez reports %d genes for taxon %s", len(ids), taxon)
	return ids, nil
}

// GOAnnotation is one gene ontology assignment from mygene.info
type GOAnnotation struct {
	ID       string `json:"id"`
	Term     string `json:"term"`
	Evidence string `json:"evidence"`
}

// PathwayAnnotation is one pathway membership from mygene.info
type PathwayAnnotation struct {
	ID   flexibleString `json:"id"`
	Name string         `json:"name"`
}

// Homologene carries the homologene cluster of a gene; each entry of
// Genes is a (taxonomy id, gene id) pair
type Homologene struct {
	ID    int64     `json:"id"`
	Genes [][]int64 `json:"genes"`
}

// mygene.info collapses single-element arrays into bare objects, so
// list-valued fields need tolerant decoding.
type goList []GOAnnotation

func (l *goList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, (*[]GOAnnotation)(l))
	}
	var one GOAnnotation
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = goList{one}
	return nil
}

type pathwayList []PathwayAnnotation

func (l *pathwayList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, (*[]PathwayAnnotation)(l))
	}
	var one PathwayAnnotation
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = pathwayList{one}
	return nil
}

// KEGG pathway ids arrive as strings, WikiPathways ids as numbers
type flexibleString string

func (s *flexibleString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, (*string)(s))
	}
	*s = flexibleString(strings.TrimSpace(string(data)))
	return nil
}

// MyGeneHit is one record of a mygene.info querymany response
type MyGeneHit struct {
	Query      string            `json:"query"`
	EntrezID   json.Number       `json:"entrezgene"`
	Symbol     string            `json:"symbol"`
	Name       string            `json:"name"`
	Summary    string            `json:"summary"`
	NotFound   bool              `json:"notfound"`
	GO         map[string]goList `json:"go"`
	Pathway    map[string]pathwayList `json:"pathway"`
	Homologene *Homologene       `json:"homologene"`
	Ensembl    json.RawMessage   `json:"ensembl"`
}

// EnsemblRecord is the ensembl block of a mygene.info hit
type EnsemblRecord struct {
	Gene       string      `json:"gene"`
	Transcript flexStrings `json:"transcript"`
	Protein    flexStrings `json:"protein"`
}

// single-element string lists arrive as bare strings
type flexStrings []string

func (s *flexStrings) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, (*[]string)(s))
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*s = flexStrings{one}
	return nil
}

// EnsemblRecords decodes the ensembl field of a hit; it is an object for
// most genes and an array where several ensembl genes map to one entrez
// gene
func (h *MyGeneHit) EnsemblRecords() []EnsemblRecord {
	if len(h.Ensembl) == 0 {
		return nil
	}
	if h.Ensembl[0] == '[' {
		var many []EnsemblRecord
		if err := json.Unmarshal(h.Ensembl, &many); err != nil {
			return nil
		}
		return many
	}
	var one EnsemblRecord
	if err := json.Unmarshal(h.Ensembl, &one); err != nil || one.Gene == "" {
		return nil
	}
	return []EnsemblRecord{one}
}

// EnsemblIDs lists the ensembl gene ids of a hit
func (h *MyGeneHit) EnsemblIDs() []string {
	records := h.EnsemblRecords()
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.Gene != "" {
			ids = append(ids, rec.Gene)
		}
	}
	return ids
}

// MyGeneClient talks to a mygene.info-compatible service
type MyGeneClient struct {
	c *resty.Client
}

// NewMyGeneClient returns a client against the given base URL,
// e.g. https://mygene.info/v3
func NewMyGeneClient(host string) *MyGeneClient {
	return &MyGeneClient{c: resty.New().SetBaseURL(host).SetRetryCount(3)}
}

// Ping checks that the service answers by fetching its metadata document
func (m *MyGeneClient) Ping(ctx context.Context) error {
	resp, err := m.c.R().SetContext(ctx).Get("/metadata")
	if err != nil {
		return errors.Wrap(err, "mygene.info is unreachable")
	}
	if resp.IsError() {
		return errors.Errorf("mygene.info metadata returned %s", resp.Status())
	}
	return nil
}

// QueryMany annotates a set of gene identifiers (entrez ids or symbols,
// per scopes) with the requested fields, batching requests and fetching
// batches concurrently
func (m *MyGeneClient) QueryMany(ctx context.Context, ids []string, scopes, fields, species string) ([]MyGeneHit, error) {
	batches := chunkStrings(ids, APIBatchSize)
	results := make([][]MyGeneHit, len(batches))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	var mu sync.Mutex
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			var hits []MyGeneHit
			resp, err := m.c.R().
				SetContext(ctx).
				SetFormData(map[string]string{
					"q":       strings.Join(batch, ","),
					"scopes":  scopes,
					"fields":  fields,
					"species": species,
				}).
				SetResult(&hits).
				Post("/query")
			if err != nil {
				return errors.Wrap(err, "mygene query failed")
			}
			if resp.IsError() {
				return errors.Errorf("mygene query returned %s", resp.Status())
			}
			mu.Lock()
			results[i] = hits
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []MyGeneHit
	for _, hits := range results {
		all = append(all, hits...)
	}
	return all, nil
}

// InterMineClient runs PathQuery XML against an intermine web service
// such as HumanMine or MouseMine
type InterMineClient struct {
	c *resty.Client
}

// NewInterMineClient returns a client against the mine's service root,
// e.g. https://www.humanmine.org/humanmine/service
func NewInterMineClient(host string) *InterMineClient {
	return &InterMineClient{c: resty.New().SetBaseURL(host).SetRetryCount(3)}
}

// BuildPathQuery renders PathQuery XML selecting the given views with a
// single ONE OF constraint on path
func BuildPathQuery(views []string, path string, values []string) string {
	var b strings.Builder
	b.WriteString(`<query model="genomic" view="` + xmlEscape(strings.Join(views, " ")) + `">`)
	b.WriteString(`<constraint path="` + xmlEscape(path) + `" op="ONE OF">`)
	for _, v := range values {
		b.WriteString("<value>" + xmlEscape(v) + "</value>")
	}
	b.WriteString("</constraint></query>")
	return b.String()
}

func xmlEscape(s string) string {
	var b bytes.Buffer
	xml.EscapeText(&b, []byte(s)) // error only on bad writer
	return b.String()
}

// Query posts a PathQuery and returns the tab-separated result rows
func (im *InterMineClient) Query(ctx context.Context, queryXML string) ([][]string, error) {
	resp, err := im.c.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"query":  queryXML,
			"format": "tab",
		}).
		Post("/query/results")
	if err != nil {
		return nil, errors.Wrap(err, "intermine query failed")
	}
	if resp.IsError() {
		return nil, errors.Errorf("intermine query returned %s: %s", resp.Status(),
			strings.SplitN(resp.String(), "\n", 2)[0])
	}
	var rows [][]string
	for _, line := range strings.Split(strings.TrimRight(resp.String(), "\n"), "\n") {
		if line == "" {
			continue
		}
		rows = append(rows, strings.Split(line, "\t"))
	}
	return rows, nil
}

// DownloadFile fetches a URL straight to disk, for ontology releases from
// the OBO foundry
func DownloadFile(ctx context.Context, url, dest string) error {
	resp, err := resty.New().SetRetryCount(3).R().
		SetContext(ctx).
		SetOutput(dest).
		Get(url)
	if err != nil {
		return errors.Wrapf(err, "cannot download %s", url)
	}
	if resp.IsError() {
		return errors.Errorf("download of %s returned %s", url, resp.Status())
	}
	log.Noticef("Downloaded %s to %s", url, dest)
	return nil
}
