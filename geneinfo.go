/*
 *  geneinfo.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	sp "github.com/scipipe/scipipe"
)

// GeneInfo builds a database of annotations mapped to ensembl gene ids,
// downloaded from Entrez, mygene.info, intermine services and the OBO
// foundry. Table naming follows a suffix convention:
//
//	xxx$geneid  - translations from ensemblg to another gene id type
//	xxx$annot   - ensemblg to annotation id, for enrichment analysis
//	xxx$details - annotation id to its metadata
//	xxx$ont     - ontology term to its direct parents
//	xxx$other   - miscellaneous translations not used for enrichment
type GeneInfo struct {
	*Pipeline
	entrez *EntrezClient
	mygene *MyGeneClient
}

// GeneListDir holds user-provided gene lists for subset databases
const GeneListDir = "genelists.dir"

// NewGeneInfo assembles the annotation task graph
func NewGeneInfo(params *Params, runner Runner, maxTasks int) (*GeneInfo, error) {
	g := &GeneInfo{
		Pipeline: NewPipeline("geneinfo", params, runner, maxTasks),
		entrez: NewEntrezClient(params.MustString("entrez_source"),
			params.MustString("entrez_email")),
		mygene: NewMyGeneClient(params.MustString("my_gene_info_source")),
	}

	genes := g.Native("fetch_all_genes", "{o:genes}", func(t *sp.Task) {
		if err := g.fetchAllGenes(context.Background(), TempOutPath(t, "genes")); err != nil {
			log.Fatal(err)
		}
	})
	genes.SetOut("genes", "allgenes.tsv")

	annotations := g.Params.Strings("my_gene_info_annotations")
	has := func(name string) bool {
		for _, a := range annotations {
			if a == name {
				return true
			}
		}
		return false
	}

	var markers []*sp.Process
	annotator := func(name string, run func(symbols []string) error) *sp.Process {
		proc := g.Native(name, "{i:genes} {o:load}", func(t *sp.Task) {
			symbols, err := readGeneList(t.InPath("genes"))
			if err != nil {
				log.Fatal(err)
			}
			if err := run(symbols); err != nil {
				log.Fatal(err)
			}
			if err := writeMarker(TempOutPath(t, "load"), name+" done"); err != nil {
				log.Fatal(err)
			}
		})
		proc.In("genes").From(genes.Out("genes"))
		proc.SetOut("load", name+".load")
		markers = append(markers, proc)
		return proc
	}

	if has("go") {
		annotator("annotate_go", func(symbols []string) error {
			return g.annotateGO(context.Background(), symbols)
		})
	}
	if has("pathway") {
		annotator("annotate_pathway", func(symbols []string) error {
			return g.annotatePathway(context.Background(), symbols)
		})
	}
	var homologene *sp.Process
	if has("homologene") {
		homologene = annotator("annotate_homologene", func(symbols []string) error {
			return g.annotateHomologene(context.Background(), symbols)
		})
	}
	if homologene != nil {
		mine := func(name, taxon string, run func(symbols []string) error) {
			proc := g.Native(name, "{i:homologene} {o:load}", func(t *sp.Task) {
				symbols, err := g.storedSymbols(taxon)
				if err != nil {
					log.Fatal(err)
				}
				if err := run(symbols); err != nil {
					log.Fatal(err)
				}
				if err := writeMarker(TempOutPath(t, "load"), name+" done"); err != nil {
					log.Fatal(err)
				}
			})
			proc.In("homologene").From(homologene.Out("load"))
			proc.SetOut("load", name+".load")
			markers = append(markers, proc)
		}
		if g.Params.Bool("homologues_mousepathway") {
			mine("annotate_mousepathway", "10090", func(symbols []string) error {
				return g.annotateMine(context.Background(), "mousepathway",
					g.Params.MustString("homologues_mousemine"), "10090", symbols,
					"Gene.pathways.identifier", "Gene.pathways.name")
			})
		}
		if g.Params.Bool("homologues_mgi") {
			mine("annotate_mgi", "10090", func(symbols []string) error {
				return g.annotateMine(context.Background(), "mgi",
					g.Params.MustString("homologues_mousemine"), "10090", symbols,
					"Gene.ontologyAnnotations.ontologyTerm.identifier",
					"Gene.ontologyAnnotations.ontologyTerm.name")
			})
		}
		if g.Params.Bool("homologues_hpo") {
			mine("annotate_hpo", "9606", func(symbols []string) error {
				if err := g.annotateMine(context.Background(), "hpo",
					g.Params.MustString("homologues_humanmine"), "9606", symbols,
					"Gene.diseases.hpoAnnotations.hpoTerm.identifier",
					"Gene.diseases.hpoAnnotations.hpoTerm.name"); err != nil {
					return err
				}
				return g.loadOntologyTable(context.Background(), "hpo",
					g.Params.MustString("homologues_hpoont"))
			})
		}
	}

	annotate := g.Native("annotate", markerPorts(len(markers))+" {o:done}", func(t *sp.Task) {
		if err := writeMarker(TempOutPath(t, "done"), "annotations complete"); err != nil {
			log.Fatal(err)
		}
	})
	for i, marker := range markers {
		annotate.In(fmt.Sprintf("done_%d", i)).From(marker.Out("load"))
	}
	annotate.SetOut("done", "annotate.done")

	if g.Params.Bool("db_subset") {
		g.subsetDBs(annotate)
	}
	return g, nil
}

// Probe verifies that the annotation services are reachable before any
// task runs, so a dead service fails fast instead of mid-pipeline
func (g *GeneInfo) Probe(ctx context.Context) error {
	if err := g.entrez.Ping(ctx); err != nil {
		return err
	}
	return g.mygene.Ping(ctx)
}

func markerPorts(n int) string {
	ports := make([]string, n)
	for i := range ports {
		ports[i] = fmt.Sprintf("{i:done_%d}", i)
	}
	return strings.Join(ports, " ")
}

// subsetDBs declares one task per gene list under genelists.dir, writing a
// database in genesetdbs.dir that holds only the annotations of the listed
// genes
func (g *GeneInfo) subsetDBs(annotate *sp.Process) {
	lists, err := filepath.Glob(filepath.Join(GeneListDir, "*.tsv"))
	if err != nil || len(lists) == 0 {
		log.Warningf("no gene lists under `%s`", GeneListDir)
		return
	}
	for _, list := range lists {
		list := list
		name := Snip(filepath.Base(list), ".tsv")
		proc := g.Native("subset_dbs_"+name, "{i:annotate} {o:db}", func(t *sp.Task) {
			genes, err := readGeneList(list)
			if err != nil {
				log.Fatal(err)
			}
			err = MakeSubsetDB(g.Params.Database(), TempOutPath(t, "db"),
				g.Params.MustString("db_subsettype"), genes)
			if err != nil {
				log.Fatal(err)
			}
		})
		proc.In("annotate").From(annotate.Out("done"))
		proc.SetOut("db", "genesetdbs.dir/"+name)
	}
}

// readGeneList reads one identifier per line, skipping blanks
func readGeneList(filename string) ([]string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read gene list %s", filename)
	}
	var genes []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			genes = append(genes, line)
		}
	}
	return genes, nil
}

// fetchAllGenes downloads every live Entrez gene for the configured taxon,
// translates to symbols and ensembl gene/transcript/protein ids, loads the
// translation tables and writes the symbol list to outfile
func (g *GeneInfo) fetchAllGenes(ctx context.Context, outfile string) error {
	taxon := g.Params.MustString("entrez_host")

	limit := 0
	if g.Params.Bool("test") {
		limit = 100
		log.Warningf("test mode: annotation capped at %d genes", limit)
	}
	entrezIDs, err := g.entrez.SearchGenes(ctx, taxon, limit)
	if err != nil {
		return err
	}

	symbolHits, err := g.mygene.QueryMany(ctx, entrezIDs, "entrezgene", "symbol", taxon)
	if err != nil {
		return err
	}
	entrezBySymbol := map[string]string{}
	var symbols []string
	for _, hit := range symbolHits {
		if hit.NotFound || hit.Symbol == "" {
			continue
		}
		if _, ok := entrezBySymbol[hit.Symbol]; !ok {
			symbols = append(symbols, hit.Symbol)
		}
		entrezBySymbol[hit.Symbol] = hit.Query
	}

	ensemblHits, err := g.mygene.QueryMany(ctx, symbols, "symbol",
		"ensembl.gene,ensembl.transcript,ensembl.protein", taxon)
	if err != nil {
		return err
	}

	var entrezRows, symbolRows, transcriptRows, proteinRows [][]string
	for _, hit := range ensemblHits {
		if hit.NotFound {
			continue
		}
		symbol := hit.Query
		for _, rec := range hit.EnsemblRecords() {
			if rec.Gene == "" {
				continue
			}
			symbolRows = append(symbolRows, []string{rec.Gene, symbol})
			if entrez, ok := entrezBySymbol[symbol]; ok {
				entrezRows = append(entrezRows, []string{rec.Gene, entrez})
			}
			for _, transcript := range rec.Transcript {
				transcriptRows = append(transcriptRows, []string{rec.Gene, transcript})
			}
			for _, protein := range rec.Protein {
				proteinRows = append(proteinRows, []string{rec.Gene, protein})
			}
		}
	}

	db, err := Connect(g.Params.Database())
	if err != nil {
		return err
	}
	defer db.Close()
	loads := []struct {
		table  string
		header []string
		rows   [][]string
	}{
		{"ensemblg2entrez$geneid", []string{"ensemblg", "entrez"}, entrezRows},
		{"ensemblg2symbol_" + taxon + "$geneid", []string{"ensemblg", "symbol_" + taxon}, symbolRows},
		{"ensemblg2ensemblt$other", []string{"ensemblg", "ensemblt"}, transcriptRows},
		{"ensemblg2ensemblp$other", []string{"ensemblg", "ensemblp"}, proteinRows},
	}
	for _, l := range loads {
		if err := LoadRows(db, l.table, l.header, l.rows, "ensemblg"); err != nil {
			return err
		}
		log.Noticef("Loaded %d rows into `%s`", len(l.rows), l.table)
	}

	fh, err := os.Create(outfile)
	if err != nil {
		return errors.Wrapf(err, "cannot write %s", outfile)
	}
	defer fh.Close()
	for _, symbol := range symbols {
		fmt.Fprintln(fh, symbol)
	}
	return nil
}

// annotateGO annotates the gene symbols with gene ontology terms from
// mygene.info, restricted to the configured categories, and loads the GO
// hierarchy from the OBO foundry
func (g *GeneInfo) annotateGO(ctx context.Context, symbols []string) error {
	taxon := g.Params.MustString("entrez_host")
	hits, err := g.mygene.QueryMany(ctx, symbols, "symbol", "go,ensembl.gene", taxon)
	if err != nil {
		return err
	}

	categories := g.Params.Strings("my_gene_info_go")
	all := len(categories) == 0 || categories[0] == "all"
	wanted := map[string]bool{}
	for _, c := range categories {
		wanted[strings.ToUpper(c)] = true
	}

	var annotRows, detailRows [][]string
	detailSeen := map[string]bool{}
	for _, hit := range hits {
		if hit.NotFound {
			continue
		}
		for category, terms := range hit.GO {
			if !all && !wanted[strings.ToUpper(category)] {
				continue
			}
			for _, term := range terms {
				for _, ensemblg := range hit.EnsemblIDs() {
					annotRows = append(annotRows, []string{ensemblg, term.ID})
				}
				if !detailSeen[term.ID] {
					detailSeen[term.ID] = true
					detailRows = append(detailRows, []string{term.ID, term.Term, category})
				}
			}
		}
	}

	db, err := Connect(g.Params.Database())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := LoadRows(db, "ensemblg2go$annot",
		[]string{"ensemblg", "go"}, annotRows, "ensemblg", "go"); err != nil {
		return err
	}
	if err := LoadRows(db, "go$details",
		[]string{"go", "term", "category"}, detailRows, "go"); err != nil {
		return err
	}
	return g.loadOntologyTable(ctx, "go", g.Params.MustString("my_gene_info_goont"))
}

// loadOntologyTable downloads an OBO release and loads term -> direct
// parent rows as <prefix>$ont
func (g *GeneInfo) loadOntologyTable(ctx context.Context, prefix, url string) error {
	obofile := filepath.Base(url)
	if !FileExists(obofile) {
		if err := DownloadFile(ctx, url, obofile); err != nil {
			return err
		}
	}
	ont, err := LoadOBO(obofile)
	if err != nil {
		return err
	}
	var rows [][]string
	for id, term := range ont {
		if term.Obsolete {
			continue
		}
		for _, parent := range term.Parents {
			rows = append(rows, []string{id, parent})
		}
	}
	db, err := Connect(g.Params.Database())
	if err != nil {
		return err
	}
	defer db.Close()
	return LoadRows(db, prefix+"$ont",
		[]string{prefix, prefix + "_parent"}, rows, prefix)
}

// annotatePathway annotates with the configured pathway databases known to
// mygene.info (kegg, reactome, wikipathways, ...), one annot/details table
// pair per database
func (g *GeneInfo) annotatePathway(ctx context.Context, symbols []string) error {
	taxon := g.Params.MustString("entrez_host")
	hits, err := g.mygene.QueryMany(ctx, symbols, "symbol", "pathway,ensembl.gene", taxon)
	if err != nil {
		return err
	}

	dbs := g.Params.Strings("my_gene_info_pathway")
	all := len(dbs) == 0 || dbs[0] == "all"
	wanted := map[string]bool{}
	for _, d := range dbs {
		wanted[d] = true
	}

	annots := map[string][][]string{}
	details := map[string][][]string{}
	detailSeen := map[string]map[string]bool{}
	for _, hit := range hits {
		if hit.NotFound {
			continue
		}
		for source, pathways := range hit.Pathway {
			if !all && !wanted[source] {
				continue
			}
			if detailSeen[source] == nil {
				detailSeen[source] = map[string]bool{}
			}
			for _, pw := range pathways {
				id := string(pw.ID)
				for _, ensemblg := range hit.EnsemblIDs() {
					annots[source] = append(annots[source], []string{ensemblg, id})
				}
				if !detailSeen[source][id] {
					detailSeen[source][id] = true
					details[source] = append(details[source], []string{id, pw.Name})
				}
			}
		}
	}

	db, err := Connect(g.Params.Database())
	if err != nil {
		return err
	}
	defer db.Close()
	for source, rows := range annots {
		if err := LoadRows(db, "ensemblg2"+source+"$annot",
			[]string{"ensemblg", source}, rows, "ensemblg", source); err != nil {
			return err
		}
		if err := LoadRows(db, source+"$details",
			[]string{source, "name"}, details[source], source); err != nil {
			return err
		}
	}
	return nil
}

// annotateHomologene maps each gene to its homologene cluster members in
// the configured taxa and stores their symbols, one translation table per
// taxon
func (g *GeneInfo) annotateHomologene(ctx context.Context, symbols []string) error {
	taxon := g.Params.MustString("entrez_host")
	hits, err := g.mygene.QueryMany(ctx, symbols, "symbol", "homologene,ensembl.gene", taxon)
	if err != nil {
		return err
	}

	taxa := g.Params.Strings("my_gene_info_homologene")
	all := len(taxa) == 0 || taxa[0] == "all"
	wanted := map[string]bool{}
	for _, t := range taxa {
		wanted[t] = true
	}

	// homologTaxon -> homolog entrez id -> originating ensemblg ids
	homologs := map[string]map[string][]string{}
	for _, hit := range hits {
		if hit.NotFound || hit.Homologene == nil {
			continue
		}
		for _, pair := range hit.Homologene.Genes {
			if len(pair) != 2 {
				continue
			}
			hTaxon := fmt.Sprintf("%d", pair[0])
			if hTaxon == taxon || (!all && !wanted[hTaxon]) {
				continue
			}
			gene := fmt.Sprintf("%d", pair[1])
			if homologs[hTaxon] == nil {
				homologs[hTaxon] = map[string][]string{}
			}
			homologs[hTaxon][gene] = append(homologs[hTaxon][gene], hit.EnsemblIDs()...)
		}
	}

	db, err := Connect(g.Params.Database())
	if err != nil {
		return err
	}
	defer db.Close()
	for hTaxon, genes := range homologs {
		ids := make([]string, 0, len(genes))
		for id := range genes {
			ids = append(ids, id)
		}
		symbolHits, err := g.mygene.QueryMany(ctx, ids, "entrezgene", "symbol", hTaxon)
		if err != nil {
			return err
		}
		var rows [][]string
		for _, hit := range symbolHits {
			if hit.NotFound || hit.Symbol == "" {
				continue
			}
			for _, ensemblg := range genes[hit.Query] {
				rows = append(rows, []string{ensemblg, hit.Symbol})
			}
		}
		table := "ensemblg2symbol_" + hTaxon + "$geneid"
		if err := LoadRows(db, table,
			[]string{"ensemblg", "symbol_" + hTaxon}, rows, "ensemblg"); err != nil {
			return err
		}
		log.Noticef("Loaded %d homologue symbols into `%s`", len(rows), table)
	}
	return nil
}

// storedSymbols reads back the homologue symbols recorded for a taxon
func (g *GeneInfo) storedSymbols(taxon string) ([]string, error) {
	db, err := Connect(g.Params.Database())
	if err != nil {
		return nil, err
	}
	defer db.Close()
	table := "ensemblg2symbol_" + taxon + "$geneid"
	rows, err := db.Query("SELECT DISTINCT " + quoteIdent("symbol_"+taxon) +
		" FROM " + quoteIdent(table))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read symbols from %s", table)
	}
	defer rows.Close()
	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// annotateMine runs an intermine query over the homologue symbols of a
// taxon and records the results as ensemblg2<name>$annot and
// <name>$details, translating symbols back to host ensemblg ids
func (g *GeneInfo) annotateMine(ctx context.Context, name, mine, taxon string,
	symbols []string, idView, nameView string) error {

	if len(symbols) == 0 {
		log.Warningf("no %s homologue symbols available, skipping %s", taxon, name)
		return nil
	}
	query := BuildPathQuery([]string{"Gene.symbol", idView, nameView}, "Gene.symbol", symbols)
	rows, err := NewInterMineClient(mine).Query(ctx, query)
	if err != nil {
		return err
	}

	ensemblBySymbol, err := g.ensemblBySymbol(taxon)
	if err != nil {
		return err
	}

	var annotRows, detailRows [][]string
	detailSeen := map[string]bool{}
	for _, rec := range rows {
		if len(rec) < 3 {
			continue
		}
		symbol, id, description := rec[0], rec[1], rec[2]
		for _, ensemblg := range ensemblBySymbol[symbol] {
			annotRows = append(annotRows, []string{ensemblg, id})
		}
		if !detailSeen[id] {
			detailSeen[id] = true
			detailRows = append(detailRows, []string{id, description})
		}
	}

	db, err := Connect(g.Params.Database())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := LoadRows(db, "ensemblg2"+name+"$annot",
		[]string{"ensemblg", name}, annotRows, "ensemblg", name); err != nil {
		return err
	}
	return LoadRows(db, name+"$details",
		[]string{name, "description"}, detailRows, name)
}

// ensemblBySymbol inverts the stored taxon symbol table
func (g *GeneInfo) ensemblBySymbol(taxon string) (map[string][]string, error) {
	db, err := Connect(g.Params.Database())
	if err != nil {
		return nil, err
	}
	defer db.Close()
	table := "ensemblg2symbol_" + taxon + "$geneid"
	rows, err := db.Query("SELECT ensemblg, " + quoteIdent("symbol_"+taxon) +
		" FROM " + quoteIdent(table))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", table)
	}
	defer rows.Close()
	out := map[string][]string{}
	for rows.Next() {
		var ensemblg, symbol string
		if err := rows.Scan(&ensemblg, &symbol); err != nil {
			return nil, err
		}
		out[symbol] = append(out[symbol], ensemblg)
	}
	return out, rows.Err()
}

// MakeSubsetDB writes a new SQLite database holding only the annotation
// rows belonging to the given genes. The gene list may use any id type
// with a translation table (symbol_9606, entrez, ...); ensemblg lists are
// used directly.
func MakeSubsetDB(maindb, outpath, subsettype string, genes []string) error {
	db, err := Connect(maindb)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := os.RemoveAll(outpath); err != nil {
		return errors.Wrapf(err, "cannot replace %s", outpath)
	}
	if err := Attach(db, outpath, "subset"); err != nil {
		return err
	}

	ensemblgs := genes
	if subsettype != "ensemblg" {
		table := "ensemblg2" + strings.SplitN(subsettype, "_", 2)[0]
		if strings.HasPrefix(subsettype, "symbol") {
			table = "ensemblg2" + subsettype
		}
		table += "$geneid"
		resolved, err := translateToEnsembl(db, table, subsettype, genes)
		if err != nil {
			return err
		}
		ensemblgs = resolved
	}
	if len(ensemblgs) == 0 {
		return errors.Errorf("no genes of type %s could be translated to ensemblg", subsettype)
	}

	if _, err := db.Exec("CREATE TEMP TABLE subset_genes (ensemblg TEXT PRIMARY KEY)"); err != nil {
		return errors.Wrap(err, "cannot create the subset gene table")
	}
	for _, id := range unique(ensemblgs) {
		if _, err := db.Exec("INSERT OR IGNORE INTO subset_genes VALUES (?)", id); err != nil {
			return errors.Wrap(err, "cannot stage subset genes")
		}
	}

	tables, err := listTables(db)
	if err != nil {
		return err
	}
	for _, table := range tables {
		hasEnsembl, err := tableHasColumn(db, table, "ensemblg")
		if err != nil {
			return err
		}
		var create string
		if hasEnsembl {
			create = fmt.Sprintf(
				"CREATE TABLE subset.%s AS SELECT * FROM %s WHERE ensemblg IN (SELECT ensemblg FROM subset_genes)",
				quoteIdent(table), quoteIdent(table))
		} else {
			create = fmt.Sprintf("CREATE TABLE subset.%s AS SELECT * FROM %s",
				quoteIdent(table), quoteIdent(table))
		}
		if _, err := db.Exec(create); err != nil {
			return errors.Wrapf(err, "cannot subset table %s", table)
		}
	}
	log.Noticef("Wrote subset database `%s` (%d tables, %d genes)",
		outpath, len(tables), len(ensemblgs))
	return nil
}

func translateToEnsembl(db *sql.DB, table, column string, genes []string) ([]string, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(genes)), ",")
	query := fmt.Sprintf("SELECT DISTINCT ensemblg FROM %s WHERE %s IN (%s)",
		quoteIdent(table), quoteIdent(column), placeholders)
	args := make([]interface{}, len(genes))
	for i, gene := range genes {
		args[i] = gene
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot translate gene ids through %s", table)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func listTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, errors.Wrap(err, "cannot list tables")
	}
	defer rows.Close()
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func tableHasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return false, errors.Wrapf(err, "cannot describe %s", table)
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
