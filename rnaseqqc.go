/*
 *  rnaseqqc.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"path/filepath"
	"strings"

	sp "github.com/scipipe/scipipe"
	spcomp "github.com/scipipe/scipipe/components"
)

// RNASeqQC is the single-cell/bulk RNA-seq QC pipeline: sailfish
// quantification against a spike-in transcript catalog, featureCounts over
// deduplicated BAMs, and QC table aggregation from an upstream mapping
// database
type RNASeqQC struct {
	*Pipeline
	sources map[string]*spcomp.FileSource
}

// NewRNASeqQC assembles the RNA-seq QC task graph
func NewRNASeqQC(params *Params, runner Runner, maxTasks int) (*RNASeqQC, error) {
	r := &RNASeqQC{
		Pipeline: NewPipeline("rnaseqqc", params, runner, maxTasks),
		sources:  map[string]*spcomp.FileSource{},
	}
	geneset := r.spikeInGeneset()
	index := r.transcriptCatalog()
	quants := r.sailfish(index, geneset)
	r.mergeSailfish(quants)
	r.featureCounts(geneset)
	r.mappingStats()
	r.loadMetadata()
	return r, nil
}

func (r *RNASeqQC) source(path string) *spcomp.FileSource {
	if src, ok := r.sources[path]; ok {
		return src
	}
	src := spcomp.NewFileSource(r.Wf, "file_"+strings.NewReplacer("/", "_", ".", "_").Replace(path), path)
	r.sources[path] = src
	return src
}

// spikeInGeneset mixes the ERCC gene models into the reference geneset so
// quantification sees the spike-ins
func (r *RNASeqQC) spikeInGeneset() *sp.Process {
	proc := r.Shell("add_spike_in_transcripts",
		`zcat {i:geneset} {i:ercc} > {o:gtf}`, DefaultJob)
	proc.In("geneset").From(r.source(r.Params.MustString("annotations_geneset_gtf")).Out())
	proc.In("ercc").From(r.source(r.Params.MustString("ercc_gtf")).Out())
	base := strings.TrimSuffix(filepath.Base(r.Params.String("annotations_geneset_gtf")), ".gtf.gz")
	proc.SetOut("gtf", "ercc.dir/"+base+".ercc.gtf")
	return proc
}

// transcriptCatalog builds the sailfish index: representative transcripts
// from the geneset, spliced to cDNA, with the ERCC sequences appended
func (r *RNASeqQC) transcriptCatalog() *sp.Process {
	genome := relToWorkdir(filepath.Join(r.Params.MustString("genome_dir"),
		r.Params.MustString("genome")+".fa"))
	transcripts := r.Shell("make_rep_transcripts",
		`zcat {i:gtf} > transcripts.dir/geneset.gtf &&
		 gffread -w {o:fa} -g `+genome+` transcripts.dir/geneset.gtf
		 &> transcripts.dir/gffread.log`,
		Job{MemoryMB: 8000})
	transcripts.In("gtf").From(r.source(r.Params.MustString("annotations_geneset_gtf")).Out())
	transcripts.SetOut("fa", "transcripts.dir/geneset.fa")

	spliced := r.Native("make_spliced_catalog", "{i:fa} {o:spliced}", func(t *sp.Task) {
		if err := SpliceToCDNA(t.InPath("fa"), TempOutPath(t, "spliced")); err != nil {
			log.Fatal(err)
		}
	})
	spliced.In("fa").From(transcripts.Out("fa"))
	spliced.SetOut("spliced", "transcripts.dir/geneset.spliced.fa")

	ercc := r.Params.MustString("ercc_fasta")
	catalog := r.Native("add_spike_ins", "{i:spliced} {i:ercc} {o:catalog}", func(t *sp.Task) {
		if err := ConcatFasta(TempOutPath(t, "catalog"), t.InPath("spliced"), t.InPath("ercc")); err != nil {
			log.Fatal(err)
		}
	})
	catalog.In("spliced").From(spliced.Out("spliced"))
	catalog.In("ercc").From(r.source(ercc).Out())
	catalog.SetOut("catalog", "transcripts.dir/geneset.ercc.fa")

	index := r.Shell("sailfish_index",
		`sailfish index
		 --transcripts {i:catalog}
		 --out $(dirname {o:index})
		 --threads %(sailfish_threads)s
		 --kmerSize %(sailfish_kmer)s
		 &> sailfish_index.log`,
		Job{MemoryMB: 32000, Threads: 8})
	index.In("catalog").From(catalog.Out("catalog"))
	index.SetOut("index", "sailfish_index.dir/sa.bin")
	return index
}

// sailfish declares one quantification task per FASTQ track, paired or
// single-end according to configuration, and a header normalization step
// per track. It returns the transformed per-track quant tables.
func (r *RNASeqQC) sailfish(index, geneset *sp.Process) map[string]*sp.Process {
	quants := map[string]*sp.Process{}
	fastqDir := r.Params.String("fastq_dir")
	paired := r.Params.Bool("paired")

	pattern := "*.fastq.gz"
	if paired {
		pattern = "*.fastq.1.gz"
	}
	fastqs, err := filepath.Glob(filepath.Join(fastqDir, pattern))
	if err != nil || len(fastqs) == 0 {
		log.Warningf("no FASTQ files matching %s under `%s`", pattern, fastqDir)
		return quants
	}

	for _, fastq := range fastqs {
		fastq := fastq
		var track, statement string
		if paired {
			track = Snip(filepath.Base(fastq), ".fastq.1.gz")
			statement = `sailfish quant
				 -i $(dirname {i:index})
				 -l %(sailfish_library)s
				 -1 {i:fastq1} -2 {i:fastq2}
				 --geneMap {i:geneset}
				 -p %(sailfish_threads)s
				 -o $(dirname {o:quant})
				 &> tpm.dir/` + track + `.log`
		} else {
			track = Snip(filepath.Base(fastq), ".fastq.gz")
			statement = `sailfish quant
				 -i $(dirname {i:index})
				 -l %(sailfish_library)s
				 -r {i:fastq1}
				 --geneMap {i:geneset}
				 -p %(sailfish_threads)s
				 -o $(dirname {o:quant})
				 &> tpm.dir/` + track + `.log`
		}
		quant := r.Shell("sailfish_quant_"+track, statement,
			Job{MemoryMB: 12000, Threads: 6})
		quant.In("index").From(index.Out("index"))
		quant.In("geneset").From(geneset.Out("gtf"))
		quant.In("fastq1").From(r.source(fastq).Out())
		if paired {
			mate := filepath.Join(fastqDir, track+".fastq.2.gz")
			quant.In("fastq2").From(r.source(mate).Out())
		}
		quant.SetOut("quant", "tpm.dir/"+track+"/quant.genes.sf")

		// normalize the header block sailfish writes above the counts
		transform := r.Shell("transform_sailfish_"+track,
			`cat {i:quant} |
			 awk 'BEGIN {printf("Name\tLength\tEffectiveLength\tTPM\tNumReads\n")}
			 {if (NR > 11) {print $0}}' > {o:table}`, DefaultJob)
		transform.In("quant").From(quant.Out("quant"))
		transform.SetOut("table", "tpm.dir/"+track+".quant")
		quants[track] = transform
	}
	return quants
}

// mergeSailfish stacks the per-track quant tables under a track column and
// loads the result
func (r *RNASeqQC) mergeSailfish(quants map[string]*sp.Process) {
	if len(quants) == 0 {
		return
	}
	tracks := make([]string, 0, len(quants))
	ports := make([]string, 0, len(quants))
	for track := range quants {
		tracks = append(tracks, track)
		ports = append(ports, "{i:quant_"+track+"}")
	}

	merge := r.Native("merge_sailfish",
		strings.Join(ports, " ")+" {o:table}", func(t *sp.Task) {
			infiles := make([]string, len(tracks))
			for i, track := range tracks {
				infiles[i] = t.InPath("quant_" + track)
			}
			err := StackTables(TempOutPath(t, "table"), infiles, func(path string) string {
				return Snip(filepath.Base(path), ".quant")
			})
			if err != nil {
				log.Fatal(err)
			}
		})
	for track, proc := range quants {
		merge.In("quant_" + track).From(proc.Out("table"))
	}
	merge.SetOut("table", "sailfish_genes.tsv")

	r.loadTask("load_sailfish", "sailfish_genes", merge, "table", "sailfish.load",
		[]string{"track", "Name"})
}

// featureCounts deduplicates each BAM with picard and counts reads against
// the spike-in geneset, then assembles the count matrix and loads it
func (r *RNASeqQC) featureCounts(geneset *sp.Process) {
	bamDir := r.Params.String("bam_dir")
	bams, err := filepath.Glob(filepath.Join(bamDir, "*.bam"))
	if err != nil || len(bams) == 0 {
		log.Warningf("no BAM files under `%s`", bamDir)
		return
	}

	pairedFlags := ""
	if r.Params.Bool("featurecounts_paired") {
		// count fragments, both mates mapped to the feature
		pairedFlags = "-p -B"
	}

	counts := map[string]*sp.Process{}
	tracks := []string{}
	for _, bamfile := range bams {
		track := Snip(filepath.Base(bamfile), ".bam")
		tracks = append(tracks, track)

		dedup := r.Shell("dedup_bams_"+track,
			`picard MarkDuplicates
			 INPUT={i:bam}
			 ASSUME_SORTED=true
			 METRICS_FILE={o:dedup}.stats
			 OUTPUT={o:dedup}
			 VALIDATION_STRINGENCY=SILENT
			 REMOVE_DUPLICATES=true`,
			Job{MemoryMB: 5000, Threads: 3})
		dedup.In("bam").From(r.source(bamfile).Out())
		dedup.SetOut("dedup", "dedup.dir/"+track+".dedup.bam")

		// featureCounts cannot write gzip itself
		fc := r.Shell("feature_counts_"+track,
			`featureCounts %(featurecounts_options)s
			 -T %(featurecounts_threads)s
			 -s %(featurecounts_strand)s
			 `+pairedFlags+`
			 -a {i:annotations}
			 -o feature_counts.dir/`+track+`.tsv
			 {i:bam}
			 > feature_counts.dir/`+track+`.log &&
			 gzip -c feature_counts.dir/`+track+`.tsv > {o:counts}`,
			Job{MemoryMB: 2000, Threads: r.Params.Int("featurecounts_threads")})
		fc.In("annotations").From(geneset.Out("gtf"))
		fc.In("bam").From(dedup.Out("dedup"))
		fc.SetOut("counts", "feature_counts.dir/"+track+".tsv.gz")
		counts[track] = fc
	}

	ports := make([]string, len(tracks))
	for i, track := range tracks {
		ports[i] = "{i:counts_" + track + "}"
	}
	aggregate := r.Native("aggregate_feature_counts",
		strings.Join(ports, " ")+" {o:matrix}", func(t *sp.Task) {
			infiles := make([]string, len(tracks))
			for i, track := range tracks {
				infiles[i] = t.InPath("counts_" + track)
			}
			// gene in column 1, counts in column 7 of featureCounts output
			err := MergeColumn(TempOutPath(t, "matrix"), infiles, 0, 6, "gene_id",
				func(path string) string {
					track := Snip(filepath.Base(path), ".tsv.gz")
					return strings.ReplaceAll(track, "-", ".")
				})
			if err != nil {
				log.Fatal(err)
			}
		})
	for _, track := range tracks {
		aggregate.In("counts_" + track).From(counts[track].Out("counts"))
	}
	aggregate.SetOut("matrix", "feature_counts.dir/feature_counts.tsv.gz")

	r.loadTask("load_feature_counts", "featurecounts", aggregate, "matrix",
		"featurecounts.load", []string{"gene_id"})
}

// statsTables maps the stats.dir outputs to the mapping-database tables
// they are extracted from
func (r *RNASeqQC) statsTables() map[string]string {
	tables := map[string]string{
		"context_stats":     r.Params.String("mapping_context_stats"),
		"alignment_stats":   r.Params.String("mapping_alignment_stats"),
		"picard_stats":      r.Params.String("mapping_picard_alignments"),
		"duplication_stats": r.Params.String("mapping_picard_dups"),
		"coverage_stats":    r.Params.String("mapping_picard_dups"),
	}
	if r.Params.Bool("paired") {
		tables["picard_insert_stats"] = r.Params.String("mapping_picard_inserts")
	}
	return tables
}

// mappingStats pulls the QC tables of an upstream mapping pipeline into
// stats.dir, joins them on track and loads the joined table
func (r *RNASeqQC) mappingStats() {
	url := r.Params.String("mapping_database_url")
	if url == "" {
		log.Warningf("mapping_database_url is not configured, skipping QC aggregation")
		return
	}

	var names []string
	procs := map[string]*sp.Process{}
	for name, table := range r.statsTables() {
		name, table := name, table
		proc := r.Native("get_"+name, "{o:stats}", func(t *sp.Task) {
			db, err := Connect(url)
			if err != nil {
				log.Fatal(err)
			}
			defer db.Close()
			if err := ExtractTable(db, table, TempOutPath(t, "stats")); err != nil {
				log.Fatal(err)
			}
		})
		proc.SetOut("stats", "stats.dir/"+name+".tsv")
		procs[name] = proc
		names = append(names, name)
	}

	ports := make([]string, len(names))
	for i, name := range names {
		ports[i] = "{i:" + name + "}"
	}
	aggregate := r.Native("aggregate_qc",
		strings.Join(ports, " ")+" {o:table}", func(t *sp.Task) {
			infiles := make([]string, len(names))
			for i, name := range names {
				infiles[i] = t.InPath(name)
			}
			if err := JoinTables(TempOutPath(t, "table"), infiles); err != nil {
				log.Fatal(err)
			}
		})
	for _, name := range names {
		aggregate.In(name).From(procs[name].Out("stats"))
	}
	aggregate.SetOut("table", "stats.dir/QC_measures.clean")

	r.loadTask("load_qc_measures", "qc_measures", aggregate, "table",
		"qc_measures.load", []string{"track"})
}

// loadMetadata bulk-loads the sample metadata table when one is configured
func (r *RNASeqQC) loadMetadata() {
	meta := r.Params.String("meta")
	if meta == "" {
		return
	}
	proc := r.Native("load_metadata", "{i:meta} {o:load}", func(t *sp.Task) {
		db, err := Connect(r.Params.Database())
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		if err := LoadFile(db, t.InPath("meta"), "meta_data", LoadOptions{}); err != nil {
			log.Fatal(err)
		}
		if err := writeMarker(TempOutPath(t, "load"), "meta_data loaded"); err != nil {
			log.Fatal(err)
		}
	})
	proc.In("meta").From(r.source(meta).Out())
	proc.SetOut("load", "meta_data.load")
}

// loadTask declares a Native task that bulk-loads an upstream table file
// into the pipeline database
func (r *RNASeqQC) loadTask(name, table string, from *sp.Process, port, marker string, indexes []string) {
	proc := r.Native(name, "{i:table} {o:load}", func(t *sp.Task) {
		db, err := Connect(r.Params.Database())
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		if err := LoadFile(db, t.InPath("table"), table, LoadOptions{Indexes: indexes}); err != nil {
			log.Fatal(err)
		}
		if err := writeMarker(TempOutPath(t, "load"), table+" loaded"); err != nil {
			log.Fatal(err)
		}
	})
	proc.In("table").From(from.Out(port))
	proc.SetOut("load", marker)
}
