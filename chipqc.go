/*
 *  chipqc.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	sp "github.com/scipipe/scipipe"
	spcomp "github.com/scipipe/scipipe/components"
)

// ChipQC is the ChIP-seq QC pipeline: homer peak calling and annotation
// plus the deeptools quality plots, driven by design.tsv
type ChipQC struct {
	*Pipeline
	Design *DesignTable

	sources map[string]*spcomp.FileSource
}

// ValidateChipQCConfig rejects contradictory configuration before any task
// graph is assembled. The deeptools block refuses to run with an unset
// ignore_duplicates: a silently defaulted value changes every count.
func ValidateChipQCConfig(params *Params) error {
	if params.Bool("deeptools") {
		if !params.Has("deeptools_ignore_duplicates") {
			return errors.New("set deeptools_ignore_duplicates to true or false in pipeline.yml")
		}
		if params.Bool("deeptools_bam_coverage") && !params.Has("deeptools_extend_reads") {
			return errors.New("set deeptools_extend_reads to true or false in pipeline.yml")
		}
	}
	return nil
}

// NewChipQC assembles the ChIP QC task graph from the configuration and the
// design table in the working directory
func NewChipQC(params *Params, runner Runner, maxTasks int) (*ChipQC, error) {
	if err := ValidateChipQCConfig(params); err != nil {
		return nil, err
	}
	c := &ChipQC{
		Pipeline: NewPipeline("chipqc", params, runner, maxTasks),
		Design:   LoadDesignTable(),
		sources:  map[string]*spcomp.FileSource{},
	}

	design := c.loadDesign()
	chipTags, inputTags := c.tagDirectories(design)
	peaks := c.peakCalling(chipTags, inputTags)
	c.peakAnnotation(peaks)
	c.countAndDiff(chipTags)
	c.diffPeaksReplicates(chipTags, inputTags)

	if params.Bool("deeptools") {
		c.deeptools()
	}
	c.multiqc()
	return c, nil
}

// source hands out one FileSource per BAM, shared between consumers
func (c *ChipQC) source(bamfile string) *spcomp.FileSource {
	if src, ok := c.sources[bamfile]; ok {
		return src
	}
	src := spcomp.NewFileSource(c.Wf, "bamfile_"+Snip(bamfile, ".bam"), bamfile)
	c.sources[bamfile] = src
	return src
}

// dupFlag renders the --ignoreDuplicates toggle shared by the deeptools
// statements
func (c *ChipQC) dupFlag() string {
	if c.Params.Bool("deeptools_ignore_duplicates") {
		return "--ignoreDuplicates"
	}
	return ""
}

// loadDesign bulk-loads design.tsv into the pipeline database
func (c *ChipQC) loadDesign() *sp.Process {
	proc := c.Native("load_design", "{o:load}", func(t *sp.Task) {
		db, err := Connect(c.Params.Database())
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		if err := LoadFile(db, DesignFile, "design", LoadOptions{}); err != nil {
			log.Fatal(err)
		}
		if err := writeMarker(TempOutPath(t, "load"), "design loaded"); err != nil {
			log.Fatal(err)
		}
	})
	proc.SetOut("load", "design.load")
	return proc
}

// tagDirectories declares one makeTagDirectory task per BAM of the design.
// The homer tag directory is named after the BAM with its suffix stripped;
// the touched <track>/<track>.txt file is the task's tracked output.
func (c *ChipQC) tagDirectories(design *sp.Process) (chipTags, inputTags map[string]*sp.Process) {
	chipTags = map[string]*sp.Process{}
	inputTags = map[string]*sp.Process{}
	if !c.Params.Bool("homer") {
		return
	}
	declare := func(bamfile, kind string) *sp.Process {
		track := Snip(bamfile, ".bam")
		proc := c.Shell("make_tag_directory_"+kind+"_"+track,
			`samtools index {i:bam} &&
			 samtools view {i:bam} > `+track+`.sam &&
			 makeTagDirectory `+track+`/ `+track+`.sam
			 -genome %(maketagdir_genome)s -checkGC
			 &> `+track+`.makeTag.log &&
			 touch {o:tag} # {i:design}`,
			Job{MemoryMB: 8000})
		proc.In("bam").From(c.source(bamfile).Out())
		proc.In("design").From(design.Out("load"))
		proc.SetOut("tag", track+"/"+track+".txt")
		return proc
	}
	for _, bamfile := range c.Design.InputBams() {
		inputTags[bamfile] = declare(bamfile, "input")
	}
	for _, bamfile := range c.Design.ChipBams() {
		chipTags[bamfile] = declare(bamfile, "chip")
	}
	return
}

// peakCalling declares findPeaks per ChIP track against its matched input
// tag directory
func (c *ChipQC) peakCalling(chipTags, inputTags map[string]*sp.Process) map[string]*sp.Process {
	peaks := map[string]*sp.Process{}
	if len(chipTags) == 0 {
		return peaks
	}
	for _, bamfile := range c.Design.ChipBams() {
		track := Snip(bamfile, ".bam")
		control, ok := c.Design.ControlFor(bamfile)
		if !ok {
			log.Warningf("no control for %s in %s, skipping findPeaks", bamfile, DesignFile)
			continue
		}
		if _, ok := inputTags[control]; !ok {
			log.Warningf("control %s has no tag directory, skipping findPeaks for %s", control, bamfile)
			continue
		}
		inputTrack := Snip(control, ".bam")
		// the tag directories live in the working directory, one level
		// above the directory scipipe executes the statement in
		proc := c.Shell("find_peaks_"+track,
			`findPeaks ../`+track+` -style %(findpeaks_style)s -o {o:peaks}
			 %(findpeaks_options)s -i ../`+inputTrack+`
			 &> `+track+`.findpeaks.log # {i:tag} {i:input_tag}`,
			Job{MemoryMB: 8000})
		proc.In("tag").From(chipTags[bamfile].Out("tag"))
		proc.In("input_tag").From(inputTags[control].Out("tag"))
		proc.SetOut("peaks", track+"/regions.txt")
		peaks[bamfile] = proc
	}
	return peaks
}

// peakAnnotation declares the per-peak-set conversions: BED export,
// annotatePeaks and motif discovery
func (c *ChipQC) peakAnnotation(peaks map[string]*sp.Process) {
	for _, bamfile := range c.Design.ChipBams() {
		found, ok := peaks[bamfile]
		if !ok {
			continue
		}
		track := Snip(bamfile, ".bam")

		bed := c.Shell("bed_conversion_"+track,
			`pos2bed.pl %(bed_options)s {i:peaks} > {o:bed}`, DefaultJob)
		bed.In("peaks").From(found.Out("peaks"))
		bed.SetOut("bed", track+"/"+track+".bed")

		annotate := c.Shell("annotate_peaks_"+track,
			`annotatePeaks.pl {i:peaks} %(annotatepeaks_genome)s 2> Annotate.log > {o:annotations}`,
			Job{MemoryMB: 8000})
		annotate.In("peaks").From(found.Out("peaks"))
		annotate.SetOut("annotations", track+"/annotate.txt")

		motifs := c.Shell("find_motifs_"+track,
			`findMotifsGenome.pl {i:peaks} %(motif_genome)s `+track+` -size %(motif_size)s
			 &> Motif.log && touch {o:motifs}`,
			Job{MemoryMB: 16000, Threads: 4})
		motifs.In("peaks").From(found.Out("peaks"))
		motifs.SetOut("motifs", track+"/motifs.txt")
	}
}

// countAndDiff declares the raw count table over all ChIP tag directories
// and the differential expression run over it
func (c *ChipQC) countAndDiff(chipTags map[string]*sp.Process) {
	if len(chipTags) == 0 {
		return
	}
	var dirs, ports []string
	for _, bamfile := range c.Design.ChipBams() {
		track := Snip(bamfile, ".bam")
		dirs = append(dirs, "../"+track+"/")
		ports = append(ports, "{i:tag_"+track+"}")
	}
	count := c.Shell("count_peaks",
		`annotatePeaks.pl %(annotate_raw_region)s %(annotate_raw_genome)s
		 -d `+strings.Join(dirs, " ")+` > {o:counts} # `+strings.Join(ports, " "),
		Job{MemoryMB: 8000})
	for _, bamfile := range c.Design.ChipBams() {
		track := Snip(bamfile, ".bam")
		count.In("tag_" + track).From(chipTags[bamfile].Out("tag"))
	}
	count.SetOut("counts", "countTable.peaks.txt")

	diff := c.Shell("diff_expression",
		`getDiffExpression.pl {i:counts} %(diff_expr_options)s %(diff_expr_group)s > {o:diff}`,
		Job{MemoryMB: 16000})
	diff.In("counts").From(count.Out("counts"))
	diff.SetOut("diff", "diffOutput.txt")
}

// diffPeaksReplicates declares one getDifferentialPeaksReplicates run per
// replicate group of the design, every group getting its own output file
func (c *ChipQC) diffPeaksReplicates(chipTags, inputTags map[string]*sp.Process) {
	if len(chipTags) == 0 {
		return
	}
	for group, rows := range c.Design.ReplicateGroups() {
		var chipDirs, inputDirs, ports []string
		for _, row := range rows {
			chipTrack := Snip(row.BamReads, ".bam")
			chipDirs = append(chipDirs, "../"+chipTrack+"/")
			if _, ok := chipTags[row.BamReads]; ok {
				ports = append(ports, "{i:tag_"+chipTrack+"}")
			}
			inputTrack := Snip(row.BamControl, ".bam")
			inputDirs = append(inputDirs, "../"+inputTrack+"/")
			if _, ok := inputTags[row.BamControl]; ok {
				ports = append(ports, "{i:input_tag_"+inputTrack+"}")
			}
		}
		proc := c.Shell("diff_peaks_replicates_"+group,
			`getDifferentialPeaksReplicates.pl -t `+strings.Join(unique(chipDirs), " ")+`
			 -i `+strings.Join(unique(inputDirs), " ")+`
			 -genome %(diff_repeats_genome)s %(diff_repeats_options)s
			 > {o:peaks} # `+strings.Join(unique(ports), " "),
			Job{MemoryMB: 16000})
		// rows of one group may share BAMs; connect each port only once
		connected := map[string]bool{}
		for _, row := range rows {
			if tag, ok := chipTags[row.BamReads]; ok && !connected["tag_"+Snip(row.BamReads, ".bam")] {
				connected["tag_"+Snip(row.BamReads, ".bam")] = true
				proc.In("tag_" + Snip(row.BamReads, ".bam")).From(tag.Out("tag"))
			}
			if tag, ok := inputTags[row.BamControl]; ok && !connected["input_tag_"+Snip(row.BamControl, ".bam")] {
				connected["input_tag_"+Snip(row.BamControl, ".bam")] = true
				proc.In("input_tag_" + Snip(row.BamControl, ".bam")).From(tag.Out("tag"))
			}
		}
		proc.SetOut("peaks", "Replicates.dir/Repeat-"+group+".outputPeaks.txt")
	}
}

// deeptools declares the quality-plot block: coverage, fingerprints,
// fragment sizes, per-BAM coverage tracks, chip/input compare tracks and
// the summary/correlation/PCA plots
func (c *ChipQC) deeptools() {
	params := c.Params
	bams := c.Design.AllBams()
	if len(bams) == 0 {
		log.Warningf("empty design, skipping the deeptools block")
		return
	}
	coverage := c.Shell("coverage_plot",
		`plotCoverage -b `+bamPorts(bams)+`
		 --plotFile Coverage.dir/coverage_plot
		 --plotTitle "coverage_plot"
		 --outRawCounts {o:counts} `+c.dupFlag()+`
		 --minMappingQuality %(deeptools_mapping_quality)s`,
		Job{MemoryMB: 8000})
	c.connectBams(coverage, bams)
	coverage.SetOut("counts", "Coverage.dir/coverage_plot.tab")

	fingerprint := c.Shell("fingerprint_plot",
		`plotFingerprint -b `+bamPorts(bams)+`
		 --plotFile Fingerprint.dir/fingerprints_plot.pdf
		 --plotTitle "Fingerprints of samples"
		 --outRawCounts {o:counts} `+c.dupFlag()+`
		 --minMappingQuality %(deeptools_mapping_quality)s`,
		Job{MemoryMB: 8000})
	c.connectBams(fingerprint, bams)
	fingerprint.SetOut("counts", "Fingerprint.dir/fingerprints_plot.tab")

	c.fragmentSize(bams)

	coverageProcs := map[string]*sp.Process{}
	if params.Bool("deeptools_bam_coverage") {
		normalize := ""
		if norm := params.String("deeptools_ignore_normalization"); norm != "" && norm != "None" {
			normalize = "--ignoreForNormalization " + norm
		}
		extend := ""
		if params.Bool("deeptools_extend_reads") {
			extend = "--extendReads"
		}
		for _, bamfile := range bams {
			track := Snip(bamfile, ".bam")
			proc := c.Shell("bam_coverage_"+track,
				`bamCoverage --bam {i:bam} -o {o:bw}
				 --binSize %(deeptools_binsize)s
				 `+normalize+` `+extend+`
				 %(deeptools_bamcoverage_options)s`,
				Job{MemoryMB: 8000, Threads: 4})
			proc.In("bam").From(c.source(bamfile).Out())
			proc.SetOut("bw", "DeepOutput.dir/bamCoverage.dir/"+track+".bw")
			coverageProcs[bamfile] = proc
		}
	}

	if params.Bool("deeptools_bam_compare") {
		for _, bamfile := range c.Design.ChipBams() {
			control, ok := c.Design.ControlFor(bamfile)
			if !ok {
				continue
			}
			track := Snip(bamfile, ".bam")
			proc := c.Shell("bam_compare_"+track,
				`bamCompare -b1 {i:chip} -b2 {i:input} -o {o:bw} %(deeptools_bamcompare_options)s`,
				Job{MemoryMB: 8000, Threads: 4})
			proc.In("chip").From(c.source(bamfile).Out())
			proc.In("input").From(c.source(control).Out())
			proc.SetOut("bw", "DeepOutput.dir/bamCompare.dir/"+track+".bw")
		}
	}

	compareSet, compareRegion := "bins", ""
	if setting := params.String("deeptools_compare_setting"); setting != "" && setting != "None" && setting != "bins" {
		compareSet, compareRegion = "BED-file --BED", relToWorkdir(setting)
	}

	bamSummary := c.Shell("multi_bam_summary",
		`multiBamSummary `+compareSet+` `+compareRegion+`
		 -b `+bamPorts(bams)+`
		 -o {o:npz}
		 --outRawCounts Summary.dir/Bam_Summary.tab
		 --minMappingQuality %(deeptools_mapping_quality)s
		 `+c.dupFlag()+` %(deeptools_summary_options)s`,
		Job{MemoryMB: 16000, Threads: 4})
	c.connectBams(bamSummary, bams)
	bamSummary.SetOut("npz", "Summary.dir/Bam_Summary.npz")
	c.summaryPlots("bam", bamSummary)

	if len(coverageProcs) > 0 {
		var ports []string
		for _, bamfile := range bams {
			ports = append(ports, "{i:bw_"+Snip(bamfile, ".bam")+"}")
		}
		bwSummary := c.Shell("multi_bw_summary",
			`multiBigwigSummary `+compareSet+` `+compareRegion+`
			 -b `+strings.Join(ports, " ")+`
			 -out {o:npz}
			 --outRawCounts Summary.dir/Bw_Summary.tab
			 %(deeptools_summary_options)s`,
			Job{MemoryMB: 16000})
		for _, bamfile := range bams {
			bwSummary.In("bw_" + Snip(bamfile, ".bam")).From(coverageProcs[bamfile].Out("bw"))
		}
		bwSummary.SetOut("npz", "Summary.dir/Bw_Summary.npz")
		c.summaryPlots("bw", bwSummary)
	}

	c.computeMatrix()
}

// fragmentSize declares bamPEFragmentSize over the paired-end BAMs only;
// single-end experiments skip the task with a warning
func (c *ChipQC) fragmentSize(bams []string) {
	var paired []string
	for _, bamfile := range bams {
		ok, err := IsPairedBam(bamfile)
		if err != nil {
			log.Warningf("cannot inspect %s for paired reads (%s)", bamfile, err)
			continue
		}
		if ok {
			paired = append(paired, bamfile)
		}
	}
	if len(paired) == 0 {
		log.Warningf("no paired-end BAM files in the design, skipping bamPEFragmentSize")
		return
	}
	proc := c.Shell("fragment_size",
		`bamPEFragmentSize -b `+bamPorts(paired)+`
		 --histogram {o:histogram}
		 --plotTitle "Fragment Sizes of PE samples"`,
		Job{MemoryMB: 8000})
	c.connectBams(proc, paired)
	proc.SetOut("histogram", "FragmentSize.dir/FragmentSize.png")
}

// bamPorts renders one {i:bam_<track>} placeholder per BAM so the statement
// receives workdir-relative paths wherever scipipe executes it
func bamPorts(bams []string) string {
	ports := make([]string, len(bams))
	for i, bamfile := range bams {
		ports[i] = "{i:bam_" + Snip(bamfile, ".bam") + "}"
	}
	return strings.Join(ports, " ")
}

// connectBams wires the bamPorts in-ports of a process to the shared sources
func (c *ChipQC) connectBams(proc *sp.Process, bams []string) {
	for _, bamfile := range bams {
		proc.In("bam_" + Snip(bamfile, ".bam")).From(c.source(bamfile).Out())
	}
}

// relToWorkdir points a configured relative path back at the working
// directory from inside a task's execution directory
func relToWorkdir(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return "../" + path
}

// summaryPlots declares plotCorrelation and plotPCA over one summary npz
func (c *ChipQC) summaryPlots(kind string, summary *sp.Process) {
	filetype := c.Params.String("deeptools_filetype")

	corr := c.Shell("plot_correlation_"+kind,
		`plotCorrelation -in {i:npz} -o {o:plot}
		 --corMethod %(deeptools_cormethod)s -p %(deeptools_plot)s
		 --plotFileFormat %(deeptools_filetype)s
		 --skipZeros %(deeptools_plot_options)s`, DefaultJob)
	corr.In("npz").From(summary.Out("npz"))
	corr.SetOut("plot", "Summary.dir/"+kind+"_summary_correlation."+filetype)

	pca := c.Shell("plot_pca_"+kind,
		`plotPCA -in {i:npz} -o {o:plot}
		 --plotFileFormat %(deeptools_filetype)s
		 %(deeptools_plot_options)s`, DefaultJob)
	pca.In("npz").From(summary.Out("npz"))
	pca.SetOut("plot", "Summary.dir/"+kind+"_summary_pca."+filetype)
}

// computeMatrix declares the optional scale-regions matrix over a
// configured bigwig/BED pair
func (c *ChipQC) computeMatrix() {
	if c.Params.String("deeptools_bwfile") == "" || c.Params.String("deeptools_bedfile") == "" {
		return
	}
	proc := c.Shell("compute_matrix",
		`computeMatrix scale-regions -S %(deeptools_bwfile)s
		 -R %(deeptools_bedfile)s --upstream %(deeptools_upstream)s
		 --downstream %(deeptools_downstream)s
		 %(deeptools_matrix_options)s -o {o:matrix}`,
		Job{MemoryMB: 16000, Threads: 4})
	proc.SetOut("matrix", "DeepOutput.dir/computeMatrix.gz")
}

// multiqc declares the MultiQC sweep over the working directory
func (c *ChipQC) multiqc() {
	proc := c.Shell("multiqc",
		`LANG=en_GB.UTF-8 multiqc .. -f -n {o:report}`, DefaultJob)
	proc.SetOut("report", "MultiQC_report.dir/multiqc_report.html")
}

// writeMarker records task completion in a tracked output file
func writeMarker(path, message string) error {
	return os.WriteFile(path, []byte(message+"\n"), 0644)
}
