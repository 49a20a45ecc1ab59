/*
 *  plot.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// densityBins is the histogram resolution of the expression density plot
const densityBins = 50

// Report renders the tracker outputs of a finished pipeline run into a
// single HTML page plus TSV exports
type Report struct {
	Params *Params
	OutDir string
}

// NewReport points a report builder at the pipeline database named in the
// configuration
func NewReport(params *Params) *Report {
	outdir := params.String("report_dir")
	if outdir == "" {
		outdir = "report.dir"
	}
	return &Report{Params: params, OutDir: outdir}
}

// Build runs every tracker whose inputs exist and writes report.html and
// the TSV exports under OutDir. Trackers with missing tables are skipped
// with a warning so a chipqc run still gets its correlation page.
func (r *Report) Build() error {
	if err := os.MkdirAll(r.OutDir, 0755); err != nil {
		return errors.Wrapf(err, "cannot create %s", r.OutDir)
	}
	db, err := Connect(r.Params.Database())
	if err != nil {
		return err
	}
	defer db.Close()

	page := components.NewPage()
	page.PageTitle = "cgatflow QC report"
	charted := 0

	if m, err := TPMMatrix(db); err != nil {
		log.Warningf("skipping expression trackers: %s", err)
	} else {
		page.AddCharts(sampleHeatmap(m))
		if sc, err := sampleMDS(m); err != nil {
			log.Warningf("skipping MDS tracker: %s", err)
		} else {
			page.AddCharts(sc)
		}
		factors, err := Factors(db)
		if err != nil {
			log.Warningf("no factors table, PCA points are unlabelled: %s", err)
			factors = map[string]map[string]string{}
		}
		if pcaCharts, err := samplePCACharts(m, factors); err != nil {
			log.Warningf("skipping PCA tracker: %s", err)
		} else {
			page.AddCharts(pcaCharts...)
		}
		page.AddCharts(expressionDistribution(m))
		if err := r.exportMatrix(m, "tpm_matrix.tsv"); err != nil {
			return err
		}
		charted++
	}

	if bins, err := BiasBinnedMeans(db); err != nil {
		log.Warningf("skipping bias tracker: %s", err)
	} else {
		page.AddCharts(biasFactorCharts(bins)...)
		charted++
	}

	if cols, records, err := ReadTable(db, "context_stats"); err != nil {
		log.Warningf("skipping mapping context tracker: %s", err)
	} else {
		if err := r.exportTable(cols, records, "context_stats.tsv"); err != nil {
			return err
		}
		charted++
	}

	if npz := r.summaryNpz(); npz != "" {
		summary, err := ReadNpzSummary(npz)
		if err != nil {
			return err
		}
		page.AddCharts(coverageCorrelation(summary))
		charted++
	}

	if charted == 0 {
		return errors.New("no tracker had any input, nothing to report")
	}

	outfile := filepath.Join(r.OutDir, "report.html")
	fh, err := os.Create(outfile)
	if err != nil {
		return errors.Wrapf(err, "cannot write %s", outfile)
	}
	defer fh.Close()
	if err := page.Render(fh); err != nil {
		return errors.Wrap(err, "report rendering failed")
	}
	log.Noticef("Report written to `%s`", outfile)
	return nil
}

// summaryNpz locates the multiBamSummary matrix of a chipqc run, if any
func (r *Report) summaryNpz() string {
	if npz := r.Params.String("report_npz"); npz != "" {
		return npz
	}
	npz := "Summary.dir/Bam_Summary.npz"
	if FileExists(npz) {
		return npz
	}
	return ""
}

// Publish copies the built report to the export directory
func (r *Report) Publish() error {
	exportdir := r.Params.String("report_export")
	if exportdir == "" {
		exportdir = "export.dir"
	}
	if !FileExists(filepath.Join(r.OutDir, "report.html")) {
		return errors.Errorf("no report under %s, run `report build` first", r.OutDir)
	}
	err := filepath.Walk(r.OutDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(r.OutDir, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(exportdir, rel)
		if info.IsDir() {
			return os.MkdirAll(dest, 0755)
		}
		return copyFile(path, dest)
	})
	if err != nil {
		return errors.Wrapf(err, "cannot publish to %s", exportdir)
	}
	log.Noticef("Report published to `%s`", exportdir)
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func (r *Report) exportMatrix(m *Matrix, filename string) error {
	fh, err := os.Create(filepath.Join(r.OutDir, filename))
	if err != nil {
		return errors.Wrapf(err, "cannot export %s", filename)
	}
	defer fh.Close()
	fmt.Fprintln(fh, "gene_id\t"+strings.Join(m.Cols, "\t"))
	nRows, nCols := m.Data.Dims()
	for i := 0; i < nRows; i++ {
		fields := make([]string, nCols+1)
		fields[0] = m.Rows[i]
		for j := 0; j < nCols; j++ {
			fields[j+1] = fmt.Sprintf("%g", m.Data.At(i, j))
		}
		fmt.Fprintln(fh, strings.Join(fields, "\t"))
	}
	return nil
}

func (r *Report) exportTable(cols []string, records [][]string, filename string) error {
	fh, err := os.Create(filepath.Join(r.OutDir, filename))
	if err != nil {
		return errors.Wrapf(err, "cannot export %s", filename)
	}
	defer fh.Close()
	fmt.Fprintln(fh, strings.Join(cols, "\t"))
	for _, rec := range records {
		fmt.Fprintln(fh, strings.Join(rec, "\t"))
	}
	return nil
}

// correlationHeatmap renders a symmetric correlation matrix with samples
// reordered by average-linkage clustering
func correlationHeatmap(title string, labels []string, corr *mat.SymDense) *charts.HeatMap {
	order := LeafOrder(corr)
	ordered := make([]string, len(order))
	for i, k := range order {
		ordered[i] = labels[k]
	}

	var cells []opts.HeatMapData
	lo := 1.0
	for i, a := range order {
		for j, b := range order {
			v := corr.At(a, b)
			if v < lo {
				lo = v
			}
			cells = append(cells, opts.HeatMapData{Value: [3]interface{}{i, j, v}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: ordered}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: ordered}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: true,
			Min:        float32(lo),
			Max:        1,
		}),
	)
	hm.AddSeries("pearson", cells)
	return hm
}

func sampleHeatmap(m *Matrix) *charts.HeatMap {
	logged := mat.DenseCopyOf(m.Data)
	LogTransform(logged)
	return correlationHeatmap("Sample correlation (TPM)", m.Cols, CorrelationMatrix(logged))
}

func sampleMDS(m *Matrix) (*charts.Scatter, error) {
	logged := mat.DenseCopyOf(m.Data)
	LogTransform(logged)
	embedded, err := ClassicalMDS(EuclideanDistances(logged), 2)
	if err != nil {
		return nil, err
	}

	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Sample MDS"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "MDS1", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "MDS2", Type: "value"}),
	)
	points := make([]opts.ScatterData, len(m.Cols))
	for i, track := range m.Cols {
		points[i] = opts.ScatterData{
			Name:  track,
			Value: []interface{}{embedded.At(i, 0), embedded.At(i, 1)},
		}
	}
	sc.AddSeries("samples", points)
	return sc, nil
}

// samplePCACharts returns the PC1/PC2 projection colored by each factor
// plus the variance-explained bar chart
func samplePCACharts(m *Matrix, factors map[string]map[string]string) ([]components.Charter, error) {
	result, err := SamplePCA(m.Data, 10)
	if err != nil {
		return nil, err
	}

	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Sample PCA"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "PC1", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "PC2", Type: "value"}),
	)
	byLevel := map[string][]opts.ScatterData{}
	for i, track := range m.Cols {
		level := "all"
		for _, v := range factors[track] {
			level = v
			break
		}
		byLevel[level] = append(byLevel[level], opts.ScatterData{
			Name:  track,
			Value: []interface{}{result.Projections.At(i, 0), result.Projections.At(i, 1)},
		})
	}
	for level, points := range byLevel {
		sc.AddSeries(level, points)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "PCA variance explained"}))
	names := make([]string, len(result.VarExplained))
	values := make([]opts.BarData, len(result.VarExplained))
	for i, v := range result.VarExplained {
		names[i] = fmt.Sprintf("PC%d", i+1)
		values[i] = opts.BarData{Value: v}
	}
	bar.SetXAxis(names).AddSeries("variance", values)
	return []components.Charter{sc, bar}, nil
}

func expressionDistribution(m *Matrix) *charts.Line {
	mids, densities := ExpressionDensity(m, densityBins)
	xs := make([]string, len(mids))
	for i, v := range mids {
		xs[i] = fmt.Sprintf("%.2f", v)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "log2(TPM) distribution"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "log2(TPM)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "density"}),
	)
	line.SetXAxis(xs)
	for _, track := range m.Cols {
		values := make([]opts.LineData, len(mids))
		for i, v := range densities[track] {
			values[i] = opts.LineData{Value: v}
		}
		line.AddSeries(track, values)
	}
	return line
}

// biasFactorCharts renders one line chart per bias factor, mean expression
// over bins with one series per sample
func biasFactorCharts(bins []BiasBin) []components.Charter {
	// factor -> track -> bin -> value
	byFactor := map[string]map[string]map[int]float64{}
	maxBin := map[string]int{}
	for _, b := range bins {
		if byFactor[b.Factor] == nil {
			byFactor[b.Factor] = map[string]map[int]float64{}
		}
		if byFactor[b.Factor][b.Track] == nil {
			byFactor[b.Factor][b.Track] = map[int]float64{}
		}
		byFactor[b.Factor][b.Track][b.Bin] = b.Value
		if b.Bin > maxBin[b.Factor] {
			maxBin[b.Factor] = b.Bin
		}
	}

	factors := make([]string, 0, len(byFactor))
	for factor := range byFactor {
		factors = append(factors, factor)
	}
	sort.Strings(factors)

	var out []components.Charter
	for _, factor := range factors {
		tracks := byFactor[factor]
		n := maxBin[factor] + 1
		xs := make([]string, n)
		for i := range xs {
			xs[i] = itoa(i)
		}
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: "Expression by " + factor + " bin"}),
			charts.WithXAxisOpts(opts.XAxis{Name: factor + " bin"}),
			charts.WithYAxisOpts(opts.YAxis{Name: "mean expression"}),
		)
		line.SetXAxis(xs)
		names := make([]string, 0, len(tracks))
		for track := range tracks {
			names = append(names, track)
		}
		sort.Strings(names)
		for _, track := range names {
			series := make([]opts.LineData, n)
			for i := 0; i < n; i++ {
				series[i] = opts.LineData{Value: tracks[track][i]}
			}
			line.AddSeries(track, series)
		}
		out = append(out, line)
	}
	return out
}

// coverageCorrelation is the native counterpart of deeptools
// plotCorrelation, fed from the multiBamSummary matrix
func coverageCorrelation(summary *SummaryMatrix) *charts.HeatMap {
	return correlationHeatmap("BAM coverage correlation",
		summary.Labels, CorrelationMatrix(summary.Data))
}
