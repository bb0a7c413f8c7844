// Package export writes an evaluation as delimited text files: the daily
// table, the Rt series, the milestone annotations and a summary.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/okian/rtmonitor/internal/domain/estimate"
)

// File names written by Write.
const (
	DailyFile       = "daily"
	RtFile          = "rt"
	AnnotationsFile = "annotations"
	SummaryFile     = "summary"
)

const (
	dirPermission  = 0o750
	filePermission = 0o644
)

// Format selects the field separator and file extension.
type Format struct {
	Comma rune
	Ext   string
}

// Supported formats.
var (
	TSV = Format{Comma: '\t', Ext: ".tsv"}
	CSV = Format{Comma: ',', Ext: ".csv"}
)

// Option configures Write.
type Option func(*writer)

// WithFormat selects TSV (the default) or CSV.
func WithFormat(f Format) Option {
	return func(w *writer) { w.format = f }
}

// WithPrecision sets the number of decimals written for real values; a
// negative value writes the shortest exact representation.
func WithPrecision(p int) Option {
	return func(w *writer) { w.precision = p }
}

type part struct {
	name  string
	write func(*csv.Writer, estimate.Evaluation) error
}

type writer struct {
	dir       string
	format    Format
	precision int
}

// Write stores ev under dir, creating it if needed, and returns the paths
// written. Every file is replaced atomically. A no_data evaluation writes
// only the daily table and the summary.
func Write(dir string, ev estimate.Evaluation, opts ...Option) ([]string, error) {
	w := &writer{dir: dir, format: TSV, precision: 6}
	for _, opt := range opts {
		opt(w)
	}
	if err := os.MkdirAll(dir, dirPermission); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreate, err)
	}

	files := []part{{SummaryFile, w.summary}, {DailyFile, w.daily}}
	if ev.OK() && ev.Rt != nil {
		files = append(files, part{RtFile, w.rt}, part{AnnotationsFile, w.annotations})
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name+w.format.Ext)
		if err := w.file(path, func(out io.Writer) error {
			cw := csv.NewWriter(out)
			cw.Comma = w.format.Comma
			if err := f.write(cw, ev); err != nil {
				return err
			}
			cw.Flush()
			return cw.Error()
		}); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (w *writer) file(path string, fill func(io.Writer) error) error {
	fw, err := NewFileWriter(path)
	if err != nil {
		return err
	}
	if err := fill(fw); err != nil {
		fw.Abort()
		return err
	}
	return fw.Close()
}

// float formats v; NaN and Inf are written as empty fields.
func (w *writer) float(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', w.precision, 64)
}

func (w *writer) summary(cw *csv.Writer, ev estimate.Evaluation) error {
	s := ev.Summary
	rows := [][]string{
		{"key", "value"},
		{"status", ev.Status},
		{"reason", ev.Reason},
		{"region", ev.Selector.Region},
		{"municipality", ev.Selector.Municipality},
		{"positives", strconv.Itoa(s.Positives)},
		{"imported", strconv.Itoa(s.Imported)},
		{"recovered", strconv.Itoa(s.Recovered)},
		{"deceased", strconv.Itoa(s.Deceased)},
		{"active", strconv.Itoa(s.Active)},
		{"home", strconv.Itoa(s.Home)},
		{"hospital", strconv.Itoa(s.Hospital)},
		{"icu", strconv.Itoa(s.ICU)},
		{"recovered_without_date", strconv.Itoa(s.RecoveredWithoutDate)},
		{"recovery_mean_days", w.float(ev.Recovery.Mean)},
		{"recovery_median_days", w.float(ev.Recovery.Median)},
		{"recovery_p2_5_days", w.float(ev.Recovery.Low)},
		{"recovery_p97_5_days", w.float(ev.Recovery.High)},
		{"recovery_samples", strconv.Itoa(ev.Recovery.Samples)},
		{"recovery_fallback", strconv.FormatBool(ev.Recovery.Fallback)},
	}
	if ev.Rt != nil {
		rows = append(rows,
			[]string{"days", strconv.Itoa(len(ev.Rt.Axis))},
			[]string{"nonpositive_days", strconv.Itoa(ev.Rt.NonPositive)},
			[]string{"undefined_points", strconv.Itoa(ev.Rt.Undefined)},
			[]string{"smoothing_applied", strconv.FormatBool(ev.Rt.SmoothingApplied)},
		)
	}
	return cw.WriteAll(rows)
}

func (w *writer) daily(cw *csv.Writer, ev estimate.Evaluation) error {
	if err := cw.Write([]string{"date", "new_cases", "new_recoveries", "new_deaths"}); err != nil {
		return err
	}
	for _, r := range ev.Daily {
		rec := []string{r.Date.String(), strconv.Itoa(r.NewCases), strconv.Itoa(r.NewRecoveries), strconv.Itoa(r.NewDeaths)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// rt writes one row per axis day. The Rt columns of the first day are
// empty since every Rt series starts on the second day.
func (w *writer) rt(cw *csv.Writer, ev estimate.Evaluation) error {
	res := ev.Rt
	if res == nil {
		return ErrNoSeries
	}
	header := []string{"date", "active_cases", "log_active_cases", "reference",
		"rt_raw", "rt_raw_low", "rt_raw_high", "rt_smoothed", "rt_smoothed_low", "rt_smoothed_high"}
	if err := cw.Write(header); err != nil {
		return err
	}
	series := [][]float64{res.Raw.Values(), res.RawLow.Values(), res.RawHigh.Values(),
		res.Smoothed.Values(), res.SmoothedLow.Values(), res.SmoothedHigh.Values()}
	for i, d := range res.Axis {
		rec := []string{d.String(), w.float(res.Active[i]), w.float(res.LogActive[i]), w.float(res.Reference[i])}
		for _, s := range series {
			if i == 0 {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, w.float(s[i-1]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) annotations(cw *csv.Writer, ev estimate.Evaluation) error {
	if err := cw.Write([]string{"milestone", "date", "rt_smoothed", "label", "text"}); err != nil {
		return err
	}
	for _, a := range ev.Annotations {
		if err := cw.Write([]string{a.Milestone.String(), a.Date.String(), w.float(a.Value), a.Label, a.Text}); err != nil {
			return err
		}
	}
	return nil
}
