package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/perfdiff/internal/params"
	"github.com/wesleyorama2/perfdiff/internal/stats"
	"github.com/wesleyorama2/perfdiff/internal/trial"
)

// TrialReport is the outcome of one trial as presented to the user.
type TrialReport struct {
	Name     string          `json:"name" yaml:"name"`
	URL      string          `json:"url" yaml:"url"`
	Query    params.Binding  `json:"query,omitempty" yaml:"query,omitempty"`
	Params   params.Binding  `json:"params,omitempty" yaml:"params,omitempty"`
	Label    string          `json:"label" yaml:"label"`
	Attempts int             `json:"attempts" yaml:"attempts"`
	Failures int             `json:"failures" yaml:"failures"`
	Errors   map[string]int  `json:"errors,omitempty" yaml:"errors,omitempty"`
	Analysis *stats.Analysis `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Error    string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewTrialReport combines a trial, its recorded attempts and their analysis.
// rs is nil for trials that never ran; err is the analysis error, if any.
func NewTrialReport(t trial.Trial, rs *trial.ResultSet, analysis *stats.Analysis, err error) TrialReport {
	tr := TrialReport{
		Name:     t.Name,
		URL:      t.URL,
		Query:    t.Query,
		Params:   t.Params,
		Label:    t.String(),
		Analysis: analysis,
	}
	if rs != nil {
		tr.Attempts = len(rs.Results)
		tr.Failures = rs.Failures()
		tr.Errors = rs.Errors()
	}
	switch {
	case err != nil:
		tr.Error = err.Error()
	case rs == nil:
		tr.Error = "not run"
	}
	return tr
}

// ComparisonReport is a pairwise equivalence result. T0 is omitted when
// the statistic is infinite.
type ComparisonReport struct {
	A          string   `json:"a" yaml:"a"`
	B          string   `json:"b" yaml:"b"`
	T0         *float64 `json:"t0,omitempty" yaml:"t0,omitempty"`
	DoF        int      `json:"dof" yaml:"dof"`
	Critical   float64  `json:"critical" yaml:"critical"`
	Equivalent bool     `json:"equivalent" yaml:"equivalent"`
}

// NewComparisonReport converts a comparison for output.
func NewComparisonReport(c stats.Comparison) ComparisonReport {
	cr := ComparisonReport{
		A:          c.A,
		B:          c.B,
		DoF:        c.DoF,
		Critical:   c.Critical,
		Equivalent: c.Equivalent,
	}
	if !math.IsInf(c.T0, 0) && !math.IsNaN(c.T0) {
		t0 := c.T0
		cr.T0 = &t0
	}
	return cr
}

// Report is the complete result of a run.
type Report struct {
	Alpha       float64            `json:"alpha" yaml:"alpha"`
	Confidence  float64            `json:"confidence" yaml:"confidence"`
	Trials      []TrialReport      `json:"trials" yaml:"trials"`
	Comparisons []ComparisonReport `json:"comparisons" yaml:"comparisons"`
	Interrupted bool               `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
}

// NewReport creates an empty report for the given one-tailed alpha.
func NewReport(alpha float64) *Report {
	return &Report{
		Alpha:       alpha,
		Confidence:  stats.Confidence(alpha),
		Trials:      []TrialReport{},
		Comparisons: []ComparisonReport{},
	}
}

// AddComparisons appends converted comparisons to the report.
func (r *Report) AddComparisons(cmps []stats.Comparison) {
	for _, c := range cmps {
		r.Comparisons = append(r.Comparisons, NewComparisonReport(c))
	}
}

// Reporter writes reports in one format.
type Reporter struct {
	w       io.Writer
	format  OutputFormat
	noColor bool
	scheme  *ColorScheme
}

// NewReporter creates a reporter writing to w.
func NewReporter(w io.Writer, format OutputFormat, noColor bool) *Reporter {
	return &Reporter{
		w:       w,
		format:  format,
		noColor: noColor,
		scheme:  SchemeFor(noColor),
	}
}

// Write renders a run report.
func (r *Reporter) Write(report *Report) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(report)
	case FormatYAML:
		return r.writeYAML(report)
	default:
		_, err := io.WriteString(r.w, r.formatReport(report))
		return err
	}
}

// WriteTrials renders the expanded trial list without running anything.
func (r *Reporter) WriteTrials(trials []trial.Trial) error {
	if trials == nil {
		trials = []trial.Trial{}
	}
	switch r.format {
	case FormatJSON:
		return r.writeJSON(trials)
	case FormatYAML:
		return r.writeYAML(trials)
	default:
		_, err := io.WriteString(r.w, r.formatTrials(trials))
		return err
	}
}

func (r *Reporter) writeJSON(v interface{}) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

func (r *Reporter) writeYAML(v interface{}) error {
	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML report: %w", err)
	}
	return enc.Close()
}

func (r *Reporter) formatReport(report *Report) string {
	var buf strings.Builder
	s := r.scheme
	ciLabel := fmt.Sprintf("%.4g%% CI", report.Confidence*100)

	if report.Interrupted {
		fmt.Fprintf(&buf, "%s %s\n\n", WarningIcon(r.noColor), s.Warning.Sprint("Run interrupted, results are partial"))
	}

	for i, tr := range report.Trials {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(r.formatTrialHeader(tr.Name, tr.URL, tr.Query, tr.Params))

		if tr.Analysis == nil {
			fmt.Fprintf(&buf, "  %s %s\n", ErrorIcon(r.noColor), s.Error.Sprint(tr.Error))
			r.formatFailures(&buf, tr)
			continue
		}

		a := tr.Analysis
		fmt.Fprintf(&buf, "  %s %s\n", r.label("Samples"), s.Value.Sprint(a.Samples))
		fmt.Fprintf(&buf, "  %s %s\n", r.label("Mean"), s.Value.Sprintf("%.3fms", a.Mean))
		fmt.Fprintf(&buf, "  %s %s\n", r.label("Std Dev"), s.Value.Sprintf("%.3fms", a.StdDev))
		fmt.Fprintf(&buf, "  %s %s\n", r.label(ciLabel),
			s.Interval.Sprintf("(%.3fms - %.3fms)", a.CI.Lower, a.CI.Upper))
		p := a.Percentiles
		fmt.Fprintf(&buf, "  %s %s\n", r.label("Latency"),
			s.Dim.Sprintf("min %.3fms  p50 %.3fms  p90 %.3fms  p99 %.3fms  max %.3fms", p.Min, p.P50, p.P90, p.P99, p.Max))
		r.formatFailures(&buf, tr)
	}

	if len(report.Comparisons) > 0 {
		fmt.Fprintf(&buf, "\n%s\n", s.Highlight.Sprint("Comparisons"))
		for _, c := range report.Comparisons {
			buf.WriteString(r.formatComparison(c))
		}
	}

	return buf.String()
}

func (r *Reporter) label(name string) string {
	return r.scheme.Label.Sprintf("%-12s", name+":")
}

func (r *Reporter) formatTrialHeader(name, url string, query, pathParams params.Binding) string {
	s := r.scheme
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s %s\n", s.Label.Sprint("Trial:"), s.Trial.Sprint(name))
	fmt.Fprintf(&buf, "  %s %s\n", r.label("URL"), s.URL.Sprint(url))
	if len(query) > 0 {
		fmt.Fprintf(&buf, "  %s %s\n", r.label("Query"), query.String())
	}
	if len(pathParams) > 0 {
		fmt.Fprintf(&buf, "  %s %s\n", r.label("Params"), pathParams.String())
	}
	return buf.String()
}

func (r *Reporter) formatFailures(buf *strings.Builder, tr TrialReport) {
	if tr.Failures == 0 {
		return
	}
	s := r.scheme
	fmt.Fprintf(buf, "  %s %s\n", r.label("Failures"),
		s.Warning.Sprintf("%d of %d attempts", tr.Failures, tr.Attempts))

	msgs := make([]string, 0, len(tr.Errors))
	for msg := range tr.Errors {
		msgs = append(msgs, msg)
	}
	sort.Strings(msgs)
	for _, msg := range msgs {
		fmt.Fprintf(buf, "    %s %s\n", s.Dim.Sprintf("%dx", tr.Errors[msg]), msg)
	}
}

func (r *Reporter) formatComparison(c ComparisonReport) string {
	s := r.scheme
	stat := "t0=inf"
	if c.T0 != nil {
		stat = fmt.Sprintf("t0=%.3f", *c.T0)
	}
	if c.DoF > 0 {
		stat += fmt.Sprintf(", dof=%d, t=%.3f", c.DoF, c.Critical)
	}

	if c.Equivalent {
		return fmt.Sprintf("  %s No significant difference between %s and %s %s\n",
			SuccessIcon(r.noColor), s.Trial.Sprint(c.A), s.Trial.Sprint(c.B), s.Dim.Sprintf("(%s)", stat))
	}
	return fmt.Sprintf("  %s Significant difference between %s and %s %s\n",
		ErrorIcon(r.noColor), s.Trial.Sprint(c.A), s.Trial.Sprint(c.B), s.Dim.Sprintf("(%s)", stat))
}

func (r *Reporter) formatTrials(trials []trial.Trial) string {
	s := r.scheme
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s\n", s.Highlight.Sprintf("%d trial(s)", len(trials)))
	for _, t := range trials {
		buf.WriteString("\n")
		buf.WriteString(r.formatTrialHeader(t.Name, t.URL, t.Query, t.Params))
		fmt.Fprintf(&buf, "  %s %s\n", r.label("Samples"),
			s.Value.Sprintf("%d (warmup %d)", t.Samples, t.Warmup))
		fmt.Fprintf(&buf, "  %s %s\n", r.label("Timeout"), s.Value.Sprint(t.Timeout))
		if t.Rate > 0 {
			fmt.Fprintf(&buf, "  %s %s\n", r.label("Rate"), s.Value.Sprintf("%g/s", t.Rate))
		}
	}
	return buf.String()
}
