package stats

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	moremath "github.com/aclements/go-moremath/stats"

	"github.com/wesleyorama2/perfdiff/internal/trial"
)

// DefaultAlpha is the one-tailed level giving a 95% two-sided interval.
const DefaultAlpha = 0.025

// ErrInsufficientSamples is returned when fewer than two successful samples
// are available.
var ErrInsufficientSamples = errors.New("insufficient samples: at least 2 are required")

// Histogram bounds in microseconds: 1 microsecond to 1 hour, 3 significant figures.
const (
	histogramMin     = 1
	histogramMax     = 3600000000
	histogramSigFigs = 3
)

// Summary holds the sample moments of a set of measurements.
type Summary struct {
	N      int
	Mean   float64
	StdDev float64
}

// Variance returns the sample variance.
func (s Summary) Variance() float64 {
	return s.StdDev * s.StdDev
}

// Summarize computes the mean and sample standard deviation (n-1
// denominator) of values.
func Summarize(values []float64) (Summary, error) {
	if len(values) < 2 {
		return Summary{N: len(values)}, ErrInsufficientSamples
	}
	sample := moremath.Sample{Xs: values}
	return Summary{
		N:      len(values),
		Mean:   sample.Mean(),
		StdDev: sample.StdDev(),
	}, nil
}

// Interval is a confidence interval around a mean, in milliseconds.
type Interval struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// Percentiles are latency order statistics in milliseconds.
type Percentiles struct {
	Min float64 `json:"min" yaml:"min"`
	P50 float64 `json:"p50" yaml:"p50"`
	P90 float64 `json:"p90" yaml:"p90"`
	P99 float64 `json:"p99" yaml:"p99"`
	Max float64 `json:"max" yaml:"max"`
}

// Analysis is the statistical summary of one trial's recorded attempts.
// Latencies are in milliseconds.
type Analysis struct {
	Trial       string      `json:"trial" yaml:"trial"`
	Samples     int         `json:"samples" yaml:"samples"`
	Failures    int         `json:"failures" yaml:"failures"`
	Mean        float64     `json:"mean" yaml:"mean"`
	StdDev      float64     `json:"stddev" yaml:"stddev"`
	Margin      float64     `json:"margin" yaml:"margin"`
	CI          Interval    `json:"ci" yaml:"ci"`
	Alpha       float64     `json:"alpha" yaml:"alpha"`
	Percentiles Percentiles `json:"percentiles" yaml:"percentiles"`
}

// Summary returns the moments the analysis was built from.
func (a *Analysis) Summary() Summary {
	return Summary{N: a.Samples, Mean: a.Mean, StdDev: a.StdDev}
}

// Confidence returns the two-sided confidence level for a one-tailed alpha,
// e.g. 0.95 for 0.025.
func Confidence(alpha float64) float64 {
	return 1 - 2*alpha
}

// Analyzer computes confidence intervals at a fixed significance level.
type Analyzer struct {
	table *Table
	alpha float64
}

// NewAnalyzer returns an Analyzer for alpha, rejecting levels the table
// does not cover.
func NewAnalyzer(table *Table, alpha float64) (*Analyzer, error) {
	if table == nil {
		table = DefaultTable()
	}
	if _, err := IndexForAlpha(alpha); err != nil {
		return nil, err
	}
	return &Analyzer{table: table, alpha: alpha}, nil
}

// Alpha returns the analyzer's one-tailed significance level.
func (a *Analyzer) Alpha() float64 {
	return a.alpha
}

// Margin returns the half-width of the confidence interval for s.
func (a *Analyzer) Margin(s Summary) float64 {
	t := a.table.MustLookup(s.N-1, a.alpha)
	return t * s.StdDev / math.Sqrt(float64(s.N))
}

// Analyze summarizes the successful attempts of a result set. Failed
// attempts are excluded from the statistics and counted in Failures.
func (a *Analyzer) Analyze(rs *trial.ResultSet) (*Analysis, error) {
	durations := rs.Durations()
	values := make([]float64, len(durations))
	for i, d := range durations {
		values[i] = Milliseconds(d)
	}

	summary, err := Summarize(values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rs.Trial.String(), err)
	}

	margin := a.Margin(summary)
	return &Analysis{
		Trial:       rs.Trial.String(),
		Samples:     summary.N,
		Failures:    rs.Failures(),
		Mean:        summary.Mean,
		StdDev:      summary.StdDev,
		Margin:      margin,
		CI:          Interval{Lower: summary.Mean - margin, Upper: summary.Mean + margin},
		Alpha:       a.alpha,
		Percentiles: percentiles(durations, values),
	}, nil
}

// Milliseconds converts a duration to fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func percentiles(durations []time.Duration, values []float64) Percentiles {
	hist := hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)
	for _, d := range durations {
		micros := d.Microseconds()
		if micros < histogramMin {
			micros = histogramMin
		}
		if micros > histogramMax {
			micros = histogramMax
		}
		_ = hist.RecordValue(micros)
	}

	lo, hi := moremath.Sample{Xs: values}.Bounds()
	return Percentiles{
		Min: lo,
		P50: microsToMillis(hist.ValueAtQuantile(50)),
		P90: microsToMillis(hist.ValueAtQuantile(90)),
		P99: microsToMillis(hist.ValueAtQuantile(99)),
		Max: hi,
	}
}

func microsToMillis(v int64) float64 {
	return float64(v) / 1000
}
