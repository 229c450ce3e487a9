package stats

import (
	"errors"
	"fmt"
	"math"
)

// ComparisonAlpha is the level used to pick the critical value of the
// equivalence test.
const ComparisonAlpha = 0.025

// ErrInvalidDoF is returned when the Welch degrees of freedom are not
// positive.
var ErrInvalidDoF = errors.New("invalid degrees of freedom")

// Comparison is the outcome of a two-sample equivalence test.
type Comparison struct {
	A          string  `json:"a" yaml:"a"`
	B          string  `json:"b" yaml:"b"`
	T0         float64 `json:"t0" yaml:"t0"`
	DoF        int     `json:"dof" yaml:"dof"`
	Critical   float64 `json:"critical" yaml:"critical"`
	Equivalent bool    `json:"equivalent" yaml:"equivalent"`
}

// Comparator decides whether two trials' mean latencies are statistically
// indistinguishable.
type Comparator struct {
	table *Table
}

// NewComparator returns a Comparator backed by table, or the embedded table
// if table is nil.
func NewComparator(table *Table) *Comparator {
	if table == nil {
		table = DefaultTable()
	}
	return &Comparator{table: table}
}

// Compare runs a two-sample t-test on a and b using Welch's degrees of
// freedom. The result does not depend on argument order, apart from the
// sign of T0 and the A/B labels.
func (c *Comparator) Compare(a, b *Analysis) (Comparison, error) {
	cmp := Comparison{A: a.Trial, B: b.Trial}

	sa, sb := a.Summary(), b.Summary()
	if sa.N < 2 || sb.N < 2 {
		return cmp, ErrInsufficientSamples
	}

	n1, n2 := float64(sa.N), float64(sb.N)
	s1, s2 := sa.Variance(), sb.Variance()
	v1, v2 := s1/n1, s2/n2

	// Zero spread on both sides leaves nothing to test against.
	if v1+v2 == 0 {
		cmp.Equivalent = sa.Mean == sb.Mean
		if !cmp.Equivalent {
			cmp.T0 = math.Copysign(math.Inf(1), sa.Mean-sb.Mean)
		}
		return cmp, nil
	}

	sp := math.Sqrt(((n1-1)*s1 + (n2-1)*s2) / (n1 + n2 - 2))
	cmp.T0 = (sa.Mean - sb.Mean) / (sp * math.Sqrt(v1+v2))

	dof := math.Floor((v1 + v2) * (v1 + v2) / (v1*v1/(n1-1) + v2*v2/(n2-1)))
	if !(dof > 0) {
		return cmp, fmt.Errorf("%w: %v", ErrInvalidDoF, dof)
	}
	cmp.DoF = int(dof)

	t, err := c.table.Lookup(cmp.DoF, ComparisonAlpha)
	if err != nil {
		return cmp, err
	}
	cmp.Critical = t
	cmp.Equivalent = math.Abs(cmp.T0) < t
	return cmp, nil
}

// IsEquivalent reports whether a and b show no significant difference.
func (c *Comparator) IsEquivalent(a, b *Analysis) (bool, error) {
	cmp, err := c.Compare(a, b)
	if err != nil {
		return false, err
	}
	return cmp.Equivalent, nil
}

// ComparePairs compares every unordered pair (i < j) of analyses in input
// order. Pairs that cannot be tested are skipped and their errors joined.
func (c *Comparator) ComparePairs(analyses []*Analysis) ([]Comparison, error) {
	var out []Comparison
	var errs []error
	for i := 0; i < len(analyses); i++ {
		for j := i + 1; j < len(analyses); j++ {
			cmp, err := c.Compare(analyses[i], analyses[j])
			if err != nil {
				errs = append(errs, fmt.Errorf("compare %s with %s: %w", analyses[i].Trial, analyses[j].Trial, err))
				continue
			}
			out = append(out, cmp)
		}
	}
	return out, errors.Join(errs...)
}
