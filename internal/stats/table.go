// Package stats turns trial results into latency statistics and decides
// whether two trials perform differently.
package stats

import (
	_ "embed"
	"fmt"
	"math"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed ttable.yaml
var tableData []byte

// Levels are the one-tailed significance levels of the table columns, from
// loosest to tightest.
var Levels = []float64{.25, .20, .15, .10, .05, .025, .02, .01, .005, .0025, .001, .0005}

// largeSampleKey is the row used once degrees of freedom reach 1000.
const largeSampleKey = "z*"

// rowKeys lists every row the table must carry.
var rowKeys = func() []string {
	keys := make([]string, 0, 37)
	for dof := 1; dof <= 30; dof++ {
		keys = append(keys, strconv.Itoa(dof))
	}
	return append(keys, "40", "50", "60", "80", "100", "1000", largeSampleKey)
}()

// LookupError reports an alpha the table has no column for.
type LookupError struct {
	Alpha float64
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no t-table data available for alpha %g (supported range is [0, 0.25))", e.Alpha)
}

// Table holds critical values of Student's t distribution.
//
// A Table is immutable once parsed and safe for concurrent use.
type Table struct {
	rows map[string][]float64
}

type tableFile struct {
	Levels []float64            `yaml:"levels"`
	Rows   map[string][]float64 `yaml:"rows"`
}

// ParseTable decodes and shape-checks a t-table document.
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse t-table: %w", err)
	}

	if len(f.Levels) != len(Levels) {
		return nil, fmt.Errorf("t-table has %d levels, expected %d", len(f.Levels), len(Levels))
	}
	for i, level := range f.Levels {
		if level != Levels[i] {
			return nil, fmt.Errorf("t-table level %d is %g, expected %g", i, level, Levels[i])
		}
	}

	for _, key := range rowKeys {
		row, ok := f.Rows[key]
		if !ok {
			return nil, fmt.Errorf("t-table is missing row %q", key)
		}
		if len(row) != len(Levels) {
			return nil, fmt.Errorf("t-table row %q has %d values, expected %d", key, len(row), len(Levels))
		}
	}

	return &Table{rows: f.Rows}, nil
}

// DefaultTable returns the embedded table. It is parsed on first use.
var DefaultTable = sync.OnceValue(func() *Table {
	t, err := ParseTable(tableData)
	if err != nil {
		panic(err)
	}
	return t
})

// KeyForDoF maps degrees of freedom to a table row.
//
// Values up to 30 are exact, 31 through 60 round to the nearest ten (halves
// round up), larger values snap up to 80, 100 or 1000, and anything from
// 1000 on uses the normal approximation.
func KeyForDoF(dof int) string {
	if dof < 1 {
		dof = 1
	}
	if dof <= 30 {
		return strconv.Itoa(dof)
	}
	if dof <= 60 {
		return strconv.Itoa(int(math.Round(float64(dof)/10)) * 10)
	}
	for _, bucket := range []int{80, 100, 1000} {
		if dof < bucket {
			return strconv.Itoa(bucket)
		}
	}
	return largeSampleKey
}

// IndexForAlpha returns the column of the smallest level that is >= alpha.
func IndexForAlpha(alpha float64) (int, error) {
	if math.IsNaN(alpha) || alpha < 0 || alpha >= Levels[0] {
		return 0, &LookupError{Alpha: alpha}
	}
	for i := len(Levels) - 1; i >= 0; i-- {
		if Levels[i] >= alpha {
			return i, nil
		}
	}
	return 0, &LookupError{Alpha: alpha}
}

// Lookup returns the one-tailed critical value for dof and alpha.
func (t *Table) Lookup(dof int, alpha float64) (float64, error) {
	idx, err := IndexForAlpha(alpha)
	if err != nil {
		return 0, err
	}
	return t.rows[KeyForDoF(dof)][idx], nil
}

// MustLookup is like Lookup but panics if alpha is out of range.
func (t *Table) MustLookup(dof int, alpha float64) float64 {
	v, err := t.Lookup(dof, alpha)
	if err != nil {
		panic(err)
	}
	return v
}
