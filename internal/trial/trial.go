// Package trial turns experiments into concrete trials and executes them.
package trial

import (
	"fmt"
	"time"

	"github.com/wesleyorama2/perfdiff/internal/config"
	"github.com/wesleyorama2/perfdiff/internal/params"
)

// Trial is one fully concrete run configuration derived from an experiment.
//
// Trials are values: they are built once and never modified afterwards.
type Trial struct {
	// Name is the experiment the trial was expanded from
	Name string `json:"name" yaml:"name"`

	// URL is the endpoint with path parameters substituted, without the query
	URL string `json:"url" yaml:"url"`

	// Headers are the merged request headers
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Query is the query-string binding
	Query params.Binding `json:"query,omitempty" yaml:"query,omitempty"`

	// Params is the path parameter binding already applied to URL
	Params params.Binding `json:"params,omitempty" yaml:"params,omitempty"`

	// Samples is the number of recorded attempts
	Samples int `json:"samples" yaml:"samples"`

	// Warmup is the number of discarded attempts made before sampling
	Warmup int `json:"warmup" yaml:"warmup"`

	// Timeout bounds each request
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Rate caps attempts per second; 0 means unpaced
	Rate float64 `json:"rate,omitempty" yaml:"rate,omitempty"`

	// Expect describes a successful response, if set
	Expect *config.Expectation `json:"expect,omitempty" yaml:"expect,omitempty"`
}

func (t Trial) String() string {
	return fmt.Sprintf("%s on URL %s with Query %s", t.Name, t.URL, t.Query)
}
