// Package config provides loading and validation of experiment files.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/perfdiff/internal/params"
)

const (
	// DefaultSamples is the number of recorded attempts per trial.
	DefaultSamples = 25

	// DefaultWarmup is the number of discarded attempts before sampling.
	DefaultWarmup = 10

	// DefaultTimeout is the per-request timeout when none is configured.
	DefaultTimeout = 30 * time.Second
)

// RootConfig is the root of an experiment file.
//
// Example YAML:
//
//	config:
//	  url: "http://localhost:8080/api/users"
//	  headers:
//	    Authorization: Bearer token
//	  query:
//	    api_key: abc123
//	experiments:
//	  by-page:
//	    query:
//	      page: [1, 2, 3]
//	      active: true
//	  by-id:
//	    url: "http://localhost:8080/api/users/{{id}}"
//	    params:
//	      id: [1, 42]
//	    samples: 50
type RootConfig struct {
	// Config holds defaults shared by every experiment (optional)
	Config *BaseConfig `json:"config,omitempty" yaml:"config,omitempty"`

	// Experiments maps experiment name to its definition
	Experiments map[string]*Experiment `json:"experiments" yaml:"experiments"`
}

// BaseConfig contains settings inherited by experiments that do not set them.
type BaseConfig struct {
	// URL is the fallback endpoint for experiments without their own
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Headers are sent with every request; experiment headers win on conflict
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Query is merged into every experiment's query space; experiment keys
	// win on conflict
	Query ParamSet `json:"query,omitempty" yaml:"query,omitempty"`

	// Warmup is the default number of warmup attempts
	Warmup *int `json:"warmup,omitempty" yaml:"warmup,omitempty"`

	// Samples is the default number of recorded attempts
	Samples *int `json:"samples,omitempty" yaml:"samples,omitempty"`

	// Timeout is the default per-request timeout
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Rate caps attempts per second (0 means unpaced)
	Rate float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
}

// Experiment describes one endpoint to benchmark, possibly parameterized.
type Experiment struct {
	// Name is the experiment's key in the experiments mapping
	Name string `json:"-" yaml:"-"`

	// URL is the endpoint; may contain {{param}} placeholders
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Headers are request headers for this experiment
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Query is the query-string parameter space
	Query ParamSet `json:"query,omitempty" yaml:"query,omitempty"`

	// Params is the path parameter space substituted into URL placeholders
	Params ParamSet `json:"params,omitempty" yaml:"params,omitempty"`

	// Samples is the number of recorded attempts per trial
	Samples *int `json:"samples,omitempty" yaml:"samples,omitempty"`

	// Warmup is the number of discarded attempts per trial
	Warmup *int `json:"warmup,omitempty" yaml:"warmup,omitempty"`

	// Timeout overrides the per-request timeout
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Rate caps attempts per second (0 means unpaced)
	Rate float64 `json:"rate,omitempty" yaml:"rate,omitempty"`

	// Expect marks attempts failed when the response does not match
	Expect *Expectation `json:"expect,omitempty" yaml:"expect,omitempty"`
}

// Expectation describes what a successful response looks like.
type Expectation struct {
	// Status is the exact expected status code (0 means any)
	Status int `json:"status,omitempty" yaml:"status,omitempty"`

	// JSON maps a gjson path in the response body to its expected value
	JSON map[string]string `json:"json,omitempty" yaml:"json,omitempty"`
}

// ExperimentNames returns the experiment names in sorted order.
func (c *RootConfig) ExperimentNames() []string {
	names := make([]string, 0, len(c.Experiments))
	for name := range c.Experiments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// URLFor returns the experiment's URL, falling back to the shared one.
func (c *RootConfig) URLFor(e *Experiment) string {
	if e.URL != "" {
		return e.URL
	}
	if c.Config != nil {
		return c.Config.URL
	}
	return ""
}

// HeadersFor merges the shared headers with the experiment's own.
func (c *RootConfig) HeadersFor(e *Experiment) map[string]string {
	headers := make(map[string]string)
	if c.Config != nil {
		for k, v := range c.Config.Headers {
			headers[k] = v
		}
	}
	for k, v := range e.Headers {
		headers[k] = v
	}
	return headers
}

// QueryFor merges the shared query space with the experiment's own. A key
// present in both takes the experiment's values.
func (c *RootConfig) QueryFor(e *Experiment) ParamSet {
	if c.Config == nil || len(c.Config.Query) == 0 {
		return e.Query
	}
	query := make(ParamSet, len(c.Config.Query)+len(e.Query))
	for k, v := range c.Config.Query {
		query[k] = v
	}
	for k, v := range e.Query {
		query[k] = v
	}
	return query
}

// SamplesFor resolves the sample count for an experiment.
func (c *RootConfig) SamplesFor(e *Experiment) int {
	if e.Samples != nil {
		return *e.Samples
	}
	if c.Config != nil && c.Config.Samples != nil {
		return *c.Config.Samples
	}
	return DefaultSamples
}

// WarmupFor resolves the warmup count for an experiment.
func (c *RootConfig) WarmupFor(e *Experiment) int {
	if e.Warmup != nil {
		return *e.Warmup
	}
	if c.Config != nil && c.Config.Warmup != nil {
		return *c.Config.Warmup
	}
	return DefaultWarmup
}

// TimeoutFor resolves the per-request timeout for an experiment.
func (c *RootConfig) TimeoutFor(e *Experiment) time.Duration {
	if e.Timeout != 0 {
		return time.Duration(e.Timeout)
	}
	if c.Config != nil && c.Config.Timeout != 0 {
		return time.Duration(c.Config.Timeout)
	}
	return DefaultTimeout
}

// RateFor resolves the pacing rate for an experiment.
func (c *RootConfig) RateFor(e *Experiment) float64 {
	if e.Rate != 0 {
		return e.Rate
	}
	if c.Config != nil {
		return c.Config.Rate
	}
	return 0
}

// Kind identifies which variant a ParamEntry holds.
type Kind int

// Kinds are ordered; ParamEntry.Compare sorts by kind first.
const (
	KindString Kind = iota
	KindInteger
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParamEntry is a scalar parameter value: a string, an integer or a boolean.
type ParamEntry struct {
	kind Kind
	s    string
	i    int64
	b    bool
}

// StringEntry returns a string ParamEntry.
func StringEntry(s string) ParamEntry { return ParamEntry{kind: KindString, s: s} }

// IntEntry returns an integer ParamEntry.
func IntEntry(i int64) ParamEntry { return ParamEntry{kind: KindInteger, i: i} }

// BoolEntry returns a boolean ParamEntry.
func BoolEntry(b bool) ParamEntry { return ParamEntry{kind: KindBoolean, b: b} }

// Kind reports the entry's variant.
func (e ParamEntry) Kind() Kind { return e.kind }

// String returns the textual form used in query strings and paths.
func (e ParamEntry) String() string {
	switch e.kind {
	case KindInteger:
		return strconv.FormatInt(e.i, 10)
	case KindBoolean:
		if e.b {
			return "true"
		}
		return "false"
	default:
		return e.s
	}
}

// Compare orders entries by kind, then by value. It returns -1, 0 or 1.
func (e ParamEntry) Compare(o ParamEntry) int {
	if e.kind != o.kind {
		if e.kind < o.kind {
			return -1
		}
		return 1
	}
	switch e.kind {
	case KindInteger:
		switch {
		case e.i < o.i:
			return -1
		case e.i > o.i:
			return 1
		}
		return 0
	case KindBoolean:
		switch {
		case e.b == o.b:
			return 0
		case !e.b:
			return -1
		}
		return 1
	default:
		return strings.Compare(e.s, o.s)
	}
}

// UnmarshalYAML decodes a scalar node.
//
// Quoted scalars are always strings. Plain scalars resolve through their
// YAML tag: !!int becomes an integer, !!bool a boolean and !!str a string.
// An !!int is kept as an integer only when it is written in canonical
// decimal form; anything else (01234, 0x1F, 1_000, +5, values beyond int64)
// is kept as a string with its literal text. Floats, nulls and collections
// are rejected.
func (e *ParamEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a string, integer or boolean, got a %s", node.Line, nodeKindName(node))
	}

	switch node.ShortTag() {
	case "!!str":
		*e = StringEntry(node.Value)
	case "!!int":
		i, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil || strconv.FormatInt(i, 10) != node.Value {
			*e = StringEntry(node.Value)
			return nil
		}
		*e = IntEntry(i)
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return fmt.Errorf("line %d: invalid boolean %q: %w", node.Line, node.Value, err)
		}
		*e = BoolEntry(b)
	default:
		return fmt.Errorf("line %d: unsupported value %q, expected a string, integer or boolean", node.Line, node.Value)
	}
	return nil
}

// MarshalYAML encodes the entry as its native scalar.
func (e ParamEntry) MarshalYAML() (interface{}, error) {
	switch e.kind {
	case KindInteger:
		return e.i, nil
	case KindBoolean:
		return e.b, nil
	default:
		return e.s, nil
	}
}

// ParamValue is one parameter's allowed values: a single entry or a list.
type ParamValue struct {
	entries []ParamEntry
	list    bool
}

// Single returns a ParamValue holding one entry.
func Single(e ParamEntry) ParamValue {
	return ParamValue{entries: []ParamEntry{e}}
}

// List returns a ParamValue holding an ordered list of entries.
func List(entries ...ParamEntry) ParamValue {
	return ParamValue{entries: entries, list: true}
}

// IsList reports whether the value was written as a list.
func (v ParamValue) IsList() bool { return v.list }

// Entries returns the value's entries in order.
func (v ParamValue) Entries() []ParamEntry { return v.entries }

// Normalize returns the textual form of every entry, in order.
func (v ParamValue) Normalize() []string {
	out := make([]string, len(v.entries))
	for i, e := range v.entries {
		out[i] = e.String()
	}
	return out
}

// UnmarshalYAML decodes either a scalar or a sequence of scalars.
func (v *ParamValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var e ParamEntry
		if err := e.UnmarshalYAML(node); err != nil {
			return err
		}
		*v = Single(e)
	case yaml.SequenceNode:
		entries := make([]ParamEntry, 0, len(node.Content))
		for _, child := range node.Content {
			var e ParamEntry
			if err := e.UnmarshalYAML(child); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		*v = List(entries...)
	default:
		return fmt.Errorf("line %d: expected a scalar or a list of scalars, got a %s", node.Line, nodeKindName(node))
	}
	return nil
}

// MarshalYAML encodes the value as a scalar or a sequence.
func (v ParamValue) MarshalYAML() (interface{}, error) {
	if !v.list && len(v.entries) == 1 {
		return v.entries[0], nil
	}
	return v.entries, nil
}

// ParamSet maps parameter names to their allowed values.
type ParamSet map[string]ParamValue

// Space returns the normalized value lists keyed by parameter name.
func (s ParamSet) Space() map[string][]string {
	space := make(map[string][]string, len(s))
	for k, v := range s {
		space[k] = v.Normalize()
	}
	return space
}

// Flatten expands the set into every concrete binding of its keys.
func (s ParamSet) Flatten() []params.Binding {
	return params.Cross(s.Space())
}

// Duration is a time.Duration decoded from strings like "5s" or bare seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a duration", node.Line)
	}
	dur, err := ParseDurationString(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// ParseDurationString parses "30s", "500ms", "1m" or integer seconds.
func ParseDurationString(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	var seconds int
	if _, err := fmt.Sscanf(s, "%d", &seconds); err == nil && fmt.Sprint(seconds) == s {
		return time.Duration(seconds) * time.Second, nil
	}

	return 0, fmt.Errorf("invalid duration format: %s", s)
}

func nodeKindName(node *yaml.Node) string {
	switch node.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "list"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return "scalar"
	}
}
