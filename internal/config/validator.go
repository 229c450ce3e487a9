package config

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// ConfigError is a fatal problem with the experiment configuration.
type ConfigError struct {
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of configuration errors.
type ValidationErrors struct {
	Errors []*ConfigError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(path, message string) {
	e.Errors = append(e.Errors, &ConfigError{Path: path, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// placeholderPattern matches {{name}} path parameter placeholders.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// Placeholders returns the parameter names referenced by {{name}} in s.
func Placeholders(s string) []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		names = append(names, m[1])
	}
	return names
}

// ReplacePlaceholders substitutes every {{name}} in s using lookup. Names
// lookup does not know are left in place and returned.
func ReplacePlaceholders(s string, lookup func(name string) (string, bool)) (string, []string) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		if v, ok := lookup(name); ok {
			return v
		}
		missing = append(missing, name)
		return m
	})
	return out, missing
}

// Validate checks the configuration before any request is made.
//
// Returns nil if valid, or a *ValidationErrors with every problem found.
func (c *RootConfig) Validate() error {
	errs := &ValidationErrors{}

	if c.Experiments == nil {
		errs.Add("experiments", "experiments key is required")
	}

	if c.Config != nil {
		validateBase(c.Config, errs)
	}

	for _, name := range c.ExperimentNames() {
		validateExperiment(c, name, c.Experiments[name], errs)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateBase(base *BaseConfig, errs *ValidationErrors) {
	if base.URL != "" {
		validateURL("config.url", base.URL, errs)
	}
	if base.Samples != nil && *base.Samples < 2 {
		errs.Add("config.samples", "samples must be at least 2")
	}
	if base.Warmup != nil && *base.Warmup < 0 {
		errs.Add("config.warmup", "warmup cannot be negative")
	}
	if base.Timeout < 0 {
		errs.Add("config.timeout", "timeout cannot be negative")
	}
	if base.Rate < 0 {
		errs.Add("config.rate", "rate cannot be negative")
	}
	validateHeaders("config.headers", base.Headers, errs)
	validateParamSet("config.query", base.Query, errs)
}

func validateExperiment(c *RootConfig, name string, e *Experiment, errs *ValidationErrors) {
	prefix := fmt.Sprintf("experiments.%s", name)

	if e == nil {
		errs.Add(prefix, "experiment must be a mapping")
		return
	}

	rawURL := c.URLFor(e)
	if rawURL == "" {
		errs.Add(prefix+".url", "url is required")
	} else {
		used := make(map[string]bool)
		for _, p := range Placeholders(rawURL) {
			used[p] = true
			if _, ok := e.Params[p]; !ok {
				errs.Add(prefix+".url", fmt.Sprintf("placeholder {{%s}} has no matching params entry", p))
			}
		}
		// Unused keys would multiply trials that are indistinguishable.
		for _, key := range sortedKeys(e.Params) {
			if !used[key] {
				errs.Add(prefix+".params."+key, "parameter is not used by any {{placeholder}} in the url")
			}
		}
		// Placeholders stand in for path segments, so check the URL shape
		// with them filled by a neutral value.
		filled, _ := ReplacePlaceholders(rawURL, func(string) (string, bool) { return "x", true })
		validateURL(prefix+".url", filled, errs)
	}

	if e.Samples != nil && *e.Samples < 2 {
		errs.Add(prefix+".samples", "samples must be at least 2")
	}
	if e.Warmup != nil && *e.Warmup < 0 {
		errs.Add(prefix+".warmup", "warmup cannot be negative")
	}
	if e.Timeout < 0 {
		errs.Add(prefix+".timeout", "timeout cannot be negative")
	}
	if e.Rate < 0 {
		errs.Add(prefix+".rate", "rate cannot be negative")
	}

	validateHeaders(prefix+".headers", e.Headers, errs)
	validateParamSet(prefix+".query", e.Query, errs)
	validateParamSet(prefix+".params", e.Params, errs)

	if e.Expect != nil {
		if e.Expect.Status != 0 && (e.Expect.Status < 100 || e.Expect.Status > 599) {
			errs.Add(prefix+".expect.status", fmt.Sprintf("invalid status code: %d", e.Expect.Status))
		}
		for path := range e.Expect.JSON {
			if strings.TrimSpace(path) == "" {
				errs.Add(prefix+".expect.json", "json path cannot be empty")
			}
		}
	}
}

func sortedKeys(set ParamSet) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func validateURL(path, raw string, errs *ValidationErrors) {
	u, err := url.Parse(raw)
	if err != nil {
		errs.Add(path, fmt.Sprintf("invalid url: %v", err))
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		errs.Add(path, fmt.Sprintf("url must use http or https, got %q", raw))
		return
	}
	if u.Host == "" {
		errs.Add(path, fmt.Sprintf("url has no host: %q", raw))
	}
}

func validateHeaders(path string, headers map[string]string, errs *ValidationErrors) {
	for key := range headers {
		if strings.TrimSpace(key) == "" {
			errs.Add(path, "header name cannot be empty")
		}
	}
}

func validateParamSet(path string, set ParamSet, errs *ValidationErrors) {
	for key, value := range set {
		if key == "" {
			errs.Add(path, "parameter name cannot be empty")
		}
		// yaml.v3 leaves null values undecoded
		if !value.IsList() && len(value.Entries()) == 0 {
			errs.Add(path+"."+key, "value cannot be null")
		}
	}
}
