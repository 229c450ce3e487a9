package trial

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/wesleyorama2/perfdiff/internal/config"
	"github.com/wesleyorama2/perfdiff/internal/params"
)

// Build expands every experiment of cfg into trials.
//
// Experiments are visited in name order. The shared config.query space is
// merged into each experiment's own. Each one yields a trial per
// (query binding, path binding) pair, query bindings varying slowest. An
// experiment whose parameter space is empty on either side produces no
// trials and a warning; the others are unaffected.
func Build(cfg *config.RootConfig) ([]Trial, error) {
	var trials []Trial

	for _, name := range cfg.ExperimentNames() {
		prefix := "experiments." + name
		e := cfg.Experiments[name]
		if e == nil {
			return nil, &config.ConfigError{Path: prefix, Message: "experiment must be a mapping"}
		}

		rawURL := cfg.URLFor(e)
		if rawURL == "" {
			return nil, &config.ConfigError{Path: prefix + ".url", Message: "url is required"}
		}

		queries := cfg.QueryFor(e).Flatten()
		paths := e.Params.Flatten()
		if len(queries) == 0 || len(paths) == 0 {
			slog.Warn("experiment expands to no trials",
				slog.String("experiment", name),
				slog.Int("query_bindings", len(queries)),
				slog.Int("params_bindings", len(paths)))
			continue
		}

		headers := cfg.HeadersFor(e)
		for _, q := range queries {
			for _, p := range paths {
				resolved, err := resolveURL(rawURL, p)
				if err != nil {
					return nil, &config.ConfigError{Path: prefix + ".url", Message: err.Error()}
				}

				trials = append(trials, Trial{
					Name:    name,
					URL:     resolved,
					Headers: cloneHeaders(headers),
					Query:   q,
					Params:  p,
					Samples: cfg.SamplesFor(e),
					Warmup:  cfg.WarmupFor(e),
					Timeout: cfg.TimeoutFor(e),
					Rate:    cfg.RateFor(e),
					Expect:  e.Expect,
				})
			}
		}
	}

	return trials, nil
}

// resolveURL substitutes path parameters into raw and checks the result is
// an absolute http(s) URL.
func resolveURL(raw string, binding params.Binding) (string, error) {
	resolved, missing := config.ReplacePlaceholders(raw, func(name string) (string, bool) {
		v, ok := binding[name]
		if !ok {
			return "", false
		}
		return url.PathEscape(v), true
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unresolved placeholder {{%s}}", strings.Join(missing, "}}, {{"))
	}

	u, err := url.Parse(resolved)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %v", resolved, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("url must use http or https, got %q", resolved)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url has no host: %q", resolved)
	}
	return resolved, nil
}

func cloneHeaders(h map[string]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
