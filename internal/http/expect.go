package http

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wesleyorama2/perfdiff/internal/config"
)

// ExpectationError reports a response that did not match its expectation.
type ExpectationError struct {
	Failures []string
}

func (e *ExpectationError) Error() string {
	return "unexpected response: " + strings.Join(e.Failures, "; ")
}

// CheckExpectation compares resp against expect. A nil expectation accepts
// every response.
func CheckExpectation(resp *Response, expect *config.Expectation) error {
	if expect == nil {
		return nil
	}

	var failures []string

	if expect.Status != 0 && resp.StatusCode != expect.Status {
		failures = append(failures, fmt.Sprintf("status %d, expected %d", resp.StatusCode, expect.Status))
	}

	if len(expect.JSON) > 0 {
		if !resp.IsJSON() {
			failures = append(failures, "body is not valid JSON")
		} else {
			paths := make([]string, 0, len(expect.JSON))
			for path := range expect.JSON {
				paths = append(paths, path)
			}
			sort.Strings(paths)

			for _, path := range paths {
				want := expect.JSON[path]
				got, ok := resp.JSONValue(path)
				switch {
				case !ok:
					failures = append(failures, fmt.Sprintf("%s: not found", path))
				case got.String() != want:
					failures = append(failures, fmt.Sprintf("%s: got %q, expected %q", path, got.String(), want))
				}
			}
		}
	}

	if len(failures) > 0 {
		return &ExpectationError{Failures: failures}
	}
	return nil
}
