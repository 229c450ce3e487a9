package trial

import "time"

// Timing is the phase breakdown of one request.
type Timing struct {
	DNS       time.Duration `json:"dns" yaml:"dns"`
	Connect   time.Duration `json:"connect" yaml:"connect"`
	TLS       time.Duration `json:"tls" yaml:"tls"`
	FirstByte time.Duration `json:"first_byte" yaml:"first_byte"`
}

// Result is the outcome of a single attempt.
type Result struct {
	// Duration is the wall-clock time from sending the request to reading
	// the whole body
	Duration time.Duration

	// StatusCode is 0 when no response was received
	StatusCode int

	// Bytes is the size of the body read
	Bytes int64

	// Err is set for transport errors and unmet expectations
	Err error

	Timing Timing
}

// Failed reports whether the attempt failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// ResultSet holds the recorded (post-warmup) attempts of one trial.
type ResultSet struct {
	Trial   Trial
	Results []Result
	Start   time.Time
	End     time.Time
}

// Durations returns the durations of the successful attempts, in order.
func (rs *ResultSet) Durations() []time.Duration {
	out := make([]time.Duration, 0, len(rs.Results))
	for _, r := range rs.Results {
		if !r.Failed() {
			out = append(out, r.Duration)
		}
	}
	return out
}

// Failures returns the number of failed attempts.
func (rs *ResultSet) Failures() int {
	n := 0
	for _, r := range rs.Results {
		if r.Failed() {
			n++
		}
	}
	return n
}

// Errors returns the distinct error messages of failed attempts with the
// number of times each occurred.
func (rs *ResultSet) Errors() map[string]int {
	var out map[string]int
	for _, r := range rs.Results {
		if !r.Failed() {
			continue
		}
		if out == nil {
			out = make(map[string]int)
		}
		out[r.Err.Error()]++
	}
	return out
}

// Elapsed returns the wall-clock time spent on the trial.
func (rs *ResultSet) Elapsed() time.Duration {
	return rs.End.Sub(rs.Start)
}
