package http

import (
	"context"

	"github.com/wesleyorama2/perfdiff/internal/trial"
)

// Executor performs trial attempts over HTTP. One Executor shares a
// connection pool across attempts, so warmup attempts leave connections open
// for the recorded ones.
type Executor struct {
	client *Client
}

// NewExecutor creates an Executor. The options configure the shared client.
func NewExecutor(options ...ClientOption) *Executor {
	return &Executor{client: NewClient(options...)}
}

// Execute sends one GET for t and reports the outcome. Transport errors and
// unmet expectations are returned in Result.Err.
func (e *Executor) Execute(ctx context.Context, t trial.Trial) trial.Result {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	req := NewRequest(t.URL).
		WithHeaders(t.Headers).
		WithQueryParams(t.Query)

	resp, err := e.client.Do(ctx, req)

	result := trial.Result{}
	if resp != nil {
		result.Duration = resp.Timing.TotalTime
		result.StatusCode = resp.StatusCode
		result.Bytes = int64(len(resp.Body))
		result.Timing = trial.Timing{
			DNS:       resp.Timing.DNSLookupTime,
			Connect:   resp.Timing.TCPConnectTime,
			TLS:       resp.Timing.TLSHandshakeTime,
			FirstByte: resp.Timing.TimeToFirstByte,
		}
	}

	if err != nil {
		result.Err = err
		return result
	}

	result.Err = CheckExpectation(resp, t.Expect)
	return result
}

var _ trial.Executor = (*Executor)(nil)
