package perf

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/perfdiff/internal/stats"
)

const experimentFile = `
config:
  url: http://example.test/items
  warmup: 2
experiments:
  items:
    samples: 4
    query:
      page: [1, 2]
  search:
    url: http://example.test/search
    samples: 4
    query:
      q: perf
`

// fixedLatency returns an executor whose attempt durations depend on the
// trial's "page" query value, so trials on different pages differ.
func fixedLatency(calls *atomic.Int64) Executor {
	return ExecutorFunc(func(ctx context.Context, t Trial) AttemptResult {
		n := calls.Add(1)
		base := 10 * time.Millisecond
		if t.Query["page"] == "2" {
			base = 50 * time.Millisecond
		}
		jitter := time.Duration(n%3) * 100 * time.Microsecond
		return AttemptResult{Duration: base + jitter, StatusCode: http.StatusOK}
	})
}

func TestParseConfigAndExpand(t *testing.T) {
	cfg, err := ParseConfig([]byte(experimentFile), "experiments.yaml")
	require.NoError(t, err)

	trials, err := Expand(cfg, nil)
	require.NoError(t, err)
	require.Len(t, trials, 3)
	assert.Equal(t, "items", trials[0].Name)
	assert.Equal(t, "1", trials[0].Query["page"])
	assert.Equal(t, "search", trials[2].Name)

	only, err := Expand(cfg, []string{"search"})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "http://example.test/search", only[0].URL)

	_, err = Expand(cfg, []string{"zeta", "alpha"})
	require.Error(t, err)
	assert.Equal(t, "unknown experiment(s) alpha, zeta (available: items, search)", err.Error())
}

func TestParseConfig_Invalid(t *testing.T) {
	_, err := ParseConfig([]byte("experiments:\n  a:\n    samples: 3\n"), "bad.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "experiments.a.url")
}

func TestRun_WithExecutor(t *testing.T) {
	cfg, err := ParseConfig([]byte(experimentFile), "experiments.yaml")
	require.NoError(t, err)

	var calls atomic.Int64
	var attempts int
	result, err := Run(context.Background(), cfg, Options{
		Executor:    fixedLatency(&calls),
		Parallelism: 3,
		OnAttempt:   func(Attempt) { attempts++ },
	})
	require.NoError(t, err)

	// 3 trials x (2 warmup + 4 samples)
	assert.Equal(t, int64(18), calls.Load())
	assert.Equal(t, 18, attempts)
	assert.Equal(t, stats.DefaultAlpha, result.Alpha)
	assert.False(t, result.Interrupted)

	require.Len(t, result.Trials, 3)
	for _, tr := range result.Trials {
		require.NoError(t, tr.Err)
		require.NotNil(t, tr.Analysis)
		assert.Len(t, tr.Results.Results, 4)
	}
	assert.InDelta(t, 10.1, result.Trials[0].Analysis.Mean, 0.2)
	assert.InDelta(t, 50.1, result.Trials[1].Analysis.Mean, 0.2)
	assert.Len(t, result.Analyses(), 3)

	require.Len(t, result.Comparisons, 3)
	// page 1 vs page 2
	assert.False(t, result.Comparisons[0].Equivalent)
	// page 1 vs search: same latency profile
	assert.Equal(t, result.Trials[0].Trial.String(), result.Comparisons[1].A)
	assert.Equal(t, result.Trials[2].Trial.String(), result.Comparisons[1].B)
}

func TestRunTrials_InsufficientSamples(t *testing.T) {
	cfg, err := ParseConfig([]byte(experimentFile), "experiments.yaml")
	require.NoError(t, err)
	trials, err := Expand(cfg, []string{"search"})
	require.NoError(t, err)

	failing := ExecutorFunc(func(ctx context.Context, t Trial) AttemptResult {
		return AttemptResult{Err: errors.New("connection refused")}
	})

	result, err := RunTrials(context.Background(), trials, Options{Executor: failing})
	require.NoError(t, err)
	require.Len(t, result.Trials, 1)

	tr := result.Trials[0]
	assert.ErrorIs(t, tr.Err, stats.ErrInsufficientSamples)
	assert.Nil(t, tr.Analysis)
	assert.Equal(t, 4, tr.Results.Failures())
	assert.Empty(t, result.Comparisons)
}

func TestRunTrials_Cancelled(t *testing.T) {
	cfg, err := ParseConfig([]byte(experimentFile), "experiments.yaml")
	require.NoError(t, err)
	trials, err := Expand(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int64
	exec := ExecutorFunc(func(c context.Context, t Trial) AttemptResult {
		// the first trial completes; the run is cancelled during the second
		if calls.Add(1) == 8 {
			cancel()
		}
		return AttemptResult{Duration: time.Millisecond}
	})

	result, err := RunTrials(ctx, trials, Options{Executor: exec, Parallelism: 1})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.True(t, result.Interrupted)

	require.Len(t, result.Trials, 3)
	assert.NotNil(t, result.Trials[0].Analysis)
	assert.Nil(t, result.Trials[1].Results)
	assert.Nil(t, result.Trials[2].Results)
}

func TestRunTrials_InvalidAlpha(t *testing.T) {
	alpha := 0.5
	_, err := RunTrials(context.Background(), nil, Options{Alpha: &alpha})
	var lookupErr *stats.LookupError
	assert.ErrorAs(t, err, &lookupErr)
}

func TestRunTrials_ZeroAlphaKept(t *testing.T) {
	cfg, err := ParseConfig([]byte(experimentFile), "experiments.yaml")
	require.NoError(t, err)
	trials, err := Expand(cfg, []string{"search"})
	require.NoError(t, err)

	var calls atomic.Int64
	defaults, err := RunTrials(context.Background(), trials, Options{Executor: fixedLatency(&calls)})
	require.NoError(t, err)

	zero := 0.0
	strict, err := RunTrials(context.Background(), trials, Options{Executor: fixedLatency(&calls), Alpha: &zero})
	require.NoError(t, err)

	assert.Equal(t, 0.0, strict.Alpha)
	require.NotNil(t, strict.Trials[0].Analysis)
	assert.Equal(t, 0.0, strict.Trials[0].Analysis.Alpha)
	assert.Greater(t, strict.Trials[0].Analysis.Margin, defaults.Trials[0].Analysis.Margin)
}

type countingTransport struct {
	calls atomic.Int64
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return http.DefaultTransport.RoundTrip(req)
}

func TestRun_HTTP(t *testing.T) {
	var hits atomic.Int64
	var agents sync.Map
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		agents.Store(r.URL.Path, r.UserAgent())
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	cfg, err := ParseConfig([]byte(`
experiments:
  ping:
    url: `+server.URL+`/ping
    samples: 3
    warmup: 1
`), "ping.yaml")
	require.NoError(t, err)

	transport := &countingTransport{}
	result, err := Run(context.Background(), cfg, Options{Timeout: 5 * time.Second, Transport: transport})
	require.NoError(t, err)
	assert.Equal(t, int64(4), hits.Load())
	assert.Equal(t, int64(4), transport.calls.Load())
	require.Len(t, result.Trials, 1)
	require.NotNil(t, result.Trials[0].Analysis)
	assert.Equal(t, int64(64), result.Trials[0].Results.Results[0].Bytes)

	agent, _ := agents.Load("/ping")
	assert.Equal(t, UserAgent, agent)
}

func TestRun_HTTPTrialUserAgentWins(t *testing.T) {
	var agent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.UserAgent())
	}))
	defer server.Close()

	cfg, err := ParseConfig([]byte(`
experiments:
  ping:
    url: `+server.URL+`
    headers:
      User-Agent: custom/1.0
    samples: 2
    warmup: 0
`), "ping.yaml")
	require.NoError(t, err)

	_, err = Run(context.Background(), cfg, Options{})
	require.NoError(t, err)
	assert.Equal(t, "custom/1.0", agent.Load())
}
