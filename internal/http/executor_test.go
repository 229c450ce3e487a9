package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/perfdiff/internal/config"
	"github.com/wesleyorama2/perfdiff/internal/params"
	"github.com/wesleyorama2/perfdiff/internal/trial"
)

func newUserServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer foo" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/users/7":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":7,"page":"` + r.URL.Query().Get("page") + `","active":true}`))
		case "/text":
			w.Write([]byte("plain"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestExecutor_Success(t *testing.T) {
	server := newUserServer(t)
	exec := NewExecutor()

	res := exec.Execute(context.Background(), trial.Trial{
		Name:    "user",
		URL:     server.URL + "/users/7",
		Headers: map[string]string{"Authorization": "Bearer foo"},
		Query:   params.Binding{"page": "2"},
		Timeout: 5 * time.Second,
		Expect: &config.Expectation{
			Status: 200,
			JSON:   map[string]string{"id": "7", "page": "2", "active": "true"},
		},
	})

	require.NoError(t, res.Err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Positive(t, res.Duration)
	assert.Equal(t, int64(len(`{"id":7,"page":"2","active":true}`)), res.Bytes)
}

func TestExecutor_NonSuccessStatusWithoutExpectation(t *testing.T) {
	server := newUserServer(t)
	res := NewExecutor().Execute(context.Background(), trial.Trial{URL: server.URL + "/missing"})

	assert.NoError(t, res.Err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestExecutor_UnmetExpectations(t *testing.T) {
	server := newUserServer(t)
	auth := map[string]string{"Authorization": "Bearer foo"}

	tests := []struct {
		name    string
		path    string
		expect  *config.Expectation
		wantMsg string
	}{
		{
			name:    "status",
			path:    "/missing",
			expect:  &config.Expectation{Status: 200},
			wantMsg: "status 404, expected 200",
		},
		{
			name:    "json value",
			path:    "/users/7",
			expect:  &config.Expectation{JSON: map[string]string{"id": "8"}},
			wantMsg: `id: got "7", expected "8"`,
		},
		{
			name:    "json path missing",
			path:    "/users/7",
			expect:  &config.Expectation{JSON: map[string]string{"name": "x"}},
			wantMsg: "name: not found",
		},
		{
			name:    "body not json",
			path:    "/text",
			expect:  &config.Expectation{JSON: map[string]string{"id": "7"}},
			wantMsg: "not valid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewExecutor().Execute(context.Background(), trial.Trial{
				URL:     server.URL + tt.path,
				Headers: auth,
				Expect:  tt.expect,
			})

			require.Error(t, res.Err)
			assert.True(t, res.Failed())
			var expErr *ExpectationError
			require.True(t, errors.As(res.Err, &expErr))
			assert.Contains(t, res.Err.Error(), tt.wantMsg)
			assert.NotZero(t, res.StatusCode)
		})
	}
}

func TestExecutor_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	res := NewExecutor().Execute(context.Background(), trial.Trial{URL: url})
	require.Error(t, res.Err)
	assert.Zero(t, res.StatusCode)
}

func TestExecutor_TrialTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	res := NewExecutor().Execute(context.Background(), trial.Trial{URL: server.URL, Timeout: 20 * time.Millisecond})
	require.Error(t, res.Err)
	assert.True(t, strings.Contains(res.Err.Error(), "deadline") || errors.Is(res.Err, context.DeadlineExceeded))
}

func TestExecutor_WithRunner(t *testing.T) {
	server := newUserServer(t)
	runner := trial.NewRunner(NewExecutor())

	rs, err := runner.Run(context.Background(), trial.Trial{
		Name:    "user",
		URL:     server.URL + "/users/7",
		Headers: map[string]string{"Authorization": "Bearer foo"},
		Samples: 5,
		Warmup:  2,
		Expect:  &config.Expectation{Status: 200},
	})
	require.NoError(t, err)
	assert.Len(t, rs.Results, 5)
	assert.Zero(t, rs.Failures())
}

func TestCheckExpectation_Nil(t *testing.T) {
	assert.NoError(t, CheckExpectation(&Response{StatusCode: 500}, nil))
}
