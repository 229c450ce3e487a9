package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_OneExperiment(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
experiments:
  sample:
    url: http://localhost
    headers:
      Auth: Bearer foo
    query:
      user_id: barbaz
      other_thing: 55
      account_id:
        - foobar
        - 6
`), "test.yaml")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Nil(t, cfg.Config)
	require.Contains(t, cfg.Experiments, "sample")

	e := cfg.Experiments["sample"]
	assert.Equal(t, "sample", e.Name)
	assert.Equal(t, "http://localhost", e.URL)
	assert.Equal(t, map[string]string{"Auth": "Bearer foo"}, e.Headers)
	assert.Nil(t, e.Params)
	assert.Equal(t, ParamSet{
		"user_id":     Single(StringEntry("barbaz")),
		"other_thing": Single(IntEntry(55)),
		"account_id":  List(StringEntry("foobar"), IntEntry(6)),
	}, e.Query)
}

func TestParseConfig_Minimal(t *testing.T) {
	cfg, err := ParseConfig([]byte("experiments: {}\n"), "")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Nil(t, cfg.Config)
	assert.Empty(t, cfg.Experiments)
	assert.NotNil(t, cfg.Experiments)
}

func TestParseConfig_FullSettings(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
config:
  url: https://api.example.com/users
  headers:
    X-Trace: 1
  warmup: 3
  samples: 10
  timeout: 5s
  rate: 20
experiments:
  lookup:
    url: https://api.example.com/users/{{id}}
    params:
      id: [1, 2]
    samples: 30
    warmup: 0
    timeout: 2
    expect:
      status: 200
      json:
        data.active: true
`), "test.yml")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.NotNil(t, cfg.Config)
	assert.Equal(t, "1", cfg.Config.Headers["X-Trace"])
	assert.Equal(t, 3, *cfg.Config.Warmup)
	assert.Equal(t, 20.0, cfg.Config.Rate)
	assert.Equal(t, "5s", cfg.Config.Timeout.String())

	e := cfg.Experiments["lookup"]
	assert.Equal(t, 30, cfg.SamplesFor(e))
	assert.Equal(t, 0, cfg.WarmupFor(e))
	assert.Equal(t, "2s", e.Timeout.String())
	require.NotNil(t, e.Expect)
	assert.Equal(t, 200, e.Expect.Status)
	assert.Equal(t, "true", e.Expect.JSON["data.active"])
}

func TestParseConfig_JSON(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{
  "experiments": {
    "demo": {"url": "http://x", "query": {"a": [1, 2], "b": "c"}}
  }
}`), "test.json")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, List(IntEntry(1), IntEntry(2)), cfg.Experiments["demo"].Query["a"])
	assert.Equal(t, Single(StringEntry("c")), cfg.Experiments["demo"].Query["b"])
}

func TestParseConfig_SchemaViolations(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantPath string
	}{
		{
			name:     "missing experiments",
			input:    "config:\n  url: http://x\n",
			wantPath: "(root)",
		},
		{
			name:     "unknown experiment field",
			input:    "experiments:\n  demo:\n    url: http://x\n    method: POST\n",
			wantPath: "experiments.demo",
		},
		{
			name:     "float query value",
			input:    "experiments:\n  demo:\n    url: http://x\n    query:\n      a: 1.5\n",
			wantPath: "experiments.demo.query.a",
		},
		{
			name:     "nested mapping query value",
			input:    "experiments:\n  demo:\n    url: http://x\n    query:\n      a: {b: 1}\n",
			wantPath: "experiments.demo.query.a",
		},
		{
			name:     "samples below two",
			input:    "experiments:\n  demo:\n    url: http://x\n    samples: 1\n",
			wantPath: "experiments.demo.samples",
		},
		{
			name:     "null experiment",
			input:    "experiments:\n  demo:\n",
			wantPath: "experiments.demo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.input), "test.yaml")
			require.Error(t, err)

			var verrs *ValidationErrors
			require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %T: %v", err, err)
			paths := make([]string, 0, len(verrs.Errors))
			for _, e := range verrs.Errors {
				paths = append(paths, e.Path)
			}
			assert.Contains(t, paths, tt.wantPath)
		})
	}
}

func TestParseConfig_InvalidYAML(t *testing.T) {
	_, err := ParseConfig([]byte("experiments: [unclosed"), "test.yaml")
	require.Error(t, err)
	var cerr *ConfigError
	assert.True(t, errors.As(err, &cerr))
}

func TestParseConfig_Empty(t *testing.T) {
	_, err := ParseConfig([]byte(""), "test.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "experiments.yaml")
	require.NoError(t, os.WriteFile(path, []byte("experiments:\n  demo:\n    url: http://x\n"), 0644))

	cfg, err := LoadAndValidate(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo"}, cfg.ExperimentNames())

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPointerToPath(t *testing.T) {
	assert.Equal(t, "(root)", pointerToPath(""))
	assert.Equal(t, "experiments.demo.url", pointerToPath("/experiments/demo/url"))
	assert.Equal(t, "headers.a/b", pointerToPath("/headers/a~1b"))
}
