package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// executeCommand runs a fresh command tree with args and captures stdout and
// stderr separately.
func executeCommand(args ...string) (stdout, stderr string, err error) {
	rootCmd := NewRootCmd()
	outBuf, errBuf := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(outBuf)
	rootCmd.SetErr(errBuf)
	rootCmd.SetArgs(args)

	err = rootCmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestRootCommand_Help(t *testing.T) {
	stdout, _, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("--help returned error: %v", err)
	}

	for _, sub := range []string{"run", "trials", "validate"} {
		if !strings.Contains(stdout, sub) {
			t.Errorf("Expected help to list %q command", sub)
		}
	}
}

func TestRootCommand_Version(t *testing.T) {
	stdout, _, err := executeCommand("--version")
	if err != nil {
		t.Fatalf("--version returned error: %v", err)
	}
	if !strings.Contains(stdout, version) {
		t.Errorf("Expected version %s in output, got %q", version, stdout)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer

	newLogger(&buf, false, false).Info("hidden")
	newLogger(&buf, false, false).Warn("shown")
	newLogger(&buf, true, false).Debug("debug shown")
	newLogger(&buf, false, true).Warn("quiet hidden")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected suppressed records to be absent, got %q", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "msg=\"debug shown\"") {
		t.Errorf("Expected warn and verbose debug records, got %q", out)
	}
}
