package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[log]
verbosity = 2
file = "logs/bt.log"

[source]
preload = ["lib/util.bt", "/abs/prelude.bt"]

[repl]
prompt = "bt> "
history = ".backtalker/history.db"
history-size = 50

[server]
addr = ":9000"
result-ttl = "90s"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.Log.Verbosity != 2 {
		t.Errorf("verbosity = %d, want 2", c.Log.Verbosity)
	}
	if got := *c.LogFile(); got != filepath.Join(c.Dir, "logs/bt.log") {
		t.Errorf("LogFile = %q", got)
	}
	if c.REPL.Prompt != "bt> " || c.REPL.HistorySize != 50 {
		t.Errorf("repl = %+v", c.REPL)
	}
	if c.REPL.Continuation != "... " {
		t.Errorf("continuation = %q, want the default", c.REPL.Continuation)
	}
	if c.Server.Addr != ":9000" {
		t.Errorf("addr = %q, want :9000", c.Server.Addr)
	}
	if c.Server.ResultTTL.Duration != 90*time.Second {
		t.Errorf("result-ttl = %v, want 90s", c.Server.ResultTTL)
	}
	if c.Server.SweepInterval.Duration != 5*time.Minute {
		t.Errorf("sweep-interval = %v, want the 5m default", c.Server.SweepInterval)
	}

	paths := c.PreloadPaths()
	if len(paths) != 2 {
		t.Fatalf("preload paths = %v", paths)
	}
	if paths[0] != filepath.Join(c.Dir, "lib/util.bt") {
		t.Errorf("paths[0] = %q", paths[0])
	}
	if paths[1] != "/abs/prelude.bt" {
		t.Errorf("paths[1] = %q, want the absolute path unchanged", paths[1])
	}
	if c.HistoryPath() != filepath.Join(c.Dir, ".backtalker/history.db") {
		t.Errorf("HistoryPath = %q", c.HistoryPath())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown section", "[bogus]\nx = 1\n"},
		{"unknown key", "[repl]\ncolour = \"red\"\n"},
		{"verbosity range", "[log]\nverbosity = 9\n"},
		{"bad duration", "[server]\nresult-ttl = \"soon\"\n"},
		{"bad addr", "[server]\naddr = \"localhost\"\n"},
		{"preload extension", "[source]\npreload = [\"util.txt\"]\n"},
		{"negative history", "[repl]\nhistory-size = -1\n"},
		{"wrong type", "[repl]\nprompt = 3\n"},
	}
	for _, tc := range tests {
		dir := t.TempDir()
		writeConfig(t, dir, tc.content)
		_, err := Load(dir)
		if err == nil {
			t.Errorf("%s: Load succeeded, want error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), "invalid") {
			t.Errorf("%s: error = %v, want a validation error", tc.name, err)
		}
	}
}

func TestLoadSyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[repl\n")
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "parse error") {
		t.Errorf("error = %v, want parse error", err)
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	if c.REPL.Prompt != "> " || c.REPL.HistorySize != 1000 {
		t.Errorf("repl defaults = %+v", c.REPL)
	}
	if c.HistoryPath() != "" {
		t.Errorf("default HistoryPath = %q, want empty", c.HistoryPath())
	}
	if c.LogFile() != nil {
		t.Error("default LogFile should be nil")
	}
	if c.Server.ResultTTL.Duration != 30*time.Minute {
		t.Errorf("default result-ttl = %v", c.Server.ResultTTL)
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, dir, "[repl]\nprompt = \"found> \"\n")

	// Should find the config when starting from a deep subdirectory
	c, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if c.REPL.Prompt != "found> " {
		t.Errorf("prompt = %q, want found> ", c.REPL.Prompt)
	}
	abs, _ := filepath.Abs(dir)
	if c.Dir != abs {
		t.Errorf("Dir = %q, want %q", c.Dir, abs)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	c, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if c != nil {
		t.Error("expected nil config when no backtalker.toml exists")
	}
}
