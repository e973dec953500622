package cli

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crawler.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	want := []string{
		"status", "enable", "disable", "run-once", "test", "history",
		"health-check", "schedule", "serve", "cache", "completion",
	}
	have := make(map[string]bool)
	for _, cmd := range root.Commands() {
		have[cmd.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestTestCommand_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
[http]
cache_backend = "none"

[db]
path = "`+filepath.ToSlash(filepath.Join(t.TempDir(), "crawl.db"))+`"
`)

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"--config", path, "test"})
	if err := root.Execute(); err != nil {
		t.Errorf("test command failed on valid config: %v", err)
	}
}

func TestTestCommand_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "[crawler]\nmax_candidates_per_run = -1\n")

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"--config", path, "test"})
	if err := root.Execute(); err == nil {
		t.Error("test command must fail on invalid config")
	}
}

func TestEnable_DeclinedConfirmationAborts(t *testing.T) {
	// Feed "n" to the confirmation prompt.
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.WriteString("n\n"); err != nil {
		t.Fatal(err)
	}
	w.Close()
	orig := os.Stdin
	os.Stdin = r
	t.Cleanup(func() { os.Stdin = orig })

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"enable"})
	if err := root.Execute(); !errors.Is(err, ErrAborted) {
		t.Errorf("err = %v, want ErrAborted", err)
	}
}
