package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func configDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	toml := `[interpreter]
name = "cli-test"
verbosity = -4

[release]
copyright = "trellis - Copyright (c) test"
`
	if err := os.WriteFile(filepath.Join(dir, "trellis.toml"), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"-config", configDir(t)}, args...), &stdout, &stderr)
	return code, strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String())
}

func TestRunSend(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"7", "div", "2"}, "3"},
		{[]string{"7", "div", "-2"}, "-4"},
		{[]string{"7", "-", "10"}, "-3"},
		{[]string{"1.5", "+", "1"}, "2.5"},
		{[]string{"hello", "length"}, "5"},
		{[]string{"nil", "inspect"}, `"nil"`},
		{[]string{":sym", "to_s"}, `"sym"`},
		{[]string{"65", "chr"}, `"A"`},
		{[]string{"TRELLIS_ENGINE", "to_s"}, `"trellis"`},
		{[]string{"Integer", "name"}, `"Integer"`},
		{[]string{"ARGV", "length", "--", "a", "b", "c"}, "3"},
		{[]string{"ARGV", "inspect", "--", "x y"}, `"[\"x y\"]"`},
		{[]string{"ARGV", "empty?"}, "true"},
	}
	for _, tt := range tests {
		code, out, errOut := runCLI(t, tt.args...)
		if code != 0 {
			t.Errorf("%v: exit %d, stderr %q", tt.args, code, errOut)
			continue
		}
		if out != tt.want {
			t.Errorf("%v: got %q, want %q", tt.args, out, tt.want)
		}
	}
}

func TestRunGuestException(t *testing.T) {
	code, out, errOut := runCLI(t, "1", "/", "0")
	if code != 1 || out != "" {
		t.Errorf("exit %d, stdout %q", code, out)
	}
	if errOut != "divided by 0 (ZeroDivisionError)" {
		t.Errorf("stderr = %q", errOut)
	}

	code, _, errOut = runCLI(t, "ARGV", "push", "x")
	if code != 1 || !strings.HasSuffix(errOut, "(FrozenError)") {
		t.Errorf("mutating ARGV: exit %d, stderr %q", code, errOut)
	}
}

func TestRunFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.txt")
	if err := os.WriteFile(path, []byte("four"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, _ := runCLI(t, "-fixture", path, "ARGV", "length")
	if code != 0 || out != "0" {
		t.Errorf("exit %d, stdout %q", code, out)
	}

	missing := filepath.Join(t.TempDir(), "missing.txt")
	code, _, errOut := runCLI(t, "-fixture", missing, "1", "+", "1")
	if code != 1 || errOut != "cannot load such file -- "+missing+" (LoadError)" {
		t.Errorf("exit %d, stderr %q", code, errOut)
	}
}

func TestRunCopyright(t *testing.T) {
	code, out, _ := runCLI(t, "-copyright")
	if code != 0 || out != "trellis - Copyright (c) test" {
		t.Errorf("exit %d, stdout %q", code, out)
	}
}

func TestRunUsage(t *testing.T) {
	code, _, errOut := runCLI(t, "1")
	if code != 2 || !strings.Contains(errOut, "Usage: trellis") {
		t.Errorf("exit %d, stderr %q", code, errOut)
	}
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", t.TempDir(), "1", "+", "1"}, &stdout, &stderr); code != 1 {
		t.Errorf("missing config file: exit %d", code)
	}
}

func TestSplitArgv(t *testing.T) {
	own, argv := splitArgv([]string{"-v", "x", "--", "a", "--", "b"})
	if len(own) != 2 || len(argv) != 3 || argv[1] != "--" {
		t.Errorf("got %v %v", own, argv)
	}
	own, argv = splitArgv([]string{"x"})
	if len(own) != 1 || argv != nil {
		t.Errorf("got %v %v", own, argv)
	}
}
