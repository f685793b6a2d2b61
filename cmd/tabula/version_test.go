package main

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })

	Version = "0.1.0-test"
	GitCommit = "abc123"
	BuildDate = "2025-11-20"

	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })
	versionCmd.Run(versionCmd, nil)

	for _, want := range []string{
		"Tabula 0.1.0-test",
		"Git Commit: abc123",
		"Build Date: 2025-11-20",
		"Go Version: " + runtime.Version(),
		"OS/Arch: " + runtime.GOOS + "/" + runtime.GOARCH,
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRootCommandTree(t *testing.T) {
	want := []string{"benchmark", "completion", "evaluate", "evidence", "explain", "lint", "run", "version"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}

	sub, _, err := rootCmd.Find([]string{"evidence", "prune"})
	if err != nil || sub.Name() != "prune" {
		t.Error("evidence prune not registered")
	}
}
