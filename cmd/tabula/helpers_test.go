package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"mercator-hq/tabula/pkg/config"
)

// execute runs a command function with captured stdout and the given stdin.
func execute(t *testing.T, run func(*cobra.Command, []string) error, stdin string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err := run(cmd, nil)
	return out.String(), err
}

// withConfig installs a modified copy of the process configuration for the
// duration of the test.
func withConfig(t *testing.T, mutate func(*config.Config)) {
	t.Helper()
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	orig := *cfg
	modified := *cfg
	mutate(&modified)
	config.SetConfig(&modified)
	t.Cleanup(func() { config.SetConfig(&orig) })
}
