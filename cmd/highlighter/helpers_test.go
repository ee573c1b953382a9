package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"HIGHLIGHT_CATEGORIES_FILE",
	"HIGHLIGHT_LEGEND_FILE",
	"HIGHLIGHT_MAX_STEPS",
	"HIGHLIGHT_MAX_DURATION",
	"HIGHLIGHT_VERBOSE",
	"PORT",
	"DATABASE_URL",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
	"MAX_BODY_BYTES",
}

// runCLI executes the root command in-process with fresh flag state and
// returns what it wrote to stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
	}
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const remoteCategories = `{
	"version": 1,
	"categories": [
		{"id": "remote", "label": "Remote", "kind": "decorative", "keywords": ["remote"]}
	]
}`

const remoteLegend = `{
	"entries": [
		{"category": "remote", "label": "Remote", "examples": ["remote"], "color": "emerald"}
	]
}`
