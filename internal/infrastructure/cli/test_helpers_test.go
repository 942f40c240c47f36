package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// runCLI executes the root command in-process and returns what it printed.
// Flag values persist between Execute calls, so every run starts from the
// defaults.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(RootCmd)
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(io.Discard)
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// newWorkspace initializes a workspace in a temp dir and returns its root.
func newWorkspace(t *testing.T) string {
	t.Helper()
	t.Setenv("PACER_LOG_LEVEL", "error")
	t.Setenv("PACER_AI_PROVIDER", "mock")
	t.Setenv("PACER_ROOT", "")
	t.Setenv("PACER_USER", "")
	root := t.TempDir()
	if _, err := runCLI(t, "init", "--root", root); err != nil {
		t.Fatalf("init: %v", err)
	}
	return root
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}
