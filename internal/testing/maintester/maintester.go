// Package maintester runs a guest's entry routine in-process, with os.Args,
// os.Stdout and os.Stderr redirected, so tests can assert on its exit code
// and on what it prints.
package maintester

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wasmcalc/wasmcalc/internal/testing/require"
)

// Run calls entry with os.Args set to args. It returns the exit code entry
// would pass to os.Exit and what it wrote to stdout and stderr.
func Run(t *testing.T, entry func() int, args ...string) (exitCode int, stdout, stderr string) {
	t.Helper()
	dir := t.TempDir()
	outF := createFile(t, dir, "stdout.txt")
	errF := createFile(t, dir, "stderr.txt")

	oldArgs, oldStdout, oldStderr := os.Args, os.Stdout, os.Stderr
	restored := false
	restore := func() {
		if restored {
			return
		}
		restored = true
		os.Args, os.Stdout, os.Stderr = oldArgs, oldStdout, oldStderr
		_ = outF.Close()
		_ = errF.Close()
	}
	defer restore() // even when entry panics

	os.Args, os.Stdout, os.Stderr = args, outF, errF
	exitCode = entry()

	// Restore first, so a failure reading the output is visible.
	restore()
	return exitCode, readFile(t, outF.Name()), readFile(t, errF.Name())
}

func createFile(t *testing.T, dir, name string) *os.File {
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	return f
}

// readFile returns the file's content with windows newlines normalized.
func readFile(t *testing.T, path string) string {
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.ReplaceAll(string(b), "\r\n", "\n")
}
