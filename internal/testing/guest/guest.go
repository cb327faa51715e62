// Package guest compiles the wasip1 guest programs under cmd/ on demand, so
// tests run real Go-built WebAssembly without checking binaries in.
package guest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"
)

// Mode selects how the guest is linked.
type Mode int

const (
	// Command links a WASI command: _start runs main, then the module exits.
	Command Mode = iota
	// Reactor links a WASI reactor (-buildmode=c-shared): _initialize readies
	// the Go runtime and the exports stay callable.
	Reactor
)

func (m Mode) String() string {
	if m == Reactor {
		return "reactor"
	}
	return "command"
}

// Guest packages, relative to the module root.
const (
	Adder       = "cmd/adder"
	Accumulator = "cmd/accumulator"
)

type key struct {
	pkg  string
	mode Mode
}

var (
	mux   sync.Mutex
	built = map[key][]byte{}
)

// Build compiles pkg, relative to the module root, with GOOS=wasip1 and
// GOARCH=wasm. Results are cached for the life of the test binary.
func Build(pkg string, mode Mode) ([]byte, error) {
	mux.Lock()
	defer mux.Unlock()

	k := key{pkg, mode}
	if wasm, ok := built[k]; ok {
		return wasm, nil
	}
	wasm, err := compileWasip1Wasm(pkg, mode)
	if err != nil {
		return nil, err
	}
	built[k] = wasm
	return wasm, nil
}

// MustBuild is like Build, but fails the test on error.
func MustBuild(tb testing.TB, pkg string, mode Mode) []byte {
	tb.Helper()
	wasm, err := Build(pkg, mode)
	if err != nil {
		tb.Fatal(err)
	}
	return wasm
}

func compileWasip1Wasm(pkg string, mode Mode) ([]byte, error) {
	goBin, err := findGoBin()
	if err != nil {
		return nil, err
	}
	root, err := moduleRoot(pkg)
	if err != nil {
		return nil, err
	}

	workdir, err := os.MkdirTemp("", "wasmcalc")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workdir)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	bin := filepath.Join(workdir, filepath.Base(pkg)+".wasm")
	args := []string{"build", "-o", bin}
	if mode == Reactor {
		args = append(args, "-buildmode=c-shared")
	}
	args = append(args, "./"+pkg)

	cmd := exec.CommandContext(ctx, goBin, args...)
	cmd.Env = append(os.Environ(), "GOOS=wasip1", "GOARCH=wasm", "CGO_ENABLED=0")
	cmd.Dir = root
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("couldn't compile %s as a %s: %s: %w", pkg, mode, out, err)
	}
	return os.ReadFile(bin)
}

func findGoBin() (string, error) {
	binName := "go"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	goBin := filepath.Join(runtime.GOROOT(), "bin", binName)
	if _, err := os.Stat(goBin); err == nil {
		return goBin, nil
	}
	// Now, search the path
	return exec.LookPath(binName)
}

// moduleRoot walks up from the working directory, which is the package
// directory under test, to the directory holding go.mod and pkg. Checking pkg
// skips nested modules such as vs.
func moduleRoot(pkg string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err = os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			if _, err = os.Stat(filepath.Join(dir, pkg)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("module containing %s not found", pkg)
		}
		dir = parent
	}
}
