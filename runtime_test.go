package wasmcalc

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tetratelabs/wazero"
	"go.uber.org/goleak"

	"github.com/wasmcalc/wasmcalc/internal/testing/guest"
	"github.com/wasmcalc/wasmcalc/internal/testing/require"
)

// testCtx is an arbitrary, non-default context. Non-nil also prevents linter errors.
var testCtx = context.WithValue(context.Background(), struct{}{}, "arbitrary")

// engines runs each test against the compiler and the interpreter.
var engines = []struct {
	name   string
	config Config
}{
	{name: "compiler", config: NewConfig()},
	{name: "interpreter", config: NewConfig().WithInterpreter(true)},
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newRuntime(t *testing.T, c Config) *Runtime {
	t.Helper()
	rt, err := NewRuntime(testCtx, c)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rt.Close(testCtx)) })
	return rt
}

func TestNewRuntime_NilConfig(t *testing.T) {
	rt := newRuntime(t, nil)

	a, err := rt.InstantiateAdder(testCtx, guest.MustBuild(t, guest.Adder, guest.Reactor))
	require.NoError(t, err)
	sum, err := a.AddNums(testCtx, 10, 13)
	require.NoError(t, err)
	require.Equal(t, int32(23), sum)
}

func TestNewRuntime_CompilationCache(t *testing.T) {
	wasm := guest.MustBuild(t, guest.Adder, guest.Reactor)
	dir := t.TempDir()

	// The second runtime reads what the first compiled.
	for i := 0; i < 2; i++ {
		rt := newRuntime(t, NewConfig().WithCompilationCacheDir(dir))
		a, err := rt.InstantiateAdder(testCtx, wasm)
		require.NoError(t, err)

		sum, err := a.AddNums(testCtx, 1, 2)
		require.NoError(t, err)
		require.Equal(t, int32(3), sum)
	}
}

func TestNewRuntime_InvalidCacheDir(t *testing.T) {
	notDir := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(notDir, []byte("pooh"), 0o600))

	_, err := NewRuntime(testCtx, NewConfig().WithCompilationCacheDir(notDir))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid compilation cache dir")
}

func TestRuntime_Compile(t *testing.T) {
	rt := newRuntime(t, NewConfig())

	t.Run("adder", func(t *testing.T) {
		compiled, err := rt.Compile(testCtx, guest.MustBuild(t, guest.Adder, guest.Reactor))
		require.NoError(t, err)
		defer compiled.Close(testCtx)

		_, ok := compiled.ExportedFunctions()["addNums"]
		require.True(t, ok)
	})

	t.Run("not wasm", func(t *testing.T) {
		_, err := rt.Compile(testCtx, []byte("pooh"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "error compiling wasm binary")
	})
}

// envImportWasm returns a module that only imports the function name from
// "env", typed (i32) -> () or (i32) -> i32 when result is set.
func envImportWasm(name string, result bool) []byte {
	typeSec := []byte{0x01, 0x60, 0x01, 0x7f, 0x00} // one func type: (i32) -> ()
	if result {
		typeSec = []byte{0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f} // (i32) -> i32
	}
	importSec := append([]byte{0x01, 0x03, 'e', 'n', 'v', byte(len(name))}, name...)
	importSec = append(importSec, 0x00, 0x00) // func, type index 0

	wasm := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00} // magic and version
	wasm = append(wasm, 0x01, byte(len(typeSec)))
	wasm = append(wasm, typeSec...)
	wasm = append(wasm, 0x02, byte(len(importSec)))
	return append(wasm, importSec...)
}

func TestRuntime_Compile_Emscripten(t *testing.T) {
	instantiate := func(t *testing.T, rt *Runtime, wasm []byte) error {
		compiled, err := rt.Compile(testCtx, wasm)
		if err != nil {
			return err
		}
		defer compiled.Close(testCtx)

		mod, err := rt.r.InstantiateModule(testCtx, compiled, wazero.NewModuleConfig().WithName(""))
		require.NoError(t, err)
		return mod.Close(testCtx)
	}

	t.Run("no env imports", func(t *testing.T) {
		rt := newRuntime(t, NewConfig())

		require.NoError(t, instantiate(t, rt, guest.MustBuild(t, guest.Adder, guest.Reactor)))
		require.Nil(t, rt.r.Module(emscriptenModuleName))
	})

	t.Run("invoke", func(t *testing.T) {
		rt := newRuntime(t, NewConfig())
		invokeV := envImportWasm("invoke_v", false)

		require.NoError(t, instantiate(t, rt, invokeV))
		env := rt.r.Module(emscriptenModuleName)
		require.NotNil(t, env)
		_, ok := env.ExportedFunctionDefinitions()["invoke_v"]
		require.True(t, ok)

		// Another guest importing the same functions shares "env".
		require.NoError(t, instantiate(t, rt, invokeV))
		require.Equal(t, env, rt.r.Module(emscriptenModuleName))
	})

	t.Run("invoke not in env", func(t *testing.T) {
		rt := newRuntime(t, NewConfig())
		require.NoError(t, instantiate(t, rt, envImportWasm("invoke_v", false)))

		// "env" was defined by the first guest, so it lacks invoke_i.
		err := instantiate(t, rt, envImportWasm("invoke_i", true))
		require.ErrorIs(t, err, ErrMissingExport)
		require.Contains(t, err.Error(), `"env.invoke_i"`)
	})

	t.Run("not an emscripten function", func(t *testing.T) {
		rt := newRuntime(t, NewConfig())

		err := instantiate(t, rt, envImportWasm("emscripten_resize_heap", true))
		require.ErrorIs(t, err, ErrMissingExport)
		require.Contains(t, err.Error(), `"env.emscripten_resize_heap"`)
	})
}

func TestRuntime_HostLogging(t *testing.T) {
	var log bytes.Buffer
	var stdout bytes.Buffer
	rt := newRuntime(t, NewConfig().
		WithStdout(&stdout).
		WithHostLogging(&log, logScopesFilesystem))

	code, err := rt.Run(testCtx, guest.MustBuild(t, guest.Adder, guest.Command))
	require.NoError(t, err)
	require.Equal(t, uint32(0), code)
	require.Equal(t, "Sum: 23\n", stdout.String())

	// fd_write to stdio isn't logged, but the Go runtime inspects stdin.
	require.Contains(t, log.String(), "fd_fdstat_get(fd=0)")
}

func TestRuntime_CallTracing(t *testing.T) {
	var log bytes.Buffer
	rt := newRuntime(t, NewConfig().WithCallTracing(&log))

	a, err := rt.InstantiateAdder(testCtx, guest.MustBuild(t, guest.Adder, guest.Reactor))
	require.NoError(t, err)

	log.Reset() // ignore the guest's initialization
	_, err = a.AddNums(testCtx, 10, 13)
	require.NoError(t, err)
	require.Contains(t, log.String(), "addNums")
}

func TestRuntime_CloseTwice(t *testing.T) {
	rt, err := NewRuntime(testCtx, NewConfig())
	require.NoError(t, err)

	require.NoError(t, rt.Close(testCtx))
	require.NoError(t, rt.Close(testCtx))
}
